// Package conftree implements the configuration tree shared between the
// control loop and the managed tasks. A Tree is a string-keyed tree whose
// values are either scalars (bool, numbers, strings) or nested Trees. The
// same representation serves as a live status snapshot and as a desired
// configuration document.
package conftree

import (
	"fmt"
	"sort"
	"strings"
)

// Tree is a recursively-nested configuration document.
// Values are scalars or nested Tree instances.
type Tree map[string]any

// New returns an empty Tree.
func New() Tree {
	return make(Tree)
}

// Clone returns a deep copy of the tree. Nested Trees are copied
// recursively; scalars are copied by value.
func (t Tree) Clone() Tree {
	if t == nil {
		return nil
	}
	out := make(Tree, len(t))
	for k, v := range t {
		if sub, ok := v.(Tree); ok {
			out[k] = sub.Clone()
		} else {
			out[k] = v
		}
	}
	return out
}

// Keys returns the tree's keys in sorted order.
func (t Tree) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Subtree returns the nested tree at key, or nil if the key is absent
// or holds a scalar.
func (t Tree) Subtree(key string) Tree {
	if t == nil {
		return nil
	}
	sub, _ := t[key].(Tree)
	return sub
}

// String returns the string value at key. The second return reports
// whether the key exists and holds a string.
func (t Tree) String(key string) (string, bool) {
	if t == nil {
		return "", false
	}
	s, ok := t[key].(string)
	return s, ok
}

// Has reports whether the key is present.
func (t Tree) Has(key string) bool {
	if t == nil {
		return false
	}
	_, ok := t[key]
	return ok
}

// Set assigns a value at key and returns the tree for chaining.
func (t Tree) Set(key string, value any) Tree {
	t[key] = value
	return t
}

// Merge applies every entry of src onto the tree. Nested trees are merged
// recursively; scalars overwrite. Keys absent from src are left untouched.
func (t Tree) Merge(src Tree) {
	for k, v := range src {
		if sub, ok := v.(Tree); ok {
			dst, ok := t[k].(Tree)
			if !ok {
				dst = make(Tree, len(sub))
				t[k] = dst
			}
			dst.Merge(sub)
			continue
		}
		t[k] = v
	}
}

// Dump renders the tree as a compact single-line document with sorted keys,
// suitable for log output.
func (t Tree) Dump() string {
	var b strings.Builder
	t.dump(&b)
	return b.String()
}

func (t Tree) dump(b *strings.Builder) {
	b.WriteByte('{')
	for i, k := range t.Keys() {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(b, "%q:", k)
		if sub, ok := t[k].(Tree); ok {
			sub.dump(b)
		} else {
			switch v := t[k].(type) {
			case string:
				fmt.Fprintf(b, "%q", v)
			default:
				fmt.Fprintf(b, "%v", v)
			}
		}
	}
	b.WriteByte('}')
}
