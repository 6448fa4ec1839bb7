// Package catalog holds the static mapping from a capture device's
// identity prefix to its default desired parameter set.
package catalog

import (
	"strings"

	"github.com/rfnet/nfctap/internal/conftree"
)

// Catalog maps a device identity prefix to the desired parameter document
// for that device family.
type Catalog map[string]conftree.Tree

// Default returns the built-in receiver catalog.
func Default() Catalog {
	return Catalog{
		"airspy": {
			"centerFreq": 40680000, // 3rd harmonic of 13.56 MHz
			"sampleRate": 10000000,
			"gainMode":   1,
			"gainValue":  3,
			"mixerAgc":   0,
			"tunerAgc":   0,
		},
		"rtlsdr": {
			"centerFreq": 27120000, // 2nd harmonic of 13.56 MHz
			"sampleRate": 3200000,
			"gainMode":   1,
			"gainValue":  77,
			"mixerAgc":   0,
			"tunerAgc":   0,
		},
	}
}

// Lookup resolves the desired parameters for a device identity string.
// The catalog key is the identity's prefix up to its first ':' separator.
// The returned tree is a copy the caller may mutate.
func (c Catalog) Lookup(identity string) (conftree.Tree, bool) {
	prefix := identity
	if i := strings.IndexByte(identity, ':'); i >= 0 {
		prefix = identity[:i]
	}
	params, ok := c[prefix]
	if !ok {
		return nil, false
	}
	return params.Clone(), true
}

// Merge folds override parameter documents into the catalog, keyed by
// device prefix. Unknown prefixes create new entries.
func (c Catalog) Merge(overrides map[string]conftree.Tree) {
	for prefix, params := range overrides {
		entry, ok := c[prefix]
		if !ok {
			c[prefix] = params.Clone()
			continue
		}
		entry.Merge(params)
	}
}
