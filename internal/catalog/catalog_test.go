package catalog

import (
	"testing"

	"github.com/rfnet/nfctap/internal/conftree"
)

func TestLookup_PrefixBeforeColon(t *testing.T) {
	c := Default()

	tests := []struct {
		identity string
		found    bool
	}{
		{"airspy:0", true},
		{"airspy:serial=0xDEADBEEF", true},
		{"rtlsdr:1", true},
		{"airspy", true}, // no separator, whole identity is the prefix
		{"hydrasdr:0", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.identity, func(t *testing.T) {
			_, ok := c.Lookup(tt.identity)
			if ok != tt.found {
				t.Errorf("Lookup(%q): found=%v, want %v", tt.identity, ok, tt.found)
			}
		})
	}
}

func TestLookup_ReturnsCopy(t *testing.T) {
	c := Default()

	first, _ := c.Lookup("airspy:0")
	first["gainValue"] = 99

	second, _ := c.Lookup("airspy:0")
	if second["gainValue"] != 3 {
		t.Error("Lookup must return a copy, not the catalog entry itself")
	}
}

func TestDefault_AirspyParameters(t *testing.T) {
	params, ok := Default().Lookup("airspy:0")
	if !ok {
		t.Fatal("airspy missing from default catalog")
	}

	want := conftree.Tree{
		"centerFreq": 40680000,
		"sampleRate": 10000000,
		"gainMode":   1,
		"gainValue":  3,
		"mixerAgc":   0,
		"tunerAgc":   0,
	}
	if d := conftree.Diff(params, want); len(d) != 0 {
		t.Errorf("airspy defaults differ: %s", d.Dump())
	}
}

func TestMerge_Overrides(t *testing.T) {
	c := Default()
	c.Merge(map[string]conftree.Tree{
		"airspy":   {"gainValue": 6},
		"hydrasdr": {"centerFreq": 13560000},
	})

	airspy, _ := c.Lookup("airspy:0")
	if airspy["gainValue"] != 6 {
		t.Errorf("override not applied: gainValue=%v", airspy["gainValue"])
	}
	if airspy["centerFreq"] != 40680000 {
		t.Error("unrelated keys must survive an override merge")
	}

	if _, ok := c.Lookup("hydrasdr:0"); !ok {
		t.Error("override with a new prefix should create a catalog entry")
	}
}
