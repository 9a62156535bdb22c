package e2e

import (
	"testing"

	"github.com/fnly/tana/internal/source"
)

func TestBuildCatalog_EveryCaseHasAnEntry(t *testing.T) {
	c := BuildCatalog()
	names := make(map[string]bool, len(c.Entries))
	for _, e := range c.Entries {
		names[e.Name] = true
	}
	for _, tc := range c.TestCases {
		if !names[tc.ExpectedName] {
			t.Errorf("case %q expects unknown entry %q", tc.Query, tc.ExpectedName)
		}
	}
}

func TestCatalog_WriteFileIsReadable(t *testing.T) {
	c := BuildCatalog()
	path, err := c.WriteFile(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	recs, err := source.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != len(c.Entries) {
		t.Errorf("read %d records, want %d", len(recs), len(c.Entries))
	}
	if recs[0]["name"] != c.Entries[0].Name {
		t.Errorf("first record = %+v", recs[0])
	}
}
