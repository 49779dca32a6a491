package internal

import (
	"testing"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

func TestCompareUsesFirstSharedKey(t *testing.T) {
	c := NewComparator("en")
	a := Record{"sortTitle": "alpha", "title": "Zulu"}
	b := Record{"sortTitle": "bravo", "title": "Alpha"}
	if got := c.Compare(a, b); got >= 0 {
		t.Fatalf("expected sortTitle to decide, got %d", got)
	}
	// sortTitle missing on one side: cleanTitle decides.
	a = Record{"sortTitle": "zzz", "cleanTitle": "beta"}
	b = Record{"cleanTitle": "alpha"}
	if got := c.Compare(a, b); got <= 0 {
		t.Fatalf("expected cleanTitle to decide, got %d", got)
	}
	// Empty strings are not usable keys.
	a = Record{"sortTitle": "", "title": "b"}
	b = Record{"sortTitle": "a", "title": "a"}
	if got := c.Compare(a, b); got <= 0 {
		t.Fatalf("expected title to decide when sortTitle is empty, got %d", got)
	}
}

func TestCompareMatchesCollator(t *testing.T) {
	c := NewComparator("en")
	ref := collate.New(language.English)
	words := []string{"apple", "Apple", "banana", "Éclair", "eclair", "zebra", "Zoo", "10 things", "2 fast"}
	for _, x := range words {
		for _, y := range words {
			got := c.Compare(Record{"title": x}, Record{"title": y})
			want := ref.CompareString(x, y)
			if got != want {
				t.Fatalf("Compare(%q,%q)=%d want %d", x, y, got, want)
			}
		}
	}
}

func TestCompareIsStrictWeakOrdering(t *testing.T) {
	c := NewComparator("en")
	set := []interface{}{
		Record{"sortTitle": "office", "title": "The Office"},
		Record{"sortTitle": "expanse", "title": "The Expanse"},
		Record{"sortTitle": "andor", "title": "Andor"},
		Record{"sortTitle": "Dark", "title": "Dark"},
		Record{"sortTitle": "severance", "title": "Severance"},
		Record{"sortTitle": "Severance", "title": "severance"},
		Record{"sortTitle": "étoile", "title": "Étoile"},
		Record{"sortTitle": "24", "title": "24"},
	}
	for _, a := range set {
		if c.Compare(a, a) != 0 {
			t.Fatalf("Compare(a,a) != 0 for %v", a)
		}
		for _, b := range set {
			ab, ba := c.Compare(a, b), c.Compare(b, a)
			if sign(ab) != -sign(ba) {
				t.Fatalf("not antisymmetric: %v vs %v (%d, %d)", a, b, ab, ba)
			}
			for _, x := range set {
				if c.Compare(a, b) < 0 && c.Compare(b, x) < 0 && c.Compare(a, x) >= 0 {
					t.Fatalf("not transitive: %v < %v < %v", a, b, x)
				}
			}
		}
	}
}

func TestSortRecordsStable(t *testing.T) {
	c := NewComparator("en")
	records := []Record{
		{"id": 1.0, "title": "b"},
		{"id": 2.0, "title": "a"},
		{"id": 3.0, "title": "b"},
	}
	c.SortRecords(records)
	ids := Map(records, func(r Record) string { return r.ID() })
	if ids[0] != "2" || ids[1] != "1" || ids[2] != "3" {
		t.Fatalf("unexpected order %v", ids)
	}
}

func TestCompareFallbackForNonRecords(t *testing.T) {
	c := NewComparator("en")
	if got := c.Compare("b", "a"); got <= 0 {
		t.Fatalf("expected string fallback ordering, got %d", got)
	}
	if got := c.Compare(10.0, 9.0); got >= 0 {
		t.Fatalf("fallback compares string forms, so 10 < 9; got %d", got)
	}
	if got := c.Compare(nil, Record{"title": "x"}); got <= 0 {
		t.Fatalf("expected null > [object Object], got %d", got)
	}
	if got := c.Compare(Record{"title": "x"}, Record{"id": 1.0}); got != 0 {
		t.Fatalf("records without a shared key should tie, got %d", got)
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}
