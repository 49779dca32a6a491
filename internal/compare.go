package internal

import (
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Fields consulted in order when ordering two records.
var SortKeys = []string{"sortTitle", "cleanTitle", "titleSlug", "title"}

// Comparator orders Sonarr/Radarr records by the first sort key present on
// both sides, using locale-aware collation. A collate.Collator is not safe
// for concurrent use, so calls are serialized.
type Comparator struct {
	mu       sync.Mutex
	collator *collate.Collator
}

func NewComparator(locale string) *Comparator {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return &Comparator{collator: collate.New(tag)}
}

// Compare returns -1, 0 or 1.
func (c *Comparator) Compare(a, b interface{}) int {
	ra, okA := asRecord(a)
	rb, okB := asRecord(b)
	if okA && okB {
		for _, key := range SortKeys {
			va, hasA := ra.Str(key)
			vb, hasB := rb.Str(key)
			if hasA && hasB {
				c.mu.Lock()
				r := c.collator.CompareString(va, vb)
				c.mu.Unlock()
				return r
			}
		}
	}
	return fallbackCompare(a, b)
}

// SortRecords sorts records in place; equal records keep their order.
func (c *Comparator) SortRecords(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return c.Compare(records[i], records[j]) < 0
	})
}

// fallbackCompare orders arbitrary values by their default string form,
// which is a total order and therefore keeps sorts well defined.
func fallbackCompare(a, b interface{}) int {
	return strings.Compare(jsString(a), jsString(b))
}

func asRecord(v interface{}) (Record, bool) {
	switch x := v.(type) {
	case Record:
		return x, x != nil
	case map[string]interface{}:
		return Record(x), x != nil
	}
	return nil, false
}
