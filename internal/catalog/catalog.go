// Package catalog holds the static table of cheaper alternatives. The
// recommendation engine and the cancellation flow both read from it.
package catalog

// Suggestion is the single alternative proposed by the recommendation engine.
type Suggestion struct {
	Alternative string  `json:"alternative"`
	Savings     float64 `json:"savings"`
}

// Entry describes the alternatives known for one service.
type Entry struct {
	Service      string
	Alternatives []string
	Suggested    Suggestion
}

// Catalog is a read-only lookup keyed by exact service name.
type Catalog struct {
	entries map[string]Entry
}

// DefaultEntries is the built-in table.
func DefaultEntries() []Entry {
	return []Entry{
		{
			Service:      "Adobe Creative Cloud",
			Alternatives: []string{"Canva Pro", "Affinity Suite"},
			Suggested:    Suggestion{Alternative: "Canva Pro", Savings: 43.00},
		},
		{
			Service:      "Dropbox Plus",
			Alternatives: []string{"Google One", "iCloud+"},
			Suggested:    Suggestion{Alternative: "Google One", Savings: 10.00},
		},
	}
}

func New(entries ...Entry) *Catalog {
	c := &Catalog{entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		c.entries[e.Service] = e
	}
	return c
}

// Default returns a catalog over DefaultEntries.
func Default() *Catalog {
	return New(DefaultEntries()...)
}

// Alternatives lists the known alternatives for name. Unknown names yield
// an empty, non-nil slice.
func (c *Catalog) Alternatives(name string) []string {
	e, ok := c.entries[name]
	if !ok {
		return []string{}
	}
	return append([]string(nil), e.Alternatives...)
}

// Suggestion returns the recommended alternative for name, if any.
func (c *Catalog) Suggestion(name string) (Suggestion, bool) {
	e, ok := c.entries[name]
	if !ok || e.Suggested.Alternative == "" {
		return Suggestion{}, false
	}
	return e.Suggested, true
}
