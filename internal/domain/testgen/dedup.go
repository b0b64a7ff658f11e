package testgen

// Deduplicator assigns final titles and drops duplicate test cases across all
// categories of one generation run. Positive, Negative, Edge Case and Data
// Flow cases share a single title namespace: only the normalized title governs
// duplicate detection, never the provider-supplied ids.
type Deduplicator struct {
	seen map[string]struct{}
}

func NewDeduplicator() *Deduplicator {
	return &Deduplicator{seen: make(map[string]struct{})}
}

// Add rewrites the case title to its final form and reports whether the case
// was accepted. Cases whose normalization key is empty or already seen in this
// run are discarded; duplicates are expected and benign.
func (d *Deduplicator) Add(tc TestCase) (TestCase, bool) {
	title := FinalTitle(tc)
	key := NormalizeTitleKey(title)
	if key == "" {
		return tc, false
	}
	if _, dup := d.seen[key]; dup {
		return tc, false
	}
	d.seen[key] = struct{}{}
	tc.Title = title
	return tc, true
}

// Dedupe runs the full slice through a fresh Deduplicator, preserving order.
func Dedupe(cases []TestCase) []TestCase {
	d := NewDeduplicator()
	out := make([]TestCase, 0, len(cases))
	for _, tc := range cases {
		if accepted, ok := d.Add(tc); ok {
			out = append(out, accepted)
		}
	}
	return out
}
