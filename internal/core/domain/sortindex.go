package domain

// SortValue is the lowest and highest indexed value of one search parameter.
type SortValue struct {
	// URL is the parameter's canonical identifier, recorded from the first
	// entry seen for the code.
	URL string `json:"url" bson:"url"`

	Low  *SearchValue `json:"low,omitempty" bson:"low,omitempty"`
	High *SearchValue `json:"high,omitempty" bson:"high,omitempty"`
}

// SortIndex maps a search parameter code to its value range.
type SortIndex map[string]SortValue

// BuildSortIndex derives a sort index from search index entries.
//
// Only entries whose value carries a range role are considered. Entries are
// applied in order: a max-role entry overwrites High and a min-role entry
// overwrites Low for its code, so the last entry wins per bound. The result
// is always a fresh, non-nil map.
func BuildSortIndex(entries []SearchIndexEntry) SortIndex {
	index := make(SortIndex)

	for i := range entries {
		entry := entries[i]
		role := entry.Value.Role
		if role == RangeNone {
			continue
		}

		sv, ok := index[entry.Param.Code]
		if !ok {
			sv = SortValue{URL: entry.Param.URL}
		}

		if role.IsMax() {
			high := entry.Value
			sv.High = &high
		}
		if role.IsMin() {
			low := entry.Value
			sv.Low = &low
		}
		index[entry.Param.Code] = sv
	}

	return index
}
