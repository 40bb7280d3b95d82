package query

// MergeFilter combines the default filter with a caller override.
//
// The merge is shallow, keyed by field name:
//   - a field present in override replaces the default field entirely (operators are not merged),
//     and keeps the default's position;
//   - fields only in override are appended in override order;
//   - fields only in defaults are kept.
//
// A blank override entry such as {"common_interests":{}} still replaces the
// default, so the result is normalized after merging and the field is gone.
// Neither input is modified.
func MergeFilter(defaults, override FilterBy) FilterBy {
	return FilterBy(merge(defaults, override)).Normalize()
}

// MergeSort applies the same precedence rule as MergeFilter to sort documents.
func MergeSort(defaults, override SortBy) SortBy {
	return SortBy(merge(defaults, override)).Normalize()
}

func merge[T entry[T]](defaults, override []T) []T {
	out := make([]T, 0, len(defaults)+len(override))
	pos := make(map[string]int, len(defaults)+len(override))

	for _, d := range defaults {
		if i, ok := pos[d.key()]; ok {
			out[i] = d.clone()
			continue
		}
		pos[d.key()] = len(out)
		out = append(out, d.clone())
	}
	for _, o := range override {
		if i, ok := pos[o.key()]; ok {
			out[i] = o.clone()
			continue
		}
		pos[o.key()] = len(out)
		out = append(out, o.clone())
	}
	return out
}
