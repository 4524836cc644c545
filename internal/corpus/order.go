package corpus

import "sort"

// Order returns the units sorted ascending by line count, ties broken
// by ascending name. Smallest-first lets a run accumulate working
// examples and surface structural conversion problems on cheap inputs
// before attempting the largest utilities. The input is not modified.
func Order(units []Unit) []Unit {
	ordered := make([]Unit, len(units))
	copy(ordered, units)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Lines != ordered[j].Lines {
			return ordered[i].Lines < ordered[j].Lines
		}
		return ordered[i].Name < ordered[j].Name
	})
	return ordered
}
