package coordinate

import (
	"sort"

	"github.com/mpvl/unique"
)

// coordSlice adapts a []Coordinate plus a less function to
// github.com/mpvl/unique's Interface (sort.Interface plus Truncate and
// Equal), mirroring the style internal/mod/module.Sort uses sort.Slice
// for ordering, extended here with deduplication for Unique.
type coordSlice struct {
	list []Coordinate
	less func(a, b Coordinate) bool
}

func (s *coordSlice) Len() int      { return len(s.list) }
func (s *coordSlice) Swap(i, j int) { s.list[i], s.list[j] = s.list[j], s.list[i] }
func (s *coordSlice) Less(i, j int) bool {
	return s.less(s.list[i], s.list[j])
}

// Equal is required by unique.Interface; two adjacent elements are
// duplicates only if every field matches, not just the sort key.
func (s *coordSlice) Equal(i, j int) bool {
	return s.list[i] == s.list[j]
}
func (s *coordSlice) Truncate(n int) { s.list = s.list[:n] }

func sortInPlace(list []Coordinate, less func(a, b Coordinate) bool) {
	sort.Slice(list, func(i, j int) bool { return less(list[i], list[j]) })
}

func uniqueInPlace(list []Coordinate, less func(a, b Coordinate) bool) []Coordinate {
	if len(list) < 2 {
		return list
	}
	s := &coordSlice{list: list, less: less}
	unique.Sort(s)
	return s.list
}
