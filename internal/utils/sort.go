package utils

import "sort"

// GetSortedKeys returns the keys of m in ascending or descending order.
func GetSortedKeys[T any](m map[int]T, asc bool) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if asc {
			return keys[i] < keys[j]
		}
		return keys[i] > keys[j]
	})
	return keys
}
