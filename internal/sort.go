package internal

import "sort"

type PropertyCountTuple struct {
	Property string
	Count    int
}

// ByCount orders by ascending count, then by name so equal counts list in a stable order.
type ByCount []PropertyCountTuple

func (a ByCount) Len() int { return len(a) }
func (a ByCount) Less(i, j int) bool {
	if a[i].Count != a[j].Count {
		return a[i].Count < a[j].Count
	}
	return a[i].Property < a[j].Property
}
func (a ByCount) Swap(i, j int) { a[i], a[j] = a[j], a[i] }

// GetSortedCountsForProperty lists the entries of a count map from least to most common.
func GetSortedCountsForProperty(propertyCountMap map[string]int) []PropertyCountTuple {
	propertyCounts := make([]PropertyCountTuple, 0, len(propertyCountMap))
	for key, value := range propertyCountMap {
		propertyCounts = append(propertyCounts, PropertyCountTuple{Property: key, Count: value})
	}

	sort.Sort(ByCount(propertyCounts))
	return propertyCounts
}
