package classify

import "fmt"

// GroupItems maps every cluster id to its items in input order. Noise points are dropped.
func GroupItems(items []HistoryItem, assignment Assignment) (map[int][]HistoryItem, error) {
	if len(items) != len(assignment) {
		return nil, fmt.Errorf("%w: %d items for %d assignments", ErrInputShape, len(items), len(assignment))
	}

	groups := make(map[int][]HistoryItem)
	for i, id := range assignment {
		if id == Noise {
			continue
		}
		groups[id] = append(groups[id], items[i])
	}
	return groups, nil
}
