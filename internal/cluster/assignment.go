package cluster

// Assignment maps record index to cluster identifier.
type Assignment []int

// Group is one cluster and its member indices in record order.
type Group struct {
	ID      int
	Members []int
}

// Groups returns clusters in order of first appearance.
func (a Assignment) Groups() []Group {
	index := make(map[int]int)
	var groups []Group
	for i, id := range a {
		pos, ok := index[id]
		if !ok {
			pos = len(groups)
			index[id] = pos
			groups = append(groups, Group{ID: id})
		}
		groups[pos].Members = append(groups[pos].Members, i)
	}
	return groups
}

// Distinct returns the number of distinct identifiers.
func (a Assignment) Distinct() int {
	seen := make(map[int]struct{}, len(a))
	for _, id := range a {
		seen[id] = struct{}{}
	}
	return len(seen)
}
