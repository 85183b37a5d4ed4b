package memory

import "cortexmcp/internal/memtypes"

// GetRelated performs a bounded, acyclic breadth-first walk over edges
// starting at id, up to maxHops deep, returning at most limit items
// ordered by increasing depth then the storage tiebreak (spec.md §4.4,
// §9: "a loop in memory", not a recursive CTE).
func (s *Store) GetRelated(id string, maxHops int, limit int) ([]memtypes.RelatedItem, error) {
	if maxHops <= 0 {
		maxHops = 1
	}

	visited := map[string]bool{id: true}
	frontier := []string{id}
	var results []memtypes.RelatedItem

	for depth := 1; depth <= maxHops && len(results) < limit; depth++ {
		var next []string
		for _, current := range frontier {
			neighbors, err := s.neighborsOf(current)
			if err != nil {
				return nil, err
			}
			for _, n := range neighbors {
				if visited[n] {
					continue
				}
				visited[n] = true
				next = append(next, n)

				item, err := s.db.GetItem(n)
				if err != nil {
					return nil, err
				}
				if item == nil || !item.IsActive {
					continue
				}
				results = append(results, memtypes.RelatedItem{Item: *item, Depth: depth})
				if len(results) >= limit {
					break
				}
			}
			if len(results) >= limit {
				break
			}
		}
		frontier = next
		if len(frontier) == 0 {
			break
		}
	}

	return results, nil
}

// neighborsOf returns the union of out- and in-edge targets/sources of id,
// since relation direction is semantic (e.g. SUPERSEDED_BY) but graph
// reachability for get_related is undirected (spec.md §4.4 does not
// distinguish direction for traversal, only for edge storage).
func (s *Store) neighborsOf(id string) ([]string, error) {
	out, err := s.db.EdgesFrom(id)
	if err != nil {
		return nil, err
	}
	in, err := s.db.EdgesTo(id)
	if err != nil {
		return nil, err
	}
	neighbors := make([]string, 0, len(out)+len(in))
	for _, e := range out {
		neighbors = append(neighbors, e.TargetID)
	}
	for _, e := range in {
		neighbors = append(neighbors, e.SourceID)
	}
	return neighbors, nil
}
