package world

// hopDistances runs a breadth-first search over the adjacency graph and
// returns hop counts from origin for every reachable district. limit bounds
// the search depth; limit < 0 searches the whole graph. Neighbor order
// follows the authored adjacency lists, so traversal is deterministic.
func (w *World) hopDistances(origin string, limit int) map[string]int {
	dist := map[string]int{}
	if w.districts[origin] == nil {
		return dist
	}
	dist[origin] = 0
	queue := []string{origin}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		d := dist[cur]
		if limit >= 0 && d >= limit {
			continue
		}
		for _, n := range w.Neighbors(cur) {
			if _, seen := dist[n]; seen {
				continue
			}
			dist[n] = d + 1
			queue = append(queue, n)
		}
	}
	return dist
}
