package engine

import (
	"fmt"
	"sort"
)

// resolveOrder computes a topological order over the declared dependency
// edges, breaking ties by registration order so dashboard ordering is
// reproducible across runs. Returns the flat order plus the depth layers
// used for parallel fan-out: every evaluator in layer n depends only on
// evaluators in layers < n.
func resolveOrder(evaluators []Evaluator) ([]string, [][]string, error) {
	index := make(map[string]int, len(evaluators))
	for i, ev := range evaluators {
		index[ev.ID()] = i
	}

	indegree := make(map[string]int, len(evaluators))
	dependents := make(map[string][]string, len(evaluators))
	for _, ev := range evaluators {
		indegree[ev.ID()] += 0
		for _, dep := range ev.Dependencies() {
			if _, ok := index[dep]; !ok {
				return nil, nil, fmt.Errorf("engine: evaluator %s depends on %s: %w", ev.ID(), dep, ErrUnknownDependency)
			}
			indegree[ev.ID()]++
			dependents[dep] = append(dependents[dep], ev.ID())
		}
	}

	frontier := make([]string, 0, len(evaluators))
	for _, ev := range evaluators {
		if indegree[ev.ID()] == 0 {
			frontier = append(frontier, ev.ID())
		}
	}

	var (
		order  []string
		layers [][]string
	)
	for len(frontier) > 0 {
		sort.Slice(frontier, func(i, j int) bool {
			return index[frontier[i]] < index[frontier[j]]
		})
		layer := frontier
		frontier = nil

		order = append(order, layer...)
		layers = append(layers, layer)

		for _, id := range layer {
			for _, next := range dependents[id] {
				indegree[next]--
				if indegree[next] == 0 {
					frontier = append(frontier, next)
				}
			}
		}
	}

	if len(order) != len(evaluators) {
		var members []string
		for _, ev := range evaluators {
			if indegree[ev.ID()] > 0 {
				members = append(members, ev.ID())
			}
		}
		sort.Slice(members, func(i, j int) bool { return index[members[i]] < index[members[j]] })
		return nil, nil, &CyclicDependencyError{Members: members}
	}

	return order, layers, nil
}
