package taskgraph

import (
	"log"
	"sort"
)

// ComputeExecutionOrder returns a topological order of tasks that respects
// Dependencies and breaks ties among ready vertices by descending priority,
// then ascending creation time (earliest first).
//
// Cycles are detected with a DFS recursion stack (temp-visited set); the
// offending back-edge is elided and logged rather than treated as a hard
// failure, so the chain can still partially progress: a cycle A→B→A is
// detected, the back-edge is dropped, and both tasks still appear in
// execution_order.
func ComputeExecutionOrder(tasks []*Task) []string {
	taskByID := make(map[string]*Task, len(tasks))
	for _, t := range tasks {
		taskByID[t.ID] = t
	}

	visited := make(map[string]bool, len(tasks))
	tempVisited := make(map[string]bool, len(tasks))
	var order []string

	var visit func(id string)
	visit = func(id string) {
		if tempVisited[id] {
			log.Printf("[taskgraph] circular dependency detected involving task %s", id)
			return
		}
		if visited[id] {
			return
		}
		tempVisited[id] = true
		if t, ok := taskByID[id]; ok {
			for dep := range t.Dependencies {
				if _, exists := taskByID[dep]; exists {
					visit(dep)
				}
			}
		}
		delete(tempVisited, id)
		visited[id] = true
		order = append(order, id)
	}

	sorted := make([]*Task, len(tasks))
	copy(sorted, tasks)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority > sorted[j].Priority // descending priority first
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt) // then earliest created
	})

	for _, t := range sorted {
		if !visited[t.ID] {
			visit(t.ID)
		}
	}
	return order
}
