// Package hierarchy turns the flat folder listing into the forest the
// sidebar renders, and derives breadcrumbs from it.
//
// Input order is significant: the first record seen for an id wins, and
// roots and children keep the order in which records were encountered.
// Records whose parent is not in the listing are dropped. Nothing here
// returns an error for malformed input except Breadcrumb on a cycle.
package hierarchy

import (
	"errors"

	"github.com/nexx/mediacenter/internal/models"
)

// ErrCycle is returned by Breadcrumb when parent links loop.
var ErrCycle = errors.New("folder parent links form a cycle")

// Node is a folder plus its children, in encounter order.
type Node struct {
	Record   models.FolderRecord
	Children []*Node
}

// Crumb is one step of a breadcrumb path.
type Crumb struct {
	ID   int
	Name string
}

// Dedupe keeps the first record for each id, preserving input order.
func Dedupe(records []models.FolderRecord) []models.FolderRecord {
	seen := make(map[int]bool, len(records))
	out := make([]models.FolderRecord, 0, len(records))
	for _, r := range records {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		out = append(out, r)
	}
	return out
}

// Index maps id to record over the deduplicated input.
func Index(records []models.FolderRecord) map[int]models.FolderRecord {
	index := make(map[int]models.FolderRecord, len(records))
	for _, r := range records {
		if _, ok := index[r.ID]; !ok {
			index[r.ID] = r
		}
	}
	return index
}

// Build links the records into a forest and returns its roots.
//
// A node whose parent chain loops never reaches a root, so the returned
// forest is acyclic even when the input is not.
func Build(records []models.FolderRecord) []*Node {
	unique := Dedupe(records)

	nodes := make(map[int]*Node, len(unique))
	for _, r := range unique {
		nodes[r.ID] = &Node{Record: r, Children: []*Node{}}
	}

	roots := make([]*Node, 0)
	for _, r := range unique {
		node := nodes[r.ID]
		if r.ParentID == nil {
			roots = append(roots, node)
			continue
		}
		if parent, ok := nodes[*r.ParentID]; ok {
			parent.Children = append(parent.Children, node)
		}
	}
	return roots
}

// Breadcrumb returns the path from the root down to id, inclusive.
// The walk stops at a root or at a parent missing from the index; an
// unknown id yields an empty path. If the walk revisits a folder it
// returns the path collected so far together with ErrCycle.
func Breadcrumb(id int, index map[int]models.FolderRecord) ([]Crumb, error) {
	var path []Crumb
	visited := make(map[int]bool)

	current, ok := index[id]
	for ok {
		if visited[current.ID] {
			return path, ErrCycle
		}
		visited[current.ID] = true
		path = append([]Crumb{{ID: current.ID, Name: current.Name}}, path...)

		if current.ParentID == nil {
			break
		}
		current, ok = index[*current.ParentID]
	}
	return path, nil
}

// Walk visits the forest depth-first in display order. Returning false
// from fn skips the node's children.
func Walk(roots []*Node, fn func(n *Node, depth int) bool) {
	var visit func(nodes []*Node, depth int)
	visit = func(nodes []*Node, depth int) {
		for _, n := range nodes {
			if fn(n, depth) {
				visit(n.Children, depth+1)
			}
		}
	}
	visit(roots, 0)
}

// Find returns the node with the given id, or nil.
func Find(roots []*Node, id int) *Node {
	var found *Node
	Walk(roots, func(n *Node, _ int) bool {
		if found != nil {
			return false
		}
		if n.Record.ID == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// Count returns the number of nodes reachable from roots.
func Count(roots []*Node) int {
	total := 0
	Walk(roots, func(*Node, int) bool {
		total++
		return true
	})
	return total
}
