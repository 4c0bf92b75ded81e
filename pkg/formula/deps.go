package formula

import (
	"slices"
	"strings"

	"github.com/leapstack-labs/leapnote/internal/dag"
	"github.com/leapstack-labs/leapnote/pkg/resolve"
)

// direction labels a type-level dependency by the way the reference moves
// through the tree.
type direction uint8

const (
	dirSelf direction = 1 << iota
	dirUp
	dirDown
	dirRoot

	dirAll = dirSelf | dirUp | dirDown | dirRoot
)

type edge struct{ from, to string }

// depGraph is the type-level dependency graph of Math fields. An edge runs
// from the field read to the field whose formula reads it.
type depGraph struct {
	g      *dag.Graph
	order  []string
	keys   map[string]FieldKey
	labels map[edge]direction
}

// node ids avoid "." since type and field names may contain it.
func nodeID(k FieldKey) string { return k.Type + "\x1f" + k.Field }

// dependencies builds the graph. A self reference targets the same type;
// other references may land on any type, so they target every type with a
// Math field of that name.
func (p *Program) dependencies() *depGraph {
	d := &depGraph{
		g:      dag.NewGraph(),
		keys:   make(map[string]FieldKey),
		labels: make(map[edge]direction),
	}
	byField := make(map[string][]FieldKey)
	for _, key := range p.keys {
		id := nodeID(key)
		d.g.AddNode(id, key)
		d.keys[id] = key
		d.order = append(d.order, id)
		byField[key.Field] = append(byField[key.Field], key)
	}

	for _, key := range p.keys {
		f, ok := p.formulas[key]
		if !ok {
			continue
		}
		for _, ref := range f.refs {
			var dir direction
			targets := byField[ref.Field]
			switch ref.Ref.Level {
			case resolve.Self:
				dir = dirSelf
				self := FieldKey{Type: key.Type, Field: ref.Field}
				targets = nil
				if _, ok := d.keys[nodeID(self)]; ok {
					targets = []FieldKey{self}
				}
			case resolve.Parent, resolve.Ancestor:
				dir = dirUp
			case resolve.Child:
				dir = dirDown
			case resolve.Root:
				dir = dirRoot
			}
			for _, t := range targets {
				d.addEdge(t, key, dir)
			}
		}
	}
	return d
}

func (d *depGraph) addEdge(from, to FieldKey, dir direction) {
	e := edge{from: nodeID(from), to: nodeID(to)}
	_ = d.g.AddEdge(e.from, e.to)
	d.labels[e] |= dir
}

// subgraph keeps only the edges carrying one of the directions in mask.
func (d *depGraph) subgraph(mask direction) *dag.Graph {
	g := dag.NewGraph()
	for _, id := range d.order {
		g.AddNode(id, d.keys[id])
	}
	for e, dir := range d.labels {
		if dir&mask != 0 {
			_ = g.AddEdge(e.from, e.to)
		}
	}
	return g
}

// cycles finds the circular references. A cycle through self and root
// references never leaves one node. A strongly connected component that
// reads both down and up (or root) can bounce between levels forever.
// Pure downward roll-ups and upward chains end at the leaves or the root.
func (d *depGraph) cycles() [][]FieldKey {
	var out [][]FieldKey
	reported := make(map[string]bool)

	flat := d.subgraph(dirSelf | dirRoot)
	for _, comp := range flat.StronglyConnected() {
		if !isCyclic(flat, comp) {
			continue
		}
		out = append(out, d.path(comp[0], comp[0], dirSelf|dirRoot, memberSet(comp)))
		for _, id := range comp {
			reported[id] = true
		}
	}

	for _, comp := range d.g.StronglyConnected() {
		if !isCyclic(d.g, comp) || slices.ContainsFunc(comp, func(id string) bool { return reported[id] }) {
			continue
		}
		members := memberSet(comp)
		down, ok := d.findEdge(members, dirDown)
		if !ok {
			continue
		}
		if _, ok := d.findEdge(members, dirUp|dirRoot); !ok {
			continue
		}
		cycle := []FieldKey{d.keys[down.from]}
		if down.from == down.to {
			cycle = append(cycle, d.keys[down.to])
		} else {
			cycle = append(cycle, d.path(down.to, down.from, dirAll, members)...)
		}
		out = append(out, cycle)
	}
	return out
}

func isCyclic(g *dag.Graph, comp []string) bool {
	return len(comp) > 1 || g.HasEdge(comp[0], comp[0])
}

func memberSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// findEdge returns an edge inside members labelled with one of mask,
// scanning sources in id order so reports are stable.
func (d *depGraph) findEdge(members map[string]bool, mask direction) (edge, bool) {
	ids := make([]string, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, from := range ids {
		for _, to := range d.g.GetChildren(from) {
			e := edge{from: from, to: to}
			if members[to] && d.labels[e]&mask != 0 {
				return e, true
			}
		}
	}
	return edge{}, false
}

// path returns the shortest walk from one field to another over edges in
// mask that stay inside members. When from equals to the walk is a cycle.
func (d *depGraph) path(from, to string, mask direction, members map[string]bool) []FieldKey {
	prev := make(map[string]string)
	visited := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range d.g.GetChildren(cur) {
			if !members[next] || d.labels[edge{from: cur, to: next}]&mask == 0 {
				continue
			}
			if next == to {
				ids := []string{to}
				for at := cur; ; at = prev[at] {
					ids = append(ids, at)
					if at == from {
						break
					}
				}
				slices.Reverse(ids)
				keys := make([]FieldKey, len(ids))
				for i, id := range ids {
					keys[i] = d.keys[id]
				}
				return keys
			}
			if !visited[next] {
				visited[next] = true
				prev[next] = cur
				queue = append(queue, next)
			}
		}
	}
	return []FieldKey{d.keys[from], d.keys[to]}
}

func (dir direction) String() string {
	var parts []string
	for _, l := range []struct {
		d    direction
		name string
	}{{dirSelf, "self"}, {dirUp, "up"}, {dirDown, "down"}, {dirRoot, "root"}} {
		if dir&l.d != 0 {
			parts = append(parts, l.name)
		}
	}
	return strings.Join(parts, "+")
}

// Dependency is a type-level edge: the formula of To reads From. Via names
// the directions of the references ("self", "up", "down", "root").
type Dependency struct {
	From FieldKey
	To   FieldKey
	Via  string
}

// Dependencies lists the type-level dependencies between Math fields,
// ordered by reading field and then by the field read.
func (p *Program) Dependencies() []Dependency {
	d := p.dependencies()
	out := make([]Dependency, 0, len(d.labels))
	for e, dir := range d.labels {
		out = append(out, Dependency{From: d.keys[e.from], To: d.keys[e.to], Via: dir.String()})
	}
	slices.SortFunc(out, func(a, b Dependency) int {
		if c := strings.Compare(a.To.String(), b.To.String()); c != 0 {
			return c
		}
		return strings.Compare(a.From.String(), b.From.String())
	})
	return out
}

// Upstream lists every Math field the formula of key reads, directly or
// through other formulas, ordered by type and then field.
func (p *Program) Upstream(key FieldKey) []FieldKey {
	d := p.dependencies()
	ids := d.g.GetUpstreamNodes(nodeID(key))
	out := make([]FieldKey, 0, len(ids))
	for _, id := range ids {
		out = append(out, d.keys[id])
	}
	return out
}
