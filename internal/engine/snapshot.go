package engine

import "github.com/leapstack-labs/leapnote/pkg/outline"

// snapshot overlays values computed during a pass on top of the stored
// values of a tree, keyed by node record so clones see one value.
type snapshot struct {
	values map[string]map[string]string
}

func newSnapshot() *snapshot {
	return &snapshot{values: make(map[string]map[string]string)}
}

func (s *snapshot) set(nodeID, field, value string) {
	m, ok := s.values[nodeID]
	if !ok {
		m = make(map[string]string)
		s.values[nodeID] = m
	}
	m[field] = value
}

func (s *snapshot) wrap(n outline.NodeView) outline.NodeView {
	return snapshotView{NodeView: n, snap: s}
}

// snapshotView is a position whose field reads go through the snapshot.
type snapshotView struct {
	outline.NodeView
	snap *snapshot
}

func (v snapshotView) FieldValue(name string) (string, bool) {
	if m, ok := v.snap.values[v.ID()]; ok {
		if val, ok := m[name]; ok {
			return val, val != ""
		}
	}
	return v.NodeView.FieldValue(name)
}

func (v snapshotView) Parent() (outline.NodeView, bool) {
	p, ok := v.NodeView.Parent()
	if !ok {
		return nil, false
	}
	return v.snap.wrap(p), true
}

func (v snapshotView) Children() []outline.NodeView {
	children := v.NodeView.Children()
	out := make([]outline.NodeView, len(children))
	for i, c := range children {
		out[i] = v.snap.wrap(c)
	}
	return out
}

func (v snapshotView) Root() outline.NodeView {
	return v.snap.wrap(v.NodeView.Root())
}
