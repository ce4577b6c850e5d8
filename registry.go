package orrery

import "sort"

// record holds what was registered for one body.
type record struct {
	body     CelestialBody
	elements OrbitalElements // valid if body.Elements != nil, with a resolved epoch
	initial  StateVector
	supplied bool // initial was provided by the caller
	// satellite is set for bodies with elements around a parent other than the central body.
	satellite bool
	parent    int // -1 stands for the central body (or a parent not registered yet)
}

func (r record) hasElements() bool {
	return r.body.Elements != nil
}

// registry is a dense arena of bodies, indexed by insertion order.
type registry struct {
	records []record
	index   map[string]int
	center  int
	pending map[string][]int // parent name to the satellites waiting for it
}

func newRegistry() registry {
	return registry{index: make(map[string]int), pending: make(map[string][]int), center: -1}
}

func (r *registry) lookup(name string) (int, bool) {
	i, ok := r.index[name]
	return i, ok
}

// insert appends the record and returns the indices of the satellites which were
// waiting for this body as their parent.
func (r *registry) insert(rec record) (idx int, adopted []int) {
	idx = len(r.records)
	r.records = append(r.records, rec)
	r.index[rec.body.Name] = idx
	if rec.body.Center {
		r.center = idx
	}
	if waiting, ok := r.pending[rec.body.Name]; ok {
		delete(r.pending, rec.body.Name)
		for _, s := range waiting {
			if rec.body.Center {
				r.records[s].satellite = false
				continue
			}
			r.records[s].parent = idx
		}
		adopted = waiting
	}
	return
}

// wait registers that the satellite at idx waits for the named parent.
func (r *registry) wait(idx int, parent string) {
	r.pending[parent] = append(r.pending[parent], idx)
}

// descends returns whether following the declared parents from the named body
// reaches target. The walk stops at the central body or at an unregistered name.
func (r *registry) descends(from, target string) bool {
	for n := 0; from != "" && n <= len(r.records); n++ {
		if from == target {
			return true
		}
		i, ok := r.index[from]
		if !ok || r.records[i].body.Center {
			return false
		}
		from = r.records[i].body.Parent
	}
	return false
}

// depth returns the number of parent links from the body to the central body.
func (r *registry) depth(i int) int {
	d := 0
	for p := r.records[i].parent; p >= 0 && d <= len(r.records); p = r.records[p].parent {
		d++
	}
	return d
}

// order returns the indices sorted so that each parent comes before its satellites,
// and otherwise by registration order.
func (r *registry) order() []int {
	idx := make([]int, len(r.records))
	depths := make([]int, len(r.records))
	for i := range idx {
		idx[i] = i
		depths[i] = r.depth(i)
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return depths[idx[a]] < depths[idx[b]]
	})
	return idx
}
