// Package medium implements spec §3's medium tracker: the
// priority-ordered stack of participating media a ray is currently
// inside, consulted by the volumetric integrator (spec §4.L) to decide
// which medium governs the next free-flight sampling step.
//
// No source for the tracker survived retrieval — every integrator file
// in _examples/original_source/src/integrators that uses one
// (mega_vpt.cpp, mega_vpt_naive.cpp, auxpath.cpp, wave_path.cpp, ...)
// calls a MediumTracker type defined in a header this pack doesn't
// carry. This package is built directly from spec §3's prose
// description and its invariant test ("enter(p,m); exit(p,m) restores
// size() and current() unless the stack had multiple entries of the
// same (p,m)"); see DESIGN.md for the TrueHit interpretation decision.
package medium

// Info identifies one participating medium instance: its priority (the
// stack's sort key — higher priority media win when nested) and a tag
// distinguishing which concrete medium it is.
type Info struct {
	Priority int
	Tag      uint32
}

// Tracker is an ordered stack of active media, ordered by descending
// priority with ties broken by tag, per spec §3's "Medium tracker"
// definition. The zero value is an empty tracker (vacuum).
type Tracker struct {
	stack []Info
}

// New returns an empty tracker.
func New() *Tracker { return &Tracker{} }

func less(a, b Info) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.Tag < b.Tag
}

// Enter pushes a medium onto the stack, inserted to keep the
// priority/tag ordering invariant.
func (t *Tracker) Enter(info Info) {
	i := 0
	for i < len(t.stack) && less(t.stack[i], info) {
		i++
	}
	t.stack = append(t.stack, Info{})
	copy(t.stack[i+1:], t.stack[i:])
	t.stack[i] = info
}

// Exit removes one matching (priority, tag) entry from the stack, so
// Enter immediately followed by Exit of the same info is always a
// no-op when the stack holds no other entry with that (priority, tag).
// Which duplicate is removed when more than one exists is unspecified.
func (t *Tracker) Exit(info Info) {
	for i := len(t.stack) - 1; i >= 0; i-- {
		if t.stack[i] == info {
			t.stack = append(t.stack[:i], t.stack[i+1:]...)
			return
		}
	}
}

// Exist reports whether a matching (priority, tag) entry is currently
// on the stack.
func (t *Tracker) Exist(info Info) bool {
	for _, e := range t.stack {
		if e == info {
			return true
		}
	}
	return false
}

// Vacuum reports whether no medium is currently active (the ray
// origin is in the scene's implicit vacuum).
func (t *Tracker) Vacuum() bool { return len(t.stack) == 0 }

// Current returns the highest-priority active medium — the one a
// free-flight sampling step should use. Calling Current on a vacuum
// tracker returns the zero Info; callers must check Vacuum first.
func (t *Tracker) Current() Info {
	if len(t.stack) == 0 {
		return Info{}
	}
	return t.stack[0]
}

// Size returns the number of active media.
func (t *Tracker) Size() int { return len(t.stack) }

// TrueHit reports whether tag names the tracker's current top-of-stack
// medium, per spec §3's invariant that "the top-of-stack medium is the
// currently traversed one": a surface event tagged with a medium other
// than the current top is a boundary the tracker doesn't yet treat as
// the active transport medium, so the integrator should not record it
// as a genuine medium-interaction boundary.
func (t *Tracker) TrueHit(tag uint32) bool {
	return !t.Vacuum() && t.Current().Tag == tag
}
