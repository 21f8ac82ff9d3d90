package model

import "time"

// TaskPlan is one slot in the declarative Plan: a stable identity that
// persists across restarts of the task bound to it.
type TaskPlan struct {
	SlotID        string
	PersistenceID string
	Phase         Phase
	NodeID        string
	LastTransition time.Time
	Deadline      time.Time
}

// Plan holds an ordered list of TaskPlan slots per role. Slot order is
// never changed once created (Caretaker.UpdatePlan only appends or
// marks-for-removal at the tail, per spec.md invariant 2).
type Plan struct {
	Slots map[Role][]*TaskPlan
}

// NewPlan returns an empty Plan with initialized slot maps for every
// role.
func NewPlan() *Plan {
	p := &Plan{Slots: map[Role][]*TaskPlan{}}
	for _, r := range Roles {
		p.Slots[r] = []*TaskPlan{}
	}
	return p
}

// Transition advances a slot to a new phase and stamps the transition
// time. Callers are responsible for validating the transition is
// legal per spec.md section 4.5.1 before calling this.
func (tp *TaskPlan) Transition(p Phase, now time.Time) {
	tp.Phase = p
	tp.LastTransition = now
}

// TimedOut reports whether an intermediate-phase slot has passed its
// deadline.
func (tp *TaskPlan) TimedOut(now time.Time) bool {
	return tp.Phase.IsIntermediate() && !tp.Deadline.IsZero() && now.After(tp.Deadline)
}
