// Package caretaker implements the declarative topology policy (C2):
// given a Target and the current Plan/Current, decide what slots must
// exist and how to match incoming offers against them.
//
// It is polymorphic over spec.md's two modes -- Standalone and
// Cluster -- expressed as a capability set (Caretaker interface), not
// inheritance, per spec.md section 9.
package caretaker

import (
	"fmt"
	"time"

	"github.com/vixns/arangodb-mesos-framework/model"
)

// Decision is the result of CheckOffer: what, if anything, to do with
// an offer against a particular slot.
type Decision struct {
	Kind DecisionKind

	// RefuseSeconds is set for Decline.
	RefuseSeconds float64

	// Reservation is set for Reserve.
	Reservation model.Resources

	// VolumeMB is set for Persist.
	VolumeMB float64

	// Container, Command and Ports are set for Launch.
	Container model.ContainerSpec
	Command   model.CommandSpec
	Ports     []uint64
}

type DecisionKind int

const (
	Decline DecisionKind = iota
	Reserve
	Persist
	Launch
)

// Caretaker is the policy layer; the Manager (C5) is the mechanism
// that carries out its decisions.
type Caretaker interface {
	// UpdatePlan grows or shrinks plan's and current's slot lists in
	// place to match target's counts, returning the server ids of any
	// slots that were marked KILLED by a shrink (spec.md invariant
	// 2: existing slots are never reordered).
	UpdatePlan(target model.Target, plan *model.Plan, current *model.Current) (cleanedServerIDs []string)

	// CheckOffer decides what to do with offer against the given slot.
	CheckOffer(target model.Target, offer model.Offer, role model.Role, plan *model.TaskPlan, cur *model.TaskCurrent, allCurrent *model.Current) Decision

	// Deadline returns the absolute time by which a slot entering
	// intermediate phase p must advance, per spec.md invariant 5.
	Deadline(p model.Phase) time.Time
}

// minimalFloor returns the configured resource floor for a role,
// defaulting to the zero value (no floor) if unset.
func minimalFloor(target model.Target, role model.Role) model.Resources {
	if target.MinimalResources == nil {
		return model.Resources{}
	}
	return target.MinimalResources[role]
}

// nextSlotID formats a stable, role-scoped slot identity.
func nextSlotID(role model.Role, index int) string {
	return fmt.Sprintf("%s-%d", role, index)
}
