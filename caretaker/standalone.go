package caretaker

import (
	"time"

	"github.com/vixns/arangodb-mesos-framework/model"
)

// Standalone is the Caretaker for a single ArangoDB instance: one
// slot, always role Primary, no co-location constraints to enforce.
type Standalone struct {
	ReservationDeadline time.Duration
	PersistDeadline     time.Duration
	StartDeadline       time.Duration

	// Image supplies the container image and arangod command line
	// used for the Launch decision.
	Image ImageConfig

	Now func() time.Time
}

func (s *Standalone) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Standalone) UpdatePlan(target model.Target, plan *model.Plan, current *model.Current) []string {
	desired := map[model.Role]int{model.Primary: 1}
	var cleaned []string
	for _, role := range model.Roles {
		cleaned = append(cleaned, resizeRoleSlots(plan, current, role, desired[role])...)
	}
	return cleaned
}

func (s *Standalone) CheckOffer(
	target model.Target,
	offer model.Offer,
	role model.Role,
	plan *model.TaskPlan,
	cur *model.TaskCurrent,
	allCurrent *model.Current,
) Decision {
	if role != model.Primary {
		return Decision{Kind: Decline, RefuseSeconds: 20}
	}
	floor := minimalFloor(target, role)

	switch plan.Phase {
	case model.New:
		if !offer.Resources.Covers(floor) {
			return Decision{Kind: Decline, RefuseSeconds: 20}
		}
		if cur.NodeID != "" && offer.NodeID != cur.NodeID {
			// Prefer the node that already holds this slot's persistent
			// volume, same affinity rule Cluster applies.
			return Decision{Kind: Decline, RefuseSeconds: 20}
		}
		return Decision{Kind: Reserve, Reservation: floor}
	case model.TryingToReserve:
		if plan.NodeID != "" && offer.NodeID != plan.NodeID {
			return Decision{Kind: Decline, RefuseSeconds: 20}
		}
		if !offer.Reserved.Covers(floor) {
			return Decision{Kind: Decline, RefuseSeconds: 20}
		}
		return Decision{Kind: Persist, VolumeMB: floor.DiskMB}
	case model.TryingToPersist:
		if plan.NodeID != "" && offer.NodeID != plan.NodeID {
			return Decision{Kind: Decline, RefuseSeconds: 20}
		}
		if offer.VolumeID == "" {
			return Decision{Kind: Decline, RefuseSeconds: 20}
		}
		ports := offer.Resources.FirstPorts(3)
		return Decision{
			Kind:      Launch,
			Container: s.Image.containerSpec(),
			Command:   s.Image.commandSpec(role, offer, ports, allCurrent),
			Ports:     ports,
		}
	default:
		return Decision{Kind: Decline, RefuseSeconds: 20}
	}
}

func (s *Standalone) Deadline(p model.Phase) time.Time {
	now := s.now()
	switch p {
	case model.TryingToReserve:
		return now.Add(s.ReservationDeadline)
	case model.TryingToPersist:
		return now.Add(s.PersistDeadline)
	case model.TryingToStart:
		return now.Add(s.StartDeadline)
	default:
		return time.Time{}
	}
}
