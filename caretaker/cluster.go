package caretaker

import (
	"time"

	"github.com/vixns/arangodb-mesos-framework/model"
)

// Cluster is the Caretaker for an agency + db-server + coordinator
// ensemble, with optional asynchronous-replication secondaries.
type Cluster struct {
	// ReservationDeadline / PersistDeadline / StartDeadline bound how
	// long a slot may sit in an intermediate phase before
	// checkTimeouts (spec.md section 4.5 step 8) recovers it.
	ReservationDeadline time.Duration
	PersistDeadline     time.Duration
	StartDeadline       time.Duration

	// Image supplies the container image and arangod command line
	// used for every Launch decision.
	Image ImageConfig

	Now func() time.Time
}

func (c *Cluster) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Cluster) UpdatePlan(target model.Target, plan *model.Plan, current *model.Current) []string {
	var cleaned []string
	for _, role := range model.Roles {
		cleaned = append(cleaned, resizeRoleSlots(plan, current, role, target.Count(role))...)
	}
	return cleaned
}

// CheckOffer implements spec.md section 4.2's tie-break and
// constraint rules for a single (offer, slot) pair. The Manager is
// responsible for iterating slots in role-preferred order and picking
// the lowest-indexed non-RUNNING slot per role before calling this.
func (c *Cluster) CheckOffer(
	target model.Target,
	offer model.Offer,
	role model.Role,
	plan *model.TaskPlan,
	cur *model.TaskCurrent,
	allCurrent *model.Current,
) Decision {
	floor := minimalFloor(target, role)

	switch plan.Phase {
	case model.New:
		if !offer.Resources.Covers(floor) {
			return Decision{Kind: Decline, RefuseSeconds: 20}
		}
		if cur.NodeID != "" && offer.NodeID != cur.NodeID {
			// Prefer the node that already holds this slot's persistent
			// volume (spec.md section 4.2's tie-break, and section 4.6's
			// "preserving persistent-volume affinity when possible" for a
			// FAILED_OVER slot reset back to NEW) -- decline elsewhere so a
			// later offer from the right node can still match.
			return Decision{Kind: Decline, RefuseSeconds: 20}
		}
		if !colocationOK(target, role, offer.NodeID, allCurrent) {
			return Decision{Kind: Decline, RefuseSeconds: 20}
		}
		if role == model.Secondary && !secondariesWithDBServersOK(target, offer.NodeID, allCurrent) {
			return Decision{Kind: Decline, RefuseSeconds: 20}
		}
		return Decision{Kind: Reserve, Reservation: floor}

	case model.TryingToReserve:
		// Only the node we reserved on can supply the matching
		// reservation; offers elsewhere are declined without disturbing
		// the slot's in-flight reservation.
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
			Container: c.Image.containerSpec(),
			Command:   c.Image.commandSpec(role, offer, ports, allCurrent),
			Ports:     ports,
		}

	default:
		return Decision{Kind: Decline, RefuseSeconds: 20}
	}
}

// Deadline returns the deadline to assign when entering phase p now.
func (c *Cluster) Deadline(p model.Phase) time.Time {
	now := c.now()
	switch p {
	case model.TryingToReserve:
		return now.Add(c.ReservationDeadline)
	case model.TryingToPersist:
		return now.Add(c.PersistDeadline)
	case model.TryingToStart:
		return now.Add(c.StartDeadline)
	default:
		return time.Time{}
	}
}
