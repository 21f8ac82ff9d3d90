package scheduler

import (
	"time"

	log "github.com/golang/glog"
	mesos "github.com/mesos/mesos-go/mesosproto"

	"github.com/vixns/arangodb-mesos-framework/caretaker"
	"github.com/vixns/arangodb-mesos-framework/model"
)

// checkOutstandingOffers is step 7: drain the stored offers and
// partition them across slot needs using the Caretaker. Launched
// tasks move into TRYING_TO_START with a deadline; reserve/persist
// advance phases similarly. Offers matching no need are declined with
// the configured refusal window.
func (m *Manager) checkOutstandingOffers(doc *model.Document, now time.Time) {
	m.mut.Lock()
	offers := m.storedOffers
	m.storedOffers = map[string]*mesos.Offer{}
	m.mut.Unlock()

	for _, raw := range offers {
		offer := model.ParseOffer(raw)
		if m.matchOffer(doc, offer, now) {
			continue
		}
		m.declineOffer(offer.OfferID)
	}
}

// matchOffer tries offer against every role's slots in tie-break
// order (spec.md section 4.2), taking the first eligible slot. It
// returns true if the offer was consumed (reserved, persisted, or
// launched against).
func (m *Manager) matchOffer(doc *model.Document, offer model.Offer, now time.Time) bool {
	for _, role := range model.Roles {
		for i, plan := range doc.Plan.Slots[role] {
			if plan.Phase == model.Running || plan.Phase == model.Killed || plan.Phase == model.FailedOver {
				continue
			}
			cur := doc.Current.Slots[role][i]
			decision := m.Caretaker.CheckOffer(doc.Target, offer, role, plan, cur, &doc.Current)
			switch decision.Kind {
			case caretaker.Decline:
				continue
			case caretaker.Reserve:
				m.applyReserve(offer, plan, decision, now)
				return true
			case caretaker.Persist:
				m.applyPersist(offer, plan, decision, now)
				return true
			case caretaker.Launch:
				m.applyLaunch(doc, role, i, offer, plan, cur, decision, now)
				return true
			}
		}
	}
	return false
}

func (m *Manager) applyReserve(offer model.Offer, plan *model.TaskPlan, decision caretaker.Decision, now time.Time) {
	if err := m.Driver.ReserveDynamically(offer, m.Principal, decision.Reservation); err != nil {
		log.Warningf("scheduler: reserve request for slot %s failed: %v", plan.SlotID, err)
		return
	}
	plan.NodeID = offer.NodeID
	plan.Transition(model.TryingToReserve, now)
	plan.Deadline = m.Caretaker.Deadline(model.TryingToReserve)
}

func (m *Manager) applyPersist(offer model.Offer, plan *model.TaskPlan, decision caretaker.Decision, now time.Time) {
	if err := m.Driver.MakePersistent(offer, m.Principal, decision.VolumeMB, plan.PersistenceID); err != nil {
		log.Warningf("scheduler: persist request for slot %s failed: %v", plan.SlotID, err)
		return
	}
	plan.Transition(model.TryingToPersist, now)
	plan.Deadline = m.Caretaker.Deadline(model.TryingToPersist)
}

func (m *Manager) applyLaunch(
	doc *model.Document,
	role model.Role,
	index int,
	offer model.Offer,
	plan *model.TaskPlan,
	cur *model.TaskCurrent,
	decision caretaker.Decision,
	now time.Time,
) {
	doc.HighestCounter++
	taskID := model.FormatTaskID(role, doc.HighestCounter)
	name := plan.SlotID

	ports := decision.Ports
	reserved := model.Resources{
		CPUs:   offer.Reserved.CPUs,
		MemMB:  offer.Reserved.MemMB,
		DiskMB: offer.Reserved.DiskMB,
	}
	for _, p := range ports {
		reserved.Ports = append(reserved.Ports, model.PortRange{Begin: p, End: p})
	}

	err := m.Driver.StartInstance(
		taskID, name, offer.NodeID,
		decision.Container, decision.Command,
		reserved, offer.OfferID,
	)
	if err != nil {
		log.Warningf("scheduler: launch request for slot %s failed: %v", plan.SlotID, err)
		return
	}

	cur.TaskID = taskID
	cur.NodeID = offer.NodeID
	cur.Hostname = offer.Hostname
	cur.Reserved = reserved
	cur.Container = decision.Container
	cur.Command = decision.Command
	cur.PersistentVolumeID = plan.PersistenceID

	plan.Transition(model.TryingToStart, now)
	plan.Deadline = m.Caretaker.Deadline(model.TryingToStart)

	m.mut.Lock()
	m.task2position[taskID] = model.Position{Role: role, Index: index}
	m.mut.Unlock()
}

func (m *Manager) declineOffer(offerID string) {
	if err := m.Driver.DeclineOffer(offerID, m.RefuseSeconds); err != nil {
		log.Warningf("scheduler: failed to decline offer %s: %v", offerID, err)
	}
}
