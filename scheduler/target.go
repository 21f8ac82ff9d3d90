package scheduler

import (
	"strconv"

	log "github.com/golang/glog"

	"github.com/vixns/arangodb-mesos-framework/caretaker"
	"github.com/vixns/arangodb-mesos-framework/model"
	"github.com/vixns/arangodb-mesos-framework/restart"
)

func itoa(port uint64) string {
	return strconv.FormatUint(port, 10)
}

// updateTarget is step 4: observe any target mutation posted by the
// admin surface (Manager.SetTarget) and apply it to the persisted
// document.
func (m *Manager) updateTarget(doc *model.Document) {
	m.mut.Lock()
	pending := m.pendingTarget
	m.pendingTarget = nil
	m.mut.Unlock()

	if pending == nil {
		return
	}
	if err := pending.Validate(); err != nil {
		log.Errorf("scheduler: rejecting invalid target mutation: %v", err)
		return
	}
	log.Infof("scheduler: applying target mutation: %+v", *pending)
	doc.Target = *pending
}

// updatePlan is step 5: invoke the caretaker to size slots against
// the current target, then hand any server-ids freed by a shrink to
// the agency for cleanup (spec.md section 4.5 step 4's "server-ids
// affected by shrinks so the database bootstrap can be cleaned").
func (m *Manager) updatePlan(doc *model.Document) {
	cleaned := m.Caretaker.UpdatePlan(doc.Target, &doc.Plan, &doc.Current)
	if len(cleaned) > 0 {
		log.Infof("scheduler: target shrink cleaned server-ids: %v", cleaned)
		if m.Agency != nil {
			endpoints := currentDBServerAgencyEndpoints(doc)
			for _, serverID := range cleaned {
				if err := m.Agency.RemoveServer(endpoints, serverID); err != nil {
					log.Warningf("scheduler: failed to remove server-id %s from agency: %v", serverID, err)
				}
			}
		}
	}
	// Reaping runs every tick, not just the tick a shrink was first
	// observed: a KILLED slot's task may take several ticks to be
	// confirmed gone.
	m.reapKilledSlots(doc)
}

// reapKilledSlots kills the task behind any KILLED slot still running
// and, once every KILLED slot for a role is confirmed gone, physically
// drops the dead tail via caretaker.RemoveKilledTail -- spec.md
// section 8 scenario 5's shrink-to-N count only holds once the tail is
// actually removed, not merely marked KILLED.
func (m *Manager) reapKilledSlots(doc *model.Document) {
	for _, role := range model.Roles {
		planSlots := doc.Plan.Slots[role]
		curSlots := doc.Current.Slots[role]
		allGone := true
		for i, plan := range planSlots {
			if plan.Phase != model.Killed {
				continue
			}
			cur := curSlots[i]
			if cur.TaskID == "" || restart.TaskIsGoneOrRestarted(cur, cur.TaskID) {
				continue
			}
			allGone = false
			if err := m.Driver.KillInstance(cur.TaskID); err != nil {
				log.Warningf("scheduler: failed to kill shrink-removed slot %s: %v", plan.SlotID, err)
			}
		}
		if allGone {
			caretaker.RemoveKilledTail(&doc.Plan, &doc.Current, role)
		}
	}
}

// updateServerIds is step 6: for RUNNING slots without a recorded
// server-id, consult the agency and persist it.
func (m *Manager) updateServerIds(doc *model.Document) {
	if m.Agency == nil {
		return
	}
	for _, role := range model.Roles {
		for i, cur := range doc.Current.Slots[role] {
			plan := doc.Plan.Slots[role][i]
			if plan.Phase != model.Running || cur.ServerID != "" || cur.Hostname == "" {
				continue
			}
			port := cur.Reserved.FirstPorts(1)
			if len(port) == 0 {
				continue
			}
			endpoint := agencyEndpoint(cur)
			id, err := m.Agency.ServerID(endpoint)
			if err != nil {
				log.Warningf("scheduler: server-id lookup for slot %s not yet available: %v",
					plan.SlotID, err)
				continue
			}
			cur.ServerID = id
		}
	}
}

func agencyEndpoint(cur *model.TaskCurrent) string {
	port := cur.Reserved.FirstPorts(1)[0]
	return "http://" + cur.Hostname + ":" + itoa(port)
}

// currentDBServerAgencyEndpoints returns every RUNNING primary's
// agency-reachable endpoint, used as candidates when asking the
// agency to forget a cleaned server-id.
func currentDBServerAgencyEndpoints(doc *model.Document) []string {
	var endpoints []string
	for i, cur := range doc.Current.Slots[model.Primary] {
		if doc.Plan.Slots[model.Primary][i].Phase != model.Running || cur.Hostname == "" {
			continue
		}
		if ports := cur.Reserved.FirstPorts(1); len(ports) > 0 {
			endpoints = append(endpoints, "http://"+cur.Hostname+":"+itoa(ports[0]))
		}
	}
	return endpoints
}
