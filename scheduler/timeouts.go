package scheduler

import (
	"time"

	log "github.com/golang/glog"

	"github.com/vixns/arangodb-mesos-framework/model"
)

// checkTimeouts is step 8: any slot whose phase is intermediate past
// its deadline is either retried (reservation/persistence lost ->
// NEW) or escalated to FAILED_OVER -> restart controller, per spec.md
// section 4.5.1.
func (m *Manager) checkTimeouts(doc *model.Document, now time.Time) {
	for _, role := range model.Roles {
		for i, plan := range doc.Plan.Slots[role] {
			if !plan.TimedOut(now) {
				continue
			}
			cur := doc.Current.Slots[role][i]

			switch plan.Phase {
			case model.TryingToReserve, model.TryingToPersist:
				log.Warningf("scheduler: slot %s timed out in %s, retrying from NEW",
					plan.SlotID, plan.Phase)
				plan.NodeID = ""
				plan.Transition(model.New, now)
			case model.TryingToStart:
				log.Warningf("scheduler: slot %s timed out in TRYING_TO_START, escalating to restart",
					plan.SlotID)
				if err := m.Restart.RestartTask(plan, cur); err != nil {
					log.Warningf("scheduler: failed to kill timed-out task for slot %s: %v",
						plan.SlotID, err)
				}
			}
		}
	}
}
