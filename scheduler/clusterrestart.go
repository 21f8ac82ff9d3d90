package scheduler

import (
	"time"

	log "github.com/golang/glog"

	"github.com/vixns/arangodb-mesos-framework/metrics"
	"github.com/vixns/arangodb-mesos-framework/model"
	"github.com/vixns/arangodb-mesos-framework/restart"
)

// manageClusterRestart is step 9: if a restart flag is set, drive it
// through the Restart Controller (C6), per spec.md section 4.6.
func (m *Manager) manageClusterRestart(doc *model.Document) {
	m.mut.Lock()
	pending := m.pendingRestart
	m.pendingRestart = nil
	m.mut.Unlock()
	if pending != nil {
		doc.RestartFlag = *pending
	}

	resetFailedOverSlots(doc)

	switch doc.RestartFlag {
	case model.RestartNone:
		return
	case model.RestartFreshStart:
		m.Restart.SetRestartProxy()
		doc.RestartFlag = model.RestartNone
	case model.RestartCluster:
		killed, err := m.Restart.RestartCluster(&doc.Plan, &doc.Current)
		if err != nil {
			log.Errorf("scheduler: cluster restart step failed: %v", err)
			return
		}
		if len(killed) == 0 {
			log.Info("scheduler: whole-cluster restart complete")
			doc.RestartFlag = model.RestartNone
			metrics.RestartsTotal.WithLabelValues("cluster").Inc()
		}
	case model.RestartStandalone:
		killed, err := m.Restart.RestartStandalone(&doc.Plan, &doc.Current)
		if err != nil {
			log.Errorf("scheduler: standalone restart step failed: %v", err)
			return
		}
		if len(killed) == 0 {
			log.Info("scheduler: standalone restart complete")
			doc.RestartFlag = model.RestartNone
			metrics.RestartsTotal.WithLabelValues("standalone").Inc()
		}
	}
}

// resetFailedOverSlots returns every slot whose task is confirmed
// gone back to NEW, so the normal slot lifecycle relaunches it --
// "FAILED_OVER: restart controller resets to NEW" per spec.md section
// 4.5.1. Must run before restartInOrder reconsiders the plan, or a
// FAILED_OVER slot would be re-killed every tick.
func resetFailedOverSlots(doc *model.Document) {
	now := time.Now()
	for _, role := range model.Roles {
		for i, plan := range doc.Plan.Slots[role] {
			if plan.Phase != model.FailedOver {
				continue
			}
			cur := doc.Current.Slots[role][i]
			if !restart.TaskIsGoneOrRestarted(cur, cur.TaskID) {
				continue
			}
			cur.TaskID = ""
			plan.NodeID = ""
			plan.Transition(model.New, now)
		}
	}
}
