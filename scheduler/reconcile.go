package scheduler

import (
	"time"

	log "github.com/golang/glog"
	mesos "github.com/mesos/mesos-go/mesosproto"

	"github.com/vixns/arangodb-mesos-framework/metrics"
	"github.com/vixns/arangodb-mesos-framework/model"
)

// prepareReconciliation is step 1: on first run after
// (re)registration, schedule an explicit reconcile for every known
// task with an exponential backoff starting at ReconcileBaseBackoff,
// per spec.md section 4.5 and ArangoManager::prepareReconciliation.
// Every tick it also persists the framework id recorded by Registered
// into doc if doc has none yet.
func (m *Manager) prepareReconciliation(doc *model.Document, now time.Time) {
	m.mut.Lock()
	defer m.mut.Unlock()

	if doc.FrameworkID == "" && m.frameworkID != "" {
		doc.FrameworkID = m.frameworkID
	}

	if m.preparedReconciliation {
		return
	}
	m.preparedReconciliation = true
	m.nextImplicitReconciliation = now.Add(m.ImplicitReconcileInterval)

	for _, role := range model.Roles {
		for i, cur := range doc.Current.Slots[role] {
			plan := doc.Plan.Slots[role][i]
			if plan.Phase != model.Running || cur.TaskID == "" {
				continue
			}
			m.reconciliationTasks[cur.TaskID] = &model.ReconcileTask{
				TaskID:        cur.TaskID,
				NodeID:        cur.NodeID,
				NextReconcile: now,
				Backoff:       m.ReconcileBaseBackoff,
			}
		}
	}
}

// reconcileTasks is step 2: send explicit reconcile requests for
// tasks whose next-reconcile time has elapsed, doubling their backoff
// (capped at ReconcileMaxBackoff). On ImplicitReconcileInterval
// elapsing, issue a full reconcile (empty status list, per mesos-go
// convention) and reset the timer.
func (m *Manager) reconcileTasks(now time.Time) {
	m.mut.Lock()
	var due []*mesos.TaskStatus
	for _, rt := range m.reconciliationTasks {
		if now.Before(rt.NextReconcile) {
			continue
		}
		due = append(due, &mesos.TaskStatus{
			TaskId: &mesos.TaskID{Value: &rt.TaskID},
			State:  mesos.TaskState_TASK_RUNNING.Enum(),
		})
		rt.NextReconcile = now.Add(rt.Backoff)
		rt.Backoff *= 2
		if rt.Backoff > m.ReconcileMaxBackoff {
			rt.Backoff = m.ReconcileMaxBackoff
		}
	}

	implicitDue := now.After(m.nextImplicitReconciliation)
	if implicitDue {
		m.nextImplicitReconciliation = now.Add(m.ImplicitReconcileInterval)
	}
	m.mut.Unlock()

	if len(due) > 0 {
		if err := m.Driver.ReconcileTasks(due); err != nil {
			log.Warningf("scheduler: explicit reconcile request failed: %v", err)
		} else {
			metrics.TasksReconciledTotal.WithLabelValues("explicit").Add(float64(len(due)))
		}
	}
	if implicitDue {
		if err := m.Driver.ReconcileTasks(nil); err != nil {
			log.Warningf("scheduler: implicit reconcile request failed: %v", err)
		} else {
			metrics.TasksReconciledTotal.WithLabelValues("implicit").Inc()
		}
	}
}
