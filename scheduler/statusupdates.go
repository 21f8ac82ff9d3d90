package scheduler

import (
	"time"

	log "github.com/golang/glog"
	mesos "github.com/mesos/mesos-go/mesosproto"

	"github.com/vixns/arangodb-mesos-framework/model"
)

// applyStatusUpdates is step 3: drain the status queue and advance
// each affected slot's phase per the state machine in spec.md section
// 4.5.1, locating the slot via task2position (populated when a task
// is launched in checkOutstandingOffers).
func (m *Manager) applyStatusUpdates(doc *model.Document, now time.Time) {
	m.mut.Lock()
	updates := m.taskStatusUpdates
	m.taskStatusUpdates = nil
	m.mut.Unlock()

	for _, status := range updates {
		taskID := status.GetTaskId().GetValue()

		m.mut.RLock()
		pos, known := m.task2position[taskID]
		m.mut.RUnlock()
		if !known {
			log.Warningf("scheduler: status update for unknown task %s", taskID)
			continue
		}

		plan := doc.Plan.Slots[pos.Role][pos.Index]
		cur := doc.Current.Slots[pos.Role][pos.Index]
		cur.LastObservedState = status.GetState().String()
		cur.NodeID = status.GetSlaveId().GetValue()

		switch status.GetState() {
		case mesos.TaskState_TASK_RUNNING:
			if plan.Phase == model.TryingToStart {
				plan.Transition(model.Running, now)
			}
			// Track this task for slave/executor-loss reconciliation
			// (scheduler.scheduleReconcileForSlaveLocked) for as long as it
			// stays up, not just the snapshot taken at (re)registration --
			// prepareReconciliation only seeds the map once per connection,
			// but most tasks reach RUNNING in between.
			m.mut.Lock()
			if rt, known := m.reconciliationTasks[taskID]; known {
				rt.NodeID = cur.NodeID
			} else {
				m.reconciliationTasks[taskID] = &model.ReconcileTask{
					TaskID:        taskID,
					NodeID:        cur.NodeID,
					NextReconcile: now.Add(m.ImplicitReconcileInterval),
					Backoff:       m.ReconcileBaseBackoff,
				}
			}
			m.mut.Unlock()
		case mesos.TaskState_TASK_LOST,
			mesos.TaskState_TASK_FINISHED,
			mesos.TaskState_TASK_KILLED,
			mesos.TaskState_TASK_ERROR,
			mesos.TaskState_TASK_FAILED:
			if plan.Phase == model.Running || plan.Phase == model.TryingToStart {
				plan.Transition(model.FailedOver, now)
			}
			m.mut.Lock()
			delete(m.reconciliationTasks, taskID)
			m.mut.Unlock()
		default:
			log.V(2).Infof("scheduler: task %s reported intermediate state %s",
				taskID, status.GetState().String())
		}
	}
}
