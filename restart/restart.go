// Package restart implements the Restart Controller (C6): rolling and
// whole-cluster restarts, individual task failover, and the
// companion reverse-proxy respawn flag.
//
// Grounded on the teacher's reseedCluster/reseedNode/
// RankReseedCandidates, generalized from "elect one surviving etcd
// node as the new seed" to "kill every role in a fixed order, waiting
// for each stage to drain" per spec.md section 4.6.
package restart

import (
	log "github.com/golang/glog"

	"github.com/vixns/arangodb-mesos-framework/driver"
	"github.com/vixns/arangodb-mesos-framework/model"
)

// ProxySupervisor is the out-of-scope companion reverse-proxy
// process, contracted only at this interface per spec.md section 1.
type ProxySupervisor interface {
	Respawn()
}

// Controller drives restart/failover flows. It reads and writes plan
// phases directly; the caller (Manager) is responsible for committing
// the lease that contains those mutations.
type Controller struct {
	Driver driver.Facade
	Proxy  ProxySupervisor
}

// RestartTask marks a single slot FAILED_OVER and kills its task, per
// spec.md section 4.6's restart(task) operation.
func (c *Controller) RestartTask(plan *model.TaskPlan, cur *model.TaskCurrent) error {
	plan.Phase = model.FailedOver
	if cur.TaskID == "" {
		return nil
	}
	return c.Driver.KillInstance(cur.TaskID)
}

// RestartCluster stages a rolling kill of every role in
// model.RestartOrder (Coordinators -> Secondaries -> Primaries ->
// Agents). It returns the list of slots it killed in this call; the
// Manager's dispatcher loop calls this repeatedly across ticks, each
// time advancing to the next stage only once the previous stage's
// tasks are confirmed gone via TaskIsGoneOrRestarted.
func (c *Controller) RestartCluster(plan *model.Plan, current *model.Current) ([]*model.TaskPlan, error) {
	return c.restartInOrder(plan, current, model.RestartOrder)
}

// RestartStandalone restarts the single instance (role Primary).
func (c *Controller) RestartStandalone(plan *model.Plan, current *model.Current) ([]*model.TaskPlan, error) {
	return c.restartInOrder(plan, current, []model.Role{model.Primary})
}

func (c *Controller) restartInOrder(plan *model.Plan, current *model.Current, order []model.Role) ([]*model.TaskPlan, error) {
	for _, role := range order {
		planSlots := plan.Slots[role]
		curSlots := current.Slots[role]

		stageDone := true
		var killed []*model.TaskPlan
		for i, ps := range planSlots {
			if ps.Phase == model.Killed || ps.Phase == model.New {
				continue
			}
			stageDone = false
			cur := curSlots[i]
			if err := c.RestartTask(ps, cur); err != nil {
				log.Errorf("restart: failed to kill task for slot %s: %v", ps.SlotID, err)
				continue
			}
			killed = append(killed, ps)
		}
		if !stageDone {
			// This stage has outstanding kills in flight; stop here so the
			// next role never starts before every predecessor role has been
			// killed (spec.md scenario 4's invariant).
			return killed, nil
		}
	}
	return nil, nil
}

// TaskIsGoneOrRestarted returns true when the slot's current task id
// differs from observedTaskID (meaning it was already relaunched), or
// its last observed state is terminal.
func TaskIsGoneOrRestarted(cur *model.TaskCurrent, observedTaskID string) bool {
	if cur.TaskID != observedTaskID {
		return true
	}
	switch cur.LastObservedState {
	case "TASK_LOST", "TASK_FINISHED", "TASK_KILLED", "TASK_ERROR", "TASK_FAILED":
		return true
	default:
		return false
	}
}

// SetRestartProxy requests that the companion reverse-proxy respawn,
// the dependency-injected replacement for
// Global::state().setRestartProxy(...) called from the SIGCHLD
// handler (spec.md section 9).
func (c *Controller) SetRestartProxy() {
	if c.Proxy != nil {
		c.Proxy.Respawn()
	}
}
