package scheduler

import (
	"time"

	log "github.com/golang/glog"
	mesos "github.com/mesos/mesos-go/mesosproto"
	gomesos "github.com/mesos/mesos-go/scheduler"
)

// Registered implements gomesos.Scheduler. Grounded on
// EtcdScheduler.Registered in the teacher: record the framework id
// (the next tick's prepareReconciliation persists it into the
// document if none is stored yet) and re-arm prepareReconciliation.
func (m *Manager) Registered(
	drv gomesos.SchedulerDriver,
	frameworkID *mesos.FrameworkID,
	masterInfo *mesos.MasterInfo,
) {
	log.Infof("scheduler: framework registered with master %v", masterInfo)
	m.mut.Lock()
	m.frameworkID = frameworkID.GetValue()
	m.masterInfo = masterInfo
	m.preparedReconciliation = false
	m.mut.Unlock()
}

// Reregistered implements gomesos.Scheduler.
func (m *Manager) Reregistered(drv gomesos.SchedulerDriver, masterInfo *mesos.MasterInfo) {
	log.Infof("scheduler: framework re-registered with master %v", masterInfo)
	m.mut.Lock()
	m.masterInfo = masterInfo
	m.preparedReconciliation = false
	m.mut.Unlock()
}

// Disconnected implements gomesos.Scheduler. It logs the disconnect
// and records the manager state as Immutable, matching the teacher's
// Disconnected handler (see State for what that state does not do).
func (m *Manager) Disconnected(gomesos.SchedulerDriver) {
	log.Error("scheduler: disconnected from mesos master")
	m.mut.Lock()
	m.state = Immutable
	m.mut.Unlock()
}

// ResourceOffers implements gomesos.Scheduler. Offers are only
// enqueued here (spec.md section 5); matching against plan needs
// happens in checkOutstandingOffers during the next tick. Intake is
// capped at OfferLimit -- excess offers are declined immediately.
func (m *Manager) ResourceOffers(drv gomesos.SchedulerDriver, offers []*mesos.Offer) {
	m.mut.Lock()
	defer m.mut.Unlock()

	for _, offer := range offers {
		if len(m.storedOffers) >= m.OfferLimit {
			log.V(2).Infof("scheduler: offer intake capped at %d, declining %s",
				m.OfferLimit, offer.GetId().GetValue())
			m.declineOfferLocked(offer.GetId().GetValue())
			continue
		}
		m.storedOffers[offer.GetId().GetValue()] = offer
	}
}

func (m *Manager) declineOfferLocked(offerID string) {
	if err := m.Driver.DeclineOffer(offerID, m.RefuseSeconds); err != nil {
		log.Warningf("scheduler: failed to decline offer %s: %v", offerID, err)
	}
}

// StatusUpdate implements gomesos.Scheduler. Only enqueues; the
// dispatcher's applyStatusUpdates step (3) drains and applies these.
func (m *Manager) StatusUpdate(drv gomesos.SchedulerDriver, status *mesos.TaskStatus) {
	log.Infof("scheduler: status update: task %s is %s",
		status.GetTaskId().GetValue(), status.GetState().String())
	m.mut.Lock()
	m.taskStatusUpdates = append(m.taskStatusUpdates, status)
	m.mut.Unlock()
}

// OfferRescinded implements gomesos.Scheduler.
func (m *Manager) OfferRescinded(drv gomesos.SchedulerDriver, offerID *mesos.OfferID) {
	log.Infof("scheduler: offer rescinded: %s", offerID.GetValue())
	m.mut.Lock()
	delete(m.storedOffers, offerID.GetValue())
	m.mut.Unlock()
}

// FrameworkMessage implements gomesos.Scheduler. No framework messages
// are expected from this executor; logged for visibility only.
func (m *Manager) FrameworkMessage(
	drv gomesos.SchedulerDriver,
	exec *mesos.ExecutorID,
	slave *mesos.SlaveID,
	msg string,
) {
	log.Infof("scheduler: received framework message: %s", msg)
}

// SlaveLost implements gomesos.Scheduler. Per spec.md section 9's
// open question, this is not a no-op: every task known to be on the
// lost slave is scheduled for an explicit reconcile.
func (m *Manager) SlaveLost(drv gomesos.SchedulerDriver, slaveID *mesos.SlaveID) {
	log.Warningf("scheduler: slave lost: %s", slaveID.GetValue())
	m.mut.Lock()
	defer m.mut.Unlock()
	m.scheduleReconcileForSlaveLocked(slaveID.GetValue())
}

// ExecutorLost implements gomesos.Scheduler. Same treatment as
// SlaveLost: schedule a reconcile rather than doing nothing.
func (m *Manager) ExecutorLost(
	drv gomesos.SchedulerDriver,
	execID *mesos.ExecutorID,
	slaveID *mesos.SlaveID,
	status int,
) {
	log.Warningf("scheduler: executor lost: %s on slave %s", execID.GetValue(), slaveID.GetValue())
	m.mut.Lock()
	defer m.mut.Unlock()
	m.scheduleReconcileForSlaveLocked(slaveID.GetValue())
}

// scheduleReconcileForSlaveLocked marks every task currently believed
// to reside on nodeID for an immediate explicit reconcile. Caller
// must hold m.mut.
func (m *Manager) scheduleReconcileForSlaveLocked(nodeID string) {
	for _, rt := range m.reconciliationTasks {
		if rt.NodeID == nodeID {
			rt.NextReconcile = time.Now()
		}
	}
}

// Error implements gomesos.Scheduler. Grounded on the teacher's
// Error handler, which treats "re-register after completion" as
// fatal; here every error is logged, and that one error also raises
// the dispatcher's stop flag, while process exit stays with
// cmd/arangodb-mesos-framework.
func (m *Manager) Error(drv gomesos.SchedulerDriver, err string) {
	log.Errorf("scheduler: received error from mesos: %s", err)
	if err == "Completed framework attempted to re-register" {
		m.Stop()
	}
}
