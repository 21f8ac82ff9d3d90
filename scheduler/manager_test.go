package scheduler

import (
	"testing"
	"time"

	mesos "github.com/mesos/mesos-go/mesosproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vixns/arangodb-mesos-framework/caretaker"
	"github.com/vixns/arangodb-mesos-framework/model"
	"github.com/vixns/arangodb-mesos-framework/restart"
)

// fakeDriver records every call made against it; it never talks to a
// real Mesos master. Grounded on the teacher's own fakeDriver used
// throughout scheduler_test.go.
type fakeDriver struct {
	reserved   []string
	persisted  []string
	started    []string
	killed     []string
	declined   []string
	reconciled [][]*mesos.TaskStatus
}

func (f *fakeDriver) ReserveDynamically(offer model.Offer, principal string, resources model.Resources) error {
	f.reserved = append(f.reserved, offer.OfferID)
	return nil
}

func (f *fakeDriver) MakePersistent(offer model.Offer, principal string, volumeMB float64, persistenceID string) error {
	f.persisted = append(f.persisted, offer.OfferID)
	return nil
}

func (f *fakeDriver) DeclineOffer(offerID string, refuseSeconds float64) error {
	f.declined = append(f.declined, offerID)
	return nil
}

func (f *fakeDriver) StartInstance(taskID, name, nodeID string, container model.ContainerSpec, command model.CommandSpec, resources model.Resources, offerID string) error {
	f.started = append(f.started, taskID)
	return nil
}

func (f *fakeDriver) KillInstance(taskID string) error {
	f.killed = append(f.killed, taskID)
	return nil
}

func (f *fakeDriver) ReconcileTasks(statuses []*mesos.TaskStatus) error {
	f.reconciled = append(f.reconciled, statuses)
	return nil
}

func (f *fakeDriver) Stop() error { return nil }

// fakeCaretaker lets each test steer CheckOffer/UpdatePlan/Deadline
// without depending on the real Cluster/Standalone policy logic.
type fakeCaretaker struct {
	decision        caretaker.Decision
	updatePlanClean []string
	deadline        time.Time
}

func (f *fakeCaretaker) UpdatePlan(target model.Target, plan *model.Plan, current *model.Current) []string {
	return f.updatePlanClean
}

func (f *fakeCaretaker) CheckOffer(target model.Target, offer model.Offer, role model.Role, plan *model.TaskPlan, cur *model.TaskCurrent, allCurrent *model.Current) caretaker.Decision {
	return f.decision
}

func (f *fakeCaretaker) Deadline(p model.Phase) time.Time {
	if f.deadline.IsZero() {
		return time.Now().Add(time.Minute)
	}
	return f.deadline
}

func newManagerWithDoc() (*Manager, *model.Document) {
	doc := model.NewDocument()
	doc.Plan.Slots[model.Coordinator] = []*model.TaskPlan{
		{SlotID: "coordinator-0", Phase: model.New},
	}
	doc.Current.Slots[model.Coordinator] = []*model.TaskCurrent{{}}

	m := NewManager(nil, &fakeCaretaker{}, &fakeDriver{}, &restart.Controller{Driver: &fakeDriver{}}, nil)
	return m, doc
}

func TestCheckOutstandingOffersLaunchesOnMatchingSlot(t *testing.T) {
	m, doc := newManagerWithDoc()
	drv := &fakeDriver{}
	m.Driver = drv
	m.Caretaker = &fakeCaretaker{decision: caretaker.Decision{
		Kind:      caretaker.Launch,
		Container: model.ContainerSpec{Image: "arangodb/arangodb:latest"},
		Command:   model.CommandSpec{Value: "arangod"},
		Ports:     []uint64{8529},
	}}

	m.mut.Lock()
	m.storedOffers["offer-1"] = &mesos.Offer{
		Id:       &mesos.OfferID{Value: strPtr("offer-1")},
		Hostname: strPtr("node-1.example.com"),
		SlaveId:  &mesos.SlaveID{Value: strPtr("slave-1")},
	}
	m.mut.Unlock()

	m.checkOutstandingOffers(doc, time.Now())

	require.Len(t, drv.started, 1)
	assert.Equal(t, model.TryingToStart, doc.Plan.Slots[model.Coordinator][0].Phase)
	assert.Equal(t, "node-1.example.com", doc.Current.Slots[model.Coordinator][0].Hostname)
	assert.Empty(t, drv.declined)
}

func TestCheckOutstandingOffersDeclinesUnmatchedOffer(t *testing.T) {
	m, doc := newManagerWithDoc()
	drv := &fakeDriver{}
	m.Driver = drv
	m.Caretaker = &fakeCaretaker{decision: caretaker.Decision{Kind: caretaker.Decline}}

	m.mut.Lock()
	m.storedOffers["offer-2"] = &mesos.Offer{
		Id:      &mesos.OfferID{Value: strPtr("offer-2")},
		SlaveId: &mesos.SlaveID{Value: strPtr("slave-1")},
	}
	m.mut.Unlock()

	m.checkOutstandingOffers(doc, time.Now())

	assert.Empty(t, drv.started)
	assert.Equal(t, []string{"offer-2"}, drv.declined)
}

func TestCheckTimeoutsResetsReserveTimeoutToNew(t *testing.T) {
	m, doc := newManagerWithDoc()
	plan := doc.Plan.Slots[model.Coordinator][0]
	plan.Phase = model.TryingToReserve
	plan.NodeID = "slave-1"
	plan.Deadline = time.Now().Add(-time.Second)

	m.checkTimeouts(doc, time.Now())

	assert.Equal(t, model.New, plan.Phase)
	assert.Empty(t, plan.NodeID)
}

func TestCheckTimeoutsEscalatesStartTimeoutToFailedOver(t *testing.T) {
	m, doc := newManagerWithDoc()
	drv := &fakeDriver{}
	m.Restart = &restart.Controller{Driver: drv}

	plan := doc.Plan.Slots[model.Coordinator][0]
	plan.Phase = model.TryingToStart
	plan.Deadline = time.Now().Add(-time.Second)
	doc.Current.Slots[model.Coordinator][0].TaskID = "arangodb:coordinator:1"

	m.checkTimeouts(doc, time.Now())

	assert.Equal(t, model.FailedOver, plan.Phase)
	assert.Equal(t, []string{"arangodb:coordinator:1"}, drv.killed)
}

func TestApplyStatusUpdatesTransitionsToRunning(t *testing.T) {
	m, doc := newManagerWithDoc()
	plan := doc.Plan.Slots[model.Coordinator][0]
	plan.Phase = model.TryingToStart
	doc.Current.Slots[model.Coordinator][0].TaskID = "arangodb:coordinator:1"

	m.mut.Lock()
	m.task2position["arangodb:coordinator:1"] = model.Position{Role: model.Coordinator, Index: 0}
	m.taskStatusUpdates = []*mesos.TaskStatus{
		{
			TaskId: &mesos.TaskID{Value: strPtr("arangodb:coordinator:1")},
			State:  mesos.TaskState_TASK_RUNNING.Enum(),
		},
	}
	m.mut.Unlock()

	m.applyStatusUpdates(doc, time.Now())

	assert.Equal(t, model.Running, plan.Phase)
	assert.Equal(t, "TASK_RUNNING", doc.Current.Slots[model.Coordinator][0].LastObservedState)

	m.mut.RLock()
	rt, tracked := m.reconciliationTasks["arangodb:coordinator:1"]
	m.mut.RUnlock()
	require.True(t, tracked, "a task reaching RUNNING outside of prepareReconciliation must still be tracked for slave/executor-loss reconciliation")
	assert.Equal(t, "arangodb:coordinator:1", rt.TaskID)
}

func TestApplyStatusUpdatesTransitionsRunningToFailedOverOnLost(t *testing.T) {
	m, doc := newManagerWithDoc()
	plan := doc.Plan.Slots[model.Coordinator][0]
	plan.Phase = model.Running
	doc.Current.Slots[model.Coordinator][0].TaskID = "arangodb:coordinator:1"

	m.mut.Lock()
	m.task2position["arangodb:coordinator:1"] = model.Position{Role: model.Coordinator, Index: 0}
	m.reconciliationTasks["arangodb:coordinator:1"] = &model.ReconcileTask{TaskID: "arangodb:coordinator:1"}
	m.taskStatusUpdates = []*mesos.TaskStatus{
		{
			TaskId: &mesos.TaskID{Value: strPtr("arangodb:coordinator:1")},
			State:  mesos.TaskState_TASK_LOST.Enum(),
		},
	}
	m.mut.Unlock()

	m.applyStatusUpdates(doc, time.Now())

	assert.Equal(t, model.FailedOver, plan.Phase)
	m.mut.RLock()
	_, stillTracked := m.reconciliationTasks["arangodb:coordinator:1"]
	m.mut.RUnlock()
	assert.False(t, stillTracked)
}

func TestManageClusterRestartResetsFailedOverSlotOnceTaskGone(t *testing.T) {
	m, doc := newManagerWithDoc()
	plan := doc.Plan.Slots[model.Coordinator][0]
	plan.Phase = model.FailedOver
	plan.NodeID = "slave-1"
	doc.Current.Slots[model.Coordinator][0].TaskID = "arangodb:coordinator:1"
	doc.Current.Slots[model.Coordinator][0].LastObservedState = "TASK_LOST"

	m.manageClusterRestart(doc)

	assert.Equal(t, model.New, plan.Phase)
	assert.Empty(t, plan.NodeID)
	assert.Empty(t, doc.Current.Slots[model.Coordinator][0].TaskID)
}

func TestManageClusterRestartClearsFlagWhenNothingLeftToKill(t *testing.T) {
	m, doc := newManagerWithDoc()
	doc.Plan.Slots[model.Coordinator][0].Phase = model.New
	doc.RestartFlag = model.RestartCluster

	m.manageClusterRestart(doc)

	assert.Equal(t, model.RestartNone, doc.RestartFlag)
}

func TestSetTargetAndUpdateTargetAppliesValidTarget(t *testing.T) {
	m, doc := newManagerWithDoc()
	valid := model.Target{Agents: 1, DBServers: 1, Coordinators: 1}
	m.SetTarget(valid)

	m.updateTarget(doc)

	assert.Equal(t, valid.Agents, doc.Target.Agents)
}

func TestSetTargetAndUpdateTargetRejectsInvalidTarget(t *testing.T) {
	m, doc := newManagerWithDoc()
	doc.Target = model.Target{Agents: 1, DBServers: 1, Coordinators: 1}
	m.SetTarget(model.Target{Agents: 0})

	m.updateTarget(doc)

	assert.Equal(t, 1, doc.Target.Agents)
}

func strPtr(s string) *string { return &s }
