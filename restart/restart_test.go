package restart

import (
	"testing"

	mesos "github.com/mesos/mesos-go/mesosproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vixns/arangodb-mesos-framework/model"
)

// fakeDriver is a minimal driver.Facade stand-in that only records
// kills, since Controller never needs the rest of the facade.
type fakeDriver struct {
	killed []string
}

func (f *fakeDriver) ReserveDynamically(model.Offer, string, model.Resources) error { return nil }
func (f *fakeDriver) MakePersistent(model.Offer, string, float64, string) error     { return nil }
func (f *fakeDriver) DeclineOffer(string, float64) error                           { return nil }
func (f *fakeDriver) StartInstance(string, string, string, model.ContainerSpec, model.CommandSpec, model.Resources, string) error {
	return nil
}
func (f *fakeDriver) KillInstance(taskID string) error {
	f.killed = append(f.killed, taskID)
	return nil
}
func (f *fakeDriver) ReconcileTasks([]*mesos.TaskStatus) error { return nil }
func (f *fakeDriver) Stop() error                              { return nil }

func runningClusterFixture() (*model.Plan, *model.Current) {
	plan := model.NewPlan()
	current := model.NewCurrent()
	for _, role := range []model.Role{model.Agent, model.Primary, model.Coordinator} {
		slot := &model.TaskPlan{SlotID: role.String() + "-0", Phase: model.Running}
		plan.Slots[role] = append(plan.Slots[role], slot)
		current.Slots[role] = append(current.Slots[role], &model.TaskCurrent{TaskID: "t-" + role.String()})
	}
	return plan, current
}

func TestRestartClusterKillsCoordinatorsFirst(t *testing.T) {
	plan, current := runningClusterFixture()
	d := &fakeDriver{}
	c := &Controller{Driver: d}

	killed, err := c.RestartCluster(plan, current)
	require.NoError(t, err)
	require.Len(t, killed, 1)
	assert.Equal(t, "coordinator-0", killed[0].SlotID)
	assert.Equal(t, model.FailedOver, plan.Slots[model.Coordinator][0].Phase)
	// Primaries and agents are untouched until the coordinator stage drains.
	assert.Equal(t, model.Running, plan.Slots[model.Primary][0].Phase)
	assert.Equal(t, model.Running, plan.Slots[model.Agent][0].Phase)
	assert.Equal(t, []string{"t-coordinator"}, d.killed)
}

func TestRestartClusterAdvancesOnceCoordinatorStageDrains(t *testing.T) {
	plan, current := runningClusterFixture()
	d := &fakeDriver{}
	c := &Controller{Driver: d}

	// First pass kills the coordinator.
	_, err := c.RestartCluster(plan, current)
	require.NoError(t, err)

	// Once the coordinator slot is confirmed gone (Manager would reset it
	// to NEW after FAILED_OVER), the next pass proceeds to primaries.
	plan.Slots[model.Coordinator][0].Phase = model.New
	killed, err := c.RestartCluster(plan, current)
	require.NoError(t, err)
	require.Len(t, killed, 1)
	assert.Equal(t, "primary-0", killed[0].SlotID)
}

func TestTaskIsGoneOrRestartedDetectsNewTaskID(t *testing.T) {
	cur := &model.TaskCurrent{TaskID: "arangodb:primary:2"}
	assert.True(t, TaskIsGoneOrRestarted(cur, "arangodb:primary:1"))
	assert.False(t, TaskIsGoneOrRestarted(cur, "arangodb:primary:2"))
}

func TestTaskIsGoneOrRestartedDetectsTerminalState(t *testing.T) {
	cur := &model.TaskCurrent{TaskID: "arangodb:primary:1", LastObservedState: "TASK_LOST"}
	assert.True(t, TaskIsGoneOrRestarted(cur, "arangodb:primary:1"))
}
