package endpoints

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vixns/arangodb-mesos-framework/model"
)

func withPort(port uint64) model.Resources {
	return model.Resources{Ports: []model.PortRange{{Begin: port, End: port + 2}}}
}

func TestProjectOnlyIncludesRunningSlots(t *testing.T) {
	current := model.NewCurrent()
	current.Slots[model.Coordinator] = []*model.TaskCurrent{
		{Hostname: "node-1", LastObservedState: "TASK_RUNNING", Reserved: withPort(8529)},
		{Hostname: "node-2", LastObservedState: "TASK_STAGING", Reserved: withPort(8529)},
	}
	current.Slots[model.Primary] = []*model.TaskCurrent{
		{Hostname: "node-3", LastObservedState: "TASK_RUNNING", Reserved: withPort(8530)},
	}

	coordinators, dbservers := Project(current)
	assert.Equal(t, []string{"http://node-1:8529"}, coordinators)
	assert.Equal(t, []string{"http://node-3:8530"}, dbservers)
}

func TestProjectFallsBackToNodeIDWhenHostnameMissing(t *testing.T) {
	current := model.NewCurrent()
	current.Slots[model.Coordinator] = []*model.TaskCurrent{
		{NodeID: "slave-7", LastObservedState: "TASK_RUNNING", Reserved: withPort(8529)},
	}

	coordinators := CoordinatorEndpoints(current)
	assert.Equal(t, []string{"http://slave-7:8529"}, coordinators)
}

func TestProjectExcludesSlotsWithoutAPort(t *testing.T) {
	current := model.NewCurrent()
	current.Slots[model.Primary] = []*model.TaskCurrent{
		{Hostname: "node-3", LastObservedState: "TASK_RUNNING"},
	}

	assert.Empty(t, DBServerEndpoints(current))
}

func TestProjectExcludesSecondariesFromDBServerList(t *testing.T) {
	current := model.NewCurrent()
	current.Slots[model.Secondary] = []*model.TaskCurrent{
		{Hostname: "node-4", LastObservedState: "TASK_RUNNING", Reserved: withPort(8529)},
	}

	assert.Empty(t, DBServerEndpoints(current))
}

func TestProjectReturnsEmptyNotNilOnNoRunningSlots(t *testing.T) {
	current := model.NewCurrent()
	coordinators, dbservers := Project(current)
	assert.NotNil(t, coordinators)
	assert.NotNil(t, dbservers)
	assert.Len(t, coordinators, 0)
	assert.Len(t, dbservers, 0)
}
