package caretaker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vixns/arangodb-mesos-framework/model"
)

func basicTarget() model.Target {
	return model.Target{
		Mode:         model.ModeCluster,
		Agents:       1,
		DBServers:    2,
		Coordinators: 1,
	}
}

func TestClusterUpdatePlanGrows(t *testing.T) {
	c := &Cluster{}
	target := basicTarget()
	plan := model.NewPlan()
	current := model.NewCurrent()

	cleaned := c.UpdatePlan(target, plan, current)
	assert.Empty(t, cleaned)
	assert.Len(t, plan.Slots[model.Agent], 1)
	assert.Len(t, plan.Slots[model.Primary], 2)
	assert.Len(t, plan.Slots[model.Coordinator], 1)
	assert.Len(t, plan.Slots[model.Secondary], 0)
}

func TestClusterUpdatePlanShrinkEmitsCleanedServerIDs(t *testing.T) {
	c := &Cluster{}
	target := basicTarget()
	plan := model.NewPlan()
	current := model.NewCurrent()
	c.UpdatePlan(target, plan, current)

	// Simulate 3 running db-servers, then shrink the target to 2.
	resizeRoleSlots(plan, current, model.Primary, 3)
	current.Slots[model.Primary][2].ServerID = "srv-2"

	target.DBServers = 2
	cleaned := c.UpdatePlan(target, plan, current)

	require.Len(t, cleaned, 1)
	assert.Equal(t, "srv-2", cleaned[0])
	assert.Equal(t, model.Killed, plan.Slots[model.Primary][2].Phase)
	// Shrink never reorders surviving slots.
	assert.Equal(t, model.New, plan.Slots[model.Primary][0].Phase)
	assert.Equal(t, model.New, plan.Slots[model.Primary][1].Phase)
}

func TestClusterCheckOfferDeclinesBelowFloor(t *testing.T) {
	c := &Cluster{}
	target := basicTarget()
	target.MinimalResources = map[model.Role]model.Resources{
		model.Primary: {CPUs: 2, MemMB: 1024, DiskMB: 2048},
	}
	slot := &model.TaskPlan{Phase: model.New}
	offer := model.Offer{NodeID: "n1", Resources: model.Resources{CPUs: 1, MemMB: 1024, DiskMB: 2048}}

	d := c.CheckOffer(target, offer, model.Primary, slot, &model.TaskCurrent{}, model.NewCurrent())
	assert.Equal(t, Decline, d.Kind)
}

func TestClusterCheckOfferReservesWhenSufficient(t *testing.T) {
	c := &Cluster{}
	target := basicTarget()
	slot := &model.TaskPlan{Phase: model.New}
	offer := model.Offer{NodeID: "n1", Resources: model.Resources{CPUs: 1, MemMB: 512, DiskMB: 1024, Ports: []model.PortRange{{Begin: 31000, End: 31010}}}}

	d := c.CheckOffer(target, offer, model.Primary, slot, &model.TaskCurrent{}, model.NewCurrent())
	assert.Equal(t, Reserve, d.Kind)
}

func TestClusterCheckOfferRejectsSecondaryOnPrimaryNode(t *testing.T) {
	c := &Cluster{}
	target := basicTarget()
	target.AsyncReplication = true
	target.SecondarySameServer = false

	current := model.NewCurrent()
	current.Slots[model.Primary] = append(current.Slots[model.Primary], &model.TaskCurrent{NodeID: "n1"})

	slot := &model.TaskPlan{Phase: model.New}
	offer := model.Offer{NodeID: "n1", Resources: model.Resources{CPUs: 1, MemMB: 512, DiskMB: 1024, Ports: []model.PortRange{{Begin: 31000, End: 31010}}}}

	d := c.CheckOffer(target, offer, model.Secondary, slot, &model.TaskCurrent{}, current)
	assert.Equal(t, Decline, d.Kind)
}

func TestClusterCheckOfferAllowsSecondaryOnDifferentNode(t *testing.T) {
	c := &Cluster{}
	target := basicTarget()
	target.AsyncReplication = true

	current := model.NewCurrent()
	current.Slots[model.Primary] = append(current.Slots[model.Primary], &model.TaskCurrent{NodeID: "n1"})

	slot := &model.TaskPlan{Phase: model.New}
	offer := model.Offer{NodeID: "n2", Resources: model.Resources{CPUs: 1, MemMB: 512, DiskMB: 1024, Ports: []model.PortRange{{Begin: 31000, End: 31010}}}}

	d := c.CheckOffer(target, offer, model.Secondary, slot, &model.TaskCurrent{}, current)
	assert.Equal(t, Reserve, d.Kind)
}

func TestClusterCheckOfferLaunchesWithImageAndCommand(t *testing.T) {
	c := &Cluster{Image: ImageConfig{Image: "arangodb/arangodb:3.9", StorageEngine: "rocksdb"}}
	target := basicTarget()
	slot := &model.TaskPlan{Phase: model.TryingToPersist, NodeID: "n1"}
	offer := model.Offer{
		NodeID:   "n1",
		Hostname: "node1.example.com",
		Resources: model.Resources{
			CPUs: 1, MemMB: 512, DiskMB: 1024,
			Ports: []model.PortRange{{Begin: 31000, End: 31010}},
		},
		VolumeID: "vol-1",
	}

	d := c.CheckOffer(target, offer, model.Primary, slot, &model.TaskCurrent{}, model.NewCurrent())
	require.Equal(t, Launch, d.Kind)
	assert.Equal(t, "arangodb/arangodb:3.9", d.Container.Image)
	assert.Equal(t, "arangod", d.Command.Value)
	assert.Contains(t, d.Command.Args, "--server.storage-engine")
	assert.NotEmpty(t, d.Ports)
}

func TestClusterCheckOfferNewPreservesNodeAffinity(t *testing.T) {
	c := &Cluster{}
	target := basicTarget()
	slot := &model.TaskPlan{Phase: model.New}
	cur := &model.TaskCurrent{NodeID: "n1"}
	offer := model.Offer{NodeID: "n2", Resources: model.Resources{CPUs: 1, MemMB: 512, DiskMB: 1024}}

	d := c.CheckOffer(target, offer, model.Primary, slot, cur, model.NewCurrent())
	assert.Equal(t, Decline, d.Kind)
}

func TestStandaloneIgnoresNonPrimaryRole(t *testing.T) {
	s := &Standalone{}
	target := model.Target{Mode: model.ModeStandalone, Agents: 1, DBServers: 1, Coordinators: 1}
	slot := &model.TaskPlan{Phase: model.New}
	offer := model.Offer{NodeID: "n1", Resources: model.Resources{CPUs: 1, MemMB: 512, DiskMB: 1024}}

	d := s.CheckOffer(target, offer, model.Coordinator, slot, &model.TaskCurrent{}, model.NewCurrent())
	assert.Equal(t, Decline, d.Kind)
}

func TestStandaloneUpdatePlanIsSingleSlot(t *testing.T) {
	s := &Standalone{}
	target := model.Target{Mode: model.ModeStandalone, Agents: 3, DBServers: 5, Coordinators: 2}
	plan := model.NewPlan()
	current := model.NewCurrent()

	s.UpdatePlan(target, plan, current)
	assert.Len(t, plan.Slots[model.Primary], 1)
	assert.Len(t, plan.Slots[model.Agent], 0)
	assert.Len(t, plan.Slots[model.Coordinator], 0)
}
