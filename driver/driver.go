// Package driver implements the Driver Facade (C3): a thin interface
// over the Mesos scheduler driver so that the rest of the core issues
// its reserve/persist/launch/kill/decline/reconcile calls through
// Facade rather than through mesos-go's SchedulerDriver.
//
// Grounded on the teacher's direct use of scheduler.SchedulerDriver
// (driver.LaunchTasks / driver.DeclineOffer / driver.KillTask /
// driver.ReconcileTasks in scheduler.go) and on
// ArangoScheduler::reserveDynamically / makePersistent in the original
// C++ source, which this facade's Reserve/Persist add as named
// operations the C++ driver never exposed this explicitly.
package driver

import (
	"github.com/gogo/protobuf/proto"
	mesos "github.com/mesos/mesos-go/mesosproto"
	util "github.com/mesos/mesos-go/mesosutil"
	"github.com/mesos/mesos-go/scheduler"

	"github.com/vixns/arangodb-mesos-framework/model"
)

// Facade is the narrow interface the Manager (C5) consumes. Every
// method returns immediately; their effects are observed
// asynchronously through Event Ingress (C4), per spec.md section 4.3.
type Facade interface {
	ReserveDynamically(offer model.Offer, principal string, resources model.Resources) error
	MakePersistent(offer model.Offer, principal string, volumeMB float64, persistenceID string) error
	DeclineOffer(offerID string, refuseSeconds float64) error
	StartInstance(taskID string, name string, nodeID string, container model.ContainerSpec, command model.CommandSpec, resources model.Resources, offerID string) error
	KillInstance(taskID string) error
	ReconcileTasks(statuses []*mesos.TaskStatus) error
	Stop() error
}

// MesosFacade implements Facade over a live mesos-go SchedulerDriver.
type MesosFacade struct {
	Driver scheduler.SchedulerDriver
}

func New(d scheduler.SchedulerDriver) *MesosFacade {
	return &MesosFacade{Driver: d}
}

func (f *MesosFacade) ReserveDynamically(offer model.Offer, principal string, resources model.Resources) error {
	reserved := []*mesos.Resource{
		reservedScalar("cpus", resources.CPUs, principal),
		reservedScalar("mem", resources.MemMB, principal),
		reservedScalar("disk", resources.DiskMB, principal),
	}
	_, err := f.Driver.AcceptOffers(
		[]*mesos.OfferID{{Value: proto.String(offer.OfferID)}},
		[]*mesos.Offer_Operation{{
			Type:    mesos.Offer_Operation_RESERVE.Enum(),
			Reserve: &mesos.Offer_Operation_Reserve{Resources: reserved},
		}},
		&mesos.Filters{},
	)
	return err
}

func (f *MesosFacade) MakePersistent(offer model.Offer, principal string, volumeMB float64, persistenceID string) error {
	volume := util.NewScalarResource("disk", volumeMB)
	volume.Role = proto.String(principal)
	volume.Disk = &mesos.Resource_DiskInfo{
		Persistence: &mesos.Resource_DiskInfo_Persistence{Id: proto.String(persistenceID)},
		Volume: &mesos.Volume{
			ContainerPath: proto.String("/data"),
			Mode:          mesos.Volume_RW.Enum(),
		},
	}
	_, err := f.Driver.AcceptOffers(
		[]*mesos.OfferID{{Value: proto.String(offer.OfferID)}},
		[]*mesos.Offer_Operation{{
			Type:   mesos.Offer_Operation_CREATE.Enum(),
			Create: &mesos.Offer_Operation_Create{Volumes: []*mesos.Resource{volume}},
		}},
		&mesos.Filters{},
	)
	return err
}

func (f *MesosFacade) DeclineOffer(offerID string, refuseSeconds float64) error {
	_, err := f.Driver.DeclineOffer(
		&mesos.OfferID{Value: proto.String(offerID)},
		&mesos.Filters{RefuseSeconds: proto.Float64(refuseSeconds)},
	)
	return err
}

func (f *MesosFacade) StartInstance(
	taskID, name, nodeID string,
	container model.ContainerSpec,
	command model.CommandSpec,
	resources model.Resources,
	offerID string,
) error {
	args := make([]string, 0, len(command.Args))
	args = append(args, command.Args...)

	task := &mesos.TaskInfo{
		TaskId:  &mesos.TaskID{Value: proto.String(taskID)},
		Name:    proto.String(name),
		SlaveId: &mesos.SlaveID{Value: proto.String(nodeID)},
		Command: &mesos.CommandInfo{
			Value:     proto.String(command.Value),
			Arguments: args,
			Shell:     proto.Bool(false),
		},
		Container: &mesos.ContainerInfo{
			Type: mesos.ContainerInfo_DOCKER.Enum(),
			Docker: &mesos.ContainerInfo_DockerInfo{
				Image:          proto.String(container.Image),
				ForcePullImage: proto.Bool(container.ForcePull),
				Privileged:     proto.Bool(container.Privileged),
			},
		},
		Resources: []*mesos.Resource{
			util.NewScalarResource("cpus", resources.CPUs),
			util.NewScalarResource("mem", resources.MemMB),
			portsResource(resources.Ports),
		},
	}
	_, err := f.Driver.LaunchTasks(
		[]*mesos.OfferID{{Value: proto.String(offerID)}},
		[]*mesos.TaskInfo{task},
		&mesos.Filters{RefuseSeconds: proto.Float64(1)},
	)
	return err
}

func (f *MesosFacade) KillInstance(taskID string) error {
	_, err := f.Driver.KillTask(&mesos.TaskID{Value: proto.String(taskID)})
	return err
}

func (f *MesosFacade) ReconcileTasks(statuses []*mesos.TaskStatus) error {
	_, err := f.Driver.ReconcileTasks(statuses)
	return err
}

func (f *MesosFacade) Stop() error {
	_, err := f.Driver.Stop(false)
	return err
}

func portsResource(ranges []model.PortRange) *mesos.Resource {
	valueRanges := make([]*mesos.Value_Range, 0, len(ranges))
	for _, pr := range ranges {
		valueRanges = append(valueRanges, &mesos.Value_Range{
			Begin: proto.Uint64(pr.Begin),
			End:   proto.Uint64(pr.End),
		})
	}
	return &mesos.Resource{
		Name:   proto.String("ports"),
		Type:   mesos.Value_RANGES.Enum(),
		Ranges: &mesos.Value_Ranges{Range: valueRanges},
	}
}

func reservedScalar(name string, value float64, principal string) *mesos.Resource {
	res := util.NewScalarResource(name, value)
	res.Role = proto.String(principal)
	res.Reservation = &mesos.Resource_ReservationInfo{Principal: proto.String(principal)}
	return res
}
