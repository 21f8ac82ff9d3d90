package model

import (
	mesos "github.com/mesos/mesos-go/mesosproto"
	util "github.com/mesos/mesos-go/mesosutil"
)

// Offer is the framework's own view of a Mesos resource offer: just
// enough information for the Caretaker to decide what to do with it,
// stripped of protobuf machinery.
type Offer struct {
	OfferID    string
	NodeID     string
	Hostname   string
	Resources  Resources
	Role       string
	Reserved   Resources
	VolumeID   string
}

// ParseOffer extracts the resource vector and identity from a raw
// Mesos offer. Grounded on scheduler.parseOffer in the teacher, which
// performs the same cpu/mem/disk/ports extraction via
// util.FilterResources.
func ParseOffer(offer *mesos.Offer) Offer {
	getResources := func(name string) []*mesos.Resource {
		return util.FilterResources(offer.Resources, func(res *mesos.Resource) bool {
			return res.GetName() == name
		})
	}

	var cpus, mems, disk float64
	for _, res := range getResources("cpus") {
		cpus += res.GetScalar().GetValue()
	}
	for _, res := range getResources("mem") {
		mems += res.GetScalar().GetValue()
	}
	for _, res := range getResources("disk") {
		disk += res.GetScalar().GetValue()
	}

	var ports []PortRange
	for _, res := range getResources("ports") {
		for _, rng := range res.GetRanges().GetRange() {
			ports = append(ports, PortRange{Begin: rng.GetBegin(), End: rng.GetEnd()})
		}
	}

	var reservedCPUs, reservedMems, reservedDisk float64
	var volumeID string
	for _, res := range offer.GetResources() {
		if res.GetRole() != "" && res.GetRole() != "*" {
			switch res.GetName() {
			case "cpus":
				reservedCPUs += res.GetScalar().GetValue()
			case "mem":
				reservedMems += res.GetScalar().GetValue()
			case "disk":
				reservedDisk += res.GetScalar().GetValue()
				if res.GetDisk() != nil && res.GetDisk().GetPersistence() != nil {
					volumeID = res.GetDisk().GetPersistence().GetId()
				}
			}
		}
	}

	return Offer{
		OfferID:  offer.GetId().GetValue(),
		NodeID:   offer.GetSlaveId().GetValue(),
		Hostname: offer.GetHostname(),
		Resources: Resources{
			CPUs:   cpus,
			MemMB:  mems,
			DiskMB: disk,
			Ports:  ports,
		},
		Reserved: Resources{
			CPUs:   reservedCPUs,
			MemMB:  reservedMems,
			DiskMB: reservedDisk,
		},
		VolumeID: volumeID,
	}
}
