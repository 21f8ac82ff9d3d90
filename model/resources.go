package model

// PortRange is an inclusive range of ports, mirroring the Mesos
// "ports" resource's Value_Range representation.
type PortRange struct {
	Begin uint64
	End   uint64
}

// Len returns the number of ports covered by the range.
func (pr PortRange) Len() uint64 {
	if pr.End < pr.Begin {
		return 0
	}
	return pr.End - pr.Begin + 1
}

// Resources is the resource vector carried by an Offer, a
// reservation, or a launched task: cpu, memory, disk (all scalar,
// Mesos units) and a set of port ranges.
type Resources struct {
	CPUs   float64
	MemMB  float64
	DiskMB float64
	Ports  []PortRange
}

// TotalPorts sums the number of ports across all ranges.
func (r Resources) TotalPorts() uint64 {
	var total uint64
	for _, pr := range r.Ports {
		total += pr.Len()
	}
	return total
}

// Covers reports whether r has at least as much of every resource as
// floor requires. Ports are checked by count, not by specific values.
func (r Resources) Covers(floor Resources) bool {
	return r.CPUs >= floor.CPUs &&
		r.MemMB >= floor.MemMB &&
		r.DiskMB >= floor.DiskMB &&
		r.TotalPorts() >= floor.TotalPorts()
}

// FirstPorts returns the first n ports found across the resource's
// port ranges, in ascending order. It returns fewer than n if the
// offer does not contain enough ports.
func (r Resources) FirstPorts(n int) []uint64 {
	ports := make([]uint64, 0, n)
	for _, pr := range r.Ports {
		for p := pr.Begin; p <= pr.End && len(ports) < n; p++ {
			ports = append(ports, p)
		}
		if len(ports) >= n {
			break
		}
	}
	return ports
}
