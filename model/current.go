package model

// ContainerSpec and CommandSpec describe what should be launched for
// a slot. The core never interprets their contents; it only threads
// them through to the driver facade's StartInstance call (spec.md
// section 1: "the database binary itself ... the core only issues
// container/command descriptors").
type ContainerSpec struct {
	Image        string
	ForcePull    bool
	Privileged   bool
	Volumes      []VolumeMount
}

type VolumeMount struct {
	HostPath      string
	ContainerPath string
}

type CommandSpec struct {
	Value string
	Args  []string
	Env   map[string]string
}

// TaskCurrent mirrors a TaskPlan slot's live, observed state.
type TaskCurrent struct {
	TaskID             string
	NodeID             string
	Hostname           string
	Container          ContainerSpec
	Command            CommandSpec
	Reserved           Resources
	PersistentVolumeID string
	LastObservedState  string
	ServerID           string
}

// Current holds an ordered list of TaskCurrent records per role,
// index-aligned with the corresponding Plan's slot list (invariant 1
// in spec.md section 3).
type Current struct {
	Slots map[Role][]*TaskCurrent
}

// NewCurrent returns an empty Current with initialized slot maps for
// every role.
func NewCurrent() *Current {
	c := &Current{Slots: map[Role][]*TaskCurrent{}}
	for _, r := range Roles {
		c.Slots[r] = []*TaskCurrent{}
	}
	return c
}
