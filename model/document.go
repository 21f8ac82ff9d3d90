package model

// RestartFlag is the single enum persisted with state that the
// Restart Controller (C6) acts on, per spec.md section 4.6.
type RestartFlag int

const (
	RestartNone RestartFlag = iota
	// RestartFreshStart is the default on process start; it ensures the
	// companion reverse-proxy is respawned.
	RestartFreshStart
	RestartCluster
	RestartStandalone
)

// EndpointCache is the persisted slot for the endpoint lists the
// Endpoint Projector (C7) computes. No code path writes it; the admin
// surface's /stats handler derives endpoints from Current on every
// request instead of reading this cache.
type EndpointCache struct {
	Coordinators []string
	DBServers    []string
}

// Document is the single unit of durable state kept in the
// coordination store, per spec.md section 6.2: framework id, plan,
// current, target, restart flag, endpoint cache.
type Document struct {
	FrameworkID string `json:"framework_id"`

	Target  Target         `json:"target"`
	Plan    Plan           `json:"plan"`
	Current Current        `json:"current"`

	RestartFlag RestartFlag   `json:"restart_flag"`
	Endpoints   EndpointCache `json:"endpoints_cache"`

	// HighestCounter is the monotonically increasing task counter
	// encoded into task ids (spec.md section 4.4).
	HighestCounter int64 `json:"highest_counter"`
}

// NewDocument returns an empty Document with initialized Plan/Current
// maps, ready to be populated by the first tick after registration.
func NewDocument() *Document {
	return &Document{
		Plan:    *NewPlan(),
		Current: *NewCurrent(),
	}
}
