// Package endpoints implements the Endpoint Projector (C7): a
// read-only view composing scheme://host:port from RUNNING slots.
//
// Grounded on the teacher's own URL composition
// (fmt.Sprintf("http://%s:%d/%s", address, artifactPort, base) in
// scheduler.go's ServeExecutorArtifact) and on the original
// ArangoManager::coordinatorEndpoints / dbserverEndpoints, which walk
// running slots for the respective roles and format host:port pairs.
package endpoints

import (
	"fmt"

	"github.com/vixns/arangodb-mesos-framework/model"
)

// Scheme is the URI scheme endpoints are composed with. ArangoDB
// coordinators and db-servers both speak plain HTTP internally; TLS
// termination, if any, is the reverse-proxy's concern (out of scope
// per spec.md section 1).
const Scheme = "http"

// Project composes coordinator and db-server endpoints from the
// current observed state. Both lists are unordered; invariant 3 in
// spec.md section 3 (a reserved resource is owned by exactly one
// slot) makes duplicates impossible.
func Project(current *model.Current) (coordinators, dbservers []string) {
	return roleEndpoints(current, model.Coordinator), roleEndpoints(current, model.Primary)
}

// CoordinatorEndpoints returns scheme://host:port for every RUNNING
// coordinator slot.
func CoordinatorEndpoints(current *model.Current) []string {
	return roleEndpoints(current, model.Coordinator)
}

// DBServerEndpoints returns scheme://host:port for every RUNNING
// primary (db-server) slot. Secondaries are replication targets, not
// externally addressable servers, and are deliberately excluded.
func DBServerEndpoints(current *model.Current) []string {
	return roleEndpoints(current, model.Primary)
}

func roleEndpoints(current *model.Current, role model.Role) []string {
	slots := current.Slots[role]
	out := make([]string, 0, len(slots))
	for _, cur := range slots {
		if cur == nil || cur.LastObservedState != "TASK_RUNNING" {
			continue
		}
		ep := format(cur)
		if ep == "" {
			continue
		}
		out = append(out, ep)
	}
	return out
}

func format(cur *model.TaskCurrent) string {
	host := cur.Hostname
	if host == "" {
		host = cur.NodeID
	}
	if host == "" {
		return ""
	}
	port := primaryPort(cur.Reserved)
	if port == 0 {
		return ""
	}
	return fmt.Sprintf("%s://%s:%d", Scheme, host, port)
}

// primaryPort returns the first reserved port, the one every
// driver.Facade.StartInstance call binds the ArangoDB server process
// to (spec.md section 4.7: "the slot's assigned node and its reserved
// port").
func primaryPort(reserved model.Resources) uint64 {
	ports := reserved.FirstPorts(1)
	if len(ports) == 0 {
		return 0
	}
	return ports[0]
}
