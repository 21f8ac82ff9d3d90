package caretaker

import "github.com/vixns/arangodb-mesos-framework/model"

// colocationOK enforces spec.md section 4.2's constraint rules for
// placing a slot of role on offer's node, given what is already
// running. Only Cluster enforces it; Standalone runs a single slot and
// applies no co-location rules.
func colocationOK(target model.Target, role model.Role, nodeID string, current *model.Current) bool {
	switch role {
	case model.Secondary:
		if target.SecondarySameServer {
			return true
		}
		// A secondary may not land on the same node as its own primary
		// unless secondary_same_server is set. We approximate "its own
		// primary" conservatively as "any primary", since pairing is
		// resolved by index once both are RUNNING.
		for _, c := range current.Slots[model.Primary] {
			if c.NodeID == nodeID {
				return false
			}
		}
		return true
	case model.Coordinator:
		if !target.CoordinatorsWithDBServers {
			return true
		}
		for _, c := range current.Slots[model.Primary] {
			if c.NodeID == nodeID {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// secondariesWithDBServersOK additionally restricts secondary
// placement to db-server nodes when the target requires it.
func secondariesWithDBServersOK(target model.Target, nodeID string, current *model.Current) bool {
	if !target.SecondariesWithDBServers {
		return true
	}
	for _, c := range current.Slots[model.Primary] {
		if c.NodeID == nodeID {
			return true
		}
	}
	return false
}
