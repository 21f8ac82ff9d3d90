package caretaker

import (
	"fmt"
	"strings"

	"github.com/vixns/arangodb-mesos-framework/model"
)

// ImageConfig is the operator-supplied image and arangod command-line
// configuration a Caretaker needs to turn a Launch decision into an
// actual container/command descriptor. Wired in from config.Config by
// cmd/arangodb-mesos-framework/main.go, grounded on
// framework.cpp's arangodb_image/arangodb_*_args flags (original
// source section docs lines 139-157).
type ImageConfig struct {
	Image             string
	ForcePullImage    bool
	PrivilegedImage   bool
	EnterpriseKey     string
	JWTSecret         string
	SSLKeyfile        string
	EncryptionKeyfile string
	StorageEngine     string
	AdditionalArgs    map[model.Role]string
}

func (ic ImageConfig) containerSpec() model.ContainerSpec {
	return model.ContainerSpec{
		Image:      ic.Image,
		ForcePull:  ic.ForcePullImage,
		Privileged: ic.PrivilegedImage,
	}
}

// commandSpec builds the arangod command line for role, launching on
// offer's node against ports, and pointed at whatever agency members
// have already been launched in allCurrent so the new instance can
// join the cluster (original source's ArangoScheduler launches every role
// against "--cluster.agency-endpoint" entries for the agency).
func (ic ImageConfig) commandSpec(role model.Role, offer model.Offer, ports []uint64, allCurrent *model.Current) model.CommandSpec {
	args := []string{"--server.authentication", "false"}

	if len(ports) > 0 {
		args = append(args, "--server.endpoint", fmt.Sprintf("tcp://0.0.0.0:%d", ports[0]))
		args = append(args, "--cluster.my-address", fmt.Sprintf("tcp://%s:%d", offer.Hostname, ports[0]))
	}

	if role == model.Agent {
		args = append(args, "--agency.my-address", fmt.Sprintf("tcp://%s:%d", offer.Hostname, firstPortOrZero(ports)))
		for _, endpoint := range agencyEndpoints(allCurrent) {
			args = append(args, "--agency.endpoint", endpoint)
		}
	} else {
		args = append(args, "--cluster.my-role", clusterRoleFlag(role))
		for _, endpoint := range agencyEndpoints(allCurrent) {
			args = append(args, "--cluster.agency-endpoint", endpoint)
		}
	}

	if ic.StorageEngine != "" && ic.StorageEngine != "auto" {
		args = append(args, "--server.storage-engine", ic.StorageEngine)
	}
	if ic.JWTSecret != "" {
		args = append(args, "--server.jwt-secret", ic.JWTSecret)
	}
	if ic.SSLKeyfile != "" {
		args = append(args, "--ssl.keyfile", ic.SSLKeyfile)
	}
	if ic.EncryptionKeyfile != "" {
		args = append(args, "--rocksdb.encryption-keyfile", ic.EncryptionKeyfile)
	}
	if extra := ic.AdditionalArgs[role]; extra != "" {
		args = append(args, strings.Fields(extra)...)
	}

	env := map[string]string{}
	if ic.EnterpriseKey != "" {
		env["ARANGO_LICENSE_KEY"] = ic.EnterpriseKey
	}

	return model.CommandSpec{Value: "arangod", Args: args, Env: env}
}

func clusterRoleFlag(role model.Role) string {
	switch role {
	case model.Primary, model.Secondary:
		return "DBSERVER"
	case model.Coordinator:
		return "COORDINATOR"
	default:
		return "DBSERVER"
	}
}

func firstPortOrZero(ports []uint64) uint64 {
	if len(ports) == 0 {
		return 0
	}
	return ports[0]
}

// agencyEndpoints returns the endpoint of every agent slot that has a
// hostname and a reserved port, i.e. every agent launched so far,
// whether or not it has reached RUNNING; this is the set every other
// role bootstraps against (mirrors
// scheduler.currentDBServerAgencyEndpoints' shape, duplicated here
// since caretaker must not import scheduler).
func agencyEndpoints(current *model.Current) []string {
	var endpoints []string
	for _, cur := range current.Slots[model.Agent] {
		if cur.Hostname == "" {
			continue
		}
		if ports := cur.Reserved.FirstPorts(1); len(ports) > 0 {
			endpoints = append(endpoints, fmt.Sprintf("tcp://%s:%d", cur.Hostname, ports[0]))
		}
	}
	return endpoints
}
