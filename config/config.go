// Package config loads the framework's flag+environment-variable
// configuration twin (spec.md section 6): every option is registered
// as a flag with the table's default, then overridden by an
// ARANGODB_<UPPER_SNAKE> environment variable if set, matching the
// original framework.cpp's flags.add(...) followed by
// updateFromEnv(...).
package config

import (
	"flag"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vixns/arangodb-mesos-framework/model"
)

// Config is the fully resolved, validated configuration for one
// framework process.
type Config struct {
	Mode             string
	AsyncReplication bool
	Role             string
	NrAgents         int
	NrDBServers      int
	NrCoordinators   int
	MinimalResources map[model.Role]model.Resources

	Principal       string
	FrameworkName   string
	FrameworkPort   int
	WebUIPort       int
	WebUI           string
	FailoverTimeout time.Duration
	RefuseSeconds   float64
	OfferLimit      int
	ResetState      bool

	SecondariesWithDBServers  bool
	CoordinatorsWithDBServers bool
	SecondarySameServer       bool

	ArangoDBImage             string
	ArangoDBForcePullImage    bool
	ArangoDBPrivilegedImage   bool
	ArangoDBEnterpriseKey     string
	ArangoDBJWTSecret         string
	ArangoDBSSLKeyfile        string
	ArangoDBEncryptionKeyfile string
	ArangoDBStorageEngine     string
	ArangoDBAdditionalArgs    map[model.Role]string

	Master string
	ZK     string
}

// rawFlags holds the flag.Value pointers registered by Register, kept
// separate from Config so that env overrides (applied after
// flag.Parse) can write through the same pointers uniformly.
type rawFlags struct {
	mode             *string
	asyncReplication *bool
	role             *string
	nrAgents         *int
	nrDBServers      *int
	nrCoordinators   *int
	minAgent         *string
	minDBServer      *string
	minSecondary     *string
	minCoordinator   *string

	principal       *string
	frameworkName   *string
	frameworkPort   *int
	webuiPort       *int
	webui           *string
	failoverTimeout *int
	refuseSeconds   *float64
	offerLimit      *int
	resetState      *bool

	secondariesWithDBServers  *bool
	coordinatorsWithDBServers *bool
	secondarySameServer       *bool

	arangoImage             *string
	arangoForcePullImage    *bool
	arangoPrivilegedImage   *bool
	arangoEnterpriseKey     *string
	arangoJWTSecret         *string
	arangoSSLKeyfile        *string
	arangoEncryptionKeyfile *string
	arangoStorageEngine     *string

	additionalAgentArgs       *string
	additionalDBServerArgs    *string
	additionalSecondaryArgs   *string
	additionalCoordinatorArgs *string

	master *string
	zk     *string
}

// Register binds every option in spec.md section 6's table to fs with
// matching defaults. Separated from Load so tests can register into a
// scratch FlagSet without touching flag.CommandLine.
func Register(fs *flag.FlagSet) *rawFlags {
	return &rawFlags{
		mode:             fs.String("mode", "cluster", "standalone or cluster"),
		asyncReplication: fs.Bool("async_replication", false, "enable secondary (async-replication) slots"),
		role:             fs.String("role", "*", "Mesos role label for reservations"),
		nrAgents:         fs.Int("nr_agents", 1, "number of agency members"),
		nrDBServers:      fs.Int("nr_dbservers", 2, "number of primary db-servers"),
		nrCoordinators:   fs.Int("nr_coordinators", 1, "number of coordinators"),
		minAgent:         fs.String("minimal_resources_agent", "", "per-role resource floor, \"cpu:mem:disk\""),
		minDBServer:      fs.String("minimal_resources_dbserver", "", "per-role resource floor, \"cpu:mem:disk\""),
		minSecondary:     fs.String("minimal_resources_secondary", "", "per-role resource floor, \"cpu:mem:disk\""),
		minCoordinator:   fs.String("minimal_resources_coordinator", "", "per-role resource floor, \"cpu:mem:disk\""),

		principal:       fs.String("principal", "arangodb", "reservation principal"),
		frameworkName:   fs.String("framework_name", "arangodb", "framework identity and store path"),
		frameworkPort:   fs.Int("framework_port", 10000, "admin HTTP port"),
		webuiPort:       fs.Int("webui_port", 0, "advertised UI port (0: derive from framework_port)"),
		webui:           fs.String("webui", "", "advertised UI URL (derived if empty)"),
		failoverTimeout: fs.Int("failover_timeout", 864000, "framework failover grace, seconds"),
		refuseSeconds:   fs.Float64("refuse_seconds", 20, "refusal window on decline"),
		offerLimit:      fs.Int("offer_limit", 10, "max outstanding offers held"),
		resetState:      fs.Bool("reset_state", false, "wipe durable state on start"),

		secondariesWithDBServers:  fs.Bool("secondaries_with_dbservers", false, "co-locate secondaries with db-servers"),
		coordinatorsWithDBServers: fs.Bool("coordinators_with_dbservers", false, "co-locate coordinators with db-servers"),
		secondarySameServer:       fs.Bool("secondary_same_server", false, "allow secondary on primary's node"),

		arangoImage:             fs.String("arangodb_image", "", "container image (required)"),
		arangoForcePullImage:    fs.Bool("arangodb_force_pull_image", true, "force image pull"),
		arangoPrivilegedImage:   fs.Bool("arangodb_privileged_image", false, "run container privileged"),
		arangoEnterpriseKey:     fs.String("arangodb_enterprise_key", "", "enterprise license key"),
		arangoJWTSecret:         fs.String("arangodb_jwt_secret", "", "cluster JWT secret"),
		arangoSSLKeyfile:        fs.String("arangodb_ssl_keyfile", "", "SSL keyfile path"),
		arangoEncryptionKeyfile: fs.String("arangodb_encryption_keyfile", "", "at-rest encryption keyfile path"),
		arangoStorageEngine:     fs.String("arangodb_storage_engine", "auto", "storage engine"),

		additionalAgentArgs:       fs.String("arangodb_additional_agent_args", "", "appended agent command args"),
		additionalDBServerArgs:    fs.String("arangodb_additional_dbserver_args", "", "appended dbserver command args"),
		additionalSecondaryArgs:   fs.String("arangodb_additional_secondary_args", "", "appended secondary command args"),
		additionalCoordinatorArgs: fs.String("arangodb_additional_coordinator_args", "", "appended coordinator command args"),

		master: fs.String("master", "", "Mesos master / cluster-manager address (required)"),
		zk:     fs.String("zk", "", "coordination store (Zookeeper) address"),
	}
}

// envLookup is the seam for testing env overrides without touching
// the real process environment.
type envLookup func(string) (string, bool)

// Load parses args against fs, applies ARANGODB_<UPPER_SNAKE>
// environment overrides (env wins over flag, per spec.md section 6),
// and validates the result.
func Load(fs *flag.FlagSet, args []string, env envLookup) (*Config, error) {
	raw := Register(fs)
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("config: parse flags: %w", err)
	}

	overrideString(env, "mode", raw.mode)
	overrideBool(env, "async_replication", raw.asyncReplication)
	overrideString(env, "role", raw.role)
	overrideInt(env, "nr_agents", raw.nrAgents)
	overrideInt(env, "nr_dbservers", raw.nrDBServers)
	overrideInt(env, "nr_coordinators", raw.nrCoordinators)
	overrideString(env, "minimal_resources_agent", raw.minAgent)
	overrideString(env, "minimal_resources_dbserver", raw.minDBServer)
	overrideString(env, "minimal_resources_secondary", raw.minSecondary)
	overrideString(env, "minimal_resources_coordinator", raw.minCoordinator)
	overrideString(env, "principal", raw.principal)
	overrideString(env, "framework_name", raw.frameworkName)
	overrideInt(env, "framework_port", raw.frameworkPort)
	overrideInt(env, "webui_port", raw.webuiPort)
	overrideString(env, "webui", raw.webui)
	overrideInt(env, "failover_timeout", raw.failoverTimeout)
	overrideFloat(env, "refuse_seconds", raw.refuseSeconds)
	overrideInt(env, "offer_limit", raw.offerLimit)
	overrideBool(env, "reset_state", raw.resetState)
	overrideBool(env, "secondaries_with_dbservers", raw.secondariesWithDBServers)
	overrideBool(env, "coordinators_with_dbservers", raw.coordinatorsWithDBServers)
	overrideBool(env, "secondary_same_server", raw.secondarySameServer)
	overrideString(env, "arangodb_image", raw.arangoImage)
	overrideBool(env, "arangodb_force_pull_image", raw.arangoForcePullImage)
	overrideBool(env, "arangodb_privileged_image", raw.arangoPrivilegedImage)
	overrideString(env, "arangodb_enterprise_key", raw.arangoEnterpriseKey)
	overrideString(env, "arangodb_jwt_secret", raw.arangoJWTSecret)
	overrideString(env, "arangodb_ssl_keyfile", raw.arangoSSLKeyfile)
	overrideString(env, "arangodb_encryption_keyfile", raw.arangoEncryptionKeyfile)
	overrideString(env, "arangodb_storage_engine", raw.arangoStorageEngine)
	overrideString(env, "arangodb_additional_agent_args", raw.additionalAgentArgs)
	overrideString(env, "arangodb_additional_dbserver_args", raw.additionalDBServerArgs)
	overrideString(env, "arangodb_additional_secondary_args", raw.additionalSecondaryArgs)
	overrideString(env, "arangodb_additional_coordinator_args", raw.additionalCoordinatorArgs)
	overrideString(env, "master", raw.master)
	overrideString(env, "zk", raw.zk)

	webuiPort := *raw.webuiPort
	if webuiPort == 0 {
		webuiPort = *raw.frameworkPort
	}
	webui := *raw.webui
	if webui == "" {
		webui = fmt.Sprintf("http://0.0.0.0:%d/", webuiPort)
	}

	minimal := map[model.Role]model.Resources{}
	for role, spec := range map[model.Role]string{
		model.Agent:       *raw.minAgent,
		model.Primary:     *raw.minDBServer,
		model.Secondary:   *raw.minSecondary,
		model.Coordinator: *raw.minCoordinator,
	} {
		if spec == "" {
			continue
		}
		res, err := parseResourceFloor(spec)
		if err != nil {
			return nil, fmt.Errorf("config: minimal_resources_%s: %w", strings.ToLower(role.String()), err)
		}
		minimal[role] = res
	}

	cfg := &Config{
		Mode:             *raw.mode,
		AsyncReplication: *raw.asyncReplication,
		Role:             *raw.role,
		NrAgents:         *raw.nrAgents,
		NrDBServers:      *raw.nrDBServers,
		NrCoordinators:   *raw.nrCoordinators,
		MinimalResources: minimal,

		Principal:       *raw.principal,
		FrameworkName:   *raw.frameworkName,
		FrameworkPort:   *raw.frameworkPort,
		WebUIPort:       webuiPort,
		WebUI:           webui,
		FailoverTimeout: time.Duration(*raw.failoverTimeout) * time.Second,
		RefuseSeconds:   *raw.refuseSeconds,
		OfferLimit:      *raw.offerLimit,
		ResetState:      *raw.resetState,

		SecondariesWithDBServers:  *raw.secondariesWithDBServers,
		CoordinatorsWithDBServers: *raw.coordinatorsWithDBServers,
		SecondarySameServer:       *raw.secondarySameServer,

		ArangoDBImage:             *raw.arangoImage,
		ArangoDBForcePullImage:    *raw.arangoForcePullImage,
		ArangoDBPrivilegedImage:   *raw.arangoPrivilegedImage,
		ArangoDBEnterpriseKey:     *raw.arangoEnterpriseKey,
		ArangoDBJWTSecret:         *raw.arangoJWTSecret,
		ArangoDBSSLKeyfile:        *raw.arangoSSLKeyfile,
		ArangoDBEncryptionKeyfile: *raw.arangoEncryptionKeyfile,
		ArangoDBStorageEngine:     *raw.arangoStorageEngine,
		ArangoDBAdditionalArgs: map[model.Role]string{
			model.Agent:       *raw.additionalAgentArgs,
			model.Primary:     *raw.additionalDBServerArgs,
			model.Secondary:   *raw.additionalSecondaryArgs,
			model.Coordinator: *raw.additionalCoordinatorArgs,
		},

		Master: *raw.master,
		ZK:     *raw.zk,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Master == "" {
		return fmt.Errorf("config: -master is required")
	}
	if c.ArangoDBImage == "" {
		return fmt.Errorf("config: -arangodb_image is required")
	}
	return nil
}

// Target builds the model.Target this configuration describes, for
// seeding the very first tick's updateTarget step.
func (c *Config) Target() model.Target {
	mode := model.ModeCluster
	if c.Mode == "standalone" {
		mode = model.ModeStandalone
	}
	return model.Target{
		Mode:                      mode,
		Agents:                    c.NrAgents,
		DBServers:                 c.NrDBServers,
		Coordinators:              c.NrCoordinators,
		AsyncReplication:          c.AsyncReplication,
		MinimalResources:          c.MinimalResources,
		SecondariesWithDBServers:  c.SecondariesWithDBServers,
		CoordinatorsWithDBServers: c.CoordinatorsWithDBServers,
		SecondarySameServer:       c.SecondarySameServer,
	}
}

func parseResourceFloor(spec string) (model.Resources, error) {
	parts := strings.Split(spec, ":")
	if len(parts) != 3 {
		return model.Resources{}, fmt.Errorf("expected \"cpu:mem_mb:disk_mb\", got %q", spec)
	}
	cpus, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return model.Resources{}, fmt.Errorf("invalid cpu floor %q: %w", parts[0], err)
	}
	mem, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return model.Resources{}, fmt.Errorf("invalid mem floor %q: %w", parts[1], err)
	}
	disk, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return model.Resources{}, fmt.Errorf("invalid disk floor %q: %w", parts[2], err)
	}
	return model.Resources{CPUs: cpus, MemMB: mem, DiskMB: disk}, nil
}

func envName(option string) string {
	return "ARANGODB_" + strings.ToUpper(option)
}

func overrideString(env envLookup, option string, dst *string) {
	if v, ok := env(envName(option)); ok {
		*dst = v
	}
}

func overrideBool(env envLookup, option string, dst *bool) {
	if v, ok := env(envName(option)); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func overrideInt(env envLookup, option string, dst *int) {
	if v, ok := env(envName(option)); ok {
		if i, err := strconv.Atoi(v); err == nil {
			*dst = i
		}
	}
}

func overrideFloat(env envLookup, option string, dst *float64) {
	if v, ok := env(envName(option)); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}
