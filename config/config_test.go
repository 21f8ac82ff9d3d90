package config

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vixns/arangodb-mesos-framework/model"
)

func noEnv(string) (string, bool) { return "", false }

func TestLoadAppliesTableDefaults(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := Load(fs, []string{"-master", "zk://localhost:2181/mesos", "-arangodb_image", "arangodb/arangodb"}, noEnv)
	require.NoError(t, err)

	assert.Equal(t, "cluster", cfg.Mode)
	assert.Equal(t, 1, cfg.NrAgents)
	assert.Equal(t, 2, cfg.NrDBServers)
	assert.Equal(t, 1, cfg.NrCoordinators)
	assert.Equal(t, "arangodb", cfg.Principal)
	assert.Equal(t, "arangodb", cfg.FrameworkName)
	assert.Equal(t, 20.0, cfg.RefuseSeconds)
	assert.Equal(t, 10, cfg.OfferLimit)
	assert.True(t, cfg.ArangoDBForcePullImage)
}

func TestLoadRequiresMasterAndImage(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	_, err := Load(fs, []string{}, noEnv)
	assert.Error(t, err)
}

func TestLoadEnvOverridesFlag(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	env := func(key string) (string, bool) {
		if key == "ARANGODB_NR_DBSERVERS" {
			return "5", true
		}
		return "", false
	}
	cfg, err := Load(fs, []string{
		"-master", "zk://localhost:2181/mesos",
		"-arangodb_image", "arangodb/arangodb",
		"-nr_dbservers", "2",
	}, env)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.NrDBServers)
}

func TestLoadParsesMinimalResourcesFloor(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := Load(fs, []string{
		"-master", "zk://localhost:2181/mesos",
		"-arangodb_image", "arangodb/arangodb",
		"-minimal_resources_agent", "0.5:512:1024",
	}, noEnv)
	require.NoError(t, err)

	floor, ok := cfg.MinimalResources[model.Agent]
	require.True(t, ok)
	assert.Equal(t, 0.5, floor.CPUs)
	assert.Equal(t, 512.0, floor.MemMB)
	assert.Equal(t, 1024.0, floor.DiskMB)
}
