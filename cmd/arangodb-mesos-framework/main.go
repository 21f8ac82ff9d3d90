/**
 * Licensed to the Apache Software Foundation (ASF) under one
 * or more contributor license agreements.  See the NOTICE file
 * distributed with this work for additional information
 * regarding copyright ownership.  The ASF licenses this file
 * to you under the Apache License, Version 2.0 (the
 * "License"); you may not use this file except in compliance
 * with the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Command arangodb-mesos-framework wires config -> store -> caretaker
// -> driver -> restart controller -> manager -> admin HTTP and starts
// the Mesos scheduler driver, reconstructed from the teacher's own
// main-level wiring (the teacher repo excerpt available in the
// example pack did not include its own main.go; the wiring order here
// follows spec.md section 2's data flow and section 6.3's signal
// contract).
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gogo/protobuf/proto"
	log "github.com/golang/glog"
	mesos "github.com/mesos/mesos-go/mesosproto"
	gomesos "github.com/mesos/mesos-go/scheduler"

	"github.com/vixns/arangodb-mesos-framework/caretaker"
	"github.com/vixns/arangodb-mesos-framework/config"
	"github.com/vixns/arangodb-mesos-framework/driver"
	"github.com/vixns/arangodb-mesos-framework/model"
	"github.com/vixns/arangodb-mesos-framework/restart"
	"github.com/vixns/arangodb-mesos-framework/rpc"
	"github.com/vixns/arangodb-mesos-framework/scheduler"
	"github.com/vixns/arangodb-mesos-framework/store"
)

func main() {
	defer log.Flush()

	cfg, err := config.Load(flag.CommandLine, os.Args[1:], os.LookupEnv)
	if err != nil {
		flag.Usage()
		log.Fatalf("arangodb-mesos-framework: %v", err)
	}

	zkServers := strings.Split(cfg.ZK, ",")
	st := store.New(zkServers, cfg.FrameworkName)
	if cfg.ZK != "" {
		if err := st.Connect(zkServers, 10); err != nil {
			log.Fatalf("arangodb-mesos-framework: connect to zookeeper: %v", err)
		}
	}
	if cfg.ResetState {
		log.Warning("arangodb-mesos-framework: reset_state=true, any tasks still known " +
			"to Mesos under the previous framework id will be orphaned")
	}
	if err := st.Init(cfg.ResetState); err != nil {
		log.Fatalf("arangodb-mesos-framework: initialize store: %v", err)
	}

	image := caretaker.ImageConfig{
		Image:             cfg.ArangoDBImage,
		ForcePullImage:    cfg.ArangoDBForcePullImage,
		PrivilegedImage:   cfg.ArangoDBPrivilegedImage,
		EnterpriseKey:     cfg.ArangoDBEnterpriseKey,
		JWTSecret:         cfg.ArangoDBJWTSecret,
		SSLKeyfile:        cfg.ArangoDBSSLKeyfile,
		EncryptionKeyfile: cfg.ArangoDBEncryptionKeyfile,
		StorageEngine:     cfg.ArangoDBStorageEngine,
		AdditionalArgs:    cfg.ArangoDBAdditionalArgs,
	}

	var ct caretaker.Caretaker
	if cfg.Mode == "standalone" {
		ct = &caretaker.Standalone{Image: image}
	} else {
		ct = &caretaker.Cluster{Image: image}
	}

	agency := rpc.NewAgencyClient()
	restartController := &restart.Controller{}

	manager := scheduler.NewManager(st, ct, nil, restartController, agency)
	manager.Principal = cfg.Principal
	manager.RefuseSeconds = cfg.RefuseSeconds
	manager.OfferLimit = cfg.OfferLimit
	manager.SetTarget(cfg.Target())
	// A fresh process always starts with RestartFreshStart so the
	// companion proxy is respawned.
	manager.RequestRestart(model.RestartFreshStart)

	frameworkInfo := &mesos.FrameworkInfo{
		Name:            proto.String(cfg.FrameworkName),
		User:            proto.String(""),
		Principal:       proto.String(cfg.Principal),
		Role:            proto.String(cfg.Role),
		FailoverTimeout: proto.Float64(cfg.FailoverTimeout.Seconds()),
		WebuiUrl:        proto.String(cfg.WebUI),
		Checkpoint:      proto.Bool(true),
	}

	driverConfig := gomesos.DriverConfig{
		Scheduler: manager,
		Framework: frameworkInfo,
		Master:    cfg.Master,
	}

	schedDriver, err := gomesos.NewMesosSchedulerDriver(driverConfig)
	if err != nil {
		log.Fatalf("arangodb-mesos-framework: create scheduler driver: %v", err)
	}
	restartController.Driver = driver.New(schedDriver)
	manager.Driver = restartController.Driver

	sigchld := make(chan os.Signal, 1)
	signal.Notify(sigchld, syscall.SIGCHLD)
	go func() {
		for range sigchld {
			log.Info("arangodb-mesos-framework: SIGCHLD received, requesting proxy respawn")
			manager.RequestRestart(model.RestartFreshStart)
		}
	}()

	go manager.Run()
	go manager.AdminHTTP(fmt.Sprintf(":%d", cfg.FrameworkPort))

	status, err := schedDriver.Run()
	manager.Stop()
	// Grace period so external uninstall tooling can observe the
	// terminal state before the process exits.
	time.Sleep(30 * time.Second)
	if err != nil || status != mesos.Status_DRIVER_STOPPED {
		log.Errorf("arangodb-mesos-framework: scheduler driver terminated abnormally: status=%v err=%v", status, err)
		os.Exit(1)
	}
	os.Exit(0)
}
