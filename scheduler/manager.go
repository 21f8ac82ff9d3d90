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

// Package scheduler implements Event Ingress (C4) and the Manager /
// Reconciler Loop (C5). Manager implements mesos-go's
// scheduler.Scheduler interface directly -- the same choice the
// teacher's EtcdScheduler made -- rather than going through any
// abstract base type, per spec.md section 9's guidance to replace
// class inheritance from a library-provided scheduler with a plain
// function table.
package scheduler

import (
	"sync"
	"sync/atomic"
	"time"

	log "github.com/golang/glog"
	mesos "github.com/mesos/mesos-go/mesosproto"

	"github.com/vixns/arangodb-mesos-framework/caretaker"
	"github.com/vixns/arangodb-mesos-framework/driver"
	"github.com/vixns/arangodb-mesos-framework/metrics"
	"github.com/vixns/arangodb-mesos-framework/model"
	"github.com/vixns/arangodb-mesos-framework/restart"
	"github.com/vixns/arangodb-mesos-framework/rpc"
	"github.com/vixns/arangodb-mesos-framework/store"
)

// State mirrors the teacher's Mutable/Immutable scheduler state. It is
// only recorded: NewManager and Disconnected set Immutable, no code
// path sets Mutable, and the dispatcher does not consult it before
// mutating plan/current.
type State int32

const (
	Immutable State = iota
	Mutable
)

// Manager is the Event Ingress (C4) + Reconciler Loop (C5)
// implementation. It implements gomesos.Scheduler directly.
type Manager struct {
	Store     *store.Store
	Caretaker caretaker.Caretaker
	Driver    driver.Facade
	Restart   *restart.Controller
	Agency    *rpc.AgencyClient

	Principal     string
	RefuseSeconds float64
	OfferLimit    int

	TickInterval              time.Duration
	ImplicitReconcileInterval time.Duration
	ReconcileBaseBackoff      time.Duration
	ReconcileMaxBackoff       time.Duration

	// mut guards everything below, per spec.md section 5: driver
	// callbacks (C4) take it only to enqueue; the dispatcher takes it
	// only to drain into local buffers, then works lock-free.
	mut sync.RWMutex

	state       State
	frameworkID string
	masterInfo  *mesos.MasterInfo

	storedOffers        map[string]*mesos.Offer
	taskStatusUpdates   []*mesos.TaskStatus
	task2position       map[string]model.Position
	reconciliationTasks map[string]*model.ReconcileTask

	nextImplicitReconciliation time.Time
	preparedReconciliation     bool

	pendingTarget  *model.Target
	pendingRestart *model.RestartFlag

	stopped int32
}

// NewManager wires the core components together with the teacher's
// own defaults (chillSeconds-equivalent tick interval, reconciliation
// backoff bounds) adapted to spec.md section 6's configuration table.
func NewManager(
	st *store.Store,
	ct caretaker.Caretaker,
	drv driver.Facade,
	rc *restart.Controller,
	agency *rpc.AgencyClient,
) *Manager {
	return &Manager{
		Store:                     st,
		Caretaker:                 ct,
		Driver:                    drv,
		Restart:                   rc,
		Agency:                    agency,
		Principal:                 "arangodb",
		RefuseSeconds:             20,
		OfferLimit:                10,
		TickInterval:              100 * time.Millisecond,
		ImplicitReconcileInterval: 5 * time.Minute,
		ReconcileBaseBackoff:      time.Second,
		ReconcileMaxBackoff:       time.Minute,
		state:                     Immutable,
		storedOffers:              map[string]*mesos.Offer{},
		task2position:             map[string]model.Position{},
		reconciliationTasks:       map[string]*model.ReconcileTask{},
	}
}

// Stop raises the stop flag; Run exits after completing its current
// tick (spec.md section 5's cancellation/shutdown contract).
func (m *Manager) Stop() {
	atomic.StoreInt32(&m.stopped, 1)
}

func (m *Manager) isStopped() bool {
	return atomic.LoadInt32(&m.stopped) == 1
}

// SetTarget posts a target mutation observed by the admin surface;
// consumed by the next tick's updateTarget step.
func (m *Manager) SetTarget(target model.Target) {
	m.mut.Lock()
	defer m.mut.Unlock()
	t := target
	m.pendingTarget = &t
}

// RequestRestart posts a restart flag observed by the admin surface
// (or a process signal via the cmd binary); consumed by the next
// tick's manageClusterRestart step.
func (m *Manager) RequestRestart(reason model.RestartFlag) {
	m.mut.Lock()
	defer m.mut.Unlock()
	r := reason
	m.pendingRestart = &r
}

// Run is the dedicated dispatcher goroutine (C5): it performs the ten
// steps of spec.md section 4.5 in order, each tick under one
// store.Lease, until the stop flag is raised.
func (m *Manager) Run() {
	for !m.isStopped() {
		if err := m.runOnce(); err != nil {
			if err == store.ErrStaleState {
				// Stale-state: abandon and loop immediately rather than
				// sleeping, per spec.md section 7.
				continue
			}
			log.Errorf("scheduler: tick failed, sleeping before retry: %v", err)
			time.Sleep(m.TickInterval)
			continue
		}
		time.Sleep(m.TickInterval)
	}
	log.Info("scheduler: dispatcher stopping")
}

// runOnce performs a single reconciler tick under one lease.
func (m *Manager) runOnce() error {
	lease, err := m.Store.Lease()
	if err != nil {
		return err
	}

	now := time.Now()

	// 1. prepareReconciliation
	m.prepareReconciliation(lease.Doc, now)

	// 2. reconcileTasks
	m.reconcileTasks(now)

	// 3. applyStatusUpdates
	m.applyStatusUpdates(lease.Doc, now)

	// 4. updateTarget
	m.updateTarget(lease.Doc)

	// 5. updatePlan
	m.updatePlan(lease.Doc)

	// 6. updateServerIds
	m.updateServerIds(lease.Doc)

	// 7. checkOutstandingOffers
	m.checkOutstandingOffers(lease.Doc, now)

	// 8. checkTimeouts
	m.checkTimeouts(lease.Doc, now)

	// 9. manageClusterRestart
	m.manageClusterRestart(lease.Doc)

	m.recordSlotPhaseMetrics(lease.Doc)

	// 10. commit
	timer := metrics.NewTimer()
	if err := lease.Commit(); err != nil {
		if err == store.ErrStaleState {
			metrics.LeaseStaleRetriesTotal.Inc()
		}
		return err
	}
	timer.ObserveDuration(metrics.LeaseCommitDuration)
	return nil
}

// recordSlotPhaseMetrics refreshes the slot-phase and offer-cache
// gauges from the current tick's view of the document.
func (m *Manager) recordSlotPhaseMetrics(doc *model.Document) {
	counts := map[[2]string]int{}
	for _, role := range model.Roles {
		for _, plan := range doc.Plan.Slots[role] {
			counts[[2]string{role.String(), plan.Phase.String()}]++
		}
	}
	for key, n := range counts {
		metrics.SlotPhaseTotal.WithLabelValues(key[0], key[1]).Set(float64(n))
	}

	m.mut.RLock()
	depth := len(m.storedOffers)
	m.mut.RUnlock()
	metrics.OfferCacheDepth.Set(float64(depth))
}
