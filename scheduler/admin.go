package scheduler

import (
	"encoding/json"
	"fmt"
	"net/http"

	log "github.com/golang/glog"

	"github.com/vixns/arangodb-mesos-framework/endpoints"
	"github.com/vixns/arangodb-mesos-framework/metrics"
	"github.com/vixns/arangodb-mesos-framework/model"
)

// AdminStats is the JSON shape served at /stats, grounded on the
// teacher's Stats struct and AdminHTTP's /stats handler.
type AdminStats struct {
	Target       model.Target          `json:"target"`
	SlotCounts   map[string]slotCounts `json:"slot_counts"`
	RestartFlag  model.RestartFlag     `json:"restart_flag"`
	Coordinators []string              `json:"coordinator_endpoints"`
	DBServers    []string              `json:"dbserver_endpoints"`
}

type slotCounts struct {
	New             int `json:"new"`
	TryingToReserve int `json:"trying_to_reserve"`
	TryingToPersist int `json:"trying_to_persist"`
	TryingToStart   int `json:"trying_to_start"`
	Running         int `json:"running"`
	Killed          int `json:"killed"`
	FailedOver      int `json:"failed_over"`
}

func (m *Manager) stats() (AdminStats, error) {
	doc, err := m.Store.Load()
	if err != nil {
		return AdminStats{}, err
	}
	counts := map[string]slotCounts{}
	for _, role := range model.Roles {
		var c slotCounts
		for _, plan := range doc.Plan.Slots[role] {
			switch plan.Phase {
			case model.New:
				c.New++
			case model.TryingToReserve:
				c.TryingToReserve++
			case model.TryingToPersist:
				c.TryingToPersist++
			case model.TryingToStart:
				c.TryingToStart++
			case model.Running:
				c.Running++
			case model.Killed:
				c.Killed++
			case model.FailedOver:
				c.FailedOver++
			}
		}
		counts[role.String()] = c
	}
	coordinators, dbservers := endpoints.Project(&doc.Current)
	return AdminStats{
		Target:       doc.Target,
		SlotCounts:   counts,
		RestartFlag:  doc.RestartFlag,
		Coordinators: coordinators,
		DBServers:    dbservers,
	}, nil
}

// AdminHTTP wires the admin surface contracted at spec.md section 1:
// /stats, /target, /restart, /destroy. Grounded on the teacher's own
// AdminHTTP method and net/http mux usage.
func (m *Manager) AdminHTTP(addr string) {
	mux := http.NewServeMux()

	mux.Handle("/metrics", metrics.Handler())

	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		stats, err := m.stats()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if err := json.NewEncoder(w).Encode(stats); err != nil {
			log.Errorf("scheduler: failed to encode /stats response: %v", err)
		}
	})

	mux.HandleFunc("/target", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		var target model.Target
		if err := json.NewDecoder(r.Body).Decode(&target); err != nil {
			http.Error(w, fmt.Sprintf("invalid target: %v", err), http.StatusBadRequest)
			return
		}
		m.SetTarget(target)
		fmt.Fprint(w, "target update queued")
	})

	mux.HandleFunc("/restart", func(w http.ResponseWriter, r *http.Request) {
		mode := r.URL.Query().Get("mode")
		var reason model.RestartFlag
		switch mode {
		case "standalone":
			reason = model.RestartStandalone
		default:
			reason = model.RestartCluster
		}
		m.RequestRestart(reason)
		fmt.Fprint(w, "restart queued")
	})

	mux.HandleFunc("/destroy", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		if err := m.Store.Destroy(); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		m.Stop()
		fmt.Fprint(w, "destroyed")
	})

	log.Infof("scheduler: admin HTTP interface listening on %s", addr)
	log.Error(http.ListenAndServe(addr, mux))
}
