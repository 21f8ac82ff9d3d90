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

// Package rpc is a narrow HTTP client against the ArangoDB agency:
// health checks and server-id lookup, consumed by
// scheduler.Manager.updateServerIds (spec.md section 4.5 step 6).
//
// Adapted from the teacher's rpc/membership.go, which polled etcd's
// /v2/members HTTP API with the same retry-with-backoff shape used
// here against the agency's /_admin/echo and /_admin/server/id
// endpoints instead.
package rpc

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	log "github.com/golang/glog"
)

// AgencyClient talks to a running agency member over plain HTTP.
type AgencyClient struct {
	HTTPClient *http.Client
	Retries    int
	Backoff    time.Duration
}

// NewAgencyClient returns a client with the teacher's own retry
// defaults (5 attempts, doubling backoff starting at 1s).
func NewAgencyClient() *AgencyClient {
	return &AgencyClient{
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
		Retries:    5,
		Backoff:    time.Second,
	}
}

// HealthCheck confirms every given agency endpoint answers
// /_admin/echo, the same precondition the teacher enforced before
// reconfiguring the etcd cluster ("enforce invariant that all
// existing nodes must be healthy before adding a new one").
func (c *AgencyClient) HealthCheck(endpoints []string) error {
	if len(endpoints) == 0 {
		log.Info("rpc: no agency endpoints to health-check, skipping")
		return nil
	}
	for _, endpoint := range endpoints {
		url := fmt.Sprintf("%s/_admin/echo", endpoint)
		resp, err := c.HTTPClient.Get(url)
		if err != nil {
			return errors.Wrapf(err, "agency endpoint %s unreachable", endpoint)
		}
		resp.Body.Close()
		if resp.StatusCode >= 500 {
			return errors.Errorf("agency endpoint %s unhealthy: status %d", endpoint, resp.StatusCode)
		}
	}
	return nil
}

type serverIDResponse struct {
	ID    string `json:"id"`
	Error bool   `json:"error"`
}

// ServerID queries a single ArangoDB server (coordinator or
// db-server) for the server-id it was assigned on bootstrap, used to
// populate model.TaskCurrent.ServerID so a subsequent target shrink
// can report which server-id was cleaned (spec.md scenario 5).
//
// Retries with the teacher's own doubling-backoff loop, since a
// freshly launched server may not yet answer this endpoint.
func (c *AgencyClient) ServerID(endpoint string) (string, error) {
	backoff := c.Backoff
	var lastErr error
	for attempt := 0; attempt < c.Retries; attempt++ {
		id, err := c.fetchServerID(endpoint)
		if err == nil {
			return id, nil
		}
		lastErr = err
		log.Warningf("rpc: server-id lookup against %s failed (attempt %d/%d): %v",
			endpoint, attempt+1, c.Retries, err)
		time.Sleep(backoff)
		backoff *= 2
	}
	return "", errors.Wrapf(lastErr, "server-id lookup against %s exhausted retries", endpoint)
}

func (c *AgencyClient) fetchServerID(endpoint string) (string, error) {
	url := fmt.Sprintf("%s/_admin/server/id", endpoint)
	resp, err := c.HTTPClient.Get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	var parsed serverIDResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", errors.Wrapf(err, "unexpected server-id response: %s", string(body))
	}
	if parsed.Error || parsed.ID == "" {
		return "", errors.Errorf("server did not report a server-id: %s", string(body))
	}
	return parsed.ID, nil
}

// RemoveServer tells one surviving agency endpoint to drop
// serverID's registration. Mirrors the teacher's RemoveInstance shape
// (try each known endpoint, back off and retry on failure) adapted to
// the agency's write-transaction API instead of etcd's
// /v2/members/<id> DELETE.
func (c *AgencyClient) RemoveServer(agencyEndpoints []string, serverID string) error {
	if len(agencyEndpoints) == 0 {
		log.Infof("rpc: no agency endpoints known, skipping removal of %s", serverID)
		return nil
	}

	backoff := c.Backoff
	var lastErr error
	for attempt := 0; attempt < c.Retries; attempt++ {
		for _, endpoint := range agencyEndpoints {
			if err := c.removeServerAt(endpoint, serverID); err != nil {
				lastErr = err
				continue
			}
			log.Infof("rpc: removed server-id %s via agency endpoint %s", serverID, endpoint)
			return nil
		}
		log.Warningf("rpc: failed to remove server-id %s from any agency endpoint, "+
			"backing off %s and retrying", serverID, backoff)
		time.Sleep(backoff)
		backoff *= 2
	}
	return errors.Wrapf(lastErr, "failed to remove server-id %s: no agency endpoint reachable", serverID)
}

func (c *AgencyClient) removeServerAt(endpoint, serverID string) error {
	url := fmt.Sprintf("%s/_api/agency/write", endpoint)
	txn := fmt.Sprintf(`[[{"/arango/Target/ToBeCleanedServers/%s":{"op":"delete"}}]]`, serverID)

	req, err := http.NewRequest("POST", url, strings.NewReader(txn))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := ioutil.ReadAll(resp.Body)
		return errors.Errorf("agency write rejected: status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
