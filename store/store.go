// Package store implements the durable State Store (C1): a single
// Document persisted in Zookeeper under a framework-named path,
// accessed only through a Lease that guarantees release on every exit
// path and commits via compare-and-set.
//
// Grounded on the teacher's own Zookeeper usage in
// rpc.PersistFrameworkID / rpc.ClearZKState, generalized from "persist
// one field" to "lease the whole document", and on the CAS-retry shape
// of the lease-manager reference file in the example pack.
package store

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	log "github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/samuel/go-zookeeper/zk"

	"github.com/vixns/arangodb-mesos-framework/model"
)

// ErrStaleState is returned by Lease.Commit when a concurrent writer
// has already advanced the document's version since this lease was
// acquired. The caller must reacquire and retry (spec.md section 4.1).
var ErrStaleState = errors.New("stale-state")

// zkConn is the subset of *zk.Conn's method set Store actually uses,
// narrowed to an interface so tests can substitute an in-memory fake
// instead of dialing a real ensemble.
type zkConn interface {
	Get(path string) ([]byte, *zk.Stat, error)
	Set(path string, data []byte, version int32) (*zk.Stat, error)
	Create(path string, data []byte, flags int32, acl []zk.ACL) (string, error)
	Delete(path string, version int32) error
	Exists(path string) (bool, *zk.Stat, error)
}

// Store is the coordination-store client. It wraps a zk connection
// rooted at framework-named path "/<frameworkName>".
type Store struct {
	mu        sync.Mutex
	conn      zkConn
	path      string
	connectFn func([]string, time.Duration) (*zk.Conn, <-chan zk.Event, error)
}

// New creates a Store against the given zk ensemble, rooted at
// "/<frameworkName>".
func New(servers []string, frameworkName string) *Store {
	return &Store{
		path:      "/" + frameworkName,
		connectFn: zk.Connect,
	}
}

// Connect establishes the zk session. Must be called before any other
// Store operation.
func (s *Store) Connect(servers []string, sessionTimeout time.Duration) error {
	conn, events, err := s.connectFn(servers, sessionTimeout)
	if err != nil {
		return errors.Wrap(err, "store: connect to zookeeper")
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	go func() {
		for ev := range events {
			if ev.State == zk.StateDisconnected {
				log.Warning("store: zookeeper session disconnected")
			}
		}
	}()
	return nil
}

// Init creates the document path if it does not already exist. If
// resetState is true, any existing document is destroyed first -- see
// DESIGN.md's open-question note on the framework-id orphaning risk
// this implies.
func (s *Store) Init(resetState bool) error {
	if resetState {
		log.Warning("store: reset_state=true, destroying any existing document " +
			"(this orphans tasks still known to Mesos under the previous framework id)")
		if err := s.Destroy(); err != nil && !errors.Is(err, zk.ErrNoNode) {
			return errors.Wrap(err, "store: destroy for reset_state")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	exists, _, err := s.conn.Exists(s.path)
	if err != nil {
		return errors.Wrap(err, "store: exists check")
	}
	if exists {
		return nil
	}

	empty, err := json.Marshal(model.NewDocument())
	if err != nil {
		return errors.Wrap(err, "store: marshal empty document")
	}
	_, err = s.conn.Create(s.path, empty, 0, zk.WorldACL(zk.PermAll))
	if err != nil && err != zk.ErrNodeExists {
		return errors.Wrap(err, "store: create document path")
	}
	return nil
}

// Destroy erases the document entirely.
func (s *Store) Destroy() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, stat, err := s.conn.Get(s.path)
	if err != nil {
		return err
	}
	return s.conn.Delete(s.path, stat.Version)
}

// Load reads the document without taking a lease. Intended for
// read-only consumers such as the Endpoint Projector (C7).
func (s *Store) Load() (*model.Document, error) {
	s.mu.Lock()
	data, _, err := s.conn.Get(s.path)
	s.mu.Unlock()
	if err != nil {
		return nil, errors.Wrap(err, "store: load document")
	}
	var doc model.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "store: unmarshal document")
	}
	return &doc, nil
}

// Lease acquires versioned access to the document. It is optimistic,
// not exclusive: several leases may be held at once, and only the
// first to Commit succeeds; the others get ErrStaleState. The
// caller must call exactly one of Commit or Abandon on the returned
// Lease -- via defer, per spec.md section 4.1's "release must occur on
// every exit path, including failure".
func (s *Store) Lease() (*Lease, error) {
	s.mu.Lock()
	data, stat, err := s.conn.Get(s.path)
	s.mu.Unlock()
	if err != nil {
		return nil, errors.Wrap(err, "store: acquire lease")
	}

	var doc model.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "store: decode document on acquisition")
	}

	return &Lease{
		store:   s,
		Doc:     &doc,
		version: stat.Version,
	}, nil
}

// CreateReverseProxyConfig writes a derived artifact consumed by the
// companion reverse-proxy process (out of scope per spec.md section
// 1; only its interface is contracted here).
func (s *Store) CreateReverseProxyConfig(config []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := s.path + "/proxy.conf"
	exists, stat, err := s.conn.Exists(path)
	if err != nil {
		return errors.Wrap(err, "store: check proxy config path")
	}
	if !exists {
		_, err := s.conn.Create(path, config, 0, zk.WorldACL(zk.PermAll))
		return errors.Wrap(err, "store: create proxy config")
	}
	_, err = s.conn.Set(path, config, stat.Version)
	return errors.Wrap(err, "store: update proxy config")
}

// SetRestartProxy is a single-writer flag setter: it leases the
// document, sets RestartFlag, and commits, retrying once on
// ErrStaleState since this call is typically invoked from a signal
// handler that cannot itself participate in the reconciler's retry
// loop.
func (s *Store) SetRestartProxy(reason model.RestartFlag) error {
	for attempt := 0; attempt < 2; attempt++ {
		lease, err := s.Lease()
		if err != nil {
			return err
		}
		lease.Doc.RestartFlag = reason
		err = lease.Commit()
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrStaleState) {
			continue
		}
		return err
	}
	return fmt.Errorf("store: SetRestartProxy failed after retry")
}
