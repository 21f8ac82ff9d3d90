package store

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/samuel/go-zookeeper/zk"

	"github.com/vixns/arangodb-mesos-framework/model"
)

// Lease is a scoped acquisition of the Document, as specified in
// spec.md section 4.1. Doc is decoded once on acquisition; callers
// mutate it in place and then call Commit (re-encodes and
// compare-and-sets) or Abandon (cheap, no write).
type Lease struct {
	store   *Store
	Doc     *model.Document
	version int32

	terminated bool
}

// Commit re-encodes Doc and performs a compare-and-set write against
// the version observed at acquisition. On success the lease is
// consumed. On a concurrent writer having already advanced the
// version, it returns ErrStaleState and the caller must reacquire
// (spec.md section 4.1).
func (l *Lease) Commit() error {
	if l.terminated {
		return errors.New("store: lease already terminated")
	}
	l.terminated = true

	data, err := json.Marshal(l.Doc)
	if err != nil {
		return errors.Wrap(err, "store: marshal document for commit")
	}

	l.store.mu.Lock()
	_, err = l.store.conn.Set(l.store.path, data, l.version)
	l.store.mu.Unlock()

	if err != nil {
		if err == zk.ErrBadVersion {
			return ErrStaleState
		}
		return errors.Wrap(err, "store: commit lease")
	}
	return nil
}

// Abandon releases the lease without writing. It is always safe to
// call, including on already-terminated leases, so defer l.Abandon()
// composes cleanly with an earlier explicit Commit().
func (l *Lease) Abandon() {
	l.terminated = true
}
