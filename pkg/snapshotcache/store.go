package snapshotcache

import (
	"context"
	"errors"
	"sync"

	"github.com/jinzhu/copier"
	"github.com/travigo/railcommute/pkg/ctdf"
)

var ErrNoSnapshot = errors.New("no snapshot available")

// Store holds the latest snapshot for readers. Stores hand out copies so readers can never change the
// snapshot held by the coordinator.
type Store interface {
	Put(ctx context.Context, snapshot *ctdf.Snapshot) error
	Get(ctx context.Context) (*ctdf.Snapshot, error)
}

type MemoryStore struct {
	mutex    sync.RWMutex
	snapshot *ctdf.Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Put(ctx context.Context, snapshot *ctdf.Snapshot) error {
	snapshotCopy, err := Copy(snapshot)
	if err != nil {
		return err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.snapshot = snapshotCopy
	return nil
}

func (m *MemoryStore) Get(ctx context.Context) (*ctdf.Snapshot, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if m.snapshot == nil {
		return nil, ErrNoSnapshot
	}

	return Copy(m.snapshot)
}

// Copy deep copies a snapshot, keeping NextTrain pointing into the copied service list
func Copy(snapshot *ctdf.Snapshot) (*ctdf.Snapshot, error) {
	snapshotCopy := &ctdf.Snapshot{}
	if err := copier.CopyWithOption(snapshotCopy, snapshot, copier.Option{DeepCopy: true}); err != nil {
		return nil, err
	}

	snapshotCopy.LastUpdated = snapshot.LastUpdated
	snapshotCopy.NextUpdate = snapshot.NextUpdate

	snapshotCopy.NextTrain = nil
	if snapshot.NextTrain != nil {
		for i := range snapshotCopy.Services {
			if snapshotCopy.Services[i].ServiceID == snapshot.NextTrain.ServiceID && !snapshotCopy.Services[i].IsCancelled {
				snapshotCopy.NextTrain = &snapshotCopy.Services[i]
				break
			}
		}
	}

	return snapshotCopy, nil
}
