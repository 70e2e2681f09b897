package record

import (
	"context"
	"time"
)

// SnapshotStore persists the collection as one snapshot.
type SnapshotStore interface {
	Read(ctx context.Context) (*Snapshot, error)
	Write(ctx context.Context, snap *Snapshot) error
	// Subscribe delivers every change, local or external, asynchronously.
	Subscribe(fn func(ChangeSource)) (unsubscribe func())
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
