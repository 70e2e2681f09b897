package record

import (
	"sort"
	"time"
)

// Version is the only snapshot format version this package reads or writes.
const Version = 1

// Record is one note or prompt
type Record struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Snapshot is the whole persisted collection
type Snapshot struct {
	Records []Record `json:"records"`
	Version int      `json:"version"`
}

// NewSnapshot returns a version-tagged snapshot. A nil slice is stored as an
// empty list.
func NewSnapshot(records []Record) *Snapshot {
	if records == nil {
		records = []Record{}
	}
	return &Snapshot{Records: records, Version: Version}
}

// ChangeSource tells a subscriber where a snapshot change came from.
type ChangeSource int

const (
	// SourceLocal is a write made through the same snapshot store.
	SourceLocal ChangeSource = iota
	// SourceExternal is a write made by another context sharing the medium.
	SourceExternal
)

func (s ChangeSource) String() string {
	if s == SourceExternal {
		return "external"
	}
	return "local"
}

// SortByUpdatedDesc orders records most recently updated first. Ties keep
// their relative order.
func SortByUpdatedDesc(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].UpdatedAt.After(records[j].UpdatedAt)
	})
}

func cloneRecords(records []Record) []Record {
	out := make([]Record, len(records))
	copy(out, records)
	return out
}
