package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rpggio/notebox/internal/domain/record"
)

// ErrDecode indicates stored or supplied bytes are not a readable snapshot.
var ErrDecode = errors.New("unreadable snapshot")

type document struct {
	Records json.RawMessage `json:"records"`
	Version json.RawMessage `json:"version"`
}

// Parse checks the {version: 1, records: [...]} shape and returns the raw
// record entries without interpreting them.
func Parse(data []byte) ([]json.RawMessage, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	// Any JSON number equal to 1 is accepted, so 1.0 reads as version 1.
	var version float64
	if len(doc.Version) == 0 {
		return nil, fmt.Errorf("%w: missing version", ErrDecode)
	}
	if err := json.Unmarshal(doc.Version, &version); err != nil || version != float64(record.Version) {
		return nil, fmt.Errorf("%w: unsupported version %s", ErrDecode, string(doc.Version))
	}

	raw := bytes.TrimSpace(doc.Records)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, fmt.Errorf("%w: records is not a list", ErrDecode)
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return entries, nil
}

// Decode parses a stored snapshot strictly: every entry must be a record.
func Decode(data []byte) (*record.Snapshot, error) {
	entries, err := Parse(data)
	if err != nil {
		return nil, err
	}

	records := make([]record.Record, 0, len(entries))
	for i, entry := range entries {
		var rec record.Record
		if err := json.Unmarshal(entry, &rec); err != nil {
			return nil, fmt.Errorf("%w: record %d: %w", ErrDecode, i, err)
		}
		records = append(records, rec)
	}
	return record.NewSnapshot(records), nil
}

// Encode serializes snap compactly for storage.
func Encode(snap *record.Snapshot) ([]byte, error) {
	return json.Marshal(normalize(snap))
}

// EncodeIndent serializes snap for people to read.
func EncodeIndent(snap *record.Snapshot) ([]byte, error) {
	return json.MarshalIndent(normalize(snap), "", "  ")
}

func normalize(snap *record.Snapshot) *record.Snapshot {
	if snap == nil {
		return record.NewSnapshot(nil)
	}
	return record.NewSnapshot(snap.Records)
}
