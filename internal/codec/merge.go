package codec

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rpggio/notebox/internal/domain/record"
	"github.com/rpggio/notebox/internal/snapshot"
)

// Result reports the outcome of an import.
type Result struct {
	Success bool   `json:"success"`
	Added   int    `json:"addedCount"`
	Skipped int    `json:"skippedCount"`
	Message string `json:"message"`
}

// maxUnixMillis keeps int64 conversion of imported numbers well defined.
const maxUnixMillis = 1 << 62

// timestampLayouts are tried in order for imported createdAt/updatedAt
// strings. Layouts without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Merge sanitizes the records of an import document and merges them into
// current. It returns the merged, sorted collection; when every entry
// duplicates existing content the collection is returned unchanged with
// Result.Added == 0.
func Merge(data []byte, current []record.Record, now time.Time, newID func() string) ([]record.Record, Result, error) {
	entries, err := snapshot.Parse(data)
	if err != nil {
		return nil, Result{Message: fmt.Sprintf("invalid import file: %v", err)},
			fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}

	used := make(map[string]bool, len(current)+len(entries))
	for _, rec := range current {
		used[rec.ID] = true
	}

	candidates := make([]record.Record, 0, len(entries))
	for _, entry := range entries {
		if rec, ok := sanitize(entry, used, now, newID); ok {
			candidates = append(candidates, rec)
		}
	}
	if len(candidates) == 0 {
		return nil, Result{Message: "the file contains no valid records"}, ErrNoValidRecords
	}

	seen := make(map[record.ContentKey]bool, len(current)+len(candidates))
	for _, rec := range current {
		seen[record.KeyOf(rec.Title, rec.Body)] = true
	}

	merged := append([]record.Record{}, current...)
	added, skipped := 0, 0
	for _, rec := range candidates {
		key := record.KeyOf(rec.Title, rec.Body)
		if seen[key] {
			skipped++
			continue
		}
		seen[key] = true
		merged = append(merged, rec)
		added++
	}

	if added == 0 {
		return current, Result{
			Success: true,
			Skipped: skipped,
			Message: fmt.Sprintf("all %d records already exist", skipped),
		}, nil
	}

	record.SortByUpdatedDesc(merged)
	return merged, Result{
		Success: true,
		Added:   added,
		Skipped: skipped,
		Message: fmt.Sprintf("imported %d records, skipped %d duplicates", added, skipped),
	}, nil
}

// sanitize turns one raw entry into a record with a unique id and valid
// timestamps. Entries without a usable title are dropped.
func sanitize(entry json.RawMessage, used map[string]bool, now time.Time, newID func() string) (record.Record, bool) {
	var fields map[string]any
	if err := json.Unmarshal(entry, &fields); err != nil || fields == nil {
		return record.Record{}, false
	}

	rawTitle, _ := fields["title"].(string)
	title, err := record.NormalizeTitle(rawTitle)
	if err != nil {
		return record.Record{}, false
	}
	body, _ := fields["body"].(string)

	createdAt, ok := parseTimestamp(fields["createdAt"])
	if !ok {
		createdAt = now
	}
	updatedAt, ok := parseTimestamp(fields["updatedAt"])
	if !ok {
		updatedAt = createdAt
	}

	id, _ := fields["id"].(string)
	if strings.TrimSpace(id) == "" || used[id] {
		id = newID()
		for used[id] {
			id = newID()
		}
	}
	used[id] = true

	return record.Record{
		ID:        id,
		Title:     title,
		Body:      body,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, true
}

// parseTimestamp accepts the string layouts above or a number of Unix
// milliseconds. Times outside years 0-9999 cannot be stored and count as
// unparseable.
func parseTimestamp(v any) (time.Time, bool) {
	var t time.Time
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		parsed := false
		for _, layout := range timestampLayouts {
			if pt, err := time.Parse(layout, s); err == nil {
				t, parsed = pt, true
				break
			}
		}
		if !parsed {
			return time.Time{}, false
		}
	case float64:
		if math.IsNaN(val) || math.Abs(val) > maxUnixMillis {
			return time.Time{}, false
		}
		t = time.UnixMilli(int64(val))
	default:
		return time.Time{}, false
	}

	t = t.UTC()
	if t.Year() < 0 || t.Year() > 9999 {
		return time.Time{}, false
	}
	return t, true
}
