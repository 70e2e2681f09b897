package snapshot_test

import (
	"testing"
	"time"

	"github.com/rpggio/notebox/internal/domain/record"
	"github.com/rpggio/notebox/internal/snapshot"
	"github.com/stretchr/testify/require"
)

func TestDecode_Valid(t *testing.T) {
	data := []byte(`{"records":[{"id":"a","title":"T","body":"B","createdAt":"2024-01-01T00:00:00.000Z","updatedAt":"2024-01-02T00:00:00.000Z"}],"version":1}`)

	snap, err := snapshot.Decode(data)
	require.NoError(t, err)
	require.Equal(t, record.Version, snap.Version)
	require.Len(t, snap.Records, 1)
	require.Equal(t, "a", snap.Records[0].ID)
	require.True(t, snap.Records[0].UpdatedAt.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)))
}

func TestDecode_AcceptsFractionalNotationVersion(t *testing.T) {
	for _, input := range []string{`{"records":[],"version":1.0}`, `{"records":[],"version":1e0}`} {
		snap, err := snapshot.Decode([]byte(input))
		require.NoError(t, err, input)
		require.Equal(t, record.Version, snap.Version)
	}

	_, err := snapshot.Decode([]byte(`{"records":[],"version":1.5}`))
	require.ErrorIs(t, err, snapshot.ErrDecode)
}

func TestDecode_Unreadable(t *testing.T) {
	cases := map[string]string{
		"not json":         `not json`,
		"top-level array":  `[]`,
		"null":             `null`,
		"missing version":  `{"records":[]}`,
		"wrong version":    `{"records":[],"version":2}`,
		"string version":   `{"records":[],"version":"1"}`,
		"records object":   `{"records":{},"version":1}`,
		"records null":     `{"records":null,"version":1}`,
		"missing records":  `{"version":1}`,
		"bad timestamp":    `{"records":[{"id":"a","title":"T","createdAt":"yesterday"}],"version":1}`,
		"record not objec": `{"records":[42],"version":1}`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := snapshot.Decode([]byte(input))
			require.ErrorIs(t, err, snapshot.ErrDecode)
		})
	}
}

func TestEncode_EmptyRecordsIsList(t *testing.T) {
	data, err := snapshot.Encode(&record.Snapshot{Version: record.Version})
	require.NoError(t, err)
	require.JSONEq(t, `{"records":[],"version":1}`, string(data))

	data, err = snapshot.Encode(nil)
	require.NoError(t, err)
	require.JSONEq(t, `{"records":[],"version":1}`, string(data))
}

func TestEncodeIndent_RoundTrip(t *testing.T) {
	now := time.Date(2024, 5, 6, 7, 8, 9, 123000000, time.UTC)
	in := record.NewSnapshot([]record.Record{{ID: "a", Title: "T", Body: "B", CreatedAt: now, UpdatedAt: now}})

	data, err := snapshot.EncodeIndent(in)
	require.NoError(t, err)
	require.Contains(t, string(data), "\n  \"records\"")

	out, err := snapshot.Decode(data)
	require.NoError(t, err)
	require.Equal(t, in.Records[0].ID, out.Records[0].ID)
	require.True(t, in.Records[0].CreatedAt.Equal(out.Records[0].CreatedAt))
}
