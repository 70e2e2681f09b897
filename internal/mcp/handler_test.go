package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rpggio/notebox/internal/codec"
	"github.com/rpggio/notebox/internal/domain/record"
	"github.com/rpggio/notebox/internal/snapshot"
	"github.com/rpggio/notebox/internal/storage"
	"github.com/stretchr/testify/require"
)

type recordStub struct {
	loadFn   func(context.Context) error
	createFn func(context.Context, string, string) (*record.Record, error)
	updateFn func(context.Context, string, record.UpdateRequest) (*record.Record, error)
	deleteFn func(context.Context, string) error
	searchFn func(record.Query) ([]record.Record, error)
	records  []record.Record
}

func (r *recordStub) Load(ctx context.Context) error { return r.loadFn(ctx) }
func (r *recordStub) Create(ctx context.Context, title, body string) (*record.Record, error) {
	return r.createFn(ctx, title, body)
}
func (r *recordStub) Update(ctx context.Context, id string, req record.UpdateRequest) (*record.Record, error) {
	return r.updateFn(ctx, id, req)
}
func (r *recordStub) Delete(ctx context.Context, id string) error { return r.deleteFn(ctx, id) }
func (r *recordStub) Get(id string) (record.Record, bool) {
	for _, rec := range r.records {
		if rec.ID == id {
			return rec, true
		}
	}
	return record.Record{}, false
}
func (r *recordStub) List() []record.Record                          { return r.records }
func (r *recordStub) Search(q record.Query) ([]record.Record, error) { return r.searchFn(q) }
func (r *recordStub) Err() error                                      { return nil }

type transferStub struct {
	exportFn func() ([]byte, error)
	importFn func(context.Context, []byte) (codec.Result, error)
}

func (s transferStub) Export() ([]byte, error) { return s.exportFn() }
func (s transferStub) Import(ctx context.Context, data []byte) (codec.Result, error) {
	return s.importFn(ctx, data)
}

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "expected APIError, got %v", err)
	require.Equal(t, code, apiErr.Code)
}

func TestHandler_RecordCommands(t *testing.T) {
	ctx := context.Background()
	rec := record.Record{ID: "r1", Title: "Title", Body: "Body"}

	var gotUpdate record.UpdateRequest
	var deleted string
	notes := &recordStub{
		records: []record.Record{rec, {ID: "r2", Title: "Other"}},
		createFn: func(_ context.Context, title, body string) (*record.Record, error) {
			return &record.Record{ID: "new", Title: title, Body: body}, nil
		},
		updateFn: func(_ context.Context, id string, req record.UpdateRequest) (*record.Record, error) {
			gotUpdate = req
			return &record.Record{ID: id, Title: *req.Title}, nil
		},
		deleteFn: func(_ context.Context, id string) error {
			deleted = id
			return nil
		},
		searchFn: func(q record.Query) ([]record.Record, error) {
			require.Equal(t, "tit", q.Text)
			require.Equal(t, "len(body) > 1", q.Where)
			return []record.Record{rec}, nil
		},
		loadFn: func(context.Context) error { return nil },
	}
	h := NewHandler(nil, &Collection{Name: "notes", Records: notes})

	out, err := h.Handle(ctx, "list_records", mustJSON(t, ListRecordsParams{Limit: 1}))
	require.NoError(t, err)
	list := out.(RecordListResponse)
	require.Equal(t, "notes", list.Collection)
	require.Equal(t, 2, list.Total)
	require.Len(t, list.Records, 1)

	out, err = h.Handle(ctx, "get_record", mustJSON(t, GetRecordParams{ID: "r1"}))
	require.NoError(t, err)
	require.Equal(t, rec, out.(RecordResponse).Record)

	out, err = h.Handle(ctx, "create_record", mustJSON(t, CreateRecordParams{Title: "T", Body: "B"}))
	require.NoError(t, err)
	require.Equal(t, "new", out.(RecordResponse).Record.ID)

	title := "Renamed"
	out, err = h.Handle(ctx, "update_record", mustJSON(t, UpdateRecordParams{ID: "r1", Title: &title}))
	require.NoError(t, err)
	require.Equal(t, "Renamed", out.(RecordResponse).Record.Title)
	require.Nil(t, gotUpdate.Body)

	_, err = h.Handle(ctx, "delete_record", mustJSON(t, DeleteRecordParams{ID: "r2"}))
	require.NoError(t, err)
	require.Equal(t, "r2", deleted)

	out, err = h.Handle(ctx, "search_records", mustJSON(t, SearchRecordsParams{Query: "tit", Where: "len(body) > 1"}))
	require.NoError(t, err)
	require.Equal(t, 1, out.(RecordListResponse).Total)

	out, err = h.Handle(ctx, "reload_records", nil)
	require.NoError(t, err)
	require.Equal(t, 2, out.(ReloadResponse).Count)
}

func TestHandler_TransferCommands(t *testing.T) {
	ctx := context.Background()
	notes := &recordStub{records: []record.Record{{ID: "r1", Title: "T"}}}
	transfer := transferStub{
		exportFn: func() ([]byte, error) { return []byte(`{"records": [], "version": 1}`), nil },
		importFn: func(_ context.Context, data []byte) (codec.Result, error) {
			require.Equal(t, "doc", string(data))
			return codec.Result{Success: true, Added: 2, Skipped: 1, Message: "ok"}, nil
		},
	}
	h := NewHandler(nil, &Collection{Name: "prompts", Records: notes, Transfer: transfer})
	h.clock = fixedClock(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))

	out, err := h.Handle(ctx, "export_records", mustJSON(t, ExportRecordsParams{Collection: "prompts"}))
	require.NoError(t, err)
	export := out.(ExportResponse)
	require.Equal(t, "prompts-export-20240102-030405.json", export.FileName)
	require.Equal(t, 1, export.Count)

	out, err = h.Handle(ctx, "import_records", mustJSON(t, ImportRecordsParams{Collection: "prompts", Document: "doc"}))
	require.NoError(t, err)
	require.Equal(t, ImportResponse{Collection: "prompts", Success: true, AddedCount: 2, SkippedCount: 1, Message: "ok"}, out)
}

func TestHandler_ErrorMapping(t *testing.T) {
	ctx := context.Background()
	notes := &recordStub{
		createFn: func(context.Context, string, string) (*record.Record, error) {
			return nil, record.ErrInvalidInput
		},
		updateFn: func(context.Context, string, record.UpdateRequest) (*record.Record, error) {
			return nil, record.ErrRecordNotFound
		},
		deleteFn: func(context.Context, string) error {
			return storage.ErrQuotaExceeded
		},
		searchFn: func(record.Query) ([]record.Record, error) {
			return nil, record.ErrInvalidQuery
		},
	}
	transfer := transferStub{
		importFn: func(context.Context, []byte) (codec.Result, error) {
			return codec.Result{}, codec.ErrInvalidFormat
		},
	}
	h := NewHandler(nil, &Collection{Name: "notes", Records: notes, Transfer: transfer})

	_, err := h.Handle(ctx, "get_record", mustJSON(t, GetRecordParams{ID: "missing"}))
	requireCode(t, err, "RECORD_NOT_FOUND")

	_, err = h.Handle(ctx, "create_record", mustJSON(t, CreateRecordParams{Title: " "}))
	requireCode(t, err, "INVALID_INPUT")

	_, err = h.Handle(ctx, "update_record", mustJSON(t, UpdateRecordParams{ID: "missing"}))
	requireCode(t, err, "RECORD_NOT_FOUND")

	_, err = h.Handle(ctx, "delete_record", mustJSON(t, DeleteRecordParams{ID: "r1"}))
	requireCode(t, err, "QUOTA_EXCEEDED")

	_, err = h.Handle(ctx, "search_records", mustJSON(t, SearchRecordsParams{Where: "("}))
	requireCode(t, err, "INVALID_QUERY")

	_, err = h.Handle(ctx, "import_records", mustJSON(t, ImportRecordsParams{Document: "x"}))
	requireCode(t, err, "INVALID_FORMAT")

	_, err = h.Handle(ctx, "list_records", mustJSON(t, ListRecordsParams{Collection: "journal"}))
	requireCode(t, err, "UNKNOWN_COLLECTION")

	_, err = h.Handle(ctx, "list_records", json.RawMessage(`{"limit": "many"}`))
	requireCode(t, err, "INVALID_INPUT")

	_, err = h.Handle(ctx, "transition", nil)
	require.Error(t, err)
}

func TestMapError_WrappedWriteFailure(t *testing.T) {
	err := MapError(errors.Join(errors.New("context"), storage.ErrWriteFailure))
	require.NotNil(t, err)
	require.Equal(t, "WRITE_FAILED", err.Code)
	require.Nil(t, MapError(errors.New("other")))
	require.Nil(t, MapError(nil))
}

func TestMapError_ImportAndLoadDecodeErrors(t *testing.T) {
	_, _, err := codec.Merge([]byte("not json"), nil, time.Now(), func() string { return "id" })
	require.ErrorIs(t, err, snapshot.ErrDecode)
	apiErr := MapError(err)
	require.NotNil(t, apiErr)
	require.Equal(t, "INVALID_FORMAT", apiErr.Code)

	_, err = snapshot.Decode([]byte(`{"records":{},"version":1}`))
	apiErr = MapError(fmt.Errorf("loading records: %w", err))
	require.NotNil(t, apiErr)
	require.Equal(t, "LOAD_FAILED", apiErr.Code)
}
