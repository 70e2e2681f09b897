package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/rpggio/notebox/internal/codec"
	"github.com/rpggio/notebox/internal/domain/record"
)

// DefaultCollection is used when a tool call names no collection.
const DefaultCollection = "notes"

// RecordService defines record operations needed by MCP.
type RecordService interface {
	Load(ctx context.Context) error
	Create(ctx context.Context, title, body string) (*record.Record, error)
	Update(ctx context.Context, id string, req record.UpdateRequest) (*record.Record, error)
	Delete(ctx context.Context, id string) error
	Get(id string) (record.Record, bool)
	List() []record.Record
	Search(q record.Query) ([]record.Record, error)
	Err() error
}

// TransferService defines import/export operations needed by MCP.
type TransferService interface {
	Export() ([]byte, error)
	Import(ctx context.Context, data []byte) (codec.Result, error)
}

// Collection is one named record collection served over MCP.
type Collection struct {
	Name     string
	Records  RecordService
	Transfer TransferService
}

// Handler dispatches MCP commands.
type Handler struct {
	collections map[string]*Collection
	clock       record.Clock
	logger      *slog.Logger
}

// NewHandler creates a new MCP handler over the given collections.
func NewHandler(logger *slog.Logger, collections ...*Collection) *Handler {
	h := &Handler{
		collections: make(map[string]*Collection, len(collections)),
		clock:       record.SystemClock{},
		logger:      logger,
	}
	for _, c := range collections {
		h.collections[c.Name] = c
	}
	return h
}

// Collections returns the served collection names, sorted.
func (h *Handler) Collections() []string {
	names := make([]string, 0, len(h.collections))
	for name := range h.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Handle dispatches MCP requests to the record collections.
func (h *Handler) Handle(ctx context.Context, method string, params json.RawMessage) (any, error) {
	switch method {
	case "list_records":
		var req ListRecordsParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		c, err := h.collection(req.Collection)
		if err != nil {
			return nil, err
		}
		records := c.Records.List()
		total := len(records)
		if req.Limit > 0 && len(records) > req.Limit {
			records = records[:req.Limit]
		}
		return RecordListResponse{Collection: c.Name, Total: total, Records: records}, nil
	case "get_record":
		var req GetRecordParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		c, err := h.collection(req.Collection)
		if err != nil {
			return nil, err
		}
		rec, ok := c.Records.Get(req.ID)
		if !ok {
			return nil, mapError(record.ErrRecordNotFound)
		}
		return RecordResponse{Collection: c.Name, Record: rec}, nil
	case "create_record":
		var req CreateRecordParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		c, err := h.collection(req.Collection)
		if err != nil {
			return nil, err
		}
		rec, err := c.Records.Create(ctx, req.Title, req.Body)
		if err != nil {
			return nil, mapError(err)
		}
		return RecordResponse{Collection: c.Name, Record: *rec}, nil
	case "update_record":
		var req UpdateRecordParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		c, err := h.collection(req.Collection)
		if err != nil {
			return nil, err
		}
		rec, err := c.Records.Update(ctx, req.ID, record.UpdateRequest{Title: req.Title, Body: req.Body})
		if err != nil {
			return nil, mapError(err)
		}
		return RecordResponse{Collection: c.Name, Record: *rec}, nil
	case "delete_record":
		var req DeleteRecordParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		c, err := h.collection(req.Collection)
		if err != nil {
			return nil, err
		}
		if err := c.Records.Delete(ctx, req.ID); err != nil {
			return nil, mapError(err)
		}
		return DeleteRecordResponse{Collection: c.Name, ID: req.ID, Deleted: true}, nil
	case "search_records":
		var req SearchRecordsParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		c, err := h.collection(req.Collection)
		if err != nil {
			return nil, err
		}
		records, err := c.Records.Search(record.Query{Text: req.Query, Where: req.Where, Limit: req.Limit})
		if err != nil {
			return nil, mapError(err)
		}
		return RecordListResponse{Collection: c.Name, Total: len(records), Records: records}, nil
	case "export_records":
		var req ExportRecordsParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		c, err := h.collection(req.Collection)
		if err != nil {
			return nil, err
		}
		data, err := c.Transfer.Export()
		if err != nil {
			return nil, mapError(err)
		}
		return ExportResponse{
			Collection: c.Name,
			FileName:   codec.FileName(c.Name, h.clock.Now()),
			Count:      len(c.Records.List()),
			Document:   string(data),
		}, nil
	case "import_records":
		var req ImportRecordsParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		c, err := h.collection(req.Collection)
		if err != nil {
			return nil, err
		}
		res, err := c.Transfer.Import(ctx, []byte(req.Document))
		if err != nil {
			return nil, mapError(err)
		}
		return ImportResponse{
			Collection:   c.Name,
			Success:      res.Success,
			AddedCount:   res.Added,
			SkippedCount: res.Skipped,
			Message:      res.Message,
		}, nil
	case "reload_records":
		var req ReloadRecordsParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		c, err := h.collection(req.Collection)
		if err != nil {
			return nil, err
		}
		if err := c.Records.Load(ctx); err != nil {
			return nil, mapError(err)
		}
		return ReloadResponse{Collection: c.Name, Count: len(c.Records.List())}, nil
	default:
		return nil, fmt.Errorf("unknown method: %s", method)
	}
}

func decodeParams(params json.RawMessage, out any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, out); err != nil {
		return &APIError{Code: "INVALID_INPUT", Message: fmt.Sprintf("invalid arguments: %v", err)}
	}
	return nil
}

func (h *Handler) collection(name string) (*Collection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultCollection
	}
	c, ok := h.collections[name]
	if !ok {
		return nil, mapError(fmt.Errorf("%w: %q (available: %s)", ErrUnknownCollection, name, strings.Join(h.Collections(), ", ")))
	}
	return c, nil
}
