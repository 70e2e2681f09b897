package mcp

import "github.com/rpggio/notebox/internal/domain/record"

type ListRecordsParams struct {
	Collection string `json:"collection,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

type GetRecordParams struct {
	Collection string `json:"collection,omitempty"`
	ID         string `json:"id"`
}

type CreateRecordParams struct {
	Collection string `json:"collection,omitempty"`
	Title      string `json:"title"`
	Body       string `json:"body,omitempty"`
}

type UpdateRecordParams struct {
	Collection string  `json:"collection,omitempty"`
	ID         string  `json:"id"`
	Title      *string `json:"title,omitempty"`
	Body       *string `json:"body,omitempty"`
}

type DeleteRecordParams struct {
	Collection string `json:"collection,omitempty"`
	ID         string `json:"id"`
}

type SearchRecordsParams struct {
	Collection string `json:"collection,omitempty"`
	Query      string `json:"query,omitempty"`
	Where      string `json:"where,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

type ExportRecordsParams struct {
	Collection string `json:"collection,omitempty"`
}

type ImportRecordsParams struct {
	Collection string `json:"collection,omitempty"`
	Document   string `json:"document"`
}

type ReloadRecordsParams struct {
	Collection string `json:"collection,omitempty"`
}

// Responses

type RecordListResponse struct {
	Collection string          `json:"collection"`
	Total      int             `json:"total"`
	Records    []record.Record `json:"records"`
}

type RecordResponse struct {
	Collection string        `json:"collection"`
	Record     record.Record `json:"record"`
}

type DeleteRecordResponse struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
	Deleted    bool   `json:"deleted"`
}

type ExportResponse struct {
	Collection string `json:"collection"`
	FileName   string `json:"file_name"`
	Count      int    `json:"count"`
	Document   string `json:"document"`
}

type ImportResponse struct {
	Collection   string `json:"collection"`
	Success      bool   `json:"success"`
	AddedCount   int    `json:"added_count"`
	SkippedCount int    `json:"skipped_count"`
	Message      string `json:"message"`
}

type ReloadResponse struct {
	Collection string `json:"collection"`
	Count      int    `json:"count"`
}
