package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolDefinition describes a callable tool.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

var collectionProperty = map[string]any{
	"type":        "string",
	"description": "Collection name (omit to use \"notes\")",
}

// buildToolCatalog returns all available MCP tools
func buildToolCatalog() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        "list_records",
			Description: "List records in a collection, most recently updated first",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"collection": collectionProperty,
					"limit": map[string]any{
						"type":        "integer",
						"description": "Maximum number of records",
					},
				},
			},
		},
		{
			Name:        "get_record",
			Description: "Get a record by ID",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"collection": collectionProperty,
					"id": map[string]any{
						"type":        "string",
						"description": "Record ID",
					},
				},
				"required": []string{"id"},
			},
		},
		{
			Name:        "create_record",
			Description: "Create a record; title and body are trimmed and the title must not be empty",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"collection": collectionProperty,
					"title": map[string]any{
						"type":        "string",
						"description": "Record title",
					},
					"body": map[string]any{
						"type":        "string",
						"description": "Record content",
					},
				},
				"required": []string{"title"},
			},
		},
		{
			Name:        "update_record",
			Description: "Update the title and/or body of a record; omitted fields are kept",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"collection": collectionProperty,
					"id": map[string]any{
						"type":        "string",
						"description": "Record ID to update",
					},
					"title": map[string]any{
						"type":        "string",
						"description": "New title",
					},
					"body": map[string]any{
						"type":        "string",
						"description": "New body",
					},
				},
				"required": []string{"id"},
			},
		},
		{
			Name:        "delete_record",
			Description: "Delete a record by ID",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"collection": collectionProperty,
					"id": map[string]any{
						"type":        "string",
						"description": "Record ID to delete",
					},
				},
				"required": []string{"id"},
			},
		},
		{
			Name:        "search_records",
			Description: "Search records by text in title or body, optionally filtered by an expression",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"collection": collectionProperty,
					"query": map[string]any{
						"type":        "string",
						"description": "Case-insensitive text to find in title or body",
					},
					"where": map[string]any{
						"type":        "string",
						"description": "Boolean expression over id, title, body, createdAt, updatedAt (e.g. 'len(body) > 100')",
					},
					"limit": map[string]any{
						"type":        "integer",
						"description": "Maximum number of results",
					},
				},
			},
		},
		{
			Name:        "export_records",
			Description: "Export a collection as a JSON document with a suggested file name",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"collection": collectionProperty,
				},
			},
		},
		{
			Name:        "import_records",
			Description: "Merge an exported JSON document into a collection, skipping records whose title and body already exist",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"collection": collectionProperty,
					"document": map[string]any{
						"type":        "string",
						"description": "JSON text of the form {\"version\": 1, \"records\": [...]}",
					},
				},
				"required": []string{"document"},
			},
		},
		{
			Name:        "reload_records",
			Description: "Reload a collection from storage",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"collection": collectionProperty,
				},
			},
		},
	}
}

func registerTools(server *sdkmcp.Server, handler *Handler) {
	for _, def := range buildToolCatalog() {
		name := def.Name
		server.AddTool(&sdkmcp.Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.InputSchema,
		}, func(ctx context.Context, req *sdkmcp.CallToolRequest) (*sdkmcp.CallToolResult, error) {
			var args json.RawMessage
			if req != nil && req.Params != nil {
				args = req.Params.Arguments
			}
			result, err := handler.Handle(ctx, name, args)
			if err != nil {
				return toolError(ctx, handler, name, err), nil
			}
			return toolResult(result)
		})
	}
}

func toolResult(result any) (*sdkmcp.CallToolResult, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encoding tool result: %w", err)
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}, nil
}

func toolError(ctx context.Context, handler *Handler, name string, err error) *sdkmcp.CallToolResult {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		apiErr = &APIError{Code: "INTERNAL", Message: err.Error()}
	}
	if handler.logger != nil {
		handler.logger.WarnContext(ctx, "tool call failed", "tool", name, "code", apiErr.Code, "error", err)
	}
	data, marshalErr := json.Marshal(apiErr)
	if marshalErr != nil {
		data = []byte(apiErr.Error())
	}
	return &sdkmcp.CallToolResult{
		IsError: true,
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}
}
