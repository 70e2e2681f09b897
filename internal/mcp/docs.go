package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `notebox keeps named collections of records (notes and prompts by default).

Record: {id, title, body, createdAt, updatedAt}. Titles are trimmed and never empty.
Lists are ordered by updatedAt, most recent first.

Tools (every tool takes an optional "collection", default "notes"):
- list_records / get_record / search_records to browse.
- create_record / update_record / delete_record to change a collection.
- export_records returns a portable JSON document; import_records merges one back,
  skipping records whose title and body already exist.
- reload_records re-reads a collection when another process may have changed it.

Docs:
- notebox://docs/format (export/import document format)
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	MIMEType    string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "notebox://docs/format",
		Name:        "docs_format",
		Title:       "notebox export format",
		Description: "Layout of exported documents and how imports are merged.",
		MIMEType:    "text/markdown",
		Content: `# notebox export format

An export is a JSON object:

` + "```json" + `
{
  "records": [
    {
      "id": "6f1c1d1e-4a3b-4f55-9d0e-3c8f8f0a2b71",
      "title": "Meeting notes",
      "body": "Agenda...",
      "createdAt": "2024-03-01T09:00:00Z",
      "updatedAt": "2024-03-02T10:30:00.125Z"
    }
  ],
  "version": 1
}
` + "```" + `

Records are ordered by updatedAt, most recent first. Export files are named
` + "`<collection>-export-YYYYMMDD-HHMMSS.json`" + `.

## Import rules

- The document must be an object with ` + "`version`" + ` 1 and a ` + "`records`" + ` array;
  anything else fails with INVALID_FORMAT.
- Entries without a non-empty string title are dropped. A missing body
  becomes "". Unparseable createdAt becomes the import time; unparseable
  updatedAt becomes createdAt.
- Missing or already used ids are replaced with new ones.
- An entry whose trimmed title and body match an existing record, or an
  earlier entry of the same document, is skipped.
- If no entry is valid the import fails with NO_VALID_RECORDS. If every
  entry is skipped nothing is written.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    doc.MIMEType,
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: doc.MIMEType,
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
