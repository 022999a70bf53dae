package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.ngs.io/gws-mcp-advanced/auth"
	"go.ngs.io/gws-mcp-advanced/server"
)

// Handler implements the ServiceHandler interface for Drive
type Handler struct {
	client  *Client
	aliases *AliasCache
}

// NewHandler creates a new Drive handler backed by the shared alias cache
func NewHandler(client *Client, aliases *AliasCache) *Handler {
	return &Handler{client: client, aliases: aliases}
}

// GetTools returns the available Drive tools
func (h *Handler) GetTools() []server.Tool {
	return []server.Tool{
		{
			Name:        "search_drive",
			Description: "Search Google Drive by name and content. Results get single-letter aliases (A-Z) usable as document references in other tools",
			InputSchema: server.InputSchema{
				Type: "object",
				Properties: map[string]server.Property{
					"query": {
						Type:        "string",
						Description: "Search terms",
					},
					"page_size": {
						Type:        "number",
						Description: "Maximum results to return (default 10, max 26)",
					},
				},
				Required: []string{"query"},
			},
		},
		{
			Name:        "get_file_info",
			Description: "Get metadata for a Drive file",
			InputSchema: server.InputSchema{
				Type: "object",
				Properties: map[string]server.Property{
					"file_id": {
						Type:        "string",
						Description: "File ID or search alias",
					},
				},
				Required: []string{"file_id"},
			},
		},
	}
}

// HandleToolCall handles a tool call for the Drive service
func (h *Handler) HandleToolCall(ctx context.Context, name string, arguments json.RawMessage) (interface{}, error) {
	switch name {
	case "search_drive":
		return h.searchDrive(ctx, arguments)
	case "get_file_info":
		return h.getFileInfo(ctx, arguments)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

func (h *Handler) searchDrive(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var args struct {
		Query    string `json:"query"`
		PageSize int64  `json:"page_size"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if args.Query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if args.PageSize <= 0 || args.PageSize > 26 {
		args.PageSize = 10
	}

	files, err := h.client.Search(ctx, args.Query, args.PageSize)
	if err != nil {
		return nil, auth.DecorateError("search_drive", err)
	}
	if len(files) == 0 {
		return fmt.Sprintf("No files found for %q.", args.Query), nil
	}

	cached := make([]CachedFile, len(files))
	for i, f := range files {
		cached[i] = CachedFile{
			ID:       f.Id,
			Name:     f.Name,
			MimeType: f.MimeType,
			Link:     f.WebViewLink,
		}
	}
	cached = h.aliases.Store(cached)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d file(s) for %q:\n", len(cached), args.Query)
	for _, f := range cached {
		fmt.Fprintf(&sb, "  [%s] %s (%s) %s\n", f.Alias, f.Name, f.MimeType, f.ID)
	}
	return sb.String(), nil
}

func (h *Handler) getFileInfo(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var args struct {
		FileID string `json:"file_id"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	fileID, err := h.aliases.Resolve(args.FileID)
	if err != nil {
		return nil, err
	}

	file, err := h.client.GetFile(ctx, fileID)
	if err != nil {
		return nil, auth.DecorateError("get_file_info", err)
	}
	return map[string]interface{}{
		"id":           file.Id,
		"name":         file.Name,
		"mimeType":     file.MimeType,
		"size":         file.Size,
		"modifiedTime": file.ModifiedTime,
		"webViewLink":  file.WebViewLink,
	}, nil
}

// GetResources returns the available Drive resources
func (h *Handler) GetResources() []server.Resource {
	return []server.Resource{}
}

// HandleResourceCall handles a resource call for the Drive service
func (h *Handler) HandleResourceCall(ctx context.Context, uri string) (interface{}, error) {
	return nil, fmt.Errorf("no resources available for drive")
}
