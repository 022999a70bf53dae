package drive

import (
	"context"
	"fmt"

	"go.ngs.io/gws-mcp-advanced/auth"
	"google.golang.org/api/drive/v3"
)

// Client wraps the Google Drive API client
type Client struct {
	service *drive.Service
}

// NewClient creates a new Drive client
func NewClient(ctx context.Context, oauth *auth.OAuthClient) (*Client, error) {
	service, err := drive.NewService(ctx, oauth.GetClientOption())
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return &Client{
		service: service,
	}, nil
}

// Search finds files whose names or contents match the query
func (c *Client) Search(ctx context.Context, query string, pageSize int64) ([]*drive.File, error) {
	if pageSize <= 0 {
		pageSize = 10
	}
	q := fmt.Sprintf("(name contains '%s' or fullText contains '%s') and trashed = false",
		escapeQuery(query), escapeQuery(query))

	list, err := c.service.Files.List().
		Q(q).
		PageSize(pageSize).
		Fields("files(id, name, mimeType, webViewLink, modifiedTime)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to search files: %w", err)
	}
	return list.Files, nil
}

// GetFile fetches a file's metadata
func (c *Client) GetFile(ctx context.Context, fileID string) (*drive.File, error) {
	file, err := c.service.Files.Get(fileID).
		Fields("id, name, mimeType, size, modifiedTime, webViewLink").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return file, nil
}

// escapeQuery escapes single quotes and backslashes for a Drive query
// string literal.
func escapeQuery(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' || s[i] == '\\' {
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
