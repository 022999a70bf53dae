package docs

import (
	"context"
	"fmt"

	"go.ngs.io/gws-mcp-advanced/auth"
	"google.golang.org/api/docs/v1"
)

// Client wraps the Google Docs API client
type Client struct {
	service *docs.Service
}

// ClientInterface defines the Docs operations the tool layer depends on
type ClientInterface interface {
	GetDocument(ctx context.Context, documentID string) (*docs.Document, error)
	CreateDocument(ctx context.Context, title string) (*docs.Document, error)
	BatchUpdate(ctx context.Context, documentID string, requests []*docs.Request) (*docs.BatchUpdateDocumentResponse, error)
}

// NewClient creates a new Docs client
func NewClient(ctx context.Context, oauth *auth.OAuthClient) (*Client, error) {
	service, err := docs.NewService(ctx, oauth.GetClientOption())
	if err != nil {
		return nil, fmt.Errorf("failed to create docs service: %w", err)
	}

	return &Client{
		service: service,
	}, nil
}

// GetDocument gets a document by ID
func (c *Client) GetDocument(ctx context.Context, documentID string) (*docs.Document, error) {
	doc, err := c.service.Documents.Get(documentID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// CreateDocument creates a new document
func (c *Client) CreateDocument(ctx context.Context, title string) (*docs.Document, error) {
	created, err := c.service.Documents.Create(&docs.Document{Title: title}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	return created, nil
}

// BatchUpdate applies an ordered list of update requests to a document
func (c *Client) BatchUpdate(ctx context.Context, documentID string, requests []*docs.Request) (*docs.BatchUpdateDocumentResponse, error) {
	response, err := c.service.Documents.BatchUpdate(documentID, &docs.BatchUpdateDocumentRequest{
		Requests: requests,
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to batch update: %w", err)
	}
	return response, nil
}

// DocumentText extracts the plain text content of a document body
func DocumentText(doc *docs.Document) string {
	if doc.Body == nil {
		return ""
	}
	var sb []byte
	for _, element := range doc.Body.Content {
		if element.Paragraph == nil {
			continue
		}
		for _, elem := range element.Paragraph.Elements {
			if elem.TextRun != nil {
				sb = append(sb, elem.TextRun.Content...)
			}
		}
	}
	return string(sb)
}
