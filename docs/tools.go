package docs

import (
	"context"
	"encoding/json"
	"fmt"

	"go.ngs.io/gws-mcp-advanced/auth"
	"go.ngs.io/gws-mcp-advanced/drive"
	"go.ngs.io/gws-mcp-advanced/server"
	"google.golang.org/api/docs/v1"
)

// Handler implements the ServiceHandler interface for Docs
type Handler struct {
	client    ClientInterface
	converter *MarkdownConverter
	aliases   *drive.AliasCache
}

// NewHandler creates a new Docs handler. The alias cache may be nil;
// document references are then used as-is.
func NewHandler(client ClientInterface, aliases *drive.AliasCache) *Handler {
	return &Handler{
		client:    client,
		converter: NewMarkdownConverter(),
		aliases:   aliases,
	}
}

// GetTools returns the available Docs tools
func (h *Handler) GetTools() []server.Tool {
	return []server.Tool{
		{
			Name:        "insert_markdown",
			Description: "Insert Markdown into a Google Doc as native Docs structure (headings, lists, tables, styles)",
			InputSchema: server.InputSchema{
				Type: "object",
				Properties: map[string]server.Property{
					"document_id": {
						Type:        "string",
						Description: "Document ID, or a single-letter alias (A-Z) from a previous search",
					},
					"markdown_text": {
						Type:        "string",
						Description: "Markdown content to insert",
					},
					"index": {
						Type:        "number",
						Description: "Insertion index in the document body (1-based, default 1)",
					},
				},
				Required: []string{"document_id", "markdown_text"},
			},
		},
		{
			Name:        "create_doc",
			Description: "Create a new Google Doc, optionally populating it from Markdown in the same batch",
			InputSchema: server.InputSchema{
				Type: "object",
				Properties: map[string]server.Property{
					"title": {
						Type:        "string",
						Description: "Document title (falls back to YAML front matter when empty)",
					},
					"content": {
						Type:        "string",
						Description: "Initial document content",
					},
					"parse_markdown": {
						Type:        "boolean",
						Description: "Convert content from Markdown (default true); otherwise insert as plain text",
					},
				},
				Required: []string{"title"},
			},
		},
		{
			Name:        "batch_update_doc",
			Description: "Apply multiple document operations in one atomic batch. Operations is a JSON-encoded array of descriptors with a 'type' field: insert_text, delete_range, replace_text, format_text, insert_table, insert_page_break, insert_markdown",
			InputSchema: server.InputSchema{
				Type: "object",
				Properties: map[string]server.Property{
					"document_id": {
						Type:        "string",
						Description: "Document ID or search alias",
					},
					"operations": {
						Type:        "string",
						Description: `JSON array of operation descriptors, e.g. [{"type":"insert_markdown","index":1,"markdown_text":"# Hi"}]`,
					},
				},
				Required: []string{"document_id", "operations"},
			},
		},
		{
			Name:        "get_doc",
			Description: "Get a document's title and plain text content",
			InputSchema: server.InputSchema{
				Type: "object",
				Properties: map[string]server.Property{
					"document_id": {
						Type:        "string",
						Description: "Document ID or search alias",
					},
				},
				Required: []string{"document_id"},
			},
		},
		{
			Name:        "update_doc_headers_footers",
			Description: "Replace the content of a document's header or footer, creating the section when missing",
			InputSchema: server.InputSchema{
				Type: "object",
				Properties: map[string]server.Property{
					"document_id": {
						Type:        "string",
						Description: "Document ID or search alias",
					},
					"section_type": {
						Type:        "string",
						Description: "Section to update",
						Enum:        []string{"header", "footer"},
					},
					"content": {
						Type:        "string",
						Description: "Text content for the section; empty clears it",
					},
					"header_footer_type": {
						Type:        "string",
						Description: "Which header/footer to update (default DEFAULT)",
						Enum:        []string{"DEFAULT", "FIRST_PAGE_ONLY", "EVEN_PAGE"},
					},
				},
				Required: []string{"document_id", "section_type", "content"},
			},
		},
		{
			Name:        "find_and_replace_doc",
			Description: "Find and replace text throughout a document",
			InputSchema: server.InputSchema{
				Type: "object",
				Properties: map[string]server.Property{
					"document_id": {
						Type:        "string",
						Description: "Document ID or search alias",
					},
					"find_text": {
						Type:        "string",
						Description: "Text to search for",
					},
					"replace_text": {
						Type:        "string",
						Description: "Replacement text",
					},
					"match_case": {
						Type:        "boolean",
						Description: "Match case exactly (default false)",
					},
				},
				Required: []string{"document_id", "find_text", "replace_text"},
			},
		},
	}
}

// HandleToolCall handles a tool call for the Docs service
func (h *Handler) HandleToolCall(ctx context.Context, name string, arguments json.RawMessage) (interface{}, error) {
	switch name {
	case "insert_markdown":
		return h.insertMarkdown(ctx, arguments)
	case "create_doc":
		return h.createDoc(ctx, arguments)
	case "batch_update_doc":
		return h.batchUpdateDoc(ctx, arguments)
	case "get_doc":
		return h.getDoc(ctx, arguments)
	case "update_doc_headers_footers":
		return h.updateHeadersFooters(ctx, arguments)
	case "find_and_replace_doc":
		return h.findAndReplace(ctx, arguments)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

func (h *Handler) insertMarkdown(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var args struct {
		DocumentID   string `json:"document_id"`
		MarkdownText string `json:"markdown_text"`
		Index        int64  `json:"index"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	documentID, err := h.resolveDocumentID(args.DocumentID)
	if err != nil {
		return nil, err
	}

	requests, err := h.converter.Convert(args.MarkdownText, normalizeIndex(args.Index))
	if err != nil {
		return nil, err
	}
	if len(requests) == 0 {
		return fmt.Sprintf("Nothing to insert into document %s (empty markdown).", documentID), nil
	}

	if _, err := h.client.BatchUpdate(ctx, documentID, requests); err != nil {
		return nil, auth.DecorateError("insert_markdown", err)
	}
	return fmt.Sprintf("Inserted markdown (%d operations) into document %s. Link: %s",
		len(requests), documentID, documentLink(documentID)), nil
}

func (h *Handler) createDoc(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var args struct {
		Title         string `json:"title"`
		Content       string `json:"content"`
		ParseMarkdown *bool  `json:"parse_markdown"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	parseMarkdown := args.ParseMarkdown == nil || *args.ParseMarkdown

	// The whole document body must go out as one batchUpdate: bullet
	// creation strips the nesting TABs, and the index-repair pass is only
	// valid when creation and content land in the same batch.
	var requests []*docs.Request
	title := args.Title
	if args.Content != "" {
		if parseMarkdown {
			converted, metadata, err := h.converter.ConvertWithMetadata(args.Content, 1)
			if err != nil {
				return nil, err
			}
			requests = converted
			if title == "" {
				if t, ok := metadata["title"].(string); ok {
					title = t
				}
			}
		} else {
			requests = []*docs.Request{{
				InsertText: &docs.InsertTextRequest{
					Location: &docs.Location{Index: 1},
					Text:     args.Content,
				},
			}}
		}
	}
	if title == "" {
		title = "Untitled document"
	}

	doc, err := h.client.CreateDocument(ctx, title)
	if err != nil {
		return nil, auth.DecorateError("create_doc", err)
	}
	if len(requests) > 0 {
		if _, err := h.client.BatchUpdate(ctx, doc.DocumentId, requests); err != nil {
			return nil, auth.DecorateError("create_doc", err)
		}
	}
	return fmt.Sprintf("Created Google Doc '%s' (ID: %s). Link: %s",
		title, doc.DocumentId, documentLink(doc.DocumentId)), nil
}

func (h *Handler) batchUpdateDoc(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var args struct {
		DocumentID string `json:"document_id"`
		Operations string `json:"operations"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	documentID, err := h.resolveDocumentID(args.DocumentID)
	if err != nil {
		return nil, err
	}

	requests, err := decodeBatchOperations(args.Operations, h.converter)
	if err != nil {
		return nil, err
	}

	response, err := h.client.BatchUpdate(ctx, documentID, requests)
	if err != nil {
		return nil, auth.DecorateError("batch_update_doc", err)
	}
	return fmt.Sprintf("Applied %d operations to document %s. API replies: %d. Link: %s",
		len(requests), documentID, len(response.Replies), documentLink(documentID)), nil
}

func (h *Handler) getDoc(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var args struct {
		DocumentID string `json:"document_id"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	documentID, err := h.resolveDocumentID(args.DocumentID)
	if err != nil {
		return nil, err
	}

	doc, err := h.client.GetDocument(ctx, documentID)
	if err != nil {
		return nil, auth.DecorateError("get_doc", err)
	}
	return map[string]interface{}{
		"documentId": doc.DocumentId,
		"title":      doc.Title,
		"content":    DocumentText(doc),
	}, nil
}

func (h *Handler) updateHeadersFooters(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var args struct {
		DocumentID       string `json:"document_id"`
		SectionType      string `json:"section_type"`
		Content          string `json:"content"`
		HeaderFooterType string `json:"header_footer_type"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if args.SectionType != "header" && args.SectionType != "footer" {
		return nil, fmt.Errorf("section_type must be 'header' or 'footer', got %q", args.SectionType)
	}
	if args.HeaderFooterType == "" {
		args.HeaderFooterType = "DEFAULT"
	}
	switch args.HeaderFooterType {
	case "DEFAULT", "FIRST_PAGE_ONLY", "EVEN_PAGE":
	default:
		return nil, fmt.Errorf("header_footer_type must be DEFAULT, FIRST_PAGE_ONLY, or EVEN_PAGE, got %q", args.HeaderFooterType)
	}

	documentID, err := h.resolveDocumentID(args.DocumentID)
	if err != nil {
		return nil, err
	}

	doc, err := h.client.GetDocument(ctx, documentID)
	if err != nil {
		return nil, auth.DecorateError("update_doc_headers_footers", err)
	}

	segmentID := headerFooterID(doc, args.SectionType, args.HeaderFooterType)
	if segmentID == "" {
		segmentID, err = h.createHeaderFooter(ctx, documentID, args.SectionType, args.HeaderFooterType)
		if err != nil {
			return nil, err
		}
		// Re-read so the new section's content range is known.
		doc, err = h.client.GetDocument(ctx, documentID)
		if err != nil {
			return nil, auth.DecorateError("update_doc_headers_footers", err)
		}
	}

	requests := headerFooterContentRequests(doc, args.SectionType, segmentID, args.Content)
	if len(requests) == 0 {
		return fmt.Sprintf("The %s of document %s is already empty.", args.SectionType, documentID), nil
	}
	if _, err := h.client.BatchUpdate(ctx, documentID, requests); err != nil {
		return nil, auth.DecorateError("update_doc_headers_footers", err)
	}
	return fmt.Sprintf("Updated %s (%s) of document %s. Link: %s",
		args.SectionType, args.HeaderFooterType, documentID, documentLink(documentID)), nil
}

// headerFooterID looks up the segment ID the document style records for
// the requested section, empty when the section does not exist yet.
func headerFooterID(doc *docs.Document, sectionType, headerFooterType string) string {
	style := doc.DocumentStyle
	if style == nil {
		return ""
	}
	if sectionType == "header" {
		switch headerFooterType {
		case "FIRST_PAGE_ONLY":
			return style.FirstPageHeaderId
		case "EVEN_PAGE":
			return style.EvenPageHeaderId
		default:
			return style.DefaultHeaderId
		}
	}
	switch headerFooterType {
	case "FIRST_PAGE_ONLY":
		return style.FirstPageFooterId
	case "EVEN_PAGE":
		return style.EvenPageFooterId
	default:
		return style.DefaultFooterId
	}
}

// createHeaderFooter makes the requested section exist. The API can only
// create DEFAULT sections directly; first-page and even-page sections
// appear when the matching document style flag is switched on.
func (h *Handler) createHeaderFooter(ctx context.Context, documentID, sectionType, headerFooterType string) (string, error) {
	if headerFooterType != "DEFAULT" {
		style := &docs.DocumentStyle{}
		var fields string
		if headerFooterType == "FIRST_PAGE_ONLY" {
			style.UseFirstPageHeaderFooter = true
			fields = "useFirstPageHeaderFooter"
		} else {
			style.UseEvenPageHeaderFooter = true
			fields = "useEvenPageHeaderFooter"
		}
		if _, err := h.client.BatchUpdate(ctx, documentID, []*docs.Request{{
			UpdateDocumentStyle: &docs.UpdateDocumentStyleRequest{
				DocumentStyle: style,
				Fields:        fields,
			},
		}}); err != nil {
			return "", auth.DecorateError("update_doc_headers_footers", err)
		}
		doc, err := h.client.GetDocument(ctx, documentID)
		if err != nil {
			return "", auth.DecorateError("update_doc_headers_footers", err)
		}
		id := headerFooterID(doc, sectionType, headerFooterType)
		if id == "" {
			return "", fmt.Errorf("document %s has no %s %s section after enabling it", documentID, headerFooterType, sectionType)
		}
		return id, nil
	}

	var request *docs.Request
	if sectionType == "header" {
		request = &docs.Request{CreateHeader: &docs.CreateHeaderRequest{Type: "DEFAULT"}}
	} else {
		request = &docs.Request{CreateFooter: &docs.CreateFooterRequest{Type: "DEFAULT"}}
	}
	response, err := h.client.BatchUpdate(ctx, documentID, []*docs.Request{request})
	if err != nil {
		return "", auth.DecorateError("update_doc_headers_footers", err)
	}
	if len(response.Replies) > 0 {
		if reply := response.Replies[0]; reply.CreateHeader != nil {
			return reply.CreateHeader.HeaderId, nil
		} else if reply.CreateFooter != nil {
			return reply.CreateFooter.FooterId, nil
		}
	}
	return "", fmt.Errorf("create %s returned no section ID", sectionType)
}

// headerFooterContentRequests clears the section's existing text and
// inserts the replacement. Header and footer segments have their own
// 0-based index space addressed via the segment ID; the final newline of
// a segment cannot be deleted.
func headerFooterContentRequests(doc *docs.Document, sectionType, segmentID, content string) []*docs.Request {
	end := segmentEndIndex(doc, sectionType, segmentID)
	var requests []*docs.Request
	if end > 1 {
		requests = append(requests, &docs.Request{
			DeleteContentRange: &docs.DeleteContentRangeRequest{
				Range: &docs.Range{
					SegmentId:  segmentID,
					StartIndex: 0,
					EndIndex:   end - 1,
					// A zero start index must survive omitempty.
					ForceSendFields: []string{"StartIndex"},
				},
			},
		})
	}
	if content != "" {
		requests = append(requests, &docs.Request{
			InsertText: &docs.InsertTextRequest{
				Location: &docs.Location{
					SegmentId:       segmentID,
					Index:           0,
					ForceSendFields: []string{"Index"},
				},
				Text: content,
			},
		})
	}
	return requests
}

func segmentEndIndex(doc *docs.Document, sectionType, segmentID string) int64 {
	var content []*docs.StructuralElement
	if sectionType == "header" {
		if header, ok := doc.Headers[segmentID]; ok {
			content = header.Content
		}
	} else {
		if footer, ok := doc.Footers[segmentID]; ok {
			content = footer.Content
		}
	}
	if len(content) == 0 {
		return 0
	}
	return content[len(content)-1].EndIndex
}

func (h *Handler) findAndReplace(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var args struct {
		DocumentID  string `json:"document_id"`
		FindText    string `json:"find_text"`
		ReplaceText string `json:"replace_text"`
		MatchCase   bool   `json:"match_case"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if args.FindText == "" {
		return nil, fmt.Errorf("find_text is required")
	}

	documentID, err := h.resolveDocumentID(args.DocumentID)
	if err != nil {
		return nil, err
	}

	response, err := h.client.BatchUpdate(ctx, documentID, []*docs.Request{{
		ReplaceAllText: &docs.ReplaceAllTextRequest{
			ContainsText: &docs.SubstringMatchCriteria{
				Text:      args.FindText,
				MatchCase: args.MatchCase,
			},
			ReplaceText: args.ReplaceText,
		},
	}})
	if err != nil {
		return nil, auth.DecorateError("find_and_replace_doc", err)
	}

	var replaced int64
	if len(response.Replies) > 0 && response.Replies[0].ReplaceAllText != nil {
		replaced = response.Replies[0].ReplaceAllText.OccurrencesChanged
	}
	return fmt.Sprintf("Replaced %d occurrence(s) of %q in document %s. Link: %s",
		replaced, args.FindText, documentID, documentLink(documentID)), nil
}

// resolveDocumentID maps a single-letter search alias onto a document ID
// via the drive search cache; anything else passes through unchanged.
func (h *Handler) resolveDocumentID(ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("document_id is required")
	}
	if h.aliases == nil {
		return ref, nil
	}
	return h.aliases.Resolve(ref)
}

func documentLink(documentID string) string {
	return "https://docs.google.com/document/d/" + documentID + "/edit"
}

// GetResources returns the available Docs resources
func (h *Handler) GetResources() []server.Resource {
	return []server.Resource{}
}

// HandleResourceCall handles a resource call for the Docs service
func (h *Handler) HandleResourceCall(ctx context.Context, uri string) (interface{}, error) {
	return nil, fmt.Errorf("no resources available for docs")
}
