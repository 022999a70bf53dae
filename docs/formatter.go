package docs

import (
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/api/docs/v1"
)

// batchOperation is one descriptor of a batch_update_doc call. The tool
// accepts its operations as a JSON-encoded string because the Vertex AI
// tool schema forbids union types containing lists; the flat descriptor
// shape keeps every variant expressible with plain fields.
type batchOperation struct {
	Type string `json:"type"`

	Index      int64 `json:"index,omitempty"`
	StartIndex int64 `json:"start_index,omitempty"`
	EndIndex   int64 `json:"end_index,omitempty"`

	Text         string `json:"text,omitempty"`
	MarkdownText string `json:"markdown_text,omitempty"`

	Rows    int64 `json:"rows,omitempty"`
	Columns int64 `json:"columns,omitempty"`

	Bold       *bool   `json:"bold,omitempty"`
	Italic     *bool   `json:"italic,omitempty"`
	Underline  *bool   `json:"underline,omitempty"`
	FontSize   float64 `json:"font_size,omitempty"`
	FontFamily string  `json:"font_family,omitempty"`
}

// decodeBatchOperations translates the JSON descriptor list into Docs API
// requests, expanding insert_markdown descriptors through the converter.
func decodeBatchOperations(operations string, converter *MarkdownConverter) ([]*docs.Request, error) {
	var ops []batchOperation
	if err := json.Unmarshal([]byte(operations), &ops); err != nil {
		return nil, fmt.Errorf("invalid operations JSON: %w", err)
	}
	if len(ops) == 0 {
		return nil, fmt.Errorf("operations list is empty")
	}

	var requests []*docs.Request
	for i, op := range ops {
		switch op.Type {
		case "insert_text":
			if op.Text == "" {
				return nil, fmt.Errorf("operation %d: insert_text requires text", i)
			}
			requests = append(requests, &docs.Request{
				InsertText: &docs.InsertTextRequest{
					Location: &docs.Location{Index: normalizeIndex(op.Index)},
					Text:     op.Text,
				},
			})

		case "delete_range":
			if op.EndIndex <= op.StartIndex {
				return nil, fmt.Errorf("operation %d: delete_range requires start_index < end_index", i)
			}
			requests = append(requests, &docs.Request{
				DeleteContentRange: &docs.DeleteContentRangeRequest{
					Range: &docs.Range{
						StartIndex: op.StartIndex,
						EndIndex:   op.EndIndex,
					},
				},
			})

		case "replace_text":
			if op.EndIndex <= op.StartIndex {
				return nil, fmt.Errorf("operation %d: replace_text requires start_index < end_index", i)
			}
			requests = append(requests,
				&docs.Request{
					DeleteContentRange: &docs.DeleteContentRangeRequest{
						Range: &docs.Range{
							StartIndex: op.StartIndex,
							EndIndex:   op.EndIndex,
						},
					},
				},
				&docs.Request{
					InsertText: &docs.InsertTextRequest{
						Location: &docs.Location{Index: op.StartIndex},
						Text:     op.Text,
					},
				})

		case "format_text":
			req, err := formatTextRequest(op)
			if err != nil {
				return nil, fmt.Errorf("operation %d: %w", i, err)
			}
			requests = append(requests, req)

		case "insert_table":
			if op.Rows < 1 || op.Columns < 1 {
				return nil, fmt.Errorf("operation %d: insert_table requires positive rows and columns", i)
			}
			requests = append(requests, &docs.Request{
				InsertTable: &docs.InsertTableRequest{
					Location: &docs.Location{Index: normalizeIndex(op.Index)},
					Rows:     op.Rows,
					Columns:  op.Columns,
				},
			})

		case "insert_page_break":
			requests = append(requests, &docs.Request{
				InsertPageBreak: &docs.InsertPageBreakRequest{
					Location: &docs.Location{Index: normalizeIndex(op.Index)},
				},
			})

		case "insert_markdown":
			if op.MarkdownText == "" {
				return nil, fmt.Errorf("operation %d: insert_markdown requires markdown_text", i)
			}
			converted, err := converter.Convert(op.MarkdownText, normalizeIndex(op.Index))
			if err != nil {
				return nil, fmt.Errorf("operation %d: %w", i, err)
			}
			requests = append(requests, converted...)

		default:
			return nil, fmt.Errorf("operation %d: unknown type %q", i, op.Type)
		}
	}
	return requests, nil
}

func formatTextRequest(op batchOperation) (*docs.Request, error) {
	if op.EndIndex <= op.StartIndex {
		return nil, fmt.Errorf("format_text requires start_index < end_index")
	}

	style := &docs.TextStyle{}
	var fields []string
	if op.Bold != nil {
		style.Bold = *op.Bold
		fields = append(fields, "bold")
	}
	if op.Italic != nil {
		style.Italic = *op.Italic
		fields = append(fields, "italic")
	}
	if op.Underline != nil {
		style.Underline = *op.Underline
		fields = append(fields, "underline")
	}
	if op.FontSize > 0 {
		style.FontSize = &docs.Dimension{Magnitude: op.FontSize, Unit: "PT"}
		fields = append(fields, "fontSize")
	}
	if op.FontFamily != "" {
		style.WeightedFontFamily = &docs.WeightedFontFamily{FontFamily: op.FontFamily}
		fields = append(fields, "weightedFontFamily")
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("format_text requires at least one formatting parameter")
	}

	return &docs.Request{
		UpdateTextStyle: &docs.UpdateTextStyleRequest{
			Range: &docs.Range{
				StartIndex: op.StartIndex,
				EndIndex:   op.EndIndex,
			},
			TextStyle: style,
			Fields:    strings.Join(fields, ","),
		},
	}, nil
}

// normalizeIndex maps the 0 default (and the occasional 0-based caller) to
// the first valid body index.
func normalizeIndex(index int64) int64 {
	if index < 1 {
		return 1
	}
	return index
}
