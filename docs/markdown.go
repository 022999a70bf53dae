package docs

import (
	"fmt"
	"log"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	emoji "github.com/yuin/goldmark-emoji"
	emojiast "github.com/yuin/goldmark-emoji/ast"
	meta "github.com/yuin/goldmark-meta"
	"google.golang.org/api/docs/v1"
)

// Bullet presets understood by the Google Docs API.
const (
	bulletPresetUnordered = "BULLET_DISC_CIRCLE_SQUARE"
	bulletPresetOrdered   = "NUMBERED_DECIMAL_ALPHA_ROMAN"
)

const codeFontFamily = "Consolas"

// Blockquote styling constants.
const (
	blockquoteIndentPT        = 36.0
	blockquoteBorderWidthPT   = 3.0
	blockquoteBorderPaddingPT = 12.0
)

// Horizontal rule styling constants. Google Docs has no native rule
// element; an empty paragraph with a bottom border stands in for one.
const (
	hrBorderWidthPT  = 1.0
	hrPaddingBelowPT = 6.0
)

// Task list checkbox characters (Unicode ballot box symbols). The task
// list parser consumes the "[x] " marker including its trailing space, so
// both replacements carry one.
const (
	checkboxChecked   = "☑ "
	checkboxUnchecked = "☐ "
)

// tableMaxPadding caps how many missing cells a ragged table row may be
// padded with before the table is rejected as malformed.
const tableMaxPadding = 16

// MarkdownConverter converts Markdown text into Google Docs batchUpdate
// requests. The conversion is a pure function of its inputs: no I/O, no
// clock, no randomness. Per-call state lives in a conversion value, so a
// single MarkdownConverter is safe for concurrent use.
//
// Text is buffered during the token walk and inserted in one operation,
// with styles applied afterwards as ranges. Inserting fragment by fragment
// makes the Docs service inherit styles from adjacent characters and bleed
// them into following fragments; a single insert leaves no inheritance
// path between styled ranges.
type MarkdownConverter struct {
	md goldmark.Markdown
}

// NewMarkdownConverter creates a converter with the CommonMark parser plus
// the GFM table, strikethrough, and task list extensions. Emoji shortcodes
// are resolved to Unicode, and YAML front matter is captured as metadata
// rather than rendered into the document body.
func NewMarkdownConverter() *MarkdownConverter {
	return &MarkdownConverter{
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.Table,
				extension.Strikethrough,
				extension.TaskList,
				emoji.Emoji,
				meta.Meta,
			),
		),
	}
}

// Convert translates markdown into an ordered list of batchUpdate requests
// that reproduce it as native Docs structure starting at startIndex
// (1-based). The returned list is self-consistent: every index is valid at
// the moment the Docs service applies its request, given the list order.
// Either a complete list or an error is returned, never a partial result.
func (mc *MarkdownConverter) Convert(markdown string, startIndex int64) ([]*docs.Request, error) {
	requests, _, err := mc.convert(markdown, startIndex)
	return requests, err
}

// ConvertWithMetadata is Convert plus the document's YAML front matter,
// when present.
func (mc *MarkdownConverter) ConvertWithMetadata(markdown string, startIndex int64) ([]*docs.Request, map[string]interface{}, error) {
	return mc.convert(markdown, startIndex)
}

func (mc *MarkdownConverter) convert(markdown string, startIndex int64) ([]*docs.Request, map[string]interface{}, error) {
	if startIndex < 1 {
		startIndex = 1
	}

	source := []byte(markdown)
	pctx := parser.NewContext()
	root := mc.md.Parser().Parse(text.NewReader(source), parser.WithContext(pctx))

	st := &conversion{
		source: source,
		start:  startIndex,
		cursor: startIndex,
	}
	if err := ast.Walk(root, st.walk); err != nil {
		return nil, nil, err
	}
	if err := st.checkBalanced(); err != nil {
		return nil, nil, err
	}

	return st.assemble(), meta.Get(pctx), nil
}

// conversion holds the state of one Convert call: the running cursor, the
// text buffer with its style-range log, the block state machine stacks,
// and the block-level requests collected in walk order.
type conversion struct {
	source []byte

	start  int64 // caller's insertion index
	cursor int64 // next document index, includes table and image consumption

	buf      strings.Builder
	bufRunes int // buffer length in runes

	styleStack  []styleFrame
	styleRanges []styleRange

	// Block-level operations (paragraph styles, bullets, tables, cell
	// texts, images) in walk order. The assembler groups them.
	requests []*docs.Request

	// List planner state.
	listKinds     []bool // nesting stack; true marks an ordered list
	listStart     int64  // cursor at the top-level list's first item
	listOrdered   bool
	listItemDepth int
	itemTabsDone  bool

	// Set when a top-level list closes; the next block consumes it by
	// emitting deleteParagraphBullets so bullet style does not bleed.
	justExitedList bool

	blockquoteDepth int

	paragraphStart    int64
	paragraphStartBuf int

	headingStart int64

	table *tableBuffer
}

func (st *conversion) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Document:
		return ast.WalkContinue, nil

	case *ast.Heading:
		if entering {
			st.headingStart = st.cursor
		} else {
			st.closeHeading(node.Level)
		}
		return ast.WalkContinue, nil

	case *ast.Paragraph:
		if entering {
			st.openParagraph()
		} else {
			st.closeParagraph()
		}
		return ast.WalkContinue, nil

	case *ast.TextBlock:
		// Tight list items carry a TextBlock instead of a Paragraph.
		if entering {
			st.openParagraph()
		} else {
			st.closeParagraph()
		}
		return ast.WalkContinue, nil

	case *ast.List:
		if entering {
			st.openList(node.IsOrdered())
		} else {
			st.closeList()
		}
		return ast.WalkContinue, nil

	case *ast.ListItem:
		if entering {
			st.listItemDepth++
			st.itemTabsDone = false
		} else {
			st.listItemDepth--
		}
		return ast.WalkContinue, nil

	case *ast.Blockquote:
		if entering {
			st.blockquoteDepth++
		} else {
			st.blockquoteDepth--
		}
		return ast.WalkContinue, nil

	case *ast.Text:
		if entering {
			st.appendText(string(node.Segment.Value(st.source)))
			if node.SoftLineBreak() {
				// Soft line breaks become spaces in Google Docs.
				st.appendText(" ")
			}
			if node.HardLineBreak() {
				st.appendText("\n")
			}
		}
		return ast.WalkContinue, nil

	case *ast.String:
		if entering {
			st.appendText(string(node.Value))
		}
		return ast.WalkContinue, nil

	case *ast.Emphasis:
		if entering {
			if node.Level >= 2 {
				st.pushStyle(&docs.TextStyle{Bold: true}, "bold")
			} else {
				st.pushStyle(&docs.TextStyle{Italic: true}, "italic")
			}
		} else {
			st.popStyle()
		}
		return ast.WalkContinue, nil

	case *extast.Strikethrough:
		if entering {
			st.pushStyle(&docs.TextStyle{Strikethrough: true}, "strikethrough")
		} else {
			st.popStyle()
		}
		return ast.WalkContinue, nil

	case *ast.Link:
		if entering {
			st.pushStyle(linkTextStyle(string(node.Destination)), "link", "underline", "foregroundColor")
		} else {
			st.popStyle()
		}
		return ast.WalkContinue, nil

	case *ast.AutoLink:
		if entering {
			st.handleAutoLink(node)
		}
		return ast.WalkSkipChildren, nil

	case *ast.CodeSpan:
		if entering {
			st.handleCodeSpan(node)
		}
		return ast.WalkSkipChildren, nil

	case *ast.FencedCodeBlock:
		if entering {
			st.handleCodeBlock(node.Lines())
		}
		return ast.WalkSkipChildren, nil

	case *ast.CodeBlock:
		if entering {
			st.handleCodeBlock(node.Lines())
		}
		return ast.WalkSkipChildren, nil

	case *ast.ThematicBreak:
		if entering {
			st.handleHorizontalRule()
		}
		return ast.WalkContinue, nil

	case *ast.Image:
		if entering {
			st.handleImage(node)
		}
		// Children are the alt text; insertInlineImage has no use for it.
		return ast.WalkSkipChildren, nil

	case *extast.Table:
		if entering {
			st.table = &tableBuffer{}
		} else {
			if err := st.closeTable(); err != nil {
				return ast.WalkStop, err
			}
		}
		return ast.WalkContinue, nil

	case *extast.TableHeader:
		if st.table != nil {
			if entering {
				st.table.openRow(true)
			} else {
				st.table.closeRow()
			}
		}
		return ast.WalkContinue, nil

	case *extast.TableRow:
		if st.table != nil {
			if entering {
				st.table.openRow(false)
			} else {
				st.table.closeRow()
			}
		}
		return ast.WalkContinue, nil

	case *extast.TableCell:
		if st.table != nil {
			if entering {
				st.table.openCell()
			} else {
				st.table.closeCell()
			}
		}
		return ast.WalkContinue, nil

	case *extast.TaskCheckBox:
		if entering {
			if node.IsChecked {
				st.appendText(checkboxChecked)
			} else {
				st.appendText(checkboxUnchecked)
			}
		}
		return ast.WalkContinue, nil

	case *emojiast.Emoji:
		if entering {
			st.handleEmoji(node)
		}
		return ast.WalkSkipChildren, nil

	case *ast.RawHTML:
		// Raw inline HTML is preserved as plain text.
		if entering {
			for i := 0; i < node.Segments.Len(); i++ {
				seg := node.Segments.At(i)
				st.appendText(string(seg.Value(st.source)))
			}
		}
		return ast.WalkSkipChildren, nil

	case *ast.HTMLBlock:
		return ast.WalkSkipChildren, nil

	default:
		if entering {
			log.Printf("[DEBUG] markdown: unhandled token %s", n.Kind())
		}
		return ast.WalkContinue, nil
	}
}

// appendText buffers text and advances the cursor. Inside a table cell the
// text goes to the cell buffer instead and the cursor stays put; the table
// planner spends those indices on table close. The first append inside a
// nested list item is prefixed with the TABs the Docs API counts (and then
// removes) to infer the nesting level.
func (st *conversion) appendText(s string) {
	if s == "" {
		return
	}
	if st.table != nil && st.table.inCell {
		st.table.cell.WriteString(s)
		return
	}
	if st.listItemDepth > 0 && !st.itemTabsDone {
		if depth := len(st.listKinds) - 1; depth > 0 {
			st.buf.WriteString(strings.Repeat("\t", depth))
			st.bufRunes += depth
			st.cursor += int64(depth)
		}
		st.itemTabsDone = true
	}
	n := utf8.RuneCountInString(s)
	st.buf.WriteString(s)
	st.bufRunes += n
	st.cursor += int64(n)
}

func (st *conversion) openParagraph() {
	st.paragraphStart = st.cursor
	st.paragraphStartBuf = st.bufRunes
}

// closeParagraph terminates the paragraph with a newline, clears inherited
// bullet formatting when the paragraph follows a list, and applies
// blockquote styling when inside one. The styled ranges include the
// trailing newline so they cover the whole paragraph.
func (st *conversion) closeParagraph() {
	st.appendText("\n")
	if len(st.listKinds) == 0 {
		st.deleteBulletsIfNeeded(st.paragraphStart, st.cursor)
	}
	if st.blockquoteDepth > 0 {
		st.applyBlockquoteStyle()
	}
}

func (st *conversion) closeHeading(level int) {
	if level < 1 {
		level = 1
	} else if level > 6 {
		level = 6
	}
	style := &docs.ParagraphStyle{NamedStyleType: fmt.Sprintf("HEADING_%d", level)}
	start := st.headingStart
	if st.cursor == start {
		// Empty heading: style the bare paragraph mark.
		st.appendText("\n")
		st.emitParagraphStyle(start, st.cursor, style, "namedStyleType")
		st.deleteBulletsIfNeeded(start, st.cursor)
		return
	}
	st.emitParagraphStyle(start, st.cursor, style, "namedStyleType")
	st.appendText("\n")
	st.deleteBulletsIfNeeded(start, st.cursor)
}

func (st *conversion) openList(ordered bool) {
	if len(st.listKinds) == 0 {
		st.listStart = st.cursor
		st.listOrdered = ordered
	}
	st.listKinds = append(st.listKinds, ordered)
	st.justExitedList = false
}

// closeList pops one nesting level. When the stack empties, one
// createParagraphBullets covers the entire top-level list: the Docs API
// needs all paragraphs of a list in a single request to interpret the
// TAB-based nesting hierarchy.
func (st *conversion) closeList() {
	if len(st.listKinds) == 0 {
		log.Printf("[WARNING] markdown: list close without matching open")
		return
	}
	st.listKinds = st.listKinds[:len(st.listKinds)-1]
	if len(st.listKinds) > 0 {
		return
	}
	if st.cursor > st.listStart {
		preset := bulletPresetUnordered
		if st.listOrdered {
			preset = bulletPresetOrdered
		}
		st.requests = append(st.requests, &docs.Request{
			CreateParagraphBullets: &docs.CreateParagraphBulletsRequest{
				Range: &docs.Range{
					StartIndex: st.listStart,
					EndIndex:   st.cursor,
				},
				BulletPreset: preset,
			},
		})
	}
	st.justExitedList = true
}

// deleteBulletsIfNeeded clears bullet formatting inherited from a list
// that just closed. Without it Google Docs propagates the previous
// paragraph's bullet style into the new block.
func (st *conversion) deleteBulletsIfNeeded(start, end int64) {
	if !st.justExitedList {
		return
	}
	st.requests = append(st.requests, &docs.Request{
		DeleteParagraphBullets: &docs.DeleteParagraphBulletsRequest{
			Range: &docs.Range{
				StartIndex: start,
				EndIndex:   end,
			},
		},
	})
	st.justExitedList = false
}

// applyBlockquoteStyle renders the paragraph as a quote: an indent margin
// per nesting level, a gray left border, and italic text. Docs has no
// semantic blockquote element; this simulation is the closest available.
func (st *conversion) applyBlockquoteStyle() {
	margin := blockquoteIndentPT * float64(st.blockquoteDepth)
	st.emitParagraphStyle(st.paragraphStart, st.cursor, &docs.ParagraphStyle{
		IndentStart:     &docs.Dimension{Magnitude: margin, Unit: "PT"},
		IndentFirstLine: &docs.Dimension{Magnitude: margin, Unit: "PT"},
		BorderLeft: &docs.ParagraphBorder{
			Color:     optionalColor(0.7, 0.7, 0.7),
			Width:     &docs.Dimension{Magnitude: blockquoteBorderWidthPT, Unit: "PT"},
			Padding:   &docs.Dimension{Magnitude: blockquoteBorderPaddingPT, Unit: "PT"},
			DashStyle: "SOLID",
		},
	}, "indentStart,indentFirstLine,borderLeft")
	st.recordRange(st.paragraphStartBuf, st.bufRunes, &docs.TextStyle{Italic: true}, "italic")
}

func (st *conversion) handleHorizontalRule() {
	start := st.cursor
	st.deleteBulletsIfNeeded(start, start+1)
	st.appendText("\n")
	st.emitParagraphStyle(start, st.cursor, &docs.ParagraphStyle{
		BorderBottom: &docs.ParagraphBorder{
			Color:     optionalColor(0.7, 0.7, 0.7),
			Width:     &docs.Dimension{Magnitude: hrBorderWidthPT, Unit: "PT"},
			Padding:   &docs.Dimension{Magnitude: hrPaddingBelowPT, Unit: "PT"},
			DashStyle: "SOLID",
		},
	}, "borderBottom")
}

// handleCodeBlock buffers the block's raw lines, styles them with the
// monospace font plus paragraph shading, and terminates the block with a
// separator newline.
func (st *conversion) handleCodeBlock(lines *text.Segments) {
	var sb strings.Builder
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(st.source))
	}
	content := sb.String()
	if content == "" {
		return
	}

	startCursor := st.cursor
	startBuf := st.bufRunes
	st.appendText(content)

	st.recordRange(startBuf, st.bufRunes, codeTextStyle(), "weightedFontFamily")
	st.emitParagraphStyle(startCursor, st.cursor, &docs.ParagraphStyle{
		Shading: &docs.Shading{BackgroundColor: optionalColor(0.96, 0.96, 0.96)},
	}, "shading.backgroundColor")
	st.deleteBulletsIfNeeded(startCursor, st.cursor)

	st.appendText("\n")
}

func (st *conversion) handleCodeSpan(node *ast.CodeSpan) {
	startBuf := st.bufRunes
	inCell := st.table != nil && st.table.inCell
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		if t, ok := child.(*ast.Text); ok {
			st.appendText(string(t.Segment.Value(st.source)))
		}
	}
	if !inCell {
		st.recordRange(startBuf, st.bufRunes, codeTextStyle(), "weightedFontFamily", "backgroundColor")
	}
}

func (st *conversion) handleAutoLink(node *ast.AutoLink) {
	label := string(node.Label(st.source))
	target := string(node.URL(st.source))
	startBuf := st.bufRunes
	inCell := st.table != nil && st.table.inCell
	st.appendText(label)
	if !inCell {
		st.recordRange(startBuf, st.bufRunes, linkTextStyle(target), "link", "underline", "foregroundColor")
	}
}

// handleImage emits insertInlineImage at the cursor. An inline image
// occupies exactly one index in the document. Reachability of the URI is
// the Docs service's concern, not the converter's.
func (st *conversion) handleImage(node *ast.Image) {
	if st.table != nil && st.table.inCell {
		// Cells hold plain text only.
		return
	}
	src := string(node.Destination)
	if !validImageURI(src) {
		log.Printf("[WARNING] markdown: skipping image with unsupported URI %q", src)
		return
	}
	st.requests = append(st.requests, &docs.Request{
		InsertInlineImage: &docs.InsertInlineImageRequest{
			Location: &docs.Location{Index: st.cursor},
			Uri:      src,
		},
	})
	st.cursor++
}

func (st *conversion) handleEmoji(node *emojiast.Emoji) {
	if node.Value != nil && node.Value.IsUnicode() {
		st.appendText(string(node.Value.Unicode))
		return
	}
	st.appendText(":" + string(node.ShortName) + ":")
}

func (st *conversion) emitParagraphStyle(start, end int64, style *docs.ParagraphStyle, fields string) {
	st.requests = append(st.requests, &docs.Request{
		UpdateParagraphStyle: &docs.UpdateParagraphStyleRequest{
			Range: &docs.Range{
				StartIndex: start,
				EndIndex:   end,
			},
			ParagraphStyle: style,
			Fields:         fields,
		},
	})
}

// checkBalanced verifies the end-of-walk invariant: every stack the block
// state machine maintains must be empty again.
func (st *conversion) checkBalanced() error {
	if n := len(st.styleStack); n > 0 {
		return &MalformedMarkdownError{Construct: "inline style", Depth: n}
	}
	if n := len(st.listKinds); n > 0 {
		return &MalformedMarkdownError{Construct: "list", Depth: n}
	}
	if st.blockquoteDepth != 0 {
		return &MalformedMarkdownError{Construct: "blockquote", Depth: st.blockquoteDepth}
	}
	return nil
}

func validImageURI(src string) bool {
	if src == "" {
		return false
	}
	u, err := url.Parse(src)
	return err == nil && u.Scheme != ""
}

func codeTextStyle() *docs.TextStyle {
	return &docs.TextStyle{
		WeightedFontFamily: &docs.WeightedFontFamily{
			FontFamily: codeFontFamily,
			Weight:     400,
		},
		BackgroundColor: optionalColor(0.96, 0.96, 0.96),
	}
}

func linkTextStyle(target string) *docs.TextStyle {
	return &docs.TextStyle{
		Link:            &docs.Link{Url: target},
		Underline:       true,
		ForegroundColor: optionalColor(0, 0, 1),
	}
}

func optionalColor(r, g, b float64) *docs.OptionalColor {
	return &docs.OptionalColor{
		Color: &docs.Color{
			RgbColor: &docs.RgbColor{Red: r, Green: g, Blue: b},
		},
	}
}
