package docs

import (
	"errors"
	"fmt"
)

// ErrMalformedMarkdown is wrapped by MalformedMarkdownError and can be
// matched with errors.Is.
var ErrMalformedMarkdown = errors.New("malformed markdown")

// MalformedMarkdownError reports a token walk that finished with an
// unbalanced style, list, or blockquote stack.
type MalformedMarkdownError struct {
	Construct string
	Depth     int
}

func (e *MalformedMarkdownError) Error() string {
	return fmt.Sprintf("malformed markdown: %d unclosed %s", e.Depth, e.Construct)
}

func (e *MalformedMarkdownError) Unwrap() error { return ErrMalformedMarkdown }

// TableShapeError reports a table row so much narrower than the widest row
// that padding it to shape would exceed the safety cap.
type TableShapeError struct {
	Row     int
	Cells   int
	Columns int
}

func (e *TableShapeError) Error() string {
	return fmt.Sprintf("table row %d has %d cells and cannot be padded to %d columns", e.Row, e.Cells, e.Columns)
}
