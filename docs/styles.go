package docs

import (
	"log"

	"google.golang.org/api/docs/v1"
)

// styleFrame is one entry of the inline style stack. start is the buffer
// offset (in runes) where the styled span began.
type styleFrame struct {
	start  int
	style  *docs.TextStyle
	fields []string
}

// styleRange is a recorded inline style span, buffer-relative with an
// exclusive end. The assembler turns these into updateTextStyle requests
// anchored at the caller's start index.
type styleRange struct {
	start  int
	end    int
	style  *docs.TextStyle
	fields []string
}

// pushStyle opens an inline style span at the current buffer position.
// Inside a table cell styles are dropped: cell content is rendered as
// plain text, and the matching popStyle is a no-op there too, so the
// stack stays balanced.
func (st *conversion) pushStyle(style *docs.TextStyle, fields ...string) {
	if st.table != nil && st.table.inCell {
		return
	}
	st.styleStack = append(st.styleStack, styleFrame{
		start:  st.bufRunes,
		style:  style,
		fields: fields,
	})
}

// popStyle closes the innermost span and records its range. Zero-length
// ranges are suppressed. Nested spans produce overlapping ranges; bold and
// italic compose because each range carries only its own fragment.
func (st *conversion) popStyle() {
	if st.table != nil && st.table.inCell {
		return
	}
	if len(st.styleStack) == 0 {
		log.Printf("[WARNING] markdown: style pop from empty stack")
		return
	}
	frame := st.styleStack[len(st.styleStack)-1]
	st.styleStack = st.styleStack[:len(st.styleStack)-1]
	st.recordRange(frame.start, st.bufRunes, frame.style, frame.fields...)
}

// recordRange logs a style span that does not come from the stack (code
// spans, autolinks, blockquote italics).
func (st *conversion) recordRange(start, end int, style *docs.TextStyle, fields ...string) {
	if end <= start {
		return
	}
	st.styleRanges = append(st.styleRanges, styleRange{
		start:  start,
		end:    end,
		style:  style,
		fields: fields,
	})
}

// mergeStyleRanges folds ranges with identical bounds into one request
// (bold+italic over the same span, say). Later fragments override earlier
// ones key by key; the output keeps first-recorded order so the emitted
// list is deterministic.
func (st *conversion) mergeStyleRanges() []styleRange {
	if len(st.styleRanges) == 0 {
		return nil
	}
	index := make(map[[2]int]int, len(st.styleRanges))
	merged := make([]styleRange, 0, len(st.styleRanges))
	for _, sr := range st.styleRanges {
		key := [2]int{sr.start, sr.end}
		i, ok := index[key]
		if !ok {
			index[key] = len(merged)
			merged = append(merged, styleRange{
				start:  sr.start,
				end:    sr.end,
				style:  cloneTextStyle(sr.style, sr.fields),
				fields: append([]string(nil), sr.fields...),
			})
			continue
		}
		overlayTextStyle(merged[i].style, sr.style, sr.fields)
		merged[i].fields = appendMissingFields(merged[i].fields, sr.fields)
	}
	return merged
}

func cloneTextStyle(src *docs.TextStyle, fields []string) *docs.TextStyle {
	dst := &docs.TextStyle{}
	overlayTextStyle(dst, src, fields)
	return dst
}

// overlayTextStyle copies the named fields of src onto dst.
func overlayTextStyle(dst, src *docs.TextStyle, fields []string) {
	for _, f := range fields {
		switch f {
		case "bold":
			dst.Bold = src.Bold
		case "italic":
			dst.Italic = src.Italic
		case "underline":
			dst.Underline = src.Underline
		case "strikethrough":
			dst.Strikethrough = src.Strikethrough
		case "link":
			dst.Link = src.Link
		case "foregroundColor":
			dst.ForegroundColor = src.ForegroundColor
		case "backgroundColor":
			dst.BackgroundColor = src.BackgroundColor
		case "weightedFontFamily":
			dst.WeightedFontFamily = src.WeightedFontFamily
		}
	}
}

func appendMissingFields(have, add []string) []string {
	for _, f := range add {
		seen := false
		for _, h := range have {
			if h == f {
				seen = true
				break
			}
		}
		if !seen {
			have = append(have, f)
		}
	}
	return have
}
