package docs

import (
	"strings"

	"google.golang.org/api/docs/v1"
)

// assemble produces the final operation list in the fixed emission order:
//
//  1. the single insertText holding the entire text buffer
//  2. per-cell insertText operations for tables
//  3. updateTextStyle operations (inline styles)
//  4. updateParagraphStyle operations
//  5. createParagraphBullets operations
//  6. deleteParagraphBullets operations
//  7. insertTable operations
//  8. insertInlineImage operations
//
// Deferring every index-dependent operation until the full text layout is
// known is what keeps the stream self-consistent; interleaving inserts and
// styles "as they happen" is exactly the path to style bleed and broken
// nesting.
func (st *conversion) assemble() []*docs.Request {
	out := make([]*docs.Request, 0, len(st.requests)+len(st.styleRanges)+1)

	if st.buf.Len() > 0 {
		out = append(out, &docs.Request{
			InsertText: &docs.InsertTextRequest{
				Location: &docs.Location{Index: st.start},
				Text:     st.buf.String(),
			},
		})
	}

	var (
		cellTexts  []*docs.Request
		textStyles []*docs.Request
		paraStyles []*docs.Request
		bulletOps  []*docs.Request
		tables     []*docs.Request
		images     []*docs.Request
	)
	for _, r := range st.requests {
		switch {
		case r.InsertText != nil:
			cellTexts = append(cellTexts, r)
		case r.UpdateTextStyle != nil:
			textStyles = append(textStyles, r)
		case r.UpdateParagraphStyle != nil:
			paraStyles = append(paraStyles, r)
		case r.CreateParagraphBullets != nil, r.DeleteParagraphBullets != nil:
			bulletOps = append(bulletOps, r)
		case r.InsertTable != nil:
			tables = append(tables, r)
		case r.InsertInlineImage != nil:
			images = append(images, r)
		}
	}

	out = append(out, cellTexts...)
	for _, sr := range st.mergeStyleRanges() {
		out = append(out, &docs.Request{
			UpdateTextStyle: &docs.UpdateTextStyleRequest{
				Range: &docs.Range{
					StartIndex: st.start + int64(sr.start),
					EndIndex:   st.start + int64(sr.end),
				},
				TextStyle: sr.style,
				Fields:    strings.Join(sr.fields, ","),
			},
		})
	}
	out = append(out, textStyles...)
	out = append(out, paraStyles...)

	creates, deletes := st.repairBulletIndices(bulletOps)
	out = append(out, creates...)
	out = append(out, deletes...)
	out = append(out, tables...)
	out = append(out, images...)

	return out
}

// repairBulletIndices compensates for the TABs createParagraphBullets
// strips. Each create removes the TAB characters inside its range, which
// shifts every later bullet operation's indices downward by the cumulative
// count of TABs the earlier creates will have removed. The walk order of
// the operations is document order, so a single running counter suffices;
// the creates are then applied before the deletes, and a delete is only
// affected by TABs positioned before its range.
func (st *conversion) repairBulletIndices(ops []*docs.Request) (creates, deletes []*docs.Request) {
	runes := []rune(st.buf.String())
	var shift int64
	for _, r := range ops {
		if cb := r.CreateParagraphBullets; cb != nil {
			tabs := st.countTabs(runes, cb.Range.StartIndex, cb.Range.EndIndex)
			creates = append(creates, &docs.Request{
				CreateParagraphBullets: &docs.CreateParagraphBulletsRequest{
					Range: &docs.Range{
						StartIndex: cb.Range.StartIndex - shift,
						EndIndex:   cb.Range.EndIndex - shift,
					},
					BulletPreset: cb.BulletPreset,
				},
			})
			shift += tabs
			continue
		}
		db := r.DeleteParagraphBullets
		deletes = append(deletes, &docs.Request{
			DeleteParagraphBullets: &docs.DeleteParagraphBulletsRequest{
				Range: &docs.Range{
					StartIndex: db.Range.StartIndex - shift,
					EndIndex:   db.Range.EndIndex - shift,
				},
			},
		})
	}
	return creates, deletes
}

// countTabs counts TAB characters in the buffer slice corresponding to the
// document range [start, end). Bounds are clamped.
func (st *conversion) countTabs(runes []rune, start, end int64) int64 {
	lo := int(start - st.start)
	hi := int(end - st.start)
	if lo < 0 {
		lo = 0
	}
	if hi > len(runes) {
		hi = len(runes)
	}
	var tabs int64
	for i := lo; i < hi; i++ {
		if runes[i] == '\t' {
			tabs++
		}
	}
	return tabs
}
