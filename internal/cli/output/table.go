package output

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Table writes rows under headers: a box table in text mode and a pipe
// table in markdown mode. JSON callers should use JSON instead.
func (r *Renderer) Table(headers []string, rows [][]string) {
	if len(rows) == 0 {
		r.Println("(0 rows)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	t.AppendHeader(header)
	for _, row := range rows {
		tr := make(table.Row, len(row))
		for i, v := range row {
			tr[i] = v
		}
		t.AppendRow(tr)
	}

	if r.EffectiveMode() == ModeMarkdown {
		t.RenderMarkdown()
		return
	}
	t.SetStyle(table.StyleLight)
	t.Render()
	r.Println(r.styles.Muted.Render(fmt.Sprintf("(%d rows)", len(rows))))
}
