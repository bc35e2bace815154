package runner

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/adnsv/tensorcheck/model"
)

// CaseResult records a delivered test case.
type CaseResult struct {
	Name        string
	Engine      model.Engine
	UnicodeMath bool
	FlexPos     bool
	PDF         string
	Duration    time.Duration
}

type Report struct {
	DestDIR string
	Cases   []CaseResult
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "-"
}

// Render writes a summary table of the delivered cases. failed, if not nil,
// is listed after them.
func (r *Report) Render(w io.Writer, failed *Error) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("tensorcheck -> %s", r.DestDIR))
	t.AppendHeader(table.Row{"Case", "Engine", "unicode-math", "flexpos", "Duration", "Result"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "unicode-math", Align: text.AlignCenter},
		{Name: "flexpos", Align: text.AlignCenter},
		{Name: "Duration", Align: text.AlignRight},
	})

	var total time.Duration
	for _, c := range r.Cases {
		total += c.Duration
		t.AppendRow(table.Row{
			c.Name, c.Engine, yesNo(c.UnicodeMath), yesNo(c.FlexPos),
			c.Duration.Round(time.Millisecond), c.PDF,
		})
	}
	if failed != nil {
		t.AppendRow(table.Row{failed.Case, failed.Engine, "", "", "", failed.Kind.String()})
	}

	t.AppendFooter(table.Row{"", "", "", "", total.Round(time.Millisecond),
		fmt.Sprintf("%d delivered", len(r.Cases))})

	if failed != nil {
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	} else {
		t.SetStyle(table.StyleLight)
	}
	t.Render()
}

// RenderTable lists test cases without running them.
func RenderTable(w io.Writer, tbl model.Table) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Case", "Engine", "unicode-math", "flexpos"})
	for _, tc := range tbl {
		t.AppendRow(table.Row{tc.Name, tc.Engine, yesNo(tc.UnicodeMath), yesNo(tc.FlexPos)})
	}
	t.SetStyle(table.StyleLight)
	t.Render()
}
