package pipeline

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

// RenderStats formats run statistics as a table for the periodic
// progress output and the completion report.
func RenderStats(stats Stats) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"counter", "value"})
	t.AppendRows([]table.Row{
		{"rounds", stats.Rounds},
		{"records fetched", stats.Fetched},
		{"records synthesized", stats.Synthesized},
		{"records verified", stats.Verified},
		{"records deleted", stats.Deleted},
		{"errors", stats.Errors},
		{"elapsed", stats.Elapsed().Round(time.Second).String()},
	})
	t.SetCaption(fmt.Sprintf("run started %s", stats.StartedAt.Format("2006-01-02 15:04:05")))
	return t.Render()
}
