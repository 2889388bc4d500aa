package pipeline

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// WriteSummary renders the run summary as terminal tables.
func WriteSummary(w io.Writer, res *Result) error {
	var b strings.Builder

	b.WriteString(renderTable(
		[]string{"Run", "Input rows", "Kept", "Dropped", "Features"},
		[][]string{{
			res.RunID,
			strconv.Itoa(res.InputRows),
			strconv.Itoa(len(res.KeptRows)),
			strconv.Itoa(res.InputRows - len(res.KeptRows)),
			strconv.Itoa(len(res.Features)),
		}},
		[]text.Align{text.AlignLeft, text.AlignRight, text.AlignRight, text.AlignRight, text.AlignRight},
	))
	b.WriteString("\n")

	runs := make([][]string, 0, 2)
	if res.Reference != nil {
		runs = append(runs, embeddingRow("reference", *res.Reference))
	}
	runs = append(runs, embeddingRow("final", res.Final))
	b.WriteString(renderTable(
		[]string{"Embedding", "Perplexity", "Seed", "Init", "Learning rate", "Iterations", "KL divergence", "Time"},
		runs,
		[]text.Align{text.AlignLeft, text.AlignRight, text.AlignRight, text.AlignLeft, text.AlignRight, text.AlignRight, text.AlignRight, text.AlignRight},
	))
	b.WriteString("\n")

	if res.TrustworthinessNeighbors > 0 {
		fmt.Fprintf(&b, "trustworthiness (k=%d): %.4f\n\n", res.TrustworthinessNeighbors, res.Trustworthiness)
	}

	if len(res.Affinity) > 0 {
		b.WriteString(affinityTable(res))
		b.WriteString("\n")
	}

	if len(res.Timings) > 0 {
		rows := make([][]string, len(res.Timings))
		for i, t := range res.Timings {
			rows[i] = []string{t.Stage, formatDuration(t.Duration)}
		}
		b.WriteString(renderTable([]string{"Stage", "Time"}, rows, []text.Align{text.AlignLeft, text.AlignRight}))
		b.WriteString("\n")
	}

	for _, path := range res.Written {
		fmt.Fprintf(&b, "wrote %s\n", path)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func embeddingRow(name string, r EmbeddingRun) []string {
	return []string{
		name,
		strconv.FormatFloat(r.Perplexity, 'g', -1, 64),
		strconv.FormatInt(r.RandomState, 10),
		r.Init,
		strconv.FormatFloat(r.LearningRate, 'f', 2, 64),
		strconv.Itoa(r.Iterations),
		strconv.FormatFloat(r.KLDivergence, 'f', 4, 64),
		formatDuration(r.Duration),
	}
}

// affinityTable pivots the affinity results: one row per feature, one
// column per platform, in first-seen order.
func affinityTable(res *Result) string {
	var features, platforms []string
	seenF := map[string]bool{}
	seenP := map[string]bool{}
	cells := map[[2]string]float64{}
	for _, a := range res.Affinity {
		if !seenF[a.Feature] {
			seenF[a.Feature] = true
			features = append(features, a.Feature)
		}
		if !seenP[a.Platform] {
			seenP[a.Platform] = true
			platforms = append(platforms, a.Platform)
		}
		cells[[2]string{a.Feature, a.Platform}] = a.Correlation
	}

	headers := append([]string{"Feature"}, platforms...)
	aligns := make([]text.Align, len(headers))
	aligns[0] = text.AlignLeft
	for i := 1; i < len(aligns); i++ {
		aligns[i] = text.AlignRight
	}
	rows := make([][]string, len(features))
	for i, f := range features {
		row := []string{f}
		for _, p := range platforms {
			row = append(row, strconv.FormatFloat(cells[[2]string{f, p}], 'f', 3, 64))
		}
		rows[i] = row
	}
	return renderTable(headers, rows, aligns)
}

func renderTable(headers []string, rows [][]string, aligns []text.Align) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) {
			align = aligns[i]
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render() + "\n"
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
