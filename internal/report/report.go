// Package report summarises lifecycle results per version and per stage.
package report

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jedib0t/go-pretty/v6/table"
	"gonum.org/v1/gonum/stat"

	"github.com/GriffinCanCode/shadowbox/internal/domain/lifecycle"
	"github.com/GriffinCanCode/shadowbox/internal/shared/platform"
)

// Output formats accepted by Render
const (
	FormatTable    = "table"
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
	FormatJSON     = "json"
)

// Durations are the mean and 95th percentile of a set of timings
type Durations struct {
	Mean time.Duration `json:"mean"`
	P95  time.Duration `json:"p95"`
}

// VersionSummary aggregates the runs of one platform version
type VersionSummary struct {
	Version  platform.Version        `json:"version"`
	Runs     int                     `json:"runs"`
	Passed   int                     `json:"passed"`
	Failed   int                     `json:"failed"`
	Skipped  int                     `json:"skipped"`
	Duration Durations               `json:"duration"`
	Stages   map[lifecycle.Stage]int `json:"failed_stages,omitempty"`
}

// StageSummary aggregates one lifecycle stage across all runs
type StageSummary struct {
	Stage    lifecycle.Stage `json:"stage"`
	Runs     int             `json:"runs"`
	Failures int             `json:"failures"`
	Duration Durations       `json:"duration"`
}

// Failure is a failed run as reported
type Failure struct {
	Name    string           `json:"name"`
	Version platform.Version `json:"version"`
	Stage   lifecycle.Stage  `json:"stage"`
	Error   string           `json:"error"`
}

// Report is the summary of a set of results
type Report struct {
	Total    int              `json:"total"`
	Passed   int              `json:"passed"`
	Failed   int              `json:"failed"`
	Skipped  int              `json:"skipped"`
	Versions []VersionSummary `json:"versions"`
	Stages   []StageSummary   `json:"stages"`
	Failures []Failure        `json:"failures,omitempty"`
}

// Build summarises results
func Build(results []lifecycle.Result) *Report {
	r := &Report{}

	byVersion := map[platform.Version]*VersionSummary{}
	runTimes := map[platform.Version][]float64{}
	stageTimes := map[lifecycle.Stage][]float64{}
	stageFails := map[lifecycle.Stage]int{}

	for _, res := range results {
		r.Total++
		vs, ok := byVersion[res.Version]
		if !ok {
			vs = &VersionSummary{Version: res.Version, Stages: map[lifecycle.Stage]int{}}
			byVersion[res.Version] = vs
		}
		vs.Runs++

		switch {
		case res.Skipped:
			r.Skipped++
			vs.Skipped++
			continue
		case res.Passed:
			r.Passed++
			vs.Passed++
		default:
			r.Failed++
			vs.Failed++
			vs.Stages[res.Stage]++
			r.Failures = append(r.Failures, Failure{
				Name:    res.Name,
				Version: res.Version,
				Stage:   res.Stage,
				Error:   errString(res.Err),
			})
		}

		runTimes[res.Version] = append(runTimes[res.Version], float64(res.Duration))
		for _, st := range res.Stages {
			stageTimes[st.Stage] = append(stageTimes[st.Stage], float64(st.Duration))
			if st.Err != nil {
				stageFails[st.Stage]++
			}
		}
	}

	for _, vs := range byVersion {
		vs.Duration = summarize(runTimes[vs.Version])
		r.Versions = append(r.Versions, *vs)
	}
	slices.SortFunc(r.Versions, func(a, b VersionSummary) int { return int(a.Version) - int(b.Version) })

	for _, s := range lifecycle.Stages() {
		times := stageTimes[s]
		if len(times) == 0 {
			continue
		}
		r.Stages = append(r.Stages, StageSummary{
			Stage:    s,
			Runs:     len(times),
			Failures: stageFails[s],
			Duration: summarize(times),
		})
	}
	return r
}

// OK reports whether no run failed
func (r *Report) OK() bool {
	return r.Failed == 0
}

// Render writes the report in format; an empty format means a table
func (r *Report) Render(w io.Writer, format string) error {
	switch format {
	case FormatJSON:
		data, err := sonic.ConfigStd.MarshalIndent(r, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "", FormatTable, FormatMarkdown, FormatCSV:
	default:
		return fmt.Errorf("unknown report format %q", format)
	}

	render := func(t table.Writer) {
		switch format {
		case FormatMarkdown:
			t.RenderMarkdown()
		case FormatCSV:
			t.RenderCSV()
		default:
			t.Render()
		}
	}

	vt := table.NewWriter()
	vt.SetOutputMirror(w)
	vt.SetStyle(table.StyleLight)
	vt.AppendHeader(table.Row{"Version", "Runs", "Passed", "Failed", "Skipped", "Mean", "P95", "Failed stages"})
	for _, v := range r.Versions {
		vt.AppendRow(table.Row{v.Version, v.Runs, v.Passed, v.Failed, v.Skipped,
			round(v.Duration.Mean), round(v.Duration.P95), stagesCell(v.Stages)})
	}
	vt.AppendFooter(table.Row{"Total", r.Total, r.Passed, r.Failed, r.Skipped, "", "", ""})
	render(vt)

	if len(r.Stages) > 0 {
		_, _ = fmt.Fprintln(w)
		st := table.NewWriter()
		st.SetOutputMirror(w)
		st.SetStyle(table.StyleLight)
		st.AppendHeader(table.Row{"Stage", "Runs", "Failures", "Mean", "P95"})
		for _, s := range r.Stages {
			st.AppendRow(table.Row{s.Stage, s.Runs, s.Failures, round(s.Duration.Mean), round(s.Duration.P95)})
		}
		render(st)
	}

	if len(r.Failures) > 0 {
		_, _ = fmt.Fprintln(w)
		ft := table.NewWriter()
		ft.SetOutputMirror(w)
		ft.SetStyle(table.StyleLight)
		ft.AppendHeader(table.Row{"Test", "Version", "Stage", "Error"})
		for _, f := range r.Failures {
			ft.AppendRow(table.Row{f.Name, f.Version, f.Stage, f.Error})
		}
		render(ft)
	}
	return nil
}

// summarize takes timings in nanoseconds
func summarize(nanos []float64) Durations {
	if len(nanos) == 0 {
		return Durations{}
	}
	sorted := slices.Clone(nanos)
	slices.Sort(sorted)
	return Durations{
		Mean: time.Duration(stat.Mean(sorted, nil)),
		P95:  time.Duration(stat.Quantile(0.95, stat.Empirical, sorted, nil)),
	}
}

func round(d time.Duration) time.Duration {
	return d.Round(time.Microsecond)
}

func stagesCell(stages map[lifecycle.Stage]int) string {
	var parts []string
	for _, s := range append([]lifecycle.Stage{lifecycle.StageSelect}, lifecycle.Stages()...) {
		if n := stages[s]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", s, n))
		}
	}
	return strings.Join(parts, " ")
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
