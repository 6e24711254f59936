package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/shadowbox/internal/domain/lifecycle"
	"github.com/GriffinCanCode/shadowbox/internal/shared/platform"
)

func passed(v int, d time.Duration) lifecycle.Result {
	return lifecycle.Result{
		Name:     "testA",
		Version:  platform.Version(v),
		Passed:   true,
		Duration: d,
		Stages: []lifecycle.StageTiming{
			{Stage: lifecycle.StageAcquire, Duration: d / 4},
			{Stage: lifecycle.StageExecute, Duration: d / 2},
		},
	}
}

func failed(v int, stage lifecycle.Stage) lifecycle.Result {
	err := errors.New("boom")
	return lifecycle.Result{
		Name:     "testB",
		Version:  platform.Version(v),
		Stage:    stage,
		Err:      err,
		Duration: time.Millisecond,
		Stages: []lifecycle.StageTiming{
			{Stage: lifecycle.StageAcquire, Duration: time.Millisecond},
			{Stage: stage, Duration: time.Millisecond, Err: err},
		},
	}
}

func sample() []lifecycle.Result {
	return []lifecycle.Result{
		passed(23, 10*time.Millisecond),
		passed(21, 10*time.Millisecond),
		passed(21, 30*time.Millisecond),
		failed(21, lifecycle.StageExecute),
		{Name: "testC", Passed: true, Skipped: true},
	}
}

func TestBuild(t *testing.T) {
	r := Build(sample())

	assert.Equal(t, 5, r.Total)
	assert.Equal(t, 3, r.Passed)
	assert.Equal(t, 1, r.Failed)
	assert.Equal(t, 1, r.Skipped)
	assert.False(t, r.OK())

	require.Len(t, r.Versions, 3)
	v21 := r.Versions[1]
	assert.Equal(t, platform.Version(21), v21.Version)
	assert.Equal(t, 3, v21.Runs)
	assert.Equal(t, 2, v21.Passed)
	assert.Equal(t, 1, v21.Stages[lifecycle.StageExecute])
	assert.InDelta(t, float64(41*time.Millisecond/3), float64(v21.Duration.Mean), float64(time.Microsecond))
	assert.Equal(t, 30*time.Millisecond, v21.Duration.P95)

	require.Len(t, r.Failures, 1)
	assert.Equal(t, "testB", r.Failures[0].Name)
	assert.Equal(t, "boom", r.Failures[0].Error)

	require.Len(t, r.Stages, 2)
	assert.Equal(t, lifecycle.StageAcquire, r.Stages[0].Stage)
	assert.Equal(t, 4, r.Stages[0].Runs)
	assert.Equal(t, lifecycle.StageExecute, r.Stages[1].Stage)
	assert.Equal(t, 1, r.Stages[1].Failures)
}

func TestBuildEmpty(t *testing.T) {
	r := Build(nil)
	assert.True(t, r.OK())
	assert.Empty(t, r.Versions)
	assert.Empty(t, r.Stages)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, FormatTable))
	assert.Contains(t, strings.ToLower(buf.String()), "total")
}

func TestRenderFormats(t *testing.T) {
	r := Build(sample())

	var table bytes.Buffer
	require.NoError(t, r.Render(&table, ""))
	out := table.String()
	assert.Contains(t, out, "execute=1")
	assert.Contains(t, out, "testB")

	var md bytes.Buffer
	require.NoError(t, r.Render(&md, FormatMarkdown))
	assert.True(t, strings.HasPrefix(strings.ToLower(md.String()), "| version |"))

	var csv bytes.Buffer
	require.NoError(t, r.Render(&csv, FormatCSV))
	assert.True(t, strings.HasPrefix(strings.ToLower(csv.String()), "version,runs,passed"))

	var js bytes.Buffer
	require.NoError(t, r.Render(&js, FormatJSON))
	var decoded Report
	require.NoError(t, sonic.Unmarshal(js.Bytes(), &decoded))
	assert.Equal(t, r.Total, decoded.Total)
	assert.Len(t, decoded.Versions, 3)

	assert.Error(t, r.Render(&bytes.Buffer{}, "yaml"))
}
