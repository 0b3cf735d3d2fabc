package etl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finetl/pkg/models"
)

// sliceExtractor yields a fixed set of records, then ErrEndOfSource.
type sliceExtractor struct {
	recs []*models.Record
	i    int
}

func (s *sliceExtractor) Next() (*models.Record, error) {
	if s.i >= len(s.recs) {
		return nil, ErrEndOfSource
	}
	rec := s.recs[s.i]
	s.i++
	return rec, nil
}

func (s *sliceExtractor) Close() error { return nil }

// failingExtractor fails after yielding n records.
type failingExtractor struct {
	n int
	i int
}

func (f *failingExtractor) Next() (*models.Record, error) {
	if f.i >= f.n {
		return nil, &ExtractionError{Source: "test", Err: errors.New("source went away")}
	}
	f.i++
	return testRecord(f.i), nil
}

func (f *failingExtractor) Close() error { return nil }

// memLoader confirms up to capacity records, then rejects the rest of the
// batch. capacity < 0 means unlimited.
type memLoader struct {
	capacity int
	loaded   models.Batch
	closed   bool
}

func (m *memLoader) Load(ctx context.Context, batch models.Batch) (int, error) {
	if m.capacity < 0 || len(m.loaded)+len(batch) <= m.capacity {
		m.loaded = append(m.loaded, batch...)
		return len(batch), nil
	}
	room := m.capacity - len(m.loaded)
	if room < 0 {
		room = 0
	}
	m.loaded = append(m.loaded, batch[:room]...)
	return room, &LoadError{Sink: "mem", Err: errors.New("sink timed out")}
}

func (m *memLoader) Close() error {
	m.closed = true
	return nil
}

func testRecord(i int) *models.Record {
	return models.NewRecord().
		Set(models.FieldLineItem, fmt.Sprintf("Item %d", i)).
		Set(models.FieldValue, float64(i))
}

func testRecords(n int) []*models.Record {
	recs := make([]*models.Record, n)
	for i := range recs {
		recs[i] = testRecord(i + 1)
	}
	return recs
}

// failOn returns a step that errors on records whose line item matches.
func failOn(item string) Step {
	return Step{
		Name: "fail-on",
		Apply: func(rec *models.Record) (*models.Record, error) {
			if rec.String(models.FieldLineItem) == item {
				return nil, errors.New("boom")
			}
			return rec, nil
		},
	}
}

func TestRunAllRecordsLoaded(t *testing.T) {
	sink := &memLoader{capacity: -1}
	p := NewPipeline(&sliceExtractor{recs: testRecords(3)}, nil, sink, 100, PolicyFail, 0)

	res := p.Run(context.Background())

	require.Equal(t, StateDone, res.State)
	assert.Equal(t, 3, res.Extracted)
	assert.Equal(t, 3, res.Transformed)
	assert.Equal(t, 3, res.Loaded)
	assert.Empty(t, res.Errors)
	assert.True(t, sink.closed)
}

func TestRunIdentityWithZeroSteps(t *testing.T) {
	recs := testRecords(3)
	sink := &memLoader{capacity: -1}
	p := NewPipeline(&sliceExtractor{recs: recs}, nil, sink, 100, PolicyFail, 0)

	res := p.Run(context.Background())

	require.Equal(t, StateDone, res.State)
	require.Len(t, sink.loaded, 3)
	for i, rec := range sink.loaded {
		assert.Same(t, recs[i], rec)
	}
}

func TestRunEmptySource(t *testing.T) {
	sink := &memLoader{capacity: -1}
	p := NewPipeline(&sliceExtractor{}, nil, sink, 100, PolicyFail, 0)

	res := p.Run(context.Background())

	require.Equal(t, StateDone, res.State)
	assert.Zero(t, res.Extracted)
	assert.Zero(t, res.Transformed)
	assert.Zero(t, res.Loaded)
	assert.Empty(t, res.Errors)
}

func TestRunSkipPolicyContinuesPastStepFailure(t *testing.T) {
	sink := &memLoader{capacity: -1}
	p := NewPipeline(&sliceExtractor{recs: testRecords(5)}, []Step{failOn("Item 3")}, sink, 100, PolicySkip, 0)

	res := p.Run(context.Background())

	require.Equal(t, StateDone, res.State)
	assert.Equal(t, 5, res.Extracted)
	assert.Equal(t, 4, res.Transformed)
	assert.Equal(t, 4, res.Loaded)

	require.Len(t, res.Errors, 1)
	var terr *TransformationError
	require.ErrorAs(t, res.Errors[0], &terr)
	assert.Equal(t, 3, terr.Record)
}

func TestRunFailPolicyAbortsOnStepFailure(t *testing.T) {
	sink := &memLoader{capacity: -1}
	p := NewPipeline(&sliceExtractor{recs: testRecords(5)}, []Step{failOn("Item 3")}, sink, 100, PolicyFail, 0)

	res := p.Run(context.Background())

	require.Equal(t, StateFailed, res.State)
	assert.Equal(t, 3, res.Extracted)
	assert.Equal(t, 2, res.Transformed)
	// Records transformed before the failure were flushed.
	assert.Equal(t, 2, res.Loaded)

	require.Len(t, res.Errors, 1)
	var terr *TransformationError
	require.ErrorAs(t, res.Errors[0], &terr)
}

func TestRunSinkRejectsMidBatch(t *testing.T) {
	sink := &memLoader{capacity: 2}
	p := NewPipeline(&sliceExtractor{recs: testRecords(4)}, nil, sink, 100, PolicyFail, 0)

	res := p.Run(context.Background())

	require.Equal(t, StateFailed, res.State)
	assert.Equal(t, 4, res.Extracted)
	assert.Equal(t, 2, res.Loaded)

	require.Len(t, res.Errors, 1)
	var lerr *LoadError
	require.ErrorAs(t, res.Errors[0], &lerr)
}

func TestRunExtractionFailureDiscardsPartialBatch(t *testing.T) {
	sink := &memLoader{capacity: -1}
	p := NewPipeline(&failingExtractor{n: 2}, nil, sink, 100, PolicyFail, 0)

	res := p.Run(context.Background())

	require.Equal(t, StateFailed, res.State)
	assert.Equal(t, 2, res.Extracted)
	// Nothing was flushed before the source failed.
	assert.Zero(t, res.Loaded)

	require.Len(t, res.Errors, 1)
	var exErr *ExtractionError
	require.ErrorAs(t, res.Errors[0], &exErr)
}

func TestRunStepsApplyInDeclaredOrder(t *testing.T) {
	var order []string
	step := func(name string) Step {
		return Step{Name: name, Apply: func(rec *models.Record) (*models.Record, error) {
			order = append(order, name)
			return rec, nil
		}}
	}
	sink := &memLoader{capacity: -1}
	p := NewPipeline(&sliceExtractor{recs: testRecords(1)}, []Step{step("a"), step("b"), step("c")}, sink, 100, PolicyFail, 0)

	res := p.Run(context.Background())

	require.Equal(t, StateDone, res.State)
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestRunDroppedRecordsAreNotCountedOrLoaded(t *testing.T) {
	drop := Step{Name: "drop-all", Apply: func(rec *models.Record) (*models.Record, error) {
		return nil, nil
	}}
	sink := &memLoader{capacity: -1}
	p := NewPipeline(&sliceExtractor{recs: testRecords(3)}, []Step{drop}, sink, 100, PolicyFail, 0)

	res := p.Run(context.Background())

	require.Equal(t, StateDone, res.State)
	assert.Equal(t, 3, res.Extracted)
	assert.Zero(t, res.Transformed)
	assert.Zero(t, res.Loaded)
	assert.Empty(t, res.Errors)
}

func TestRunCancellationFlushesPendingBatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	// Cancel once the second record has been pulled; records already
	// transformed must still reach the sink.
	ext := &sliceExtractor{recs: testRecords(10)}
	cancelling := Step{Name: "cancel-after-2", Apply: func(rec *models.Record) (*models.Record, error) {
		if ext.i >= 2 {
			cancel()
		}
		return rec, nil
	}}

	sink := &memLoader{capacity: -1}
	p := NewPipeline(ext, []Step{cancelling}, sink, 100, PolicyFail, time.Second)

	res := p.Run(ctx)

	require.Equal(t, StateCancelled, res.State)
	assert.Equal(t, 2, res.Extracted)
	assert.Equal(t, 2, res.Loaded)
}

func TestRunBatchingFlushesAtBatchSize(t *testing.T) {
	sink := &memLoader{capacity: -1}
	p := NewPipeline(&sliceExtractor{recs: testRecords(7)}, nil, sink, 3, PolicyFail, 0)

	res := p.Run(context.Background())

	require.Equal(t, StateDone, res.State)
	assert.Equal(t, 7, res.Loaded)
	assert.Len(t, sink.loaded, 7)
}

func TestRunReachesExactlyOneTerminalState(t *testing.T) {
	cases := []struct {
		name string
		ext  Extractor
		sink *memLoader
	}{
		{"success", &sliceExtractor{recs: testRecords(2)}, &memLoader{capacity: -1}},
		{"source failure", &failingExtractor{n: 1}, &memLoader{capacity: -1}},
		{"sink failure", &sliceExtractor{recs: testRecords(2)}, &memLoader{capacity: 0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPipeline(tc.ext, nil, tc.sink, 100, PolicyFail, 0)
			res := p.Run(context.Background())
			assert.True(t, res.State.Terminal(), "state %s is not terminal", res.State)
			assert.Equal(t, res.State, p.State())
		})
	}
}

func TestRunTwiceYieldsSameCounts(t *testing.T) {
	run := func() *RunResult {
		sink := &memLoader{capacity: -1}
		p := NewPipeline(&sliceExtractor{recs: testRecords(4)}, nil, sink, 2, PolicyFail, 0)
		return p.Run(context.Background())
	}

	first := run()
	second := run()

	require.Equal(t, StateDone, first.State)
	assert.Equal(t, first.Extracted, second.Extracted)
	assert.Equal(t, first.Transformed, second.Transformed)
	assert.Equal(t, first.Loaded, second.Loaded)
}

func TestSummaryTruncatesErrors(t *testing.T) {
	res := &RunResult{State: StateFailed, Extracted: 5}
	for i := 0; i < 5; i++ {
		res.addError(fmt.Errorf("error %d", i))
	}

	var sb strings.Builder
	res.Summary(&sb, 2)

	out := sb.String()
	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "errors=5")
	assert.Contains(t, out, "and 3 more")
	assert.NotContains(t, out, "error 3")
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("skip")
	require.NoError(t, err)
	assert.Equal(t, PolicySkip, p)

	p, err = ParsePolicy("fail")
	require.NoError(t, err)
	assert.Equal(t, PolicyFail, p)

	_, err = ParsePolicy("retry")
	assert.Error(t, err)
}
