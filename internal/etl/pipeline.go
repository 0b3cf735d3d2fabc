package etl

import (
	"context"
	"errors"
	"time"

	"finetl/pkg/logger"
	"finetl/pkg/models"
)

// Pipeline drives one run: pull a record, apply the step chain, buffer into
// a batch, flush to the loader. Stages are pipelined so memory stays
// bounded by BatchSize. A Pipeline is single-use and not reentrant.
type Pipeline struct {
	Extractor Extractor
	Steps     []Step
	Loader    Loader
	BatchSize int
	Policy    ErrorPolicy
	// Timeout bounds each batch write to the sink. Zero means no bound.
	Timeout time.Duration

	state State
}

func NewPipeline(ext Extractor, steps []Step, loader Loader, batchSize int, policy ErrorPolicy, timeout time.Duration) *Pipeline {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Pipeline{
		Extractor: ext,
		Steps:     steps,
		Loader:    loader,
		BatchSize: batchSize,
		Policy:    policy,
		Timeout:   timeout,
		state:     StateInit,
	}
}

// State returns the driver's current state.
func (p *Pipeline) State() State { return p.state }

// Run executes the pipeline to a terminal state and returns its RunResult.
// Cancellation of ctx stops the run at the next record boundary: the
// already-transformed batch is flushed, then the run ends CANCELLED.
func (p *Pipeline) Run(ctx context.Context) *RunResult {
	res := &RunResult{}
	defer p.Extractor.Close()
	defer p.Loader.Close()

	logger.Infof("Starting pipeline. BatchSize: %d, Policy: %s", p.BatchSize, p.Policy)
	start := time.Now()

	var batch models.Batch
	ordinal := 0

	for {
		if ctx.Err() != nil {
			p.flush(ctx, batch, res)
			return p.finish(res, StateCancelled, context.Cause(ctx))
		}

		p.state = StateExtracting
		rec, err := p.Extractor.Next()
		if errors.Is(err, ErrEndOfSource) {
			break
		}
		if err != nil {
			var exErr *ExtractionError
			if !errors.As(err, &exErr) {
				err = &ExtractionError{Source: "source", Err: err}
			}
			// No partial commit: the unflushed batch is discarded.
			return p.finish(res, StateFailed, err)
		}
		res.Extracted++
		ordinal++

		p.state = StateTransforming
		out, terr := p.transform(rec, ordinal)
		if terr != nil {
			res.addError(terr)
			if p.Policy == PolicySkip {
				logger.Warnf("Skipping record #%d: %v", ordinal, terr)
				continue
			}
			// Records transformed before the failure are confirmed work;
			// flush them before failing.
			p.flush(ctx, batch, res)
			return p.finish(res, StateFailed, nil)
		}
		if out == nil {
			// Step dropped the record.
			continue
		}
		res.Transformed++

		batch = append(batch, out)
		if len(batch) >= p.BatchSize {
			if lerr := p.flush(ctx, batch, res); lerr != nil {
				return p.finish(res, StateFailed, nil)
			}
			batch = batch[:0]
		}
	}

	if lerr := p.flush(ctx, batch, res); lerr != nil {
		return p.finish(res, StateFailed, nil)
	}

	logger.Infof("Pipeline finished in %s: extracted=%d transformed=%d loaded=%d",
		time.Since(start).Round(time.Millisecond), res.Extracted, res.Transformed, res.Loaded)
	return p.finish(res, StateDone, nil)
}

func (p *Pipeline) transform(rec *models.Record, ordinal int) (*models.Record, error) {
	out := rec
	for _, step := range p.Steps {
		next, err := step.Apply(out)
		if err != nil {
			return nil, &TransformationError{Step: step.Name, Record: ordinal, Err: err}
		}
		if next == nil {
			return nil, nil
		}
		out = next
	}
	return out, nil
}

// flush writes the pending batch and accounts for confirmed records. The
// returned error has already been attached to the result.
func (p *Pipeline) flush(ctx context.Context, batch models.Batch, res *RunResult) error {
	if len(batch) == 0 {
		return nil
	}
	p.state = StateLoading

	loadCtx := ctx
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		// Detach from ctx so a cancelled run can still flush its
		// confirmed batch, bounded by the write timeout.
		loadCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), p.Timeout)
		defer cancel()
	}

	n, err := p.Loader.Load(loadCtx, batch)
	res.Loaded += n
	if err != nil {
		var lderr *LoadError
		if !errors.As(err, &lderr) {
			err = &LoadError{Sink: "sink", Err: err}
		}
		res.addError(err)
		return err
	}
	return nil
}

func (p *Pipeline) finish(res *RunResult, state State, err error) *RunResult {
	res.addError(err)
	p.state = state
	res.State = state
	if state != StateDone {
		logger.Errorf("Pipeline ended %s: extracted=%d transformed=%d loaded=%d errors=%d",
			state, res.Extracted, res.Transformed, res.Loaded, len(res.Errors))
	}
	return res
}
