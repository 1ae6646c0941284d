// Package review runs the human-in-the-loop extraction review: extract,
// suspend for a decision, and re-extract with accumulated feedback until the
// result is approved.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/itsmostafa/paperalchemy/internal/checkpoint"
	"github.com/itsmostafa/paperalchemy/internal/extract"
	"github.com/itsmostafa/paperalchemy/internal/paper"
)

var (
	// ErrExtractionFailed ends a run whose extraction produced no result.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrRetryLimit is returned when rejections exceed the configured maximum.
	ErrRetryLimit = errors.New("review retry limit exceeded")

	// ErrAttemptTimeout is returned when an extraction or a review decision
	// exceeds the per-attempt timeout.
	ErrAttemptTimeout = errors.New("review attempt timed out")

	// ErrSessionExists is returned when starting a session whose checkpoint
	// is still active.
	ErrSessionExists = errors.New("review session already exists")

	// ErrReviewAborted is returned when the reviewer input ends without a decision.
	ErrReviewAborted = errors.New("review aborted")
)

// Options bounds the loop. Zero values mean unbounded.
type Options struct {
	MaxRetries      int
	AttemptTimeout  time.Duration
	KeepCheckpoints bool
}

// Input starts or resumes one session.
type Input struct {
	SessionID   string
	RawMarkdown string
	Assets      []paper.Asset

	// Resume continues an existing checkpoint instead of refusing it.
	Resume bool
}

// Workflow drives extraction and review for a session.
type Workflow struct {
	extractor extract.Extractor
	reviewer  Reviewer
	store     checkpoint.Store
	opts      Options
	logger    *slog.Logger
	now       func() time.Time
}

// NewWorkflow wires a workflow. store holds per-session checkpoints.
func NewWorkflow(extractor extract.Extractor, reviewer Reviewer, store checkpoint.Store, opts Options, logger *slog.Logger) *Workflow {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workflow{
		extractor: extractor,
		reviewer:  reviewer,
		store:     store,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

// Run executes the session until approval or a fatal error and returns the
// approved paper.
func (w *Workflow) Run(ctx context.Context, in Input) (*paper.StructuredPaper, error) {
	if err := checkpoint.ValidateID(in.SessionID); err != nil {
		return nil, err
	}
	logCtx := w.logger.With("session", in.SessionID)

	state, err := w.begin(ctx, in)
	if err != nil {
		return nil, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		switch state.Stage {
		case StageExtracting:
			if err := w.extract(ctx, logCtx, state); err != nil {
				return nil, err
			}

		case StageAwaitingReview:
			if state.StructuredPaper == nil {
				logCtx.Warn("No result to review; ending session without a result.", "error", state.LastError)
				state.Stage = StageFailed
				if err := w.save(ctx, state); err != nil {
					return nil, err
				}
				return nil, fmt.Errorf("%w: %s", ErrExtractionFailed, state.LastError)
			}
			if err := w.review(ctx, logCtx, state); err != nil {
				return nil, err
			}

		case StageRetrying:
			if w.opts.MaxRetries > 0 && state.Retries() > w.opts.MaxRetries {
				state.Stage = StageFailed
				state.LastError = ErrRetryLimit.Error()
				if err := w.save(ctx, state); err != nil {
					return nil, err
				}
				logCtx.Error("Retry limit reached.", "retries", state.Retries(), "maxRetries", w.opts.MaxRetries)
				return nil, fmt.Errorf("%w: %d rejections, max %d", ErrRetryLimit, state.Retries(), w.opts.MaxRetries)
			}
			logCtx.Info("Reviewer requested changes; re-extracting.", "retries", state.Retries())
			state.Stage = StageExtracting

		case StageApproved:
			w.finish(ctx, logCtx, state)
			return state.StructuredPaper, nil

		case StageFailed:
			// Only reachable on resume: a human restarting a failed session
			// is an explicit retry.
			state.Stage = StageExtracting
			state.LastError = ""

		default:
			return nil, fmt.Errorf("unknown workflow stage %q", state.Stage)
		}
	}
}

// begin creates the session checkpoint or loads it when resuming.
func (w *Workflow) begin(ctx context.Context, in Input) (*State, error) {
	data, err := w.store.Load(ctx, in.SessionID)
	switch {
	case err == nil:
		if !in.Resume {
			return nil, fmt.Errorf("%w: %s", ErrSessionExists, in.SessionID)
		}
		state, err := DecodeState(data)
		if err != nil {
			return nil, err
		}
		w.logger.Info("Resuming review session.", "session", in.SessionID, "stage", state.Stage, "retries", state.Retries())
		return state, nil
	case errors.Is(err, checkpoint.ErrNotFound):
	default:
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	now := w.now()
	state := &State{
		SessionID:       in.SessionID,
		Stage:           StageExtracting,
		RawMarkdown:     in.RawMarkdown,
		AssetsList:      in.Assets,
		FeedbackHistory: []string{},
		StartedAt:       now,
	}
	if state.AssetsList == nil {
		state.AssetsList = []paper.Asset{}
	}
	if err := w.save(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// extract runs one extraction attempt and moves to awaiting_review. A failed
// extraction leaves no paper; a timeout is fatal.
func (w *Workflow) extract(ctx context.Context, logCtx *slog.Logger, state *State) error {
	state.Attempts++
	logCtx.Info("Reading paper and extracting structure.", "attempt", state.Attempts)

	actx, cancel := w.attemptContext(ctx)
	p, err := w.extractor.Extract(actx, extract.Request{
		RawMarkdown: state.RawMarkdown,
		Assets:      state.AssetsList,
		Feedback:    append([]string(nil), state.FeedbackHistory...),
	})
	timedOut := errors.Is(actx.Err(), context.DeadlineExceeded) && ctx.Err() == nil
	cancel()

	if timedOut {
		state.Stage = StageFailed
		state.LastError = ErrAttemptTimeout.Error()
		if serr := w.save(ctx, state); serr != nil {
			return serr
		}
		return fmt.Errorf("%w: extraction exceeded %s", ErrAttemptTimeout, w.opts.AttemptTimeout)
	}
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}

	if err != nil {
		logCtx.Warn("Extraction failed.", "attempt", state.Attempts, "error", err)
		state.StructuredPaper = nil
		state.LastError = err.Error()
	} else {
		state.StructuredPaper = p
		state.LastError = ""
	}
	state.Stage = StageAwaitingReview
	return w.save(ctx, state)
}

// review blocks for the reviewer's decision.
func (w *Workflow) review(ctx context.Context, logCtx *slog.Logger, state *State) error {
	logCtx.Info("Waiting for review.", "sections", len(state.StructuredPaper.Sections))

	actx, cancel := w.attemptContext(ctx)
	decision, err := w.reviewer.Review(actx, state)
	timedOut := errors.Is(actx.Err(), context.DeadlineExceeded) && ctx.Err() == nil
	cancel()

	if timedOut {
		return fmt.Errorf("%w: no decision within %s", ErrAttemptTimeout, w.opts.AttemptTimeout)
	}
	if err != nil {
		return err
	}

	if decision.Approved {
		state.IsApproved = true
		state.Stage = StageApproved
		logCtx.Info("Result approved.", "attempts", state.Attempts)
	} else {
		state.FeedbackHistory = append(state.FeedbackHistory, decision.Comment)
		state.IsApproved = false
		state.Stage = StageRetrying
	}
	return w.save(ctx, state)
}

// finish discards or archives the checkpoint of an approved session.
// Failures are logged; the result stands.
func (w *Workflow) finish(ctx context.Context, logCtx *slog.Logger, state *State) {
	var err error
	if w.opts.KeepCheckpoints {
		err = w.store.Archive(ctx, state.SessionID)
	} else {
		err = w.store.Delete(ctx, state.SessionID)
	}
	if err != nil && !errors.Is(err, checkpoint.ErrNotFound) {
		logCtx.Warn("Failed to release checkpoint.", "error", err)
	}
}

func (w *Workflow) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if w.opts.AttemptTimeout > 0 {
		return context.WithTimeout(ctx, w.opts.AttemptTimeout)
	}
	return context.WithCancel(ctx)
}

func (w *Workflow) save(ctx context.Context, state *State) error {
	state.UpdatedAt = w.now()
	data, err := encodeState(state)
	if err != nil {
		return err
	}
	if err := w.store.Save(ctx, state.SessionID, data); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}
