package review

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/itsmostafa/paperalchemy/internal/checkpoint"
	"github.com/itsmostafa/paperalchemy/internal/extract"
	"github.com/itsmostafa/paperalchemy/internal/logging"
	"github.com/itsmostafa/paperalchemy/internal/paper"
)

// fakeExtractor records every request and returns results in order.
type fakeExtractor struct {
	results  []*paper.StructuredPaper
	errs     []error
	delay    time.Duration
	requests []extract.Request
}

func (f *fakeExtractor) Extract(ctx context.Context, req extract.Request) (*paper.StructuredPaper, error) {
	f.requests = append(f.requests, req)
	i := len(f.requests) - 1
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.results) {
		return f.results[i], nil
	}
	return f.results[len(f.results)-1], nil
}

// scriptedReviewer replays decisions and records what it saw.
type scriptedReviewer struct {
	decisions []Decision
	seen      []*paper.StructuredPaper
}

func (s *scriptedReviewer) Review(_ context.Context, state *State) (Decision, error) {
	s.seen = append(s.seen, state.StructuredPaper)
	if len(s.seen) > len(s.decisions) {
		return Decision{}, errors.New("no more scripted decisions")
	}
	return s.decisions[len(s.seen)-1], nil
}

func testPaper(title string) *paper.StructuredPaper {
	return &paper.StructuredPaper{
		PaperTitle:     title,
		OverallSummary: "summary",
		Sections: []paper.PaperSection{{
			SectionTitle:   "Introduction",
			ContentSummary: "intro",
			KeyDetails:     []string{},
			RelatedFigures: []paper.FigureInfo{},
		}},
	}
}

func newWorkflow(ex extract.Extractor, rv Reviewer, store checkpoint.Store, opts Options) *Workflow {
	return NewWorkflow(ex, rv, store, opts, logging.Discard())
}

func TestFeedbackAccumulation(t *testing.T) {
	ctx := context.Background()
	ex := &fakeExtractor{results: []*paper.StructuredPaper{testPaper("v1"), testPaper("v2"), testPaper("v3"), testPaper("v4")}}
	comments := []string{"split the method section", "figure 2 belongs to experiments", "keep the abstract first"}
	rv := &scriptedReviewer{decisions: []Decision{Reject(comments[0]), Reject(comments[1]), Reject(comments[2]), Approve()}}
	store := checkpoint.NewMemoryStore()

	got, err := newWorkflow(ex, rv, store, Options{}).Run(ctx, Input{SessionID: "s1", RawMarkdown: "# T", Assets: nil})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got.PaperTitle != "v4" {
		t.Errorf("approved paper = %q, want v4", got.PaperTitle)
	}

	if len(ex.requests) != 4 {
		t.Fatalf("expected 4 extraction calls, got %d", len(ex.requests))
	}
	for i, req := range ex.requests {
		if !reflect.DeepEqual(req.Feedback, comments[:i]) && !(i == 0 && len(req.Feedback) == 0) {
			t.Errorf("request %d feedback = %v, want %v", i, req.Feedback, comments[:i])
		}
	}
	if !reflect.DeepEqual(ex.requests[3].Feedback, comments) {
		t.Errorf("final request feedback = %v, want all comments in order", ex.requests[3].Feedback)
	}

	if _, err := store.Load(ctx, "s1"); !errors.Is(err, checkpoint.ErrNotFound) {
		t.Errorf("checkpoint should be discarded after approval, Load() error = %v", err)
	}
}

func TestImmediateApprovalMatchesSingleExtraction(t *testing.T) {
	ctx := context.Background()
	want := testPaper("only")
	ex := &fakeExtractor{results: []*paper.StructuredPaper{want}}

	direct, err := ex.Extract(ctx, extract.Request{RawMarkdown: "# T"})
	if err != nil {
		t.Fatal(err)
	}

	ex.requests = nil
	got, err := newWorkflow(ex, AutoApprover{}, checkpoint.NewMemoryStore(), Options{}).Run(ctx, Input{SessionID: "s", RawMarkdown: "# T"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !reflect.DeepEqual(got, direct) {
		t.Errorf("workflow result %+v differs from direct extraction %+v", got, direct)
	}
	if len(ex.requests) != 1 {
		t.Errorf("expected exactly one extraction, got %d", len(ex.requests))
	}
}

func TestExtractionFailureEndsWithoutResult(t *testing.T) {
	ctx := context.Background()
	ex := &fakeExtractor{errs: []error{errors.New("model exploded")}, results: []*paper.StructuredPaper{nil}}
	rv := &scriptedReviewer{}
	store := checkpoint.NewMemoryStore()

	got, err := newWorkflow(ex, rv, store, Options{}).Run(ctx, Input{SessionID: "s", RawMarkdown: "x"})
	if !errors.Is(err, ErrExtractionFailed) {
		t.Fatalf("Run() error = %v, want ErrExtractionFailed", err)
	}
	if got != nil {
		t.Error("expected no result")
	}
	if len(rv.seen) != 0 {
		t.Error("reviewer should not be asked without a result")
	}
	if len(ex.requests) != 1 {
		t.Errorf("extraction failure must not be retried automatically, got %d calls", len(ex.requests))
	}

	data, err := store.Load(ctx, "s")
	if err != nil {
		t.Fatalf("failed session checkpoint should be kept: %v", err)
	}
	state, _ := DecodeState(data)
	if state.Stage != StageFailed || !strings.Contains(state.LastError, "model exploded") {
		t.Errorf("checkpoint state = %+v", state)
	}
}

func TestFailedRetryClearsPreviousResult(t *testing.T) {
	ctx := context.Background()
	ex := &fakeExtractor{
		results: []*paper.StructuredPaper{testPaper("v1"), nil},
		errs:    []error{nil, errors.New("second call failed")},
	}
	rv := &scriptedReviewer{decisions: []Decision{Reject("redo")}}

	got, err := newWorkflow(ex, rv, checkpoint.NewMemoryStore(), Options{}).Run(ctx, Input{SessionID: "s", RawMarkdown: "x"})
	if !errors.Is(err, ErrExtractionFailed) || got != nil {
		t.Fatalf("Run() = %v, %v; want no result and ErrExtractionFailed", got, err)
	}
	if len(rv.seen) != 1 {
		t.Errorf("stale result must not be offered for review again, reviewer called %d times", len(rv.seen))
	}
}

func TestRetryLimit(t *testing.T) {
	ctx := context.Background()
	ex := &fakeExtractor{results: []*paper.StructuredPaper{testPaper("v")}}
	rv := &scriptedReviewer{decisions: []Decision{Reject("a"), Reject("b"), Reject("c")}}

	_, err := newWorkflow(ex, rv, checkpoint.NewMemoryStore(), Options{MaxRetries: 2}).Run(ctx, Input{SessionID: "s", RawMarkdown: "x"})
	if !errors.Is(err, ErrRetryLimit) {
		t.Fatalf("Run() error = %v, want ErrRetryLimit", err)
	}
	if len(ex.requests) != 3 {
		t.Errorf("expected initial extraction plus 2 retries, got %d", len(ex.requests))
	}
}

func TestAttemptTimeout(t *testing.T) {
	ctx := context.Background()
	ex := &fakeExtractor{results: []*paper.StructuredPaper{testPaper("slow")}, delay: time.Second}

	start := time.Now()
	_, err := newWorkflow(ex, AutoApprover{}, checkpoint.NewMemoryStore(), Options{AttemptTimeout: 20 * time.Millisecond}).
		Run(ctx, Input{SessionID: "s", RawMarkdown: "x"})
	if !errors.Is(err, ErrAttemptTimeout) {
		t.Fatalf("Run() error = %v, want ErrAttemptTimeout", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("timeout was not enforced")
	}
}

func TestReviewDecisionTimeout(t *testing.T) {
	ctx := context.Background()
	ex := &fakeExtractor{results: []*paper.StructuredPaper{testPaper("v")}}
	waiting := ReviewerFunc(func(ctx context.Context, _ *State) (Decision, error) {
		<-ctx.Done()
		return Decision{}, ctx.Err()
	})
	store := checkpoint.NewMemoryStore()

	_, err := newWorkflow(ex, waiting, store, Options{AttemptTimeout: 20 * time.Millisecond}).Run(ctx, Input{SessionID: "s", RawMarkdown: "x"})
	if !errors.Is(err, ErrAttemptTimeout) {
		t.Fatalf("Run() error = %v, want ErrAttemptTimeout", err)
	}

	data, err := store.Load(ctx, "s")
	if err != nil {
		t.Fatalf("checkpoint should remain at the suspension point: %v", err)
	}
	state, _ := DecodeState(data)
	if state.Stage != StageAwaitingReview || state.StructuredPaper == nil {
		t.Errorf("checkpoint state = %s, paper = %v", state.Stage, state.StructuredPaper)
	}
}

func TestSessionExistsAndResume(t *testing.T) {
	ctx := context.Background()
	store := checkpoint.NewMemoryStore()
	ex := &fakeExtractor{results: []*paper.StructuredPaper{testPaper("v1"), testPaper("v2")}}

	// First run stops at the suspension point.
	aborting := ReviewerFunc(func(context.Context, *State) (Decision, error) { return Decision{}, ErrReviewAborted })
	if _, err := newWorkflow(ex, aborting, store, Options{}).Run(ctx, Input{SessionID: "s", RawMarkdown: "x"}); !errors.Is(err, ErrReviewAborted) {
		t.Fatalf("first Run() error = %v", err)
	}

	if _, err := newWorkflow(ex, AutoApprover{}, store, Options{}).Run(ctx, Input{SessionID: "s", RawMarkdown: "x"}); !errors.Is(err, ErrSessionExists) {
		t.Fatalf("second Run() error = %v, want ErrSessionExists", err)
	}

	rv := &scriptedReviewer{decisions: []Decision{Reject("more detail"), Approve()}}
	got, err := newWorkflow(ex, rv, store, Options{}).Run(ctx, Input{SessionID: "s", Resume: true})
	if err != nil {
		t.Fatalf("resumed Run() error = %v", err)
	}
	if got.PaperTitle != "v2" {
		t.Errorf("resumed result = %q", got.PaperTitle)
	}
	if rv.seen[0].PaperTitle != "v1" {
		t.Error("resume should review the checkpointed result without re-extracting")
	}
	if len(ex.requests) != 2 {
		t.Errorf("expected 2 extraction calls total, got %d", len(ex.requests))
	}
}

func TestKeepCheckpointsArchives(t *testing.T) {
	ctx := context.Background()
	store := checkpoint.NewMemoryStore()
	ex := &fakeExtractor{results: []*paper.StructuredPaper{testPaper("v")}}

	if _, err := newWorkflow(ex, AutoApprover{}, store, Options{KeepCheckpoints: true}).Run(ctx, Input{SessionID: "keep", RawMarkdown: "x"}); err != nil {
		t.Fatal(err)
	}
	infos, _ := store.List(ctx)
	if len(infos) != 1 || !infos[0].Archived {
		t.Errorf("expected archived checkpoint, got %+v", infos)
	}

	// The archived session no longer blocks a new run under the same ID.
	if _, err := newWorkflow(ex, AutoApprover{}, store, Options{}).Run(ctx, Input{SessionID: "keep", RawMarkdown: "x"}); err != nil {
		t.Errorf("rerun after archive error = %v", err)
	}
}

func TestConcurrentSessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := checkpoint.NewMemoryStore()

	type result struct {
		title string
		err   error
	}
	results := make(chan result, 2)
	for _, id := range []string{"alpha", "beta"} {
		id := id
		go func() {
			ex := &fakeExtractor{results: []*paper.StructuredPaper{testPaper(id)}}
			p, err := newWorkflow(ex, AutoApprover{}, store, Options{}).Run(ctx, Input{SessionID: id, RawMarkdown: id})
			if err != nil {
				results <- result{err: err}
				return
			}
			results <- result{title: p.PaperTitle}
		}()
	}
	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		r := <-results
		if r.err != nil {
			t.Fatalf("Run() error = %v", r.err)
		}
		seen[r.title] = true
	}
	if !seen["alpha"] || !seen["beta"] {
		t.Errorf("results = %v", seen)
	}
}

func TestInvalidSessionID(t *testing.T) {
	_, err := newWorkflow(&fakeExtractor{}, AutoApprover{}, checkpoint.NewMemoryStore(), Options{}).
		Run(context.Background(), Input{SessionID: "../x"})
	if !errors.Is(err, checkpoint.ErrInvalidID) {
		t.Errorf("Run() error = %v, want ErrInvalidID", err)
	}
}

func TestPromptReviewer(t *testing.T) {
	state := &State{StructuredPaper: testPaper("Prompted"), Attempts: 1}

	tests := []struct {
		name    string
		input   string
		want    Decision
		wantErr error
	}{
		{"ok", "ok\n", Approve(), nil},
		{"yes mixed case", "  YeS \n", Approve(), nil},
		{"y", "y\n", Approve(), nil},
		{"blank lines re-prompt", "\n\n  \nneeds more numbers\n", Reject("needs more numbers"), nil},
		{"eof", "", Decision{}, ErrReviewAborted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			r := NewPromptReviewer(strings.NewReader(tt.input), &out)
			got, err := r.Review(context.Background(), state)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Review() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Review() = %+v, want %+v", got, tt.want)
			}
			if !strings.Contains(out.String(), "Prompted") || !strings.Contains(out.String(), "1 Sections detected.") {
				t.Errorf("summary not rendered:\n%s", out.String())
			}
		})
	}
}

func TestIsApproval(t *testing.T) {
	for _, s := range []string{"ok", "OK", "y", "yes", " Yes "} {
		if !IsApproval(s) {
			t.Errorf("IsApproval(%q) = false", s)
		}
	}
	for _, s := range []string{"", "no", "okay then", "yess"} {
		if IsApproval(s) {
			t.Errorf("IsApproval(%q) = true", s)
		}
	}
}

func TestFormatSummary(t *testing.T) {
	p := testPaper("Summary Paper")
	p.Sections = append(p.Sections, paper.PaperSection{
		SectionTitle:   "Results",
		RelatedFigures: []paper.FigureInfo{{ImagePath: "assets/element_1.png"}, {ImagePath: "assets/element_2.png"}},
	})

	var out bytes.Buffer
	FormatSummary(&out, p, 0)
	s := out.String()
	for _, want := range []string{"Summary Paper", "2 Sections detected.", "1. Introduction", "(Img: 0)", "2. Results", "(Img: 2)"} {
		if !strings.Contains(s, want) {
			t.Errorf("summary missing %q:\n%s", want, s)
		}
	}
}
