package review

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Decision is the reviewer's verdict on one extraction.
type Decision struct {
	Approved bool
	Comment  string
}

// Approve is the approving decision.
func Approve() Decision { return Decision{Approved: true} }

// Reject returns a rejecting decision carrying comment.
func Reject(comment string) Decision { return Decision{Comment: comment} }

// Reviewer inspects an extracted paper and decides its fate.
type Reviewer interface {
	Review(ctx context.Context, state *State) (Decision, error)
}

// ReviewerFunc adapts a function to Reviewer.
type ReviewerFunc func(ctx context.Context, state *State) (Decision, error)

func (f ReviewerFunc) Review(ctx context.Context, state *State) (Decision, error) {
	return f(ctx, state)
}

// AutoApprover approves every result. Used for unattended runs.
type AutoApprover struct{}

func (AutoApprover) Review(context.Context, *State) (Decision, error) {
	return Approve(), nil
}

// IsApproval reports whether a reply approves the result.
func IsApproval(reply string) bool {
	switch strings.ToLower(strings.TrimSpace(reply)) {
	case "ok", "y", "yes":
		return true
	}
	return false
}

// PromptReviewer shows a summary on out and reads the decision from in.
// Blank replies re-prompt; end of input aborts the review.
type PromptReviewer struct {
	out io.Writer

	once  sync.Once
	in    io.Reader
	lines chan lineResult
}

type lineResult struct {
	text string
	err  error
}

// NewPromptReviewer returns a reviewer reading replies line by line from in.
func NewPromptReviewer(in io.Reader, out io.Writer) *PromptReviewer {
	return &PromptReviewer{in: in, out: out}
}

// start launches the single reader goroutine so a pending read survives a
// cancelled Review without racing a later one.
func (r *PromptReviewer) start() {
	r.once.Do(func() {
		r.lines = make(chan lineResult)
		go func() {
			scanner := bufio.NewScanner(r.in)
			for scanner.Scan() {
				r.lines <- lineResult{text: scanner.Text()}
			}
			err := scanner.Err()
			if err == nil {
				err = io.EOF
			}
			for {
				r.lines <- lineResult{err: err}
			}
		}()
	})
}

func (r *PromptReviewer) Review(ctx context.Context, state *State) (Decision, error) {
	r.start()
	FormatSummary(r.out, state.StructuredPaper, state.Attempts)

	for {
		fmt.Fprint(r.out, FormatPrompt())
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.out)
			return Decision{}, ctx.Err()
		case line := <-r.lines:
			if line.err != nil {
				if line.err == io.EOF {
					return Decision{}, ErrReviewAborted
				}
				return Decision{}, fmt.Errorf("%w: %v", ErrReviewAborted, line.err)
			}
			reply := strings.TrimSpace(line.text)
			if reply == "" {
				continue
			}
			if IsApproval(reply) {
				return Approve(), nil
			}
			return Reject(reply), nil
		}
	}
}
