package review

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/itsmostafa/paperalchemy/internal/paper"
)

// Stage is a state of the review workflow.
type Stage string

const (
	StageExtracting     Stage = "extracting"
	StageAwaitingReview Stage = "awaiting_review"
	StageRetrying       Stage = "retrying"
	StageApproved       Stage = "approved"
	StageFailed         Stage = "failed"
)

// State is the checkpointed workflow state of one session.
type State struct {
	SessionID       string                 `json:"session_id"`
	Stage           Stage                  `json:"stage"`
	RawMarkdown     string                 `json:"raw_markdown"`
	AssetsList      []paper.Asset          `json:"assets_list"`
	FeedbackHistory []string               `json:"feedback_history"`
	StructuredPaper *paper.StructuredPaper `json:"structured_paper"`
	IsApproved      bool                   `json:"is_approved"`
	Attempts        int                    `json:"attempts"`
	LastError       string                 `json:"last_error,omitempty"`
	StartedAt       time.Time              `json:"started_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// Retries returns the number of re-extractions requested by the reviewer.
func (s *State) Retries() int {
	return len(s.FeedbackHistory)
}

func encodeState(s *State) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal workflow state: %w", err)
	}
	return data, nil
}

// DecodeState parses a checkpoint snapshot.
func DecodeState(data []byte) (*State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse workflow state: %w", err)
	}
	return &s, nil
}
