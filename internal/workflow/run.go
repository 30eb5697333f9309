package workflow

import (
	"time"
)

// Run statuses. Active runs advance step by step; the terminal states are
// reached by finishing step 5 or by explicit caller cancellation.
const (
	StatusActive    = "active"
	StatusFinalized = "finalized"
	StatusAbandoned = "abandoned"
)

// Run is one pass through a fixed five-step workflow. Runs are session
// state: serialized to JSON and kept in the session store until finalized or
// abandoned.
type Run struct {
	ID             string         `json:"id"`
	Kind           Kind           `json:"kind"`
	Status         string         `json:"status"`
	CurrentStep    int            `json:"current_step"`
	CompletedSteps []int          `json:"completed_steps"`
	Inputs         map[string]any `json:"inputs"`
	CreatedBy      string         `json:"created_by,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// NewRun starts a run of kind at step 1.
func NewRun(id string, kind Kind, createdBy string) *Run {
	now := time.Now().UTC()
	return &Run{
		ID:             id,
		Kind:           kind,
		Status:         StatusActive,
		CurrentStep:    1,
		CompletedSteps: []int{},
		Inputs:         map[string]any{},
		CreatedBy:      createdBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Completed reports whether step has passed validation.
func (r *Run) Completed(step int) bool {
	for _, done := range r.CompletedSteps {
		if done == step {
			return true
		}
	}
	return false
}

func (r *Run) markCompleted(step int) {
	if !r.Completed(step) {
		r.CompletedSteps = append(r.CompletedSteps, step)
	}
}

// truncateCompleted drops completion flags for every step after toStep.
func (r *Run) truncateCompleted(toStep int) {
	kept := r.CompletedSteps[:0]
	for _, done := range r.CompletedSteps {
		if done <= toStep {
			kept = append(kept, done)
		}
	}
	r.CompletedSteps = kept
}

// Input returns a previously recorded step input.
func (r *Run) Input(key string) (any, bool) {
	value, ok := r.Inputs[key]
	return value, ok
}

// StringInput returns a recorded input coerced to string.
func (r *Run) StringInput(key string) string {
	if value, ok := r.Inputs[key]; ok {
		if s, ok := value.(string); ok {
			return s
		}
	}
	return ""
}
