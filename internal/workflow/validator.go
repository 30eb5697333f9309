package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRunClosed means the run already reached a terminal state.
	ErrRunClosed = errors.New("workflow: run is not active")
	// ErrStepOrder means the requested step is not the current one; steps
	// complete strictly in order.
	ErrStepOrder = errors.New("workflow: step out of order")
	// ErrUnknownRule means no predicate is registered under the step's
	// rule name. Unknown rules fail closed.
	ErrUnknownRule = errors.New("workflow: unknown validation rule")
	// ErrInvalidRollback means the rollback target is not a previously
	// completed step.
	ErrInvalidRollback = errors.New("workflow: invalid rollback target")
)

// ValidationError names the rule that rejected a step. The caller stays on
// the current step and may retry with corrected input.
type ValidationError struct {
	Rule   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation rule %s failed: %s", e.Rule, e.Reason)
}

// RuleFunc is a named domain predicate supplied by a collaborating service.
// Returning an error rejects the step; the validator wraps plain errors into
// a ValidationError carrying the rule name.
type RuleFunc func(ctx context.Context, run *Run, input map[string]any) error

// Registry maps rule names to predicates.
type Registry struct {
	rules map[string]RuleFunc
}

// NewRegistry creates an empty rule registry.
func NewRegistry() *Registry {
	return &Registry{rules: map[string]RuleFunc{}}
}

// Register binds a predicate to a rule name, replacing any previous binding.
func (r *Registry) Register(name string, fn RuleFunc) {
	r.rules[name] = fn
}

func (r *Registry) lookup(name string) (RuleFunc, bool) {
	fn, ok := r.rules[name]
	return fn, ok
}

// Validator gates step transitions of workflow runs. It orchestrates
// ordering and aggregates pass/fail; it implements no domain predicates
// itself.
type Validator struct {
	registry *Registry
}

// NewValidator creates a validator over registry.
func NewValidator(registry *Registry) *Validator {
	return &Validator{registry: registry}
}

// Advance validates step with the given input and, on success, marks it
// complete and moves the run forward. Completing step 5 finalizes the run.
// Requesting any step other than the current one is rejected.
func (v *Validator) Advance(ctx context.Context, run *Run, step int, input map[string]any) error {
	if run.Status != StatusActive {
		return ErrRunClosed
	}
	if step != run.CurrentStep {
		return ErrStepOrder
	}

	steps := Steps(run.Kind)
	if step < 1 || step > len(steps) {
		return ErrStepOrder
	}
	current := steps[step-1]

	for _, required := range current.RequiredInput {
		value, ok := input[required]
		if !ok || value == nil {
			return &ValidationError{Rule: current.Rule, Reason: fmt.Sprintf("missing required input %q", required)}
		}
		if s, isString := value.(string); isString && s == "" {
			return &ValidationError{Rule: current.Rule, Reason: fmt.Sprintf("missing required input %q", required)}
		}
	}

	rule, ok := v.registry.lookup(current.Rule)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRule, current.Rule)
	}
	if err := rule(ctx, run, input); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return verr
		}
		return &ValidationError{Rule: current.Rule, Reason: err.Error()}
	}

	for key, value := range input {
		run.Inputs[key] = value
	}
	run.markCompleted(step)
	if step == len(steps) {
		run.Status = StatusFinalized
	} else {
		run.CurrentStep = step + 1
	}
	run.UpdatedAt = time.Now().UTC()
	return nil
}

// Rollback returns the run to the state where toStep is the last completed
// step; later completion flags are cleared and the following step is
// re-validated from scratch on the next Advance. Rolling back to step 0
// restarts the run.
func (v *Validator) Rollback(run *Run, toStep int) error {
	if run.Status != StatusActive {
		return ErrRunClosed
	}
	if toStep < 0 || toStep >= run.CurrentStep {
		return ErrInvalidRollback
	}
	if toStep > 0 && !run.Completed(toStep) {
		return ErrInvalidRollback
	}
	run.truncateCompleted(toStep)
	run.CurrentStep = toStep + 1
	run.UpdatedAt = time.Now().UTC()
	return nil
}

// Abandon cancels a run from any non-terminal state. Nothing is persisted
// before step 5 succeeds, so there are no side effects to roll back.
func (v *Validator) Abandon(run *Run) error {
	if run.Status != StatusActive {
		return ErrRunClosed
	}
	run.Status = StatusAbandoned
	run.UpdatedAt = time.Now().UTC()
	return nil
}
