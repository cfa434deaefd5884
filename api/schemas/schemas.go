// api/schemas/schemas.go
package schemas

import (
	"time"
)

// ActionKind enumerates the deterministic browser actions a scripted step can
// perform. Dispatch over this enum is exhaustive in the runner; new actions
// are added here, not as scattered string comparisons.
type ActionKind string

const (
	ActionNavigate ActionKind = "navigate"
	ActionFill     ActionKind = "fill"
	ActionClick    ActionKind = "click"
	ActionSelect   ActionKind = "select"
	ActionWait     ActionKind = "wait"
)

// Valid reports whether the kind is one of the known scripted actions.
func (k ActionKind) Valid() bool {
	switch k {
	case ActionNavigate, ActionFill, ActionClick, ActionSelect, ActionWait:
		return true
	}
	return false
}

// StepPreference declares which execution path a step wants first.
type StepPreference string

const (
	PreferSnippet StepPreference = "snippet"
	PreferAI      StepPreference = "ai"
)

// FallbackPolicy declares what happens when the preferred path fails.
type FallbackPolicy string

const (
	FallbackNone    FallbackPolicy = "none"
	FallbackAI      FallbackPolicy = "ai"
	FallbackSnippet FallbackPolicy = "snippet"
)

// ExecutionMethod records which path ultimately performed a step.
type ExecutionMethod string

const (
	MethodSnippet ExecutionMethod = "snippet"
	MethodAI      ExecutionMethod = "ai"
	MethodHybrid  ExecutionMethod = "hybrid"
)

// SkipConditionKind enumerates the checks that can short-circuit a step.
type SkipConditionKind string

const (
	SkipURLMatch      SkipConditionKind = "url_match"
	SkipElementExists SkipConditionKind = "element_exists"
	SkipTextPresent   SkipConditionKind = "text_present"
)

// SkipCondition describes a page state under which a step must not run.
// Replay frequently starts from an already-authenticated or already-navigated
// state; repeating a login step blindly would corrupt the session.
type SkipCondition struct {
	Kind    SkipConditionKind `json:"kind"`
	Pattern string            `json:"pattern"`
	Reason  string            `json:"reason,omitempty"`
}

// CriteriaKind enumerates the supported success-criteria variants.
type CriteriaKind string

const (
	CriteriaElementExists   CriteriaKind = "element_exists"
	CriteriaElementHasValue CriteriaKind = "element_has_value"
	CriteriaNavigation      CriteriaKind = "navigation"
	CriteriaCustom          CriteriaKind = "custom"
	CriteriaAIVerify        CriteriaKind = "ai_verify"
)

// SuccessCriteria is the declared, step-specific check used to decide whether
// an attempt achieved its goal. Exactly one variant is active, selected by
// Kind; only the fields relevant to that variant are populated.
type SuccessCriteria struct {
	Kind CriteriaKind `json:"kind"`

	// element_exists / element_has_value
	Selector      string `json:"selector,omitempty"`
	ExpectedValue string `json:"expected_value,omitempty"`

	// navigation
	URLPattern     string `json:"url_pattern,omitempty"`
	WaitForElement string `json:"wait_for_element,omitempty"`

	// custom: a JavaScript expression evaluated in the page, must yield a bool.
	PredicateJS string `json:"predicate_js,omitempty"`

	// ai_verify
	Description string `json:"description,omitempty"`
}

// Step is one unit of an intent specification. Steps are immutable once
// loaded; the playback driver owns them for the duration of a run.
type Step struct {
	Name               string          `json:"name"`
	ScriptedAction     ActionKind      `json:"scripted_action,omitempty"`
	Instruction        string          `json:"instruction,omitempty"`
	CandidateSelectors []string        `json:"candidate_selectors,omitempty"`
	// Value may contain {{VARIABLE}} placeholders, substituted at execution
	// time. Unbound placeholders are left intact.
	Value          string           `json:"value,omitempty"`
	TargetURL      string           `json:"target_url,omitempty"`
	Preference     StepPreference   `json:"preference,omitempty"`
	FallbackPolicy FallbackPolicy   `json:"fallback_policy,omitempty"`
	SkipConditions []SkipCondition  `json:"skip_conditions,omitempty"`
	SuccessCriteria *SuccessCriteria `json:"success_criteria,omitempty"`
}

// HasScriptedPath reports whether the step carries enough information for the
// deterministic runner to attempt it.
func (s *Step) HasScriptedPath() bool {
	if !s.ScriptedAction.Valid() {
		return false
	}
	switch s.ScriptedAction {
	case ActionNavigate:
		return s.TargetURL != ""
	default:
		return len(s.CandidateSelectors) > 0
	}
}

// Criteria returns the step's success criteria, defaulting to an AI-judged
// check when none was declared.
func (s *Step) Criteria() SuccessCriteria {
	if s.SuccessCriteria != nil {
		return *s.SuccessCriteria
	}
	desc := s.Instruction
	if desc == "" {
		desc = "the step named " + s.Name + " completed as a user would expect"
	}
	return SuccessCriteria{Kind: CriteriaAIVerify, Description: desc}
}

// IntentSpec is the input contract consumed from the recording/intent-spec
// collaborator: an ordered sequence of steps plus a start URL and the set of
// declared variable names. The engine is agnostic to how it was produced.
type IntentSpec struct {
	Name      string   `json:"name"`
	StartURL  string   `json:"start_url"`
	Variables []string `json:"variables,omitempty"`
	Steps     []Step   `json:"steps"`
}

// ErrorKind classifies a scripted failure for the recovery executor.
type ErrorKind string

const (
	ErrKindTimeout          ErrorKind = "timeout"
	ErrKindSelectorNotFound ErrorKind = "selector_not_found"
	ErrKindNavigation       ErrorKind = "navigation"
	ErrKindNetwork          ErrorKind = "network"
	ErrKindClickFailed      ErrorKind = "click_failed"
	ErrKindInputFailed      ErrorKind = "input_failed"
	ErrKindUnknown          ErrorKind = "unknown"
)

// ErrorInfo carries the classified cause of a scripted failure.
type ErrorInfo struct {
	Message string    `json:"message"`
	Kind    ErrorKind `json:"kind"`
}

// PageStateSnapshot is a coarse summary of the live page, embedded in
// recovery instructions and verification prompts.
type PageStateSnapshot struct {
	URL            string   `json:"url"`
	Title          string   `json:"title"`
	VisibleInputs  []string `json:"visible_inputs,omitempty"`
	VisibleButtons []string `json:"visible_buttons,omitempty"`
	HasLoginForm   bool     `json:"has_login_form"`
}

// RecoveryAttempt records one prior attempt within a recovery call, fed back
// into the next instruction so the agent does not retry a falsified plan.
type RecoveryAttempt struct {
	Action  string `json:"action"`
	Outcome string `json:"outcome"`
}

// FailureContext is the bundle of error, history, and page-state information
// handed to the recovery executor. It is constructed fresh per scripted-step
// failure and discarded after one recovery call.
type FailureContext struct {
	Step               *Step             `json:"-"`
	Error              ErrorInfo         `json:"error"`
	AttemptedSelectors []string          `json:"attempted_selectors,omitempty"`
	PageState          PageStateSnapshot `json:"page_state"`
	PriorAttempts      []RecoveryAttempt `json:"prior_attempts,omitempty"`
}

// ActionRecord describes the action that ultimately satisfied a step. It is
// carried opaquely in ExecutionResult.Data so downstream consumers can replay
// or audit the winning action without parsing the human-readable trail.
type ActionRecord struct {
	Action   string `json:"action"`
	Selector string `json:"selector,omitempty"`
	Value    string `json:"value,omitempty"`
	URL      string `json:"url,omitempty"`
}

// ExecutionResult is the contract returned to the playback driver for every
// step, whatever path executed it. Error is populated iff Success is false.
// Data holds the winning action record on success (an ActionRecord from the
// scripted tier, a RecoveryAttempt from the AI tier).
type ExecutionResult struct {
	Success    bool            `json:"success"`
	Method     ExecutionMethod `json:"method,omitempty"`
	Data       interface{}     `json:"data,omitempty"`
	Skipped    bool            `json:"skipped,omitempty"`
	SkipReason string          `json:"skip_reason,omitempty"`
	AllActions []string        `json:"all_actions,omitempty"`
	Error      string          `json:"error,omitempty"`
	ErrorInfo  *ErrorInfo      `json:"error_info,omitempty"`
}

// RunStatistics is the controller-owned counter set accumulated across a run.
// It is a plain value object so concurrent runs (and tests) never interfere
// through shared package state.
type RunStatistics struct {
	ScriptedSuccesses int `json:"scripted_successes"`
	ScriptedFailures  int `json:"scripted_failures"`
	AISuccesses       int `json:"ai_successes"`
	AIFailures        int `json:"ai_failures"`
	Skipped           int `json:"skipped"`
	TotalSteps        int `json:"total_steps"`
}

// RunLogEntry is one step's outcome in the persisted audit log.
type RunLogEntry struct {
	Step    string   `json:"step"`
	Method  string   `json:"method"`
	Success bool     `json:"success"`
	Actions []string `json:"actions"`
}

// RunLog is the JSON artifact written per run, used for audit and debugging.
type RunLog struct {
	RunID      string         `json:"run_id"`
	Spec       string         `json:"spec"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Entries    []RunLogEntry  `json:"entries"`
	Statistics RunStatistics  `json:"statistics"`
}
