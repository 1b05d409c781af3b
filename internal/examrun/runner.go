// Package examrun drives the exam-taking state machine for one (user, quiz)
// pair: a persisted countdown seeded from the start timestamp, focus-loss
// violation tracking with a debounce window, and a single terminal Ended
// state reached through a compare-and-set transition.
package examrun

import (
	"time"

	"github.com/pavelanni/quizdesk/internal/model"
	"github.com/pavelanni/quizdesk/internal/store"
)

const (
	// DefaultCooldown suppresses duplicate focus-loss events fired in quick
	// succession (blur immediately followed by visibilitychange).
	DefaultCooldown = 2 * time.Second
	// DefaultMaxViolations is the count at which the exam is forced shut.
	DefaultMaxViolations = 3
	// Untimed marks the remaining-seconds value for quizzes without a limit.
	Untimed = -1
)

// Outcome classifies what a reported violation did to the exam run.
type Outcome string

const (
	// OutcomeIgnored means the event was debounced or the run had already
	// ended; nothing changed.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeWarning is the first strike.
	OutcomeWarning Outcome = "warning"
	// OutcomeFinalWarning is the next-to-last strike.
	OutcomeFinalWarning Outcome = "final_warning"
	// OutcomeEnded means this event forced the run shut; the client must
	// auto-submit whatever answers it has.
	OutcomeEnded Outcome = "ended"
)

// Snapshot is the client-facing view of an exam run.
type Snapshot struct {
	Status           model.ExamStatus `json:"status"`
	Violations       int              `json:"violations"`
	RemainingSeconds int              `json:"remainingSeconds"` // Untimed (-1) when no limit
	EndCause         model.EndCause   `json:"endCause,omitempty"`
}

// Runner coordinates exam-state transitions against the store.
type Runner struct {
	store         *store.Store
	cooldown      time.Duration
	maxViolations int
	now           func() time.Time
}

// Config tunes the runner. Zero values pick the defaults.
type Config struct {
	Cooldown      time.Duration
	MaxViolations int
}

// New creates a Runner.
func New(s *store.Store, cfg Config) *Runner {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.MaxViolations <= 0 {
		cfg.MaxViolations = DefaultMaxViolations
	}
	return &Runner{
		store:         s,
		cooldown:      cfg.Cooldown,
		maxViolations: cfg.MaxViolations,
		now:           time.Now,
	}
}

// MaxViolations returns the count at which the run is forced shut.
func (r *Runner) MaxViolations() int {
	return r.maxViolations
}

// Start begins or resumes the exam run. The countdown is derived from the
// persisted start timestamp, so reloading the page resumes the original
// clock; an expired countdown observed here ends the run.
func (r *Runner) Start(userID, quizID int64, timeLimitMinutes int) (Snapshot, error) {
	state, err := r.store.GetOrCreateExamState(userID, quizID)
	if err != nil {
		return Snapshot{}, err
	}
	return r.observe(state, timeLimitMinutes)
}

// Violation records one focus-loss event and escalates: first strike is a
// warning, the next-to-last a final warning, and the last forces the run
// shut. Events inside the cooldown window after the previous one are
// debounced. Ended runs ignore everything.
func (r *Runner) Violation(userID, quizID int64, timeLimitMinutes int) (Outcome, Snapshot, error) {
	return r.violationAt(userID, quizID, timeLimitMinutes, r.now())
}

func (r *Runner) violationAt(userID, quizID int64, timeLimitMinutes int, at time.Time) (Outcome, Snapshot, error) {
	state, err := r.store.GetOrCreateExamState(userID, quizID)
	if err != nil {
		return OutcomeIgnored, Snapshot{}, err
	}

	snap, err := r.observe(state, timeLimitMinutes)
	if err != nil {
		return OutcomeIgnored, snap, err
	}
	if snap.Status == model.ExamEnded {
		return OutcomeIgnored, snap, nil
	}

	if state.LastViolationAt != nil && at.Sub(*state.LastViolationAt) < r.cooldown {
		return OutcomeIgnored, snap, nil
	}

	if err := r.store.RecordViolation(userID, quizID, at); err != nil {
		return OutcomeIgnored, snap, err
	}
	snap.Violations = state.Violations + 1

	switch {
	case snap.Violations >= r.maxViolations:
		// The CAS may lose to a concurrent submit or expiry; the run is
		// ended either way.
		if _, err := r.store.EndExamState(userID, quizID, model.EndCauseViolations); err != nil {
			return OutcomeIgnored, snap, err
		}
		snap.Status = model.ExamEnded
		snap.EndCause = model.EndCauseViolations
		return OutcomeEnded, snap, nil
	case snap.Violations == r.maxViolations-1:
		return OutcomeFinalWarning, snap, nil
	default:
		return OutcomeWarning, snap, nil
	}
}

// End transitions the run to the terminal state. It reports whether this
// caller won the transition; losers are no-ops.
func (r *Runner) End(userID, quizID int64, cause model.EndCause) (bool, error) {
	return r.store.EndExamState(userID, quizID, cause)
}

// observe folds countdown expiry into the state and builds a snapshot.
func (r *Runner) observe(state model.ExamState, timeLimitMinutes int) (Snapshot, error) {
	snap := Snapshot{
		Status:           state.Status,
		Violations:       state.Violations,
		RemainingSeconds: Untimed,
		EndCause:         state.EndCause,
	}
	if timeLimitMinutes <= 0 {
		return snap, nil
	}

	remaining := timeLimitMinutes*60 - int(r.now().Sub(state.StartedAt)/time.Second)
	if remaining < 0 {
		remaining = 0
	}
	snap.RemainingSeconds = remaining

	if remaining == 0 && state.Status == model.ExamActive {
		if _, err := r.store.EndExamState(state.UserID, state.QuizID, model.EndCauseExpired); err != nil {
			return snap, err
		}
		snap.Status = model.ExamEnded
		snap.EndCause = model.EndCauseExpired
	}
	return snap, nil
}
