package domain

import "time"

// ExpiryPhase is the derived lifecycle phase of the option leg.
type ExpiryPhase string

const (
	// PhaseActive: before expiry. Withdraw paths are open, exercise is not.
	PhaseActive ExpiryPhase = "active"
	// PhaseExercisable: within [expiry, expiry+window). Exercise is open.
	PhaseExercisable ExpiryPhase = "exercisable"
	// PhaseExpired: after the exercise window closes. No unwind path that
	// touches the option leg remains.
	PhaseExpired ExpiryPhase = "expired"
)

// ExpiryState is a point-in-time reading of the option's time gates. It is
// recomputed from the option protocol's reported timestamps on every call;
// nothing here is stored or transitioned explicitly.
type ExpiryState struct {
	Phase     ExpiryPhase
	Expiry    time.Time
	WindowEnd time.Time
	Now       time.Time
}

// DeriveExpiryState computes the phase for now given the option's expiry
// timestamp and the protocol's exercise window length.
func DeriveExpiryState(now, expiry time.Time, window time.Duration) ExpiryState {
	s := ExpiryState{
		Expiry:    expiry,
		WindowEnd: expiry.Add(window),
		Now:       now,
	}
	switch {
	case now.Before(expiry):
		s.Phase = PhaseActive
	case now.Before(s.WindowEnd):
		s.Phase = PhaseExercisable
	default:
		s.Phase = PhaseExpired
	}
	return s
}

// Expired reports whether the option's expiry timestamp has passed.
func (s ExpiryState) Expired() bool {
	return s.Phase != PhaseActive
}

// WithinExerciseWindow reports whether exercise is currently permitted.
func (s ExpiryState) WithinExerciseWindow() bool {
	return s.Phase == PhaseExercisable
}
