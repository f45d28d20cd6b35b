package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// ErrSessionConflict matches every insert rejected by one of the booked-session
// unique indexes. Use errors.As with *ConflictError to learn which one.
var ErrSessionConflict = errors.New("session conflict")

// ConflictKind says which booking invariant the store refused to break.
type ConflictKind int

const (
	// ConflictSlot means the mentor already has a booked session at that date and start time.
	ConflictSlot ConflictKind = iota + 1
	// ConflictActiveSession means the student already holds a booked session in the program.
	ConflictActiveSession
)

const (
	constraintSlot          = "sessions_mentor_slot_booked_key"
	constraintActiveSession = "sessions_program_student_booked_key"

	pqUniqueViolation = "23505"
)

// ConflictError wraps the driver error behind a unique-index rejection.
type ConflictError struct {
	Kind       ConflictKind
	Constraint string
	Err        error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("session conflict on %s: %v", e.Constraint, e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrSessionConflict) match.
func (e *ConflictError) Is(target error) bool { return target == ErrSessionConflict }

// classifySessionWriteError turns a unique violation from either driver into a
// *ConflictError and leaves every other error untouched.
func classifySessionWriteError(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
		kind := ConflictSlot
		if pqErr.Constraint == constraintActiveSession {
			kind = ConflictActiveSession
		}
		return &ConflictError{Kind: kind, Constraint: constraintName(kind), Err: err}
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && liteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		// SQLite names the columns, not the index: "UNIQUE constraint failed: sessions.program_id, sessions.student_id".
		kind := ConflictSlot
		if strings.Contains(liteErr.Error(), "sessions.program_id") {
			kind = ConflictActiveSession
		}
		return &ConflictError{Kind: kind, Constraint: constraintName(kind), Err: err}
	}

	return err
}

func constraintName(kind ConflictKind) string {
	if kind == ConflictActiveSession {
		return constraintActiveSession
	}
	return constraintSlot
}
