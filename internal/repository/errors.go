package repository

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrSessionOverlap is returned when an active session of the mentor already occupies the window.
	ErrSessionOverlap = errors.New("session overlaps an active session of the mentor")
	// ErrStaleStatus is returned when a conditional session update matched no row in the expected status.
	ErrStaleStatus = errors.New("session status changed concurrently")
)

// Postgres error codes the write path treats as booking conflicts.
const (
	pgExclusionViolation   = "23P01"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// translateWriteError maps constraint and serialization failures onto ErrSessionOverlap.
func translateWriteError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pgExclusionViolation, pgSerializationFailure, pgDeadlockDetected:
			return ErrSessionOverlap
		}
	}
	return err
}
