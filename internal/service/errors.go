package service

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")

	// ErrMalformedResponse means the detection service answered with
	// something that is not a detection result. The attempt is aborted and
	// history is left untouched.
	ErrMalformedResponse = errors.New("malformed detection response")

	// ErrDetectionFailed wraps transport and status errors from the detector.
	ErrDetectionFailed = errors.New("detection failed")

	// ErrPersistenceFailure and ErrCorruptPersistedState are never returned
	// from history operations; they only travel on the warning channel.
	ErrPersistenceFailure    = errors.New("history persistence failed")
	ErrCorruptPersistedState = errors.New("persisted history is corrupt")
)
