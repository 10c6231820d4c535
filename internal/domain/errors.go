package domain

import "errors"

var (
	// ErrSourceUnavailable is returned when the question bank cannot be read.
	ErrSourceUnavailable = errors.New("question source unavailable")
	// ErrStorageUnavailable is returned when the score ledger cannot be reached.
	ErrStorageUnavailable = errors.New("score storage unavailable")
	// ErrRenderFailed is returned when the certificate image could not be produced.
	ErrRenderFailed = errors.New("certificate rendering failed")
)
