package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into coded domain errors.
//
// These represent factual states about rows, not validation failures:
// - ErrNotFound: row does not exist in store
// - ErrAlreadyUsed: a uniqueness slot is taken (one postulación per
//   applicant and call, one rendición per postulación)
// - ErrInvalidState: row is in the wrong state for the requested operation
// - ErrQuotaExhausted: the per-kind document allowance is already consumed
// - ErrConflict: concurrent writers collided on the same row
//
// For validation errors (bad input, missing fields), use pkg/domain-errors
// directly.
var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyUsed    = errors.New("already used")
	ErrInvalidState   = errors.New("invalid state")
	ErrQuotaExhausted = errors.New("quota exhausted")
	ErrConflict       = errors.New("conflict")
)
