package domain

import "errors"

// Failure taxonomy shared by every operation. Each error a component returns
// wraps exactly one of these sentinels so callers can branch with errors.Is.
var (
	// ErrInvalidInput indicates malformed input or configuration, rejected
	// before any I/O: empty text, bad k, overlap >= chunk size.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound indicates an unknown session id.
	ErrNotFound = errors.New("not found")

	// ErrEmptyIndex indicates a session whose index holds zero passages.
	// Should not occur given ingestion atomicity; handled defensively.
	ErrEmptyIndex = errors.New("empty index")

	// ErrUpstream indicates the embedding or answering provider failed
	// (network, timeout, quota). Eligible for caller-side retry; the core
	// never retries on its own.
	ErrUpstream = errors.New("upstream provider failure")

	// ErrCorruptState indicates a persisted index that cannot be loaded or
	// whose embedding dimension no longer matches the configured embedder.
	// Fatal for that session only; it can be deleted and recreated.
	ErrCorruptState = errors.New("corrupt session state")

	// ErrSynthesisFailed indicates the answering model could not be reached
	// or returned no output. Distinct from parse failures, which are absorbed
	// by the synthesizer's fallback and never surface as errors.
	ErrSynthesisFailed = errors.New("answer synthesis failed")
)
