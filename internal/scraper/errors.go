package scraper

import "errors"

// Sentinel errors for run-level failures. Per-item ingestion failures are
// aggregated into the job result instead, they never carry one of these.
var (
	// ErrValidation marks a bad job configuration. Never retried.
	ErrValidation = errors.New("invalid job configuration")

	// ErrCollaborator marks a search collaborator failure that aborts the
	// whole run.
	ErrCollaborator = errors.New("search collaborator failure")
)
