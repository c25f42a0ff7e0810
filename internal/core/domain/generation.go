package domain

import "time"

// GenerationOutcome summarises what a reconcile pass did for one source.
type GenerationOutcome string

// Reconcile outcomes.
const (
	// OutcomeUpToDate means the staleness check short-circuited generation.
	OutcomeUpToDate GenerationOutcome = "up_to_date"

	// OutcomeGenerated means derivatives were rendered and uploaded.
	OutcomeGenerated GenerationOutcome = "generated"

	// OutcomeSkipped means the source was skipped after a consistency problem.
	OutcomeSkipped GenerationOutcome = "skipped"

	// OutcomeFailed means generation failed part way.
	OutcomeFailed GenerationOutcome = "failed"
)

// GenerationResult describes the derivative set changes of one reconcile pass.
type GenerationResult struct {
	// SourceID is the remote identifier of the score.
	SourceID string

	// SourceName is the score file name.
	SourceName string

	// Outcome is the overall result.
	Outcome GenerationOutcome

	// Created lists ids of derivatives that did not exist before.
	Created []string

	// Updated lists ids of derivatives overwritten in place.
	Updated []string

	// Trashed lists ids of orphaned derivatives moved to trash.
	Trashed []string
}

// Touched returns the ids of every derivative written during the pass.
func (r *GenerationResult) Touched() []string {
	touched := make([]string, 0, len(r.Created)+len(r.Updated))
	touched = append(touched, r.Created...)
	return append(touched, r.Updated...)
}

// GenerationRecord is a persisted history entry for one reconcile pass.
type GenerationRecord struct {
	// ID is a unique identifier for the pass.
	ID string

	// SourceID is the remote identifier of the score.
	SourceID string

	// SourceName is the score file name.
	SourceName string

	// Outcome is the overall result.
	Outcome GenerationOutcome

	// Derivatives is the number of derivatives written.
	Derivatives int

	// Trashed is the number of orphaned derivatives removed.
	Trashed int

	// Error holds the failure message when Outcome is skipped or failed.
	Error string

	// StartedAt is when the pass began.
	StartedAt time.Time

	// EndedAt is when the pass finished.
	EndedAt time.Time
}
