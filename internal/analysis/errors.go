package analysis

import "errors"

var (
	// ErrInvalidInput indicates a batch that cannot be analysed: empty, a
	// record without a reason field, or no non-empty reason at all.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCollaborator indicates a failure in an external collaborator such
	// as the embedding provider.
	ErrCollaborator = errors.New("collaborator failure")

	// ErrInternal indicates a broken internal contract, for example
	// embeddings that do not line up with the records.
	ErrInternal = errors.New("internal analysis error")
)
