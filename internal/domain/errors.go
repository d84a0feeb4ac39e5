package domain

import "errors"

var (
	// ErrQuestionsUnavailable is returned when the question source cannot be read.
	ErrQuestionsUnavailable = errors.New("questions unavailable")
	// ErrResultsUnavailable is returned when the result store cannot be read or written.
	ErrResultsUnavailable = errors.New("results unavailable")
	// ErrAttemptNotFound is returned for unknown or expired attempts.
	ErrAttemptNotFound = errors.New("test session not found")
	// ErrAttemptRequired is returned when a submission carries neither a session id nor a question order.
	ErrAttemptRequired = errors.New("session id or question order required")
	// ErrInvalidQuestionOrder is returned when a client-supplied order is not a permutation of the question bank.
	ErrInvalidQuestionOrder = errors.New("question order must list every question exactly once")
	// ErrInvalidSubmission indicates missing participant details.
	ErrInvalidSubmission = errors.New("name and phone are required")
	// ErrUnknownTieBreak indicates an unsupported ranking tie-break name.
	ErrUnknownTieBreak = errors.New("unknown tie-break")
)
