package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a game session has not been initialized.
	ErrSessionNotFound = errors.New("game session not found")
	// ErrParticipantNotFound is returned when a user tries to act before joining.
	ErrParticipantNotFound = errors.New("participant not found in session")
	// ErrQuestionSetNotFound indicates the question set could not be loaded.
	ErrQuestionSetNotFound = errors.New("question set not found")
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound = errors.New("question not found")

	// ErrEmptyExpectedSet indicates a FreeText or MultipleChoice question with
	// no acceptable answers; a misconfigured record, not bad user input.
	ErrEmptyExpectedSet = errors.New("question has no expected answers")
	// ErrMissingTarget indicates a Calculation question without a numeric target.
	ErrMissingTarget = errors.New("calculation question has no numeric target")
	// ErrInvalidLimit indicates a non-positive leaderboard limit.
	ErrInvalidLimit = errors.New("leaderboard limit must be positive")
	// ErrUnknownWindow indicates an unrecognized leaderboard time window.
	ErrUnknownWindow = errors.New("unknown leaderboard window")
	// ErrUnknownScope indicates an unrecognized mastery aggregation scope.
	ErrUnknownScope = errors.New("unknown mastery scope")
)
