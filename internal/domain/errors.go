package domain

import "errors"

var (
	// ErrInvalidDifficulty is returned when a difficulty is outside 1-3.
	ErrInvalidDifficulty = errors.New("difficulty must be 1, 2 or 3")
	// ErrInvalidAnswerOption is returned when an answer is not one of A-D.
	ErrInvalidAnswerOption = errors.New("answer must be one of A, B, C or D")
	// ErrInvalidResponseTime is returned when a response time falls outside [0, 3600] seconds.
	ErrInvalidResponseTime = errors.New("response time must be between 0 and 3600 seconds")

	// ErrSessionAlreadyActive is returned when a user starts a quiz while one is in flight.
	ErrSessionAlreadyActive = errors.New("quiz session already active for user")
	// ErrSessionNotFound is returned when no active session exists for the user.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionCompleted is returned when an answer arrives for a finished session.
	ErrSessionCompleted = errors.New("quiz session already completed")

	// ErrNoEligibleQuestion means the chapter has no questions at the requested
	// difficulty. Callers must end the session; this is not retryable.
	ErrNoEligibleQuestion = errors.New("no eligible question for chapter and difficulty")

	// ErrConcurrentUpdate signals a serialization failure on the per-user
	// aggregate update; the whole recording call is safe to retry.
	ErrConcurrentUpdate = errors.New("concurrent update conflict")
	// ErrStorageUnavailable wraps backing-store connectivity failures.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrChapterNotFound indicates an unknown chapter ID.
	ErrChapterNotFound = errors.New("chapter not found")
	// ErrQuestionNotFound indicates an unknown question ID.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrUserNotFound indicates the user has never interacted with the engine.
	ErrUserNotFound = errors.New("user not found")
)
