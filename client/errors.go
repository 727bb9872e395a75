package client

import "errors"

var (
	// ErrDuplicateName is returned when joining with a name that is
	// already taken in the session.
	ErrDuplicateName = errors.New("client: a participant with that name already joined the session")

	// ErrSessionNotFound is returned when joining a session id the server
	// does not know.
	ErrSessionNotFound = errors.New("client: session not found")

	// ErrCannotStartRound is raised when a start command arrives before
	// any setup has provided a question.
	ErrCannotStartRound = errors.New("client: cannot start round, the question has not been set")
)
