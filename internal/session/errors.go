package session

import "errors"

var (
	// ErrAlreadyRunning is returned when a start is requested for an
	// instance whose session is already alive.
	ErrAlreadyRunning = errors.New("session already running")

	// ErrNotRunning is returned when input is sent to an instance with no
	// live session.
	ErrNotRunning = errors.New("session not running")

	// ErrArtifactMissing is returned when the instance's runtime jar does
	// not exist on disk.
	ErrArtifactMissing = errors.New("server jar not found")

	// ErrSpawnFailed is returned when the multiplexer accepted the start
	// command but no session appeared.
	ErrSpawnFailed = errors.New("failed to spawn session")
)
