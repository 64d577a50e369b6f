package connection

import "errors"

var (
	ErrNotFound      = errors.New("connection not found")
	ErrAlreadyExists = errors.New("connection already exists")
)

// Conn is a live participant connection as seen by the room service.
type Conn interface {
	Id() string
	// Send enqueues data without blocking and reports false when the connection cannot keep up.
	Send(data []byte) bool
	Close()
}
