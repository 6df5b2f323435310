// Package gateway talks to the avatar server. HTTP is the real client; Fake
// answers the same calls in memory for offline play and tests.
package gateway

import (
	"errors"
	"fmt"

	"gridchat/world"
)

// Error is an explicit error reported by the server in an {"error": ...}
// reply.
type Error struct {
	Op      string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// IsServerError reports whether err carries an explicit server error rather
// than a transport or decode failure.
func IsServerError(err error) bool {
	var ge *Error
	return errors.As(err, &ge)
}

// Operation names used in errors.
const (
	OpCreate = "create"
	OpList   = "list"
	OpUpdate = "update"
	OpSpeak  = "speak"
)

// listEntry is one element of the list reply.
type listEntry struct {
	ID    world.ID `json:"id"`
	X     int      `json:"x"`
	Y     int      `json:"y"`
	Text  string   `json:"text"`
	Image string   `json:"image"`
}

func (e listEntry) record() world.Record {
	return world.Record{ID: e.ID, X: e.X, Y: e.Y, Text: e.Text, Image: e.Image}
}

// reply is the object form returned by create, update and speak, and by any
// call that fails.
type reply struct {
	Status string    `json:"status,omitempty"`
	ID     *world.ID `json:"id,omitempty"`
	Error  *string   `json:"error,omitempty"`
}
