package actions

import "errors"

// Business-rule failures, distinct from transport errors so callers can map
// them to user-facing responses.
var (
	ErrChatFull           = errors.New("chat room is full")
	ErrInvalidCode        = errors.New("invalid or expired friend code")
	ErrNotCreator         = errors.New("only the creator can update the chat name")
	ErrNotLoggedIn        = errors.New("not logged in")
	ErrInvalidCredentials = errors.New("invalid username or password")
)
