package errors

import "fmt"

var (
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrEmptyWords         = fmt.Errorf("no words have been found")
	ErrSessionClosed      = fmt.Errorf("chat session is closed")
	ErrAlreadyJoined      = fmt.Errorf("channel already joined")
	ErrNotJoined          = fmt.Errorf("channel not joined")
	ErrNotLoggedIn        = fmt.Errorf("client is not logged in")
	ErrUnexpectedStatus   = fmt.Errorf("unexpected status code")
	ErrNoEndpoints        = fmt.Errorf("no chat endpoint available")
	ErrChannelNotFound    = fmt.Errorf("channel not found")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrRateLimited        = fmt.Errorf("rate limited")
	ErrLoginFailed        = fmt.Errorf("login failed")
	ErrMalformedFrame     = fmt.Errorf("malformed frame")
	ErrNotConnected       = fmt.Errorf("chat session is not connected")
)
