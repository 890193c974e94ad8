package core

import "errors"

// Domain errors. Admin callers map these to HTTP statuses; the gateway
// recovers from the in-session ones by dropping the directive.
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrRoomNotFound     = errors.New("room not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrAlreadyMember    = errors.New("already a member")
	ErrNotMember        = errors.New("not a member")
	ErrAlreadyConnected = errors.New("already connected")
	ErrDeliveryFailed   = errors.New("delivery failed")
)
