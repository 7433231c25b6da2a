package domain

import "errors"

var (
	ErrTransportDisconnected = errors.New("connection error: signaling transport disconnected")
	ErrCallInProgress        = errors.New("a call is already in progress")
	ErrNoActiveCall          = errors.New("no active call")
	ErrInvalidState          = errors.New("operation not allowed in current call state")
	ErrInvalidPeer           = errors.New("peer id cannot be empty")
	ErrSDPAlreadySet         = errors.New("session description already set for this negotiation round")
	ErrUnknownMediaKind      = errors.New("unknown media kind")
)
