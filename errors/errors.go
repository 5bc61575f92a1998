package errors

import "fmt"

var (
	ErrSessionUnavailable = fmt.Errorf("chat session unavailable")
	ErrHistoryUnavailable = fmt.Errorf("message history unavailable")
	ErrStreamClosed       = fmt.Errorf("stream closed")
	ErrMalformedFrame     = fmt.Errorf("malformed inbound frame")
	ErrNotConnected       = fmt.Errorf("channel not connected")
	ErrNoAffiliation      = fmt.Errorf("viewer has no tenant and no elevated role")
	ErrInvalidToken       = fmt.Errorf("invalid access token")
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrEmptyWords         = fmt.Errorf("no words have been found")
)
