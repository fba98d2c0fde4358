package errors

import "fmt"

var (
	ErrWorkerPanic           = fmt.Errorf("worker panic")
	ErrInvalidCredential     = fmt.Errorf("invalid or expired credential")
	ErrMissingCredential     = fmt.Errorf("missing credential")
	ErrNotAMember            = fmt.Errorf("user is not a member of the conversation")
	ErrNotSubscribed         = fmt.Errorf("connection is not subscribed to the conversation")
	ErrMissingConversationID = fmt.Errorf("conversation id is required")
	ErrUnknownEnvelopeKind   = fmt.Errorf("unknown envelope kind")
	ErrMalformedEnvelope     = fmt.Errorf("malformed envelope")
	ErrConnectionClosed      = fmt.Errorf("connection is closed")
	ErrSinkFull              = fmt.Errorf("sink buffer full")
	ErrInvalidIdentifier     = fmt.Errorf("identifier must not contain ':'")
)
