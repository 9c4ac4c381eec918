package assistant

import "errors"

var (
	// ErrUnauthorized means no authenticated caller; the cycle never starts.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrMalformedModelOutput means the model reply carried no parseable
	// JSON object. The cycle fails; it is not retried.
	ErrMalformedModelOutput = errors.New("model reply contained no JSON object")

	// ErrBusy means a command cycle for this user is still in flight.
	// Overlapping cycles would corrupt the conversation history.
	ErrBusy = errors.New("a previous command is still being processed")
)
