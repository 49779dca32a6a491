package internal

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

var (
	ErrTransport         = errors.New("transport error")
	ErrParse             = errors.New("unable to parse JSON")
	ErrInvalidEnvelope   = errors.New("no error but no response from server")
	ErrUnknownCollection = errors.New("unknown collection")
	ErrNotImplemented    = errors.New("not yet implemented")
	ErrInvalidArguments  = errors.New("request requires appName and apiPath")
	ErrForeignEndpoint   = errors.New("proxy endpoint must stay on the configured host")
	ErrUnauthorized      = errors.New("not logged in")
)

// RemoteError carries the error member of a proxy envelope.
type RemoteError struct {
	Message string
	Debug   json.RawMessage
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("error from request: %s", e.Message)
}

func transportError(err error) error {
	return fmt.Errorf("%w: %w", ErrTransport, err)
}
