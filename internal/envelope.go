package internal

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// Envelope is the proxy's response wrapper. Members are kept raw so that
// their truthiness can be judged before any typed decoding happens.
type Envelope struct {
	Response json.RawMessage `json:"response"`
	Error    json.RawMessage `json:"error"`
	Debug    json.RawMessage `json:"debug,omitempty"`
}

// DecodedResult is a validated envelope payload plus its provenance.
type DecodedResult[T any] struct {
	Payload   T
	Response  *http.Response
	FetchedAt time.Time
}

func (d *DecodedResult[T]) FetchedAtEpochMillis() int64 {
	return d.FetchedAt.UnixMilli()
}

// DecodeEnvelope validates a raw proxy body and returns the response member
// untouched. It fails with ErrParse, *RemoteError or ErrInvalidEnvelope.
func DecodeEnvelope(body []byte) (json.RawMessage, error) {
	if !json.Valid(body) {
		return nil, ErrParse
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrInvalidEnvelope
	}
	var env Envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if truthy(env.Error) {
		return nil, &RemoteError{Message: rawText(env.Error), Debug: env.Debug}
	}
	if !truthy(env.Response) {
		return nil, ErrInvalidEnvelope
	}
	return env.Response, nil
}

// DecodeInto validates body and unmarshals the payload into T.
func DecodeInto[T any](body []byte) (T, error) {
	var out T
	payload, err := DecodeEnvelope(body)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return out, fmt.Errorf("%w: payload: %v", ErrParse, err)
	}
	return out, nil
}

// DecodePayload converts an already validated result to a typed one.
func DecodePayload[T any](res *DecodedResult[json.RawMessage]) (*DecodedResult[T], error) {
	var out T
	if err := json.Unmarshal(res.Payload, &out); err != nil {
		return nil, fmt.Errorf("%w: payload: %v", ErrParse, err)
	}
	return &DecodedResult[T]{Payload: out, Response: res.Response, FetchedAt: res.FetchedAt}, nil
}

// truthy mirrors script truthiness for a raw JSON member: absent, null,
// false, 0 and "" are falsy; arrays and objects are truthy even when empty.
func truthy(raw json.RawMessage) bool {
	v := bytes.TrimSpace(raw)
	if len(v) == 0 {
		return false
	}
	switch v[0] {
	case 'n', 'f':
		return false
	case '"':
		return len(v) > 2
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		f, err := strconv.ParseFloat(string(v), 64)
		return err != nil || f != 0
	}
	return true
}

func rawText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}
