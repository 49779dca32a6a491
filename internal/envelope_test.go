package internal

import (
	"errors"
	"testing"
)

func TestDecodeEnvelopeRemoteError(t *testing.T) {
	cases := []string{
		`{"response":[1,2],"error":"boom"}`,
		`{"response":null,"error":"boom","debug":{"trace":"x"}}`,
		`{"error":{"code":7}}`,
		`{"error":true,"response":"payload"}`,
	}
	for _, body := range cases {
		payload, err := DecodeEnvelope([]byte(body))
		var remote *RemoteError
		if !errors.As(err, &remote) {
			t.Fatalf("%s: expected RemoteError, got %v", body, err)
		}
		if payload != nil {
			t.Fatalf("%s: payload must not be returned, got %s", body, payload)
		}
	}
}

func TestDecodeEnvelopeRemoteErrorCarriesMessageAndDebug(t *testing.T) {
	_, err := DecodeEnvelope([]byte(`{"error":"not logged in","debug":["a","b"]}`))
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if remote.Message != "not logged in" {
		t.Fatalf("unexpected message %q", remote.Message)
	}
	if string(remote.Debug) != `["a","b"]` {
		t.Fatalf("unexpected debug %s", remote.Debug)
	}
}

func TestDecodeEnvelopeFalsyResponse(t *testing.T) {
	cases := []string{
		`{}`,
		`{"error":null}`,
		`{"response":null,"error":null}`,
		`{"response":false,"error":""}`,
		`{"response":0,"error":0}`,
		`{"response":"","error":false}`,
	}
	for _, body := range cases {
		_, err := DecodeEnvelope([]byte(body))
		if !errors.Is(err, ErrInvalidEnvelope) {
			t.Fatalf("%s: expected ErrInvalidEnvelope, got %v", body, err)
		}
	}
}

func TestDecodeEnvelopeReturnsPayloadUnchanged(t *testing.T) {
	cases := map[string]string{
		`{"response":[{"id":1,"title":"A"}],"error":null}`: `[{"id":1,"title":"A"}]`,
		`{"error":"","response":{"status":"OK"}}`:          `{"status":"OK"}`,
		`{"response":[]}`:                        `[]`,
		`{"response":"text","error":0}`:          `"text"`,
		`{"response":{"nested":{"x":[1,2.50]}}}`: `{"nested":{"x":[1,2.50]}}`,
	}
	for body, want := range cases {
		payload, err := DecodeEnvelope([]byte(body))
		if err != nil {
			t.Fatalf("%s: unexpected error %v", body, err)
		}
		if string(payload) != want {
			t.Fatalf("%s: got %s want %s", body, payload, want)
		}
	}
}

func TestDecodeEnvelopeMalformed(t *testing.T) {
	if _, err := DecodeEnvelope([]byte(`<html>login</html>`)); !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
	if _, err := DecodeEnvelope([]byte(``)); !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse for empty body, got %v", err)
	}
	if _, err := DecodeEnvelope([]byte(`[1,2,3]`)); !errors.Is(err, ErrInvalidEnvelope) {
		t.Fatalf("expected ErrInvalidEnvelope for array body, got %v", err)
	}
}

func TestDecodeInto(t *testing.T) {
	type ping struct {
		Status string `json:"status"`
	}
	got, err := DecodeInto[ping]([]byte(`{"response":{"status":"OK"}}`))
	if err != nil {
		t.Fatalf("DecodeInto failed: %v", err)
	}
	if got.Status != "OK" {
		t.Fatalf("unexpected status %q", got.Status)
	}
	if _, err := DecodeInto[[]Record]([]byte(`{"response":{"status":"OK"}}`)); !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse for mismatched payload, got %v", err)
	}
}
