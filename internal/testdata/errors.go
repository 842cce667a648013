package testdata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Op names the operation an error came from.
type Op string

const (
	OpUpload   Op = "Upload"
	OpURL      Op = "URL ingest"
	OpPaste    Op = "Paste"
	OpValidate Op = "Validation"
)

func (o Op) noInputText() string {
	switch o {
	case OpUpload:
		return "Select at least one artifact file to upload."
	case OpURL:
		return "Enter at least one artifact URL."
	case OpPaste:
		return "Paste content for at least one artifact."
	}
	return string(o) + " needs at least one artifact."
}

func (o Op) successText(id string) string {
	switch o {
	case OpUpload:
		return "Test data uploaded. ID: " + id
	case OpURL:
		return "Test data fetched from URLs. ID: " + id
	case OpPaste:
		return "Pasted test data stored. ID: " + id
	}
	return string(o) + " succeeded. ID: " + id
}

// Kind classifies a failure.
type Kind int

const (
	NoInputProvided Kind = iota + 1
	AuthRequired
	NotFound
	Expired
	ServerRejected
	TransportFailure
	MalformedResponse
)

func (k Kind) String() string {
	switch k {
	case NoInputProvided:
		return "NoInputProvided"
	case AuthRequired:
		return "AuthRequired"
	case NotFound:
		return "NotFound"
	case Expired:
		return "Expired"
	case ServerRejected:
		return "ServerRejected"
	case TransportFailure:
		return "TransportFailure"
	case MalformedResponse:
		return "MalformedResponse"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// AuthMessage is shown for every 401/403, whichever endpoint produced it.
const AuthMessage = "Authorization failed. Check your bearer token and try again."

// Error is the single error type returned by Client and Manager.
type Error struct {
	Op         Op
	Kind       Kind
	Status     int
	Detail     string
	TestdataID string
	Err        error
}

// Sentinels for errors.Is.
var (
	ErrNoInput   = &Error{Kind: NoInputProvided}
	ErrAuth      = &Error{Kind: AuthRequired}
	ErrNotFound  = &Error{Kind: NotFound}
	ErrExpired   = &Error{Kind: Expired}
	ErrServer    = &Error{Kind: ServerRejected}
	ErrTransport = &Error{Kind: TransportFailure}
	ErrMalformed = &Error{Kind: MalformedResponse}
)

// ErrBusy is returned while another operation on the same Manager is in flight.
var ErrBusy = errors.New("another test data operation is still running")

func (e *Error) Error() string {
	msg := e.Message()
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (HTTP %d)", e.Kind, msg, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same Kind, so the sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Message is the operator-facing text for e.
func (e *Error) Message() string {
	switch e.Kind {
	case NoInputProvided:
		return e.Op.noInputText()
	case AuthRequired:
		return AuthMessage
	case NotFound:
		if e.TestdataID != "" {
			return fmt.Sprintf("Test data bundle %s was not found.", e.TestdataID)
		}
		return "Test data bundle was not found."
	case Expired:
		if e.TestdataID != "" {
			return fmt.Sprintf("Test data bundle %s has expired. Ingest the data again to get a new ID.", e.TestdataID)
		}
		return "Test data bundle has expired. Ingest the data again to get a new ID."
	case ServerRejected:
		if e.Detail != "" {
			return e.Detail
		}
		return fmt.Sprintf("%s failed: HTTP %d", e.Op, e.Status)
	case TransportFailure, MalformedResponse:
		if e.Err != nil {
			return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
		}
	}
	return fmt.Sprintf("%s failed", e.Op)
}

// Message returns the operator-facing text for any error.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message()
	}
	return err.Error()
}

// KindOf returns the Kind of err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// classify turns a non-2xx response into an *Error. 404 and 410 only carry
// bundle meaning for the metadata call.
func classify(op Op, status int, body []byte, id string) *Error {
	e := &Error{Op: op, Status: status, TestdataID: id, Detail: extractDetail(body)}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Kind = AuthRequired
	case op == OpValidate && status == http.StatusNotFound:
		e.Kind = NotFound
	case op == OpValidate && status == http.StatusGone:
		e.Kind = Expired
	default:
		e.Kind = ServerRejected
	}
	return e
}

// extractDetail pulls the server's {"detail": ...} text. Structured details
// are returned as compact JSON; non-JSON bodies are ignored.
func extractDetail(body []byte) string {
	var raw struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &raw); err != nil || len(raw.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw.Detail, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw.Detail); err != nil {
		return string(raw.Detail)
	}
	return buf.String()
}
