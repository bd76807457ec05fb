package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind is the user-facing category of a failed generation call.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindQuota
	KindInvalidCredential
	KindRateLimited
	KindBadRequest
	KindMalformedSynthesisResponse
	KindNoImageInResponse
)

// String returns a human-readable name for the ErrorKind.
func (k ErrorKind) String() string {
	switch k {
	case KindQuota:
		return "Quota"
	case KindInvalidCredential:
		return "InvalidCredential"
	case KindRateLimited:
		return "RateLimited"
	case KindBadRequest:
		return "BadRequest"
	case KindMalformedSynthesisResponse:
		return "MalformedSynthesisResponse"
	case KindNoImageInResponse:
		return "NoImageInResponse"
	default:
		return "Unknown"
	}
}

var kindMessages = map[ErrorKind]string{
	KindQuota:             "Gemini quota reached. Try again later or check the API plan.",
	KindInvalidCredential: "Invalid or missing API key. Check GEMINI_API_KEY on the relay.",
	KindRateLimited:       "Too many requests. Please wait.",
	KindBadRequest:        "Bad request. The image or the prompt may be too large.",
}

// Error is a classified generation failure.
type Error struct {
	Kind    ErrorKind
	Message string
	// StatusCode is the HTTP status of the last attempt, 0 if there was no
	// HTTP response.
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindUnknown.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// HTTPError is a non-2xx response from the relay.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error! status: %d", e.StatusCode)
}

type errorEnvelope struct {
	Error *struct {
		Message string `json:"message"`
		// Provider envelopes carry a status name, relay-made ones a number.
		Status json.RawMessage `json:"status"`
	} `json:"error"`
}

// envelopeMessage extracts the provider error message from a response
// body. ok is false when the body is not JSON.
func envelopeMessage(body []byte) (msg string, ok bool) {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", false
	}
	if env.Error == nil {
		return "", true
	}
	if env.Error.Message != "" {
		return env.Error.Message, true
	}
	var status string
	if err := json.Unmarshal(env.Error.Status, &status); err == nil {
		return status, true
	}
	return "", true
}

// Classify maps a failed HTTP response to an error kind. Rules are applied
// in order and the first match wins:
//
//  1. envelope message mentions "quota" or "RESOURCE_EXHAUSTED" -> Quota
//  2. status 401, or message mentions "API_KEY" or "permission" -> InvalidCredential
//  3. status 429 -> RateLimited
//  4. status 400 -> BadRequest
//  5. anything else -> Unknown with the envelope message or "Error <status>"
//
// A body that is not JSON skips the rules and is Unknown with "Error <status>".
func Classify(statusCode int, body []byte) *Error {
	msg, parsed := envelopeMessage(body)
	if !parsed {
		return &Error{Kind: KindUnknown, StatusCode: statusCode, Message: fmt.Sprintf("Error %d", statusCode)}
	}

	kind := KindUnknown
	switch {
	case strings.Contains(msg, "quota") || strings.Contains(msg, "RESOURCE_EXHAUSTED"):
		kind = KindQuota
	case statusCode == 401 || strings.Contains(msg, "API_KEY") || strings.Contains(msg, "permission"):
		kind = KindInvalidCredential
	case statusCode == 429:
		kind = KindRateLimited
	case statusCode == 400:
		kind = KindBadRequest
	}

	e := &Error{Kind: kind, StatusCode: statusCode}
	if text, ok := kindMessages[kind]; ok {
		e.Message = text
	} else if msg != "" {
		e.Message = msg
	} else {
		e.Message = fmt.Sprintf("Error %d", statusCode)
	}
	return e
}

// classifyFailure turns whatever the call layer returned into an *Error.
func classifyFailure(err error) *Error {
	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		e := Classify(httpErr.StatusCode, httpErr.Body)
		e.Err = err
		return e
	}

	switch {
	case errors.Is(err, context.Canceled):
		return &Error{Kind: KindUnknown, Message: "request cancelled", Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindUnknown, Message: "request timed out", Err: err}
	}
	return &Error{Kind: KindUnknown, Message: "generation request failed, check the connection", Err: err}
}

func malformedResponse(message string, err error) *Error {
	return &Error{Kind: KindMalformedSynthesisResponse, Message: message, Err: err}
}

var errNoImage = &Error{Kind: KindNoImageInResponse, Message: "the model did not return an image"}
