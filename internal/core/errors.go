package core

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	json "github.com/goccy/go-json"
)

// Kind classifies every failure a gateway call can end with.
type Kind int

const (
	KindTransport Kind = iota + 1
	KindClock
	KindSerialization
	KindServer
	KindUnavailable
	KindUnauthorized
	KindContent
	KindOther
	KindValidation
)

var kindNames = map[Kind]string{
	KindTransport:     "transport",
	KindClock:         "clock",
	KindSerialization: "serialization",
	KindServer:        "upstream_server_error",
	KindUnavailable:   "upstream_unavailable",
	KindUnauthorized:  "upstream_unauthorized",
	KindContent:       "upstream_content_error",
	KindOther:         "upstream_other_error",
	KindValidation:    "validation",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Error is the single failure type returned by adapters and the gateway.
type Error struct {
	Kind Kind
	// Status is the upstream HTTP status for KindOther.
	Status  int
	Content *ContentError
	Msg     string
	Err     error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindContent:
		if e.Content != nil {
			return e.Content.Error()
		}
	case KindOther:
		if e.Msg == "" {
			return "received response: " + strconv.Itoa(e.Status) + " " + http.StatusText(e.Status)
		}
	}
	switch {
	case e.Msg != "" && e.Err != nil:
		return e.Msg + ": " + e.Err.Error()
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	if e.Content != nil {
		return e.Content
	}
	return e.Err
}

func Transport(err error) error {
	return &Error{Kind: KindTransport, Err: err}
}

func Clock(err error) error {
	return &Error{Kind: KindClock, Msg: "fail to get timestamp", Err: err}
}

func Serialization(err error) error {
	return &Error{Kind: KindSerialization, Err: err}
}

// Malformed reports a response that decoded but lacks the expected shape.
func Malformed(msg string) error {
	return &Error{Kind: KindSerialization, Msg: msg}
}

func ServerError() error {
	return &Error{Kind: KindServer, Msg: "exchange server error"}
}

func Unavailable() error {
	return &Error{Kind: KindUnavailable, Msg: "exchange unavailable"}
}

func Unauthorized() error {
	return &Error{Kind: KindUnauthorized, Msg: "exchange unauthorized"}
}

func Content(ce ContentError) error {
	return &Error{Kind: KindContent, Content: &ce}
}

func OtherStatus(status int) error {
	return &Error{Kind: KindOther, Status: status}
}

func Validation(msg string) error {
	return &Error{Kind: KindValidation, Msg: msg}
}

// KindOf returns 0 for errors that did not originate from this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func AsContentError(err error) (*ContentError, bool) {
	if err == nil {
		return nil, false
	}
	var ce *ContentError
	if !errors.As(err, &ce) {
		return nil, false
	}
	return ce, true
}

// ContentError is the exchange's structured 4xx body. Fields other than
// code and msg are kept verbatim in Extra.
type ContentError struct {
	Code  int
	Msg   string
	Extra map[string]any
}

func (e *ContentError) Error() string {
	if len(e.Extra) == 0 {
		return fmt.Sprintf("(%d) %s", e.Code, e.Msg)
	}
	return fmt.Sprintf("(%d) %s %v", e.Code, e.Msg, e.Extra)
}

func (e *ContentError) UnmarshalJSON(data []byte) error {
	var head struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	var fields map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return err
	}
	delete(fields, "code")
	delete(fields, "msg")
	e.Code = head.Code
	e.Msg = head.Msg
	e.Extra = nil
	if len(fields) > 0 {
		e.Extra = fields
	}
	return nil
}

func (e ContentError) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Extra)+2)
	for k, v := range e.Extra {
		out[k] = v
	}
	out["code"] = e.Code
	out["msg"] = e.Msg
	return json.Marshal(out)
}
