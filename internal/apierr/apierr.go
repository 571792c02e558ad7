package apierr

import (
  "errors"
  "fmt"
  "net/http"
)

// Error codes returned by the claim workflow. DuplicateReward and
// AlreadyIssued are idempotency guards and are treated as benign by callers.
const (
  CodeNotFound        = "not_found"
  CodeForbidden       = "forbidden"
  CodeInvalidState    = "invalid_state"
  CodeConflict        = "conflict"
  CodeDuplicateReward = "duplicate_reward"
  CodeAlreadyIssued   = "already_issued"
  CodeBadRequest      = "bad_request"
)

type Error struct {
  Status int
  Code   string
  Err    error
}

func (e *Error) Error() string {
  if e == nil {
    return ""
  }
  if e.Err != nil {
    return e.Err.Error()
  }
  if e.Code != "" {
    return e.Code
  }
  if e.Status != 0 {
    return fmt.Sprintf("api error (%d)", e.Status)
  }
  return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
  return &Error{Status: status, Code: code, Err: err}
}

func NotFound(format string, args ...interface{}) *Error {
  return New(http.StatusNotFound, CodeNotFound, fmt.Errorf(format, args...))
}

func Forbidden(format string, args ...interface{}) *Error {
  return New(http.StatusForbidden, CodeForbidden, fmt.Errorf(format, args...))
}

func InvalidState(format string, args ...interface{}) *Error {
  return New(http.StatusConflict, CodeInvalidState, fmt.Errorf(format, args...))
}

func Conflict(format string, args ...interface{}) *Error {
  return New(http.StatusConflict, CodeConflict, fmt.Errorf(format, args...))
}

func DuplicateReward(format string, args ...interface{}) *Error {
  return New(http.StatusConflict, CodeDuplicateReward, fmt.Errorf(format, args...))
}

func AlreadyIssued(format string, args ...interface{}) *Error {
  return New(http.StatusConflict, CodeAlreadyIssued, fmt.Errorf(format, args...))
}

func BadRequest(format string, args ...interface{}) *Error {
  return New(http.StatusBadRequest, CodeBadRequest, fmt.Errorf(format, args...))
}

// IsCode reports whether err is an *Error carrying the given code.
func IsCode(err error, code string) bool {
  var ae *Error
  if errors.As(err, &ae) {
    return ae.Code == code
  }
  return false
}
