package token

import (
	"errors"
	"fmt"
)

var (
	ErrTokenIssuanceFailed = errors.New("token issuance failed")
	ErrProviderUnavailable = errors.New("token provider unavailable")
)

// ProviderError describes a failed provider call. It always matches
// ErrTokenIssuanceFailed and, when Transient, ErrProviderUnavailable.
type ProviderError struct {
	Status    int    // HTTP status, 0 if no response was received
	Detail    string // provider response body or failure description
	Transient bool
	Err       error
}

func (e *ProviderError) Error() string {
	msg := "token provider"
	if e.Status != 0 {
		msg = fmt.Sprintf("%s: status %d", msg, e.Status)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() []error {
	errs := []error{ErrTokenIssuanceFailed}
	if e.Transient {
		errs = append(errs, ErrProviderUnavailable)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}
