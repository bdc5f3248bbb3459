package errors

import (
	"errors"
	"fmt"
)

// Token validation failures are split into distinct kinds so callers can
// tell a cryptographic failure from a claims failure. All of them are
// equally fatal to the flow that hit them.
var (
	ErrBadSignature = errors.New("jwt signature verification failed")
	ErrTokenExpired = errors.New("jwt is expired")
	ErrInvalidToken = errors.New("invalid jwt")
)

// MissingClaimError reports a claim the validation rules require but the
// token does not carry.
type MissingClaimError struct {
	Claim string
}

func (e *MissingClaimError) Error() string {
	return fmt.Sprintf("missing %q claim", e.Claim)
}

// InvalidClaimError reports a claim that is present but whose value the
// validation rules reject.
type InvalidClaimError struct {
	Claim string
}

func (e *InvalidClaimError) Error() string {
	return fmt.Sprintf("invalid claim %q", e.Claim)
}
