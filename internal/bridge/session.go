package bridge

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ggonzalez94/clob-bridge/internal/clob"
)

type AuthErrorKind int

const (
	InvalidFunderAddress AuthErrorKind = iota + 1
	AuthenticationRejected
)

// AuthError is returned by the session builder. Input carries the raw funder
// text for InvalidFunderAddress; Err carries the exchange failure otherwise.
type AuthError struct {
	Kind  AuthErrorKind
	Input string
	Err   error
}

func (e *AuthError) Error() string {
	switch e.Kind {
	case InvalidFunderAddress:
		return fmt.Sprintf("Invalid funder address format: %q", e.Input)
	default:
		return fmt.Sprintf("Authentication failed: %v", e.Err)
	}
}

func (e *AuthError) Unwrap() error { return e.Err }

// buildSession authenticates a fresh session. One round trip, no retries.
func buildSession(ctx context.Context, ex Exchange, mode clob.SignatureType, funderText *string) (Session, error) {
	var funder *common.Address
	if funderText != nil {
		raw := strings.TrimSpace(*funderText)
		if !common.IsHexAddress(raw) {
			return nil, &AuthError{Kind: InvalidFunderAddress, Input: *funderText}
		}
		addr := common.HexToAddress(raw)
		funder = &addr
	}
	sess, err := ex.Authenticate(ctx, mode, funder)
	if err != nil {
		return nil, &AuthError{Kind: AuthenticationRejected, Err: err}
	}
	return sess, nil
}
