package signature

import (
	"errors"
)

var (
	ErrInvalidFormat      = errors.New("invalid signature format")
	ErrInsufficientShares = errors.New("insufficient threshold signature shares")
	ErrDuplicatedSigner   = errors.New("duplicated signer")
	ErrInvalidSignerIndex = errors.New("signer index outside committee")
)
