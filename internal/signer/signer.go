package signer

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Signer is the process-wide wallet identity. It is read-only once built.
type Signer interface {
	Address() common.Address
	// SignTypedData returns a 65-byte EIP-712 signature with v in {27, 28}.
	SignTypedData(data apitypes.TypedData) ([]byte, error)
}
