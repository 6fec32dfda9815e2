// Package signature provides helper functions for handling the blockchain
// signature needs. Two schemes are supported: the legacy chain's recoverable
// signed-message format used to prove ownership of legacy outputs, and the
// Ethereum transaction signatures carried by every submitted transaction.
package signature

import "errors"

// Set of error variables for signature handling.
var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrWrongChain       = errors.New("transaction signed for a different chain")
)
