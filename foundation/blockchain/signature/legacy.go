package signature

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// MessageMagic is the domain separation string prefixed to every legacy
// signed message before hashing.
const MessageMagic = "Bitcoin Signed Message:\n"

// LegacySignatureLength is the size of a legacy recoverable signature: one
// header byte followed by the 64 byte r||s pair.
const LegacySignatureLength = 65

// Header byte bounds for legacy signatures. The low two bits of
// (header - minHeader) are the recovery id, bit 2 marks a compressed key.
const (
	minHeader = 27
	maxHeader = 34
)

// MessageDigest returns the double SHA-256 of the length prefixed magic
// followed by the length prefixed message. Lengths use the compact size
// encoding of the legacy wire protocol.
func MessageDigest(message []byte) []byte {
	var buf bytes.Buffer

	// Writes to a bytes.Buffer never fail.
	wire.WriteVarBytes(&buf, 0, []byte(MessageMagic))
	wire.WriteVarBytes(&buf, 0, message)

	return chainhash.DoubleHashB(buf.Bytes())
}

// RecoverLegacySigner returns the public key that produced the signature
// over the message.
func RecoverLegacySigner(message []byte, sig []byte) (*secp256k1.PublicKey, error) {
	if len(sig) != LegacySignatureLength {
		return nil, fmt.Errorf("%w: length %d", ErrInvalidSignature, len(sig))
	}

	if sig[0] < minHeader || sig[0] > maxHeader {
		return nil, fmt.Errorf("%w: header byte %d", ErrInvalidSignature, sig[0])
	}

	publicKey, _, err := ecdsa.RecoverCompact(sig, MessageDigest(message))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	return publicKey, nil
}

// SignLegacyMessage signs the message with the private key using the legacy
// recoverable format. The header marks the key as compressed.
func SignLegacyMessage(privateKey *secp256k1.PrivateKey, message []byte) []byte {
	return ecdsa.SignCompact(privateKey, MessageDigest(message), true)
}
