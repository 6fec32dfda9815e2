package utxo

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/ripemd160"
)

// Compressed script kinds. Values below scriptSizeOffset name special
// templates, anything above carries a raw script of nsize-scriptSizeOffset
// bytes.
const (
	scriptSizeOffset = 6
	nsizeP2WPKH      = scriptSizeOffset + p2wpkhLength
)

// A witness v0 pubkey hash script is OP_0 followed by a 20 byte push.
const (
	p2wpkhLength = 22
	opZero       = 0x00
	opPush20     = 0x14
)

// maxVarInt is the largest value ReadVarInt accepts before a continuation
// would overflow.
const maxVarInt = ^uint64(0) >> 7

// ReadVarInt decodes the legacy chain's storage VARINT: big endian base-128
// where every continuation adds one, so each value has a single encoding.
// It returns the value and the number of bytes consumed.
func ReadVarInt(b []byte) (uint64, int, error) {
	var n uint64

	for i, ch := range b {
		if n > maxVarInt {
			return 0, 0, errors.New("varint too large")
		}

		n = (n << 7) | uint64(ch&0x7f)
		if ch&0x80 == 0 {
			return n, i + 1, nil
		}

		n++
	}

	return 0, 0, errors.New("varint truncated")
}

// AppendVarInt appends the storage VARINT encoding of n to b.
func AppendVarInt(b []byte, n uint64) []byte {
	var tmp [10]byte
	i := len(tmp) - 1

	tmp[i] = byte(n & 0x7f)
	for n > 0x7f {
		n = (n >> 7) - 1
		i--
		tmp[i] = byte(n&0x7f) | 0x80
	}

	return append(b, tmp[i:]...)
}

// Hash160 returns RIPEMD-160(SHA-256(b)).
func Hash160(b []byte) []byte {
	sha := sha256.Sum256(b)

	h := ripemd160.New()
	h.Write(sha[:])
	return h.Sum(nil)
}

// CompressP2WPKH returns the compressed script for a witness v0 pubkey hash
// output paying to pubKeyHash.
func CompressP2WPKH(pubKeyHash []byte) ([]byte, error) {
	if len(pubKeyHash) != ripemd160.Size {
		return nil, fmt.Errorf("pubkey hash length %d", len(pubKeyHash))
	}

	script := AppendVarInt(nil, nsizeP2WPKH)
	script = append(script, opZero, opPush20)
	return append(script, pubKeyHash...), nil
}

// CheckScript verifies the public key satisfies the compressed locking
// script. Only witness v0 pubkey hash outputs are supported.
func CheckScript(compressedScript []byte, publicKey []byte) error {
	nsize, n, err := ReadVarInt(compressedScript)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScript, err)
	}

	if nsize != nsizeP2WPKH {
		return fmt.Errorf("%w: unsupported script kind %d", ErrInvalidScript, nsize)
	}

	script := compressedScript[n:]
	if len(script) != p2wpkhLength || script[0] != opZero || script[1] != opPush20 {
		return fmt.Errorf("%w: malformed witness program", ErrInvalidScript)
	}

	if !bytes.Equal(script[2:], Hash160(publicKey)) {
		return fmt.Errorf("%w: pubkey hash mismatch", ErrInvalidScript)
	}

	return nil
}
