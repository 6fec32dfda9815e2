package migration

import (
	"fmt"

	"github.com/btc2/ledgerchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/accounts/abi"
)

// arguments is the ABI layout of a claim call: (string message, bytes signature).
var arguments = func() abi.Arguments {
	stringT, err := abi.NewType("string", "", nil)
	if err != nil {
		panic(err)
	}
	bytesT, err := abi.NewType("bytes", "", nil)
	if err != nil {
		panic(err)
	}
	return abi.Arguments{{Name: "message", Type: stringT}, {Name: "signature", Type: bytesT}}
}()

// DecodeArgs unpacks the claim message and its 65 byte legacy signature.
func DecodeArgs(payload []byte) (string, []byte, error) {
	values, err := arguments.Unpack(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	message, ok := values[0].(string)
	if !ok {
		return "", nil, fmt.Errorf("%w: message is not a string", ErrParse)
	}

	sig, ok := values[1].([]byte)
	if !ok || len(sig) != signature.LegacySignatureLength {
		return "", nil, fmt.Errorf("%w: signature must be %d bytes", ErrParse, signature.LegacySignatureLength)
	}

	return message, sig, nil
}

// EncodeCall builds the call data for a claim: the selector followed by the
// ABI encoded message and signature.
func EncodeCall(message string, sig []byte) ([]byte, error) {
	args, err := arguments.Pack(message, sig)
	if err != nil {
		return nil, err
	}

	return append(Selector[:], args...), nil
}
