package signature_test

import (
	"bytes"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/btc2/ledgerchain/foundation/blockchain/signature"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	pkHexKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	from     = "0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4"
)

// =============================================================================

func Test_MessageDigest(t *testing.T) {
	tt := []struct {
		name    string
		message string
		digest  string
	}{
		{"short", "test", "9ce428d58e8e4caf619dc6fc7b2c2c28f0561654d1f80f322c038ad5e67ff8a6"},
		{"two-byte-length", strings.Repeat("a", 300), "3ec158a43b80359df647352dac1d37dbf26a94e5f06e5790760290c75cd11dc0"},
	}

	t.Log("Given the need to hash legacy signed messages.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling a %s message.", testID, tst.name)
			{
				got := hex.EncodeToString(signature.MessageDigest([]byte(tst.message)))
				if got != tst.digest {
					t.Logf("\t\tgot: %s", got)
					t.Logf("\t\texp: %s", tst.digest)
					t.Fatalf("\t%s\tTest %d:\tShould get the right digest.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould get the right digest.", success, testID)
			}
		}
	}
}

func Test_LegacyRoundTrip(t *testing.T) {
	privateKey := legacyKey(t)
	message := []byte("Action: upgrade\nDestination Address: " + from + "\n")

	sig := signature.SignLegacyMessage(privateKey, message)
	if len(sig) != signature.LegacySignatureLength {
		t.Fatalf("Should get a %d byte signature, got %d", signature.LegacySignatureLength, len(sig))
	}

	publicKey, err := signature.RecoverLegacySigner(message, sig)
	if err != nil {
		t.Fatalf("Should be able to recover the signer: %s", err)
	}

	if !publicKey.IsEqual(privateKey.PubKey()) {
		t.Fatalf("Should get back the signing key.")
	}
}

func Test_LegacyBitFlips(t *testing.T) {
	privateKey := legacyKey(t)
	message := []byte("flip me")
	sig := signature.SignLegacyMessage(privateKey, message)

	// Bit 2 of the header only toggles the compressed flag, so the flips
	// are applied to the r||s pair.
	for i := 8; i < len(sig)*8; i++ {
		bad := bytes.Clone(sig)
		bad[i/8] ^= 1 << (i % 8)

		publicKey, err := signature.RecoverLegacySigner(message, bad)
		if err == nil && publicKey.IsEqual(privateKey.PubKey()) {
			t.Fatalf("Should not recover the signing key after flipping signature bit %d.", i)
		}
	}

	for i := 0; i < len(message)*8; i++ {
		bad := bytes.Clone(message)
		bad[i/8] ^= 1 << (i % 8)

		publicKey, err := signature.RecoverLegacySigner(bad, sig)
		if err == nil && publicKey.IsEqual(privateKey.PubKey()) {
			t.Fatalf("Should not recover the signing key after flipping message bit %d.", i)
		}
	}
}

func Test_LegacyInvalid(t *testing.T) {
	privateKey := legacyKey(t)
	message := []byte("test")
	sig := signature.SignLegacyMessage(privateKey, message)

	tt := []struct {
		name string
		sig  []byte
	}{
		{"short", sig[:64]},
		{"header-low", append([]byte{26}, sig[1:]...)},
		{"header-high", append([]byte{35}, sig[1:]...)},
		{"zero-r", append([]byte{sig[0]}, make([]byte, 64)...)},
	}

	t.Log("Given the need to reject malformed legacy signatures.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling a %s signature.", testID, tst.name)
			{
				_, err := signature.RecoverLegacySigner(message, tst.sig)
				if !errors.Is(err, signature.ErrInvalidSignature) {
					t.Fatalf("\t%s\tTest %d:\tShould get ErrInvalidSignature: %v", failed, testID, err)
				}
				t.Logf("\t%s\tTest %d:\tShould get ErrInvalidSignature.", success, testID)
			}
		}
	}
}

func Test_TxSender(t *testing.T) {
	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	to := common.HexToAddress("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    0,
		To:       &to,
		Value:    big.NewInt(1),
		Gas:      21000,
		GasPrice: big.NewInt(0),
	})

	chainID := big.NewInt(178)

	signed, err := signature.SignTx(tx, pk, chainID)
	if err != nil {
		t.Fatalf("Should be able to sign the transaction: %s", err)
	}

	addr, err := signature.TxSender(signed, chainID)
	if err != nil {
		t.Fatalf("Should be able to recover the sender: %s", err)
	}

	if addr != common.HexToAddress(from) {
		t.Logf("got: %s", addr)
		t.Logf("exp: %s", from)
		t.Fatalf("Should get back the right address.")
	}

	if _, err := signature.TxSender(signed, big.NewInt(1)); !errors.Is(err, signature.ErrWrongChain) {
		t.Fatalf("Should reject a transaction signed for another chain: %v", err)
	}

	unprotected, err := types.SignTx(tx, types.HomesteadSigner{}, pk)
	if err != nil {
		t.Fatalf("Should be able to sign without replay protection: %s", err)
	}

	addr, err = signature.TxSender(unprotected, chainID)
	if err != nil {
		t.Fatalf("Should be able to recover the unprotected sender: %s", err)
	}

	if addr != common.HexToAddress(from) {
		t.Fatalf("Should get back the right unprotected address, got %s.", addr)
	}
}

// =============================================================================

func legacyKey(t *testing.T) *secp256k1.PrivateKey {
	t.Helper()

	b, err := hex.DecodeString(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to decode the private key: %s", err)
	}

	return secp256k1.PrivKeyFromBytes(b)
}
