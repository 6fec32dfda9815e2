package nameservice_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/btc2/ledgerchain/foundation/nameservice"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_NameService(t *testing.T) {
	root := t.TempDir()

	pk, err := crypto.HexToECDSA("fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959")
	if err != nil {
		t.Fatalf("Should be able to decode the key: %v", err)
	}
	if err := crypto.SaveECDSA(filepath.Join(root, "alice.ecdsa"), pk); err != nil {
		t.Fatalf("Should be able to save the key: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("ignored"), 0o600); err != nil {
		t.Fatalf("Should be able to write a stray file: %v", err)
	}

	alice := common.HexToAddress("0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4")
	bob := common.HexToAddress("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")

	t.Log("Given the need to name accounts from key files.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen handling a folder with one key.", testID)
		{
			ns, err := nameservice.New(root)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to build the name service: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to build the name service.", success, testID)

			if got := ns.Lookup(alice); got != "alice" {
				t.Fatalf("\t%s\tTest %d:\tShould name the account: got %s", failed, testID, got)
			}
			if got := ns.Lookup(bob); got != bob.Hex() {
				t.Fatalf("\t%s\tTest %d:\tShould fall back to the address: got %s", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould look up names.", success, testID)

			if got, err := ns.Resolve("alice"); err != nil || got != alice {
				t.Fatalf("\t%s\tTest %d:\tShould resolve the name: got %s %v", failed, testID, got, err)
			}
			if got, err := ns.Resolve(bob.Hex()); err != nil || got != bob {
				t.Fatalf("\t%s\tTest %d:\tShould resolve an address: got %s %v", failed, testID, got, err)
			}
			if _, err := ns.Resolve("carol"); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould not resolve an unknown name.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould resolve names and addresses.", success, testID)

			if len(ns.Copy()) != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould only load key files.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould only load key files.", success, testID)
		}
	}

	if _, err := nameservice.New(filepath.Join(root, "missing")); err != nil {
		t.Fatalf("Should accept a missing folder: %v", err)
	}
}
