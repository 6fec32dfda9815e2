// Package nameservice reads a folder of wallet keys and creates a name
// lookup for the accounts they control.
package nameservice

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const keyExtension = ".ecdsa"

// NameService maintains a map of accounts for name lookup.
type NameService struct {
	names    map[common.Address]string
	accounts map[string]common.Address
}

// New constructs a name service with the accounts of every key file under
// root. A missing root yields an empty name service.
func New(root string) (*NameService, error) {
	ns := NameService{
		names:    make(map[common.Address]string),
		accounts: make(map[string]common.Address),
	}

	fn := func(fileName string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if d.IsDir() || filepath.Ext(fileName) != keyExtension {
			return nil
		}

		privateKey, err := crypto.LoadECDSA(fileName)
		if err != nil {
			return fmt.Errorf("loading %s: %w", fileName, err)
		}

		account := crypto.PubkeyToAddress(privateKey.PublicKey)
		name := strings.TrimSuffix(filepath.Base(fileName), keyExtension)

		ns.names[account] = name
		ns.accounts[name] = account

		return nil
	}

	if err := filepath.WalkDir(root, fn); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &ns, nil
		}
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return &ns, nil
}

// Lookup returns the name for the specified account, or the account's hex
// form when it has no name.
func (ns *NameService) Lookup(account common.Address) string {
	name, exists := ns.names[account]
	if !exists {
		return account.Hex()
	}
	return name
}

// Resolve turns a name or a hex address into an account.
func (ns *NameService) Resolve(nameOrAddress string) (common.Address, error) {
	if account, exists := ns.accounts[nameOrAddress]; exists {
		return account, nil
	}

	if common.IsHexAddress(nameOrAddress) {
		return common.HexToAddress(nameOrAddress), nil
	}

	return common.Address{}, fmt.Errorf("unknown account %q", nameOrAddress)
}

// Copy returns a copy of the map of names and accounts.
func (ns *NameService) Copy() map[common.Address]string {
	cpy := make(map[common.Address]string, len(ns.names))
	for account, name := range ns.names {
		cpy[account] = name
	}
	return cpy
}
