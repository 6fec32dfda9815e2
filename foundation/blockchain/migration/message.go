package migration

import (
	"fmt"
	"strings"

	"github.com/btc2/ledgerchain/foundation/blockchain/utxo"
	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// Every field of a claim message is accepted under its display label or its
// snake case name. Both spellings have been issued by wallets.
type document struct {
	ActionLabel string `yaml:"Action"`
	Action      string `yaml:"action"`

	ChainIDLabel *int64 `yaml:"Destination Chain ID"`
	ChainID      *int64 `yaml:"destination_chain_id"`

	DestinationLabel string `yaml:"Destination Address"`
	Destination      string `yaml:"destination_address"`

	InputsLabel []input `yaml:"Inputs"`
	Inputs      []input `yaml:"inputs"`
}

type input struct {
	HashLabel string `yaml:"Hash"`
	Hash      string `yaml:"hash"`

	IndexLabel *int64 `yaml:"Index"`
	Index      *int64 `yaml:"index"`
}

// ParseMessage parses the text of a claim message. Input hashes are given in
// the legacy display order and are reversed into internal order.
func ParseMessage(message string) (Claim, error) {
	var doc document
	if err := yaml.Unmarshal([]byte(message), &doc); err != nil {
		return Claim{}, fmt.Errorf("%w: %v", ErrParse, err)
	}

	action := either(doc.ActionLabel, doc.Action)
	if !strings.EqualFold(action, ActionUpgrade) {
		return Claim{}, fmt.Errorf("%w: unsupported action %q", ErrParse, action)
	}

	chainID := eitherPtr(doc.ChainIDLabel, doc.ChainID)
	if chainID == nil {
		return Claim{}, fmt.Errorf("%w: missing destination chain id", ErrParse)
	}

	dest := either(doc.DestinationLabel, doc.Destination)
	if !common.IsHexAddress(dest) {
		return Claim{}, fmt.Errorf("%w: invalid destination address %q", ErrParse, dest)
	}

	inputs := doc.InputsLabel
	if len(inputs) == 0 {
		inputs = doc.Inputs
	}
	if len(inputs) == 0 {
		return Claim{}, fmt.Errorf("%w: no inputs", ErrParse)
	}

	claim := Claim{
		Action:             strings.ToLower(action),
		DestinationChainID: *chainID,
		Destination:        common.HexToAddress(dest),
		Outpoints:          make([]utxo.Outpoint, 0, len(inputs)),
	}

	seen := make(map[utxo.Outpoint]struct{}, len(inputs))
	for i, in := range inputs {
		index := eitherPtr(in.IndexLabel, in.Index)
		if index == nil || *index < 0 || *index > 0xffff {
			return Claim{}, fmt.Errorf("%w: input %d: invalid index", ErrParse, i)
		}

		op, err := utxo.NewOutpoint(either(in.HashLabel, in.Hash), uint16(*index))
		if err != nil {
			return Claim{}, fmt.Errorf("%w: input %d: %v", ErrParse, i, err)
		}

		if _, exists := seen[op]; exists {
			return Claim{}, fmt.Errorf("%w: input %d: duplicate outpoint %s", ErrParse, i, op)
		}
		seen[op] = struct{}{}

		claim.Outpoints = append(claim.Outpoints, op)
	}

	return claim, nil
}

// FormatMessage renders a claim in the labelled form wallets present to
// users for signing.
func FormatMessage(claim Claim) string {
	var b strings.Builder

	action := claim.Action
	if action == "" {
		action = ActionUpgrade
	}

	fmt.Fprintf(&b, "Action: %s\n", strings.ToUpper(action[:1])+action[1:])
	fmt.Fprintf(&b, "Destination Chain ID: %d\n", claim.DestinationChainID)
	fmt.Fprintf(&b, "Destination Address: %s\n", claim.Destination.Hex())
	b.WriteString("Inputs:\n")
	for _, op := range claim.Outpoints {
		fmt.Fprintf(&b, "  - Hash: %q\n    Index: %d\n", displayHash(op), op.Index)
	}

	return b.String()
}

func displayHash(op utxo.Outpoint) string {
	s := op.String()
	return s[:strings.IndexByte(s, ':')]
}

func either(label, snake string) string {
	if label != "" {
		return label
	}
	return snake
}

func eitherPtr(label, snake *int64) *int64 {
	if label != nil {
		return label
	}
	return snake
}
