// Package merkle computes merkle roots and inclusion proofs over the
// transactions of a block.
package merkle

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"hash"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrNotFound is returned when a proof is requested for a value that is not
// a leaf of the tree.
var ErrNotFound = errors.New("value not found in tree")

// Hashable represents the behavior concrete data must exhibit to be used in
// the merkle tree.
type Hashable[T any] interface {
	Hash() ([]byte, error)
	Equals(other T) bool
}

// Tree holds every level of the tree, leaves first. A level with an odd
// number of hashes is paired with a copy of its last hash.
type Tree[T Hashable[T]] struct {
	values       []T
	levels       [][][]byte
	hashStrategy func() hash.Hash
}

// WithHashStrategy is used to change the default hash strategy of using sha256
// when constructing a new tree.
func WithHashStrategy[T Hashable[T]](hashStrategy func() hash.Hash) func(t *Tree[T]) {
	return func(t *Tree[T]) {
		t.hashStrategy = hashStrategy
	}
}

// NewTree constructs a tree over the specified values.
func NewTree[T Hashable[T]](values []T, options ...func(t *Tree[T])) (*Tree[T], error) {
	if len(values) == 0 {
		return nil, errors.New("cannot construct tree with no content")
	}

	t := Tree[T]{
		values:       values,
		hashStrategy: sha256.New,
	}

	for _, option := range options {
		option(&t)
	}

	leafs := make([][]byte, len(values))
	for i, value := range values {
		h, err := value.Hash()
		if err != nil {
			return nil, err
		}
		leafs[i] = h
	}

	t.levels = append(t.levels, leafs)
	for level := leafs; len(level) > 1; {
		level = t.parents(level)
		t.levels = append(t.levels, level)
	}

	return &t, nil
}

// Root returns the merkle root. A single value is its own root.
func (t *Tree[T]) Root() []byte {
	return t.levels[len(t.levels)-1][0]
}

// RootHex converts the merkle root byte hash to a hex encoded string.
func (t *Tree[T]) RootHex() string {
	return hexutil.Encode(t.Root())
}

// Values returns the values the tree was built from.
func (t *Tree[T]) Values() []T {
	return t.values
}

// Proof returns the sibling hashes from the leaf holding data up to the root
// and, for each one, whether it is concatenated first (0) or second (1).
func (t *Tree[T]) Proof(data T) ([][]byte, []int64, error) {
	idx := -1
	for i, v := range t.values {
		if v.Equals(data) {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, nil, ErrNotFound
	}

	var proof [][]byte
	var order []int64

	for _, level := range t.levels[:len(t.levels)-1] {
		switch {
		case idx%2 == 1:
			proof = append(proof, level[idx-1])
			order = append(order, 0)
		case idx+1 < len(level):
			proof = append(proof, level[idx+1])
			order = append(order, 1)
		default:
			proof = append(proof, level[idx])
			order = append(order, 1)
		}
		idx /= 2
	}

	return proof, order, nil
}

// VerifyData recomputes the root from the leaf holding data and its proof
// and compares it with the tree's root.
func (t *Tree[T]) VerifyData(data T) error {
	leaf, err := data.Hash()
	if err != nil {
		return err
	}

	proof, order, err := t.Proof(data)
	if err != nil {
		return err
	}

	return Verify(t.hashStrategy, t.Root(), leaf, proof, order)
}

// =============================================================================

// Verify walks a proof produced by Tree.Proof from the leaf hash up and
// checks the result against root.
func Verify(hashStrategy func() hash.Hash, root []byte, leaf []byte, proof [][]byte, order []int64) error {
	if len(proof) != len(order) {
		return errors.New("proof and order lengths differ")
	}

	sum := leaf
	for i, sibling := range proof {
		h := hashStrategy()
		if order[i] == 0 {
			h.Write(sibling)
			h.Write(sum)
		} else {
			h.Write(sum)
			h.Write(sibling)
		}
		sum = h.Sum(nil)
	}

	if !bytes.Equal(sum, root) {
		return errors.New("calculated root does not match")
	}

	return nil
}

func (t *Tree[T]) parents(level [][]byte) [][]byte {
	out := make([][]byte, 0, (len(level)+1)/2)
	for i := 0; i < len(level); i += 2 {
		right := i + 1
		if right == len(level) {
			right = i
		}

		h := t.hashStrategy()
		h.Write(level[i])
		h.Write(level[right])
		out = append(out, h.Sum(nil))
	}
	return out
}
