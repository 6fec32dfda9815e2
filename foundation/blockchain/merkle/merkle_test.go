package merkle_test

import (
	"bytes"
	"crypto/md5"
	"crypto/sha256"
	"testing"

	"github.com/btc2/ledgerchain/foundation/blockchain/merkle"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// Data hashes its string with sha256.
type Data struct {
	x string
}

func (d Data) Hash() ([]byte, error) {
	h := sha256.Sum256([]byte(d.x))
	return h[:], nil
}

func (d Data) Equals(other Data) bool {
	return d.x == other.x
}

func sum(parts ...[]byte) []byte {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

func leaf(s string) []byte {
	h, _ := Data{x: s}.Hash()
	return h
}

// =============================================================================

func Test_Root(t *testing.T) {
	type table struct {
		name   string
		values []Data
		root   []byte
	}

	a, b, c := leaf("a"), leaf("b"), leaf("c")

	tt := []table{
		{
			name:   "single",
			values: []Data{{"a"}},
			root:   a,
		},
		{
			name:   "pair",
			values: []Data{{"a"}, {"b"}},
			root:   sum(a, b),
		},
		{
			name:   "odd",
			values: []Data{{"a"}, {"b"}, {"c"}},
			root:   sum(sum(a, b), sum(c, c)),
		},
	}

	t.Log("Given the need to validate merkle roots.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen handling %s.", testID, tst.name)
				{
					tree, err := merkle.NewTree(tst.values)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to build the tree: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to build the tree.", success, testID)

					if !bytes.Equal(tree.Root(), tst.root) {
						t.Fatalf("\t%s\tTest %d:\tShould get the right root: got %x exp %x", failed, testID, tree.Root(), tst.root)
					}
					t.Logf("\t%s\tTest %d:\tShould get the right root.", success, testID)

					for _, v := range tst.values {
						if err := tree.VerifyData(v); err != nil {
							t.Fatalf("\t%s\tTest %d:\tShould verify %q: %v", failed, testID, v.x, err)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould verify every value.", success, testID)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_Proof(t *testing.T) {
	values := []Data{{"a"}, {"b"}, {"c"}, {"d"}, {"e"}}

	t.Log("Given the need to prove a value is in the tree.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen handling five values.", testID)
		{
			tree, err := merkle.NewTree(values)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to build the tree: %v", failed, testID, err)
			}

			proof, order, err := tree.Proof(Data{"e"})
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould get a proof: %v", failed, testID, err)
			}
			if len(proof) != 3 {
				t.Fatalf("\t%s\tTest %d:\tShould get one hash per level: got %d", failed, testID, len(proof))
			}
			t.Logf("\t%s\tTest %d:\tShould get one hash per level.", success, testID)

			if err := merkle.Verify(sha256.New, tree.Root(), leaf("e"), proof, order); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould verify the proof: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould verify the proof.", success, testID)

			if err := merkle.Verify(sha256.New, tree.Root(), leaf("x"), proof, order); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould reject the wrong leaf.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reject the wrong leaf.", success, testID)

			if _, _, err := tree.Proof(Data{"x"}); err != merkle.ErrNotFound {
				t.Fatalf("\t%s\tTest %d:\tShould not prove a missing value: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould not prove a missing value.", success, testID)

			md5Tree, err := merkle.NewTree(values, merkle.WithHashStrategy[Data](md5.New))
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould build with md5: %v", failed, testID, err)
			}
			if bytes.Equal(md5Tree.Root(), tree.Root()) || len(md5Tree.Root()) != md5.Size {
				t.Fatalf("\t%s\tTest %d:\tShould use the hash strategy for inner nodes.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould use the hash strategy for inner nodes.", success, testID)
		}
	}

	if _, err := merkle.NewTree([]Data{}); err == nil {
		t.Fatalf("\t%s\tShould not build an empty tree.", failed)
	}
}
