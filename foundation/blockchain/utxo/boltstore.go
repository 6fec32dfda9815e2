package utxo

import (
	"context"
	"encoding/binary"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.etcd.io/bbolt"
)

var bucketOutputs = []byte("utxo_by_outpoint")

// importBatch is the number of outputs written per bolt transaction during
// an import.
const importBatch = 10_000

// BoltStore is a bbolt backed snapshot of the legacy output set. Each value
// is the amount as a little endian uint64 followed by the compressed script.
type BoltStore struct {
	db *bbolt.DB
}

// Compile-time interface check.
var _ Lookup = (*BoltStore)(nil)

// OpenBoltStore opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist.
func OpenBoltStore(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("utxo: create directory: %w", err)
	}

	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("utxo: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketOutputs)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("utxo: create bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }

// Lookup implements the Lookup interface.
func (s *BoltStore) Lookup(ctx context.Context, txid [32]byte, index uint16) (uint64, []byte, error) {
	var amount uint64
	var script []byte

	op := Outpoint{Hash: txid, Index: index}
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketOutputs).Get(op.key())
		if v == nil {
			return ErrNotFound
		}
		if len(v) < 8 {
			return fmt.Errorf("utxo: corrupt value for %s", op)
		}

		amount = binary.LittleEndian.Uint64(v[:8])
		script = append([]byte(nil), v[8:]...)
		return nil
	})
	if err != nil {
		return 0, nil, err
	}

	return amount, script, nil
}

// Put stores a single output, replacing any previous value.
func (s *BoltStore) Put(op Outpoint, amount uint64, compressedScript []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketOutputs).Put(op.key(), encodeValue(amount, compressedScript))
	})
}

// Count returns the number of outputs in the set.
func (s *BoltStore) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketOutputs).Stats().KeyN
		return nil
	})
	return n, err
}

// Import bulk loads outputs from CSV records of the form
// display_hash,index,amount,compressed_script_hex. Lines starting with '#'
// are skipped. It returns the number of outputs written.
func (s *BoltStore) Import(r io.Reader) (int, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = 4
	cr.TrimLeadingSpace = true

	type output struct {
		key   []byte
		value []byte
	}

	var total int
	batch := make([]output, 0, importBatch)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := s.db.Update(func(tx *bbolt.Tx) error {
			b := tx.Bucket(bucketOutputs)
			for _, o := range batch {
				if err := b.Put(o.key, o.value); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return total, fmt.Errorf("utxo: read record: %w", err)
		}

		line, _ := cr.FieldPos(0)

		index, err := strconv.ParseUint(rec[1], 10, 16)
		if err != nil {
			return total, fmt.Errorf("utxo: line %d: index: %w", line, err)
		}

		op, err := NewOutpoint(rec[0], uint16(index))
		if err != nil {
			return total, fmt.Errorf("utxo: line %d: %w", line, err)
		}

		amount, err := strconv.ParseUint(rec[2], 10, 64)
		if err != nil {
			return total, fmt.Errorf("utxo: line %d: amount: %w", line, err)
		}

		script, err := hex.DecodeString(rec[3])
		if err != nil {
			return total, fmt.Errorf("utxo: line %d: script: %w", line, err)
		}

		batch = append(batch, output{key: op.key(), value: encodeValue(amount, script)})
		if len(batch) == importBatch {
			if err := flush(); err != nil {
				return total, fmt.Errorf("utxo: write batch: %w", err)
			}
		}
	}

	if err := flush(); err != nil {
		return total, fmt.Errorf("utxo: write batch: %w", err)
	}

	return total, nil
}

func encodeValue(amount uint64, compressedScript []byte) []byte {
	v := make([]byte, 8, 8+len(compressedScript))
	binary.LittleEndian.PutUint64(v, amount)
	return append(v, compressedScript...)
}
