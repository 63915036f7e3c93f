package journal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	bolt "go.etcd.io/bbolt"

	vderrors "github.com/vango-dev/vdiff/internal/errors"
	"github.com/vango-dev/vdiff/pkg/protocol"
	"github.com/vango-dev/vdiff/pkg/runtime"
)

const bucketCycles = "cycles"

// ErrNoEntry is returned when no record has the requested key.
var ErrNoEntry = errors.New("journal: no such entry")

// Entry is one recorded render cycle. Tree and Patches hold the payloads
// written by protocol.EncodeVNode and protocol.EncodePatches.
type Entry struct {
	// Key is the journal's own sequence number, starting at 1. It keeps
	// increasing across program runs sharing one journal.
	Key uint64
	// Seq is the program's cycle number; 0 marks an initial draw.
	Seq     uint64
	Sync    bool
	Time    time.Time
	Tree    []byte
	Patches []byte
}

// Journal is an append-only record of render cycles stored in bbolt.
type Journal struct {
	db *bolt.DB
}

// Open opens or creates the journal at path.
func Open(path string) (*Journal, error) {
	db, err := bolt.Open(path, 0644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, vderrors.New("E402").Wrap(err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketCycles))
		return err
	})
	if err != nil {
		db.Close()
		return nil, vderrors.New("E402").Wrap(err)
	}
	return &Journal{db: db}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Append encodes and records a cycle. Event handlers are dropped.
func (j *Journal) Append(c runtime.Cycle) (uint64, error) {
	tree, err := protocol.EncodeVNode(c.New, protocol.DropHandlers())
	if err != nil {
		return 0, fmt.Errorf("journal: encode tree of cycle %d: %w", c.Seq, err)
	}
	patches, err := protocol.EncodePatches(&protocol.PatchesFrame{Seq: c.Seq, Patches: c.Patches}, protocol.DropHandlers())
	if err != nil {
		return 0, fmt.Errorf("journal: encode patches of cycle %d: %w", c.Seq, err)
	}
	return j.put(Entry{Seq: c.Seq, Sync: c.Sync, Time: time.Now(), Tree: tree, Patches: patches})
}

func (j *Journal) put(e Entry) (uint64, error) {
	var key uint64
	err := j.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketCycles))
		var err error
		key, err = b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(marshalKey(key), marshalEntry(e))
	})
	return key, err
}

// Observer returns a runtime observer that appends every cycle. Append
// failures are logged and do not stop the program.
func (j *Journal) Observer(logger *slog.Logger) func(runtime.Cycle) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c runtime.Cycle) {
		if _, err := j.Append(c); err != nil {
			logger.Warn("journal append failed", "seq", c.Seq, "error", err)
		}
	}
}

// Len returns the number of records.
func (j *Journal) Len() (int, error) {
	var n int
	err := j.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket([]byte(bucketCycles)).Stats().KeyN
		return nil
	})
	return n, err
}

// Entry returns the record with the given key.
func (j *Journal) Entry(key uint64) (Entry, error) {
	var e Entry
	err := j.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketCycles)).Get(marshalKey(key))
		if v == nil {
			return ErrNoEntry
		}
		var err error
		e, err = unmarshalEntry(key, v)
		return err
	})
	return e, err
}

// Iterate calls f for every record with from <= key < upto, in key order.
// An upto of 0 means no upper bound. Iteration stops at the first error.
func (j *Journal) Iterate(from, upto uint64, f func(Entry) error) error {
	return j.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(bucketCycles)).Cursor()
		for k, v := c.Seek(marshalKey(from)); k != nil; k, v = c.Next() {
			key := unmarshalKey(k)
			if upto != 0 && key >= upto {
				break
			}
			e, err := unmarshalEntry(key, v)
			if err != nil {
				return err
			}
			if err := f(e); err != nil {
				return err
			}
		}
		return nil
	})
}

// Entries returns every record with from <= key < upto.
func (j *Journal) Entries(from, upto uint64) ([]Entry, error) {
	var entries []Entry
	err := j.Iterate(from, upto, func(e Entry) error {
		entries = append(entries, e)
		return nil
	})
	return entries, err
}

func marshalKey(key uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, key)
	return b
}

func unmarshalKey(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}

// Record layout:
//
//	[Seq: varint][Sync: bool][Time: svarint unix nanos]
//	[TreeLen: varint][Tree][PatchesLen: varint][Patches]
func marshalEntry(e Entry) []byte {
	enc := protocol.NewEncoder()
	enc.WriteUvarint(e.Seq)
	enc.WriteBool(e.Sync)
	enc.WriteSvarint(e.Time.UnixNano())
	enc.WriteLen(len(e.Tree))
	enc.WriteBytes(e.Tree)
	enc.WriteLen(len(e.Patches))
	enc.WriteBytes(e.Patches)
	return enc.Bytes()
}

// unmarshalEntry copies the payloads out of v, which bbolt only keeps valid
// for the life of the transaction.
func unmarshalEntry(key uint64, v []byte) (Entry, error) {
	e := Entry{Key: key}
	d := protocol.NewDecoder(v)
	corrupt := func(err error) (Entry, error) {
		return Entry{}, vderrors.New("E211").Wrap(fmt.Errorf("entry %d: %w", key, err))
	}

	var err error
	if e.Seq, err = d.ReadUvarint(); err != nil {
		return corrupt(err)
	}
	if e.Sync, err = d.ReadBool(); err != nil {
		return corrupt(err)
	}
	nanos, err := d.ReadSvarint()
	if err != nil {
		return corrupt(err)
	}
	e.Time = time.Unix(0, nanos)

	if e.Tree, err = readBlob(d); err != nil {
		return corrupt(err)
	}
	if e.Patches, err = readBlob(d); err != nil {
		return corrupt(err)
	}
	if !d.EOF() {
		return corrupt(protocol.ErrTrailingBytes)
	}
	return e, nil
}

func readBlob(d *protocol.Decoder) ([]byte, error) {
	n, err := d.ReadLen()
	if err != nil {
		return nil, err
	}
	b, err := d.ReadBytes(n)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}
