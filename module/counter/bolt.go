package counter

import (
	"context"
	"encoding/binary"
	"errors"

	"AltarProject/module/counter/model"

	bolt "go.etcd.io/bbolt"
)

const defaultBoltBucket = "counters"

// BoltStore counters/<name>/last_seq，值为 8 字节大端；bbolt 的写事务全局串行
type BoltStore struct {
	db     *bolt.DB
	bucket []byte
}

func NewBoltStore(db *bolt.DB, bucket string) (*BoltStore, error) {
	if bucket == "" {
		bucket = defaultBoltBucket
	}
	s := &BoltStore{db: db, bucket: []byte(bucket)}
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(s.bucket)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

var lastSeqKey = []byte(model.CounterFieldLastSeq)

func (s *BoltStore) Load(ctx context.Context, name string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var v int64
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		v, err = s.read(tx, name)
		return err
	})
	return v, err
}

func (s *BoltStore) CompareAndSwap(ctx context.Context, name string, prev, next int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	swapped := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		cur, err := s.read(tx, name)
		if err != nil {
			return err
		}
		if cur != prev {
			return nil
		}
		root := tx.Bucket(s.bucket)
		if root == nil {
			return errors.New("bolt bucket missing: " + string(s.bucket))
		}
		b, err := root.CreateBucketIfNotExists([]byte(name))
		if err != nil {
			return err
		}
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(next))
		if err := b.Put(lastSeqKey, buf[:]); err != nil {
			return err
		}
		swapped = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return swapped, nil
}

func (s *BoltStore) read(tx *bolt.Tx, name string) (int64, error) {
	root := tx.Bucket(s.bucket)
	if root == nil {
		return 0, nil
	}
	b := root.Bucket([]byte(name))
	if b == nil {
		return 0, nil
	}
	v := b.Get(lastSeqKey)
	if v == nil {
		return 0, nil
	}
	if len(v) != 8 {
		return 0, errors.New("corrupt last_seq for counter " + name)
	}
	return int64(binary.BigEndian.Uint64(v)), nil
}
