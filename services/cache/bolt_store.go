package cache

import (
	"bytes"
	"context"
	"encoding/binary"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/customeros/webmail/internal/utils"
)

const expiryHeaderSize = 8

// BoltStore keeps the cache in one embedded file. Each value is prefixed with
// its expiry in unix nanoseconds, zero meaning never.
type BoltStore struct {
	db     *bolt.DB
	bucket []byte
}

func NewBoltStore(path, bucket string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open bolt file %s", path)
	}
	store := &BoltStore{db: db, bucket: []byte(bucket)}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(store.bucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to create bolt bucket")
	}
	return store, nil
}

func encodeRecord(value []byte, expiresAt time.Time) []byte {
	record := make([]byte, expiryHeaderSize+len(value))
	if !expiresAt.IsZero() {
		binary.BigEndian.PutUint64(record, uint64(expiresAt.UnixNano()))
	}
	copy(record[expiryHeaderSize:], value)
	return record
}

func recordExpired(record []byte, now time.Time) bool {
	if len(record) < expiryHeaderSize {
		return true
	}
	expires := binary.BigEndian.Uint64(record[:expiryHeaderSize])
	return expires != 0 && now.UnixNano() > int64(expires)
}

func (s *BoltStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		record := tx.Bucket(s.bucket).Get([]byte(key))
		if record == nil || recordExpired(record, utils.Now()) {
			return nil
		}
		// bolt memory is only valid inside the transaction
		value = append([]byte(nil), record[expiryHeaderSize:]...)
		return nil
	})
	if err != nil {
		return nil, false, errors.Wrap(err, "bolt get")
	}
	return value, value != nil, nil
}

func (s *BoltStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = utils.Now().Add(ttl)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(key), encodeRecord(value, expiresAt))
	})
}

func (s *BoltStore) Delete(ctx context.Context, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Delete([]byte(key))
	})
}

func (s *BoltStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	deleted := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		p := []byte(prefix)
		var keys [][]byte
		c := b.Cursor()
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		deleted = len(keys)
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "bolt prefix delete")
	}
	return deleted, nil
}

func (s *BoltStore) Purge(ctx context.Context, now time.Time) (int, error) {
	deleted := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		var keys [][]byte
		err := b.ForEach(func(k, v []byte) error {
			if recordExpired(v, now) {
				keys = append(keys, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		deleted = len(keys)
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "bolt purge")
	}
	return deleted, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
