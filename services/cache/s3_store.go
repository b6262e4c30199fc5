package cache

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	webmail_errors "github.com/customeros/webmail/errors"
	"github.com/customeros/webmail/interfaces"
	"github.com/customeros/webmail/internal/utils"
)

const objectContentType = "application/octet-stream"

// ObjectStore keeps one object per key under a fixed prefix of an S3 or R2
// bucket. Objects carry the same expiry header as the bolt records.
type ObjectStore struct {
	storage interfaces.StorageService
	prefix  string
}

func NewObjectStore(storage interfaces.StorageService, prefix string) *ObjectStore {
	return &ObjectStore{storage: storage, prefix: prefix}
}

// objectKey concatenates instead of cleaning the path, so a key can never
// resolve outside the prefix it was built under.
func (s *ObjectStore) objectKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return strings.TrimSuffix(s.prefix, "/") + "/" + key
}

func (s *ObjectStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	record, err := s.storage.Download(ctx, s.objectKey(key))
	if errors.Is(err, webmail_errors.ErrObjectNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if recordExpired(record, utils.Now()) {
		return nil, false, nil
	}
	return record[expiryHeaderSize:], true, nil
}

func (s *ObjectStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = utils.Now().Add(ttl)
	}
	return s.storage.Upload(ctx, s.objectKey(key), encodeRecord(value, expiresAt), objectContentType)
}

func (s *ObjectStore) Delete(ctx context.Context, key string) error {
	return s.storage.Delete(ctx, s.objectKey(key))
}

func (s *ObjectStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	keys, err := s.storage.List(ctx, s.objectKey(prefix))
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, key := range keys {
		if err := s.storage.Delete(ctx, key); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

func (s *ObjectStore) Close() error {
	return nil
}
