package blockstore

import (
	"fmt"

	bolt "go.etcd.io/bbolt"
	"github.com/polkadot-go/synccore/types"
)

var bucketName = []byte("synccore")

// BoltStore is a Store backed by go.etcd.io/bbolt, the default
// on-disk backend for a single-writer node.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) a bbolt-backed Store at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open bbolt store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) put(key, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put(key, value)
	})
}

func (s *BoltStore) get(key []byte) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketName).Get(key)
		if v == nil {
			return ErrNotFound
		}
		out = append([]byte(nil), v...)
		return nil
	})
	return out, err
}

func (s *BoltStore) has(key []byte) (bool, error) {
	_, err := s.get(key)
	if err == ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (s *BoltStore) PutHeader(hash types.Hash, h types.Header) error {
	return s.put(hashKey(SpaceHeader, hash), types.EncodeHeader(h))
}

func (s *BoltStore) GetHeader(hash types.Hash) (types.Header, error) {
	raw, err := s.get(hashKey(SpaceHeader, hash))
	if err != nil {
		return types.Header{}, err
	}
	h, err := types.DecodeHeader(raw)
	if err != nil {
		panic(fmt.Sprintf("blockstore: corrupt header for %s: %v", hash, err))
	}
	return h, nil
}

func (s *BoltStore) HasHeader(hash types.Hash) (bool, error) {
	return s.has(hashKey(SpaceHeader, hash))
}

func (s *BoltStore) PutBody(hash types.Hash, b types.Body) error {
	return s.put(hashKey(SpaceBody, hash), types.EncodeBody(b))
}

func (s *BoltStore) GetBody(hash types.Hash) (types.Body, error) {
	raw, err := s.get(hashKey(SpaceBody, hash))
	if err != nil {
		return types.Body{}, err
	}
	b, err := types.DecodeBody(raw)
	if err != nil {
		panic(fmt.Sprintf("blockstore: corrupt body for %s: %v", hash, err))
	}
	return b, nil
}

func (s *BoltStore) HasBody(hash types.Hash) (bool, error) {
	return s.has(hashKey(SpaceBody, hash))
}

func (s *BoltStore) PutJustification(hash types.Hash, j types.Justification) error {
	return s.put(hashKey(SpaceJustification, hash), types.EncodeJustification(j))
}

func (s *BoltStore) GetJustification(hash types.Hash) (types.Justification, error) {
	raw, err := s.get(hashKey(SpaceJustification, hash))
	if err != nil {
		return types.Justification{}, err
	}
	j, err := types.DecodeJustification(raw)
	if err != nil {
		panic(fmt.Sprintf("blockstore: corrupt justification for %s: %v", hash, err))
	}
	return j, nil
}

func (s *BoltStore) PutLookup(number types.BlockNumber, hash types.Hash) error {
	return s.put(numberKey(number), hash[:])
}

func (s *BoltStore) GetHashByNumber(number types.BlockNumber) (types.Hash, error) {
	raw, err := s.get(numberKey(number))
	if err != nil {
		return types.Hash{}, err
	}
	return types.HashFromBytes(raw)
}

func (s *BoltStore) PutMeta(key string, value []byte) error {
	return s.put(metaKey(key), value)
}

func (s *BoltStore) GetMeta(key string) ([]byte, error) {
	return s.get(metaKey(key))
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
