package blockstore

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/polkadot-go/synccore/types"
)

// BadgerStore is an alternate Store backend for deployments that
// favor badger's LSM-tree write throughput over bbolt's single-file
// mmap model, selected via config.DBBackend / --db_backend.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (or creates) a badger-backed Store at path.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) put(key, value []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (s *BadgerStore) get(key []byte) ([]byte, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out = append([]byte(nil), val...)
			return nil
		})
	})
	return out, err
}

func (s *BadgerStore) has(key []byte) (bool, error) {
	_, err := s.get(key)
	if err == ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (s *BadgerStore) PutHeader(hash types.Hash, h types.Header) error {
	return s.put(hashKey(SpaceHeader, hash), types.EncodeHeader(h))
}

func (s *BadgerStore) GetHeader(hash types.Hash) (types.Header, error) {
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

func (s *BadgerStore) HasHeader(hash types.Hash) (bool, error) {
	return s.has(hashKey(SpaceHeader, hash))
}

func (s *BadgerStore) PutBody(hash types.Hash, b types.Body) error {
	return s.put(hashKey(SpaceBody, hash), types.EncodeBody(b))
}

func (s *BadgerStore) GetBody(hash types.Hash) (types.Body, error) {
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

func (s *BadgerStore) HasBody(hash types.Hash) (bool, error) {
	return s.has(hashKey(SpaceBody, hash))
}

func (s *BadgerStore) PutJustification(hash types.Hash, j types.Justification) error {
	return s.put(hashKey(SpaceJustification, hash), types.EncodeJustification(j))
}

func (s *BadgerStore) GetJustification(hash types.Hash) (types.Justification, error) {
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

func (s *BadgerStore) PutLookup(number types.BlockNumber, hash types.Hash) error {
	return s.put(numberKey(number), hash[:])
}

func (s *BadgerStore) GetHashByNumber(number types.BlockNumber) (types.Hash, error) {
	raw, err := s.get(numberKey(number))
	if err != nil {
		return types.Hash{}, err
	}
	return types.HashFromBytes(raw)
}

func (s *BadgerStore) PutMeta(key string, value []byte) error {
	return s.put(metaKey(key), value)
}

func (s *BadgerStore) GetMeta(key string) ([]byte, error) {
	return s.get(metaKey(key))
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
