package blockstore

import (
	"sync"

	"github.com/polkadot-go/synccore/types"
)

// MemStore is an in-memory Store, used by tests that don't want to
// touch disk. It intentionally implements the exact same interface as
// BoltStore/BadgerStore so blocktree and sync tests exercise the real
// Store contract, not a mock.
type MemStore struct {
	mu sync.RWMutex
	kv map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{kv: make(map[string][]byte)}
}

func (s *MemStore) put(key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kv[string(key)] = append([]byte(nil), value...)
	return nil
}

func (s *MemStore) get(key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.kv[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *MemStore) has(key []byte) (bool, error) {
	_, err := s.get(key)
	if err == ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (s *MemStore) PutHeader(hash types.Hash, h types.Header) error {
	return s.put(hashKey(SpaceHeader, hash), types.EncodeHeader(h))
}

func (s *MemStore) GetHeader(hash types.Hash) (types.Header, error) {
	raw, err := s.get(hashKey(SpaceHeader, hash))
	if err != nil {
		return types.Header{}, err
	}
	return types.DecodeHeader(raw)
}

func (s *MemStore) HasHeader(hash types.Hash) (bool, error) {
	return s.has(hashKey(SpaceHeader, hash))
}

func (s *MemStore) PutBody(hash types.Hash, b types.Body) error {
	return s.put(hashKey(SpaceBody, hash), types.EncodeBody(b))
}

func (s *MemStore) GetBody(hash types.Hash) (types.Body, error) {
	raw, err := s.get(hashKey(SpaceBody, hash))
	if err != nil {
		return types.Body{}, err
	}
	return types.DecodeBody(raw)
}

func (s *MemStore) HasBody(hash types.Hash) (bool, error) {
	return s.has(hashKey(SpaceBody, hash))
}

func (s *MemStore) PutJustification(hash types.Hash, j types.Justification) error {
	return s.put(hashKey(SpaceJustification, hash), types.EncodeJustification(j))
}

func (s *MemStore) GetJustification(hash types.Hash) (types.Justification, error) {
	raw, err := s.get(hashKey(SpaceJustification, hash))
	if err != nil {
		return types.Justification{}, err
	}
	return types.DecodeJustification(raw)
}

func (s *MemStore) PutLookup(number types.BlockNumber, hash types.Hash) error {
	return s.put(numberKey(number), hash[:])
}

func (s *MemStore) GetHashByNumber(number types.BlockNumber) (types.Hash, error) {
	raw, err := s.get(numberKey(number))
	if err != nil {
		return types.Hash{}, err
	}
	return types.HashFromBytes(raw)
}

func (s *MemStore) PutMeta(key string, value []byte) error {
	return s.put(metaKey(key), value)
}

func (s *MemStore) GetMeta(key string) ([]byte, error) {
	return s.get(metaKey(key))
}

func (s *MemStore) Close() error { return nil }
