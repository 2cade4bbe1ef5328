package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"sync"
)

// FingerprintChars is how much of the content feeds the fingerprint.
const FingerprintChars = 4096

// Store is a process-lifetime map guarded by a mutex. Analyzers share one
// Store per concern (embeddings, results) and it is cleared explicitly.
type Store[V any] struct {
	mu    sync.RWMutex
	items map[string]V
}

func New[V any]() *Store[V] {
	return &Store[V]{items: make(map[string]V)}
}

func (s *Store[V]) Get(key string) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok
}

func (s *Store[V]) Set(key string, v V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = v
}

// Clear drops every entry and returns how many were removed.
func (s *Store[V]) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.items)
	s.items = make(map[string]V)
	return n
}

func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Fingerprint hashes the first n bytes of text together with its full
// length. Equal documents always collide; distinct ones sharing a prefix are
// separated by length.
func Fingerprint(text string, n int) string {
	if n <= 0 || n > len(text) {
		n = len(text)
	}
	h := sha256.New()
	h.Write([]byte(text[:n]))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(len(text))))
	return hex.EncodeToString(h.Sum(nil))[:32]
}

// Key joins a fingerprint with qualifiers such as analyzer name or model.
func Key(fingerprint string, parts ...string) string {
	k := fingerprint
	for _, p := range parts {
		k += ":" + p
	}
	return k
}
