package notify

import (
	"sync"
	"time"
)

// expiringSet хранит ключи с ограниченным временем жизни.
// Удаление ключа планируется отложенно в момент вставки.
type expiringSet struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func newExpiringSet() *expiringSet {
	return &expiringSet{keys: make(map[string]struct{})}
}

// add вставляет ключ на время ttl. Возвращает false, если ключ ещё жив.
func (s *expiringSet) add(key string, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.keys[key]; ok {
		return false
	}

	s.keys[key] = struct{}{}
	time.AfterFunc(ttl, func() {
		s.mu.Lock()
		delete(s.keys, key)
		s.mu.Unlock()
	})
	return true
}
