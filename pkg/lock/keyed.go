package lock

import "sync"

// Keyed hands out one mutex per key. The store uses it to serialize
// read-modify-rewrite sequences against a single user's history, which
// are not atomic at the KV level.
type Keyed struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewKeyed() *Keyed {
	return &Keyed{
		locks: make(map[string]*sync.Mutex),
	}
}

func (k *Keyed) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()

	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}

func (k *Keyed) Lock(key string) {
	k.get(key).Lock()
}

func (k *Keyed) Unlock(key string) {
	k.get(key).Unlock()
}
