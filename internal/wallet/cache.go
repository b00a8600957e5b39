package wallet

import (
	"sync"

	"github.com/Klingon-tech/kaswallet/pkg/crypto"
	"github.com/Klingon-tech/kaswallet/pkg/types"
)

// DefaultCacheSize is the number of public derivations a cache keeps.
const DefaultCacheSize = 4096

// DerivationCache memoizes public child derivations. Only neutered keys
// are stored; derivation from a private key bypasses the cache.
type DerivationCache struct {
	mu      sync.Mutex
	max     int
	entries map[types.Hash]*ExtendedKey
	order   []types.Hash
}

// NewDerivationCache creates a cache holding at most max entries.
func NewDerivationCache(max int) *DerivationCache {
	if max <= 0 {
		max = DefaultCacheSize
	}
	return &DerivationCache{max: max, entries: make(map[types.Hash]*ExtendedKey)}
}

// Derive returns k derived along path, consulting the cache when k is public.
// A nil cache derives directly.
func (c *DerivationCache) Derive(k *ExtendedKey, path DerivationPath) (*ExtendedKey, error) {
	if c == nil || k.IsPrivate() {
		return k.DerivePath(path)
	}
	id := crypto.HashConcat([]byte(k.String()), []byte(path.String()))

	c.mu.Lock()
	if hit, ok := c.entries[id]; ok {
		c.mu.Unlock()
		return hit, nil
	}
	c.mu.Unlock()

	child, err := k.DerivePath(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[id]; !ok {
		if len(c.order) >= c.max {
			delete(c.entries, c.order[0])
			c.order = c.order[1:]
		}
		c.entries[id] = child
		c.order = append(c.order, id)
	}
	return child, nil
}

// Len returns the number of cached derivations.
func (c *DerivationCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
