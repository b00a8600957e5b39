package storage

import "bytes"

// PrefixDB is a namespace inside another DB. Every key is stored under
// the namespace prefix and callers only ever see the unprefixed keys.
type PrefixDB struct {
	inner  DB
	prefix []byte
}

// NewPrefixDB returns the namespace prefix of inner.
func NewPrefixDB(inner DB, prefix []byte) *PrefixDB {
	return &PrefixDB{inner: inner, prefix: bytes.Clone(prefix)}
}

// namespaced prepends prefix to key in a fresh slice.
func namespaced(prefix, key []byte) []byte {
	out := make([]byte, 0, len(prefix)+len(key))
	return append(append(out, prefix...), key...)
}

// Get retrieves a value by key.
func (p *PrefixDB) Get(key []byte) ([]byte, error) {
	return p.inner.Get(namespaced(p.prefix, key))
}

// Put stores a key-value pair.
func (p *PrefixDB) Put(key, value []byte) error {
	return p.inner.Put(namespaced(p.prefix, key), value)
}

// Delete removes a key.
func (p *PrefixDB) Delete(key []byte) error {
	return p.inner.Delete(namespaced(p.prefix, key))
}

// Has checks if a key exists.
func (p *PrefixDB) Has(key []byte) (bool, error) {
	return p.inner.Has(namespaced(p.prefix, key))
}

// ForEach visits the keys of the namespace starting with prefix.
// Keys passed to fn have the namespace stripped.
func (p *PrefixDB) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	n := len(p.prefix)
	return p.inner.ForEach(namespaced(p.prefix, prefix), func(key, value []byte) error {
		return fn(key[n:], value)
	})
}

// Close does nothing; the inner DB is closed by whoever opened it.
func (p *PrefixDB) Close() error {
	return nil
}

// NewBatch returns a batch over the namespace. It commits atomically when
// the inner DB is a Batcher and key by key otherwise.
func (p *PrefixDB) NewBatch() Batch {
	b := &prefixBatch{prefix: p.prefix, db: p.inner}
	if batcher, ok := p.inner.(Batcher); ok {
		b.inner = batcher.NewBatch()
	}
	return b
}

type batchOp struct {
	key    []byte
	value  []byte
	delete bool
}

// prefixBatch writes through to an inner batch, or buffers ops for
// sequential replay when the inner DB has none.
type prefixBatch struct {
	prefix []byte
	db     DB
	inner  Batch
	ops    []batchOp
}

func (b *prefixBatch) Put(key, value []byte) error {
	k := namespaced(b.prefix, key)
	if b.inner != nil {
		return b.inner.Put(k, value)
	}
	b.ops = append(b.ops, batchOp{key: k, value: bytes.Clone(value)})
	return nil
}

func (b *prefixBatch) Delete(key []byte) error {
	k := namespaced(b.prefix, key)
	if b.inner != nil {
		return b.inner.Delete(k)
	}
	b.ops = append(b.ops, batchOp{key: k, delete: true})
	return nil
}

func (b *prefixBatch) Commit() error {
	if b.inner != nil {
		return b.inner.Commit()
	}
	for _, op := range b.ops {
		var err error
		if op.delete {
			err = b.db.Delete(op.key)
		} else {
			err = b.db.Put(op.key, op.value)
		}
		if err != nil {
			return err
		}
	}
	b.ops = nil
	return nil
}

func (b *prefixBatch) Cancel() {
	if b.inner != nil {
		b.inner.Cancel()
	}
	b.ops = nil
}
