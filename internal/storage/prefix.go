package storage

// PrefixDB wraps a DB and prepends a fixed prefix to all keys, giving each
// user of a shared store its own keyspace.
type PrefixDB struct {
	inner  DB
	prefix []byte
}

// NewPrefixDB creates a new PrefixDB wrapping inner with the given prefix.
func NewPrefixDB(inner DB, prefix []byte) *PrefixDB {
	return &PrefixDB{inner: inner, prefix: clone(prefix)}
}

func (p *PrefixDB) prefixed(key []byte) []byte {
	out := make([]byte, len(p.prefix)+len(key))
	copy(out, p.prefix)
	copy(out[len(p.prefix):], key)
	return out
}

// Get retrieves a value by key.
func (p *PrefixDB) Get(key []byte) ([]byte, error) {
	return p.inner.Get(p.prefixed(key))
}

// Put stores a key-value pair.
func (p *PrefixDB) Put(key, value []byte) error {
	return p.inner.Put(p.prefixed(key), value)
}

// Delete removes a key.
func (p *PrefixDB) Delete(key []byte) error {
	return p.inner.Delete(p.prefixed(key))
}

// Has checks if a key exists.
func (p *PrefixDB) Has(key []byte) (bool, error) {
	return p.inner.Has(p.prefixed(key))
}

// ForEach iterates over keys with the given prefix inside this namespace.
// Keys passed to fn have the namespace prefix stripped.
func (p *PrefixDB) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	return p.inner.ForEach(p.prefixed(prefix), func(key, value []byte) error {
		return fn(key[len(p.prefix):], value)
	})
}

// DeleteAll removes every key in this namespace.
func (p *PrefixDB) DeleteAll() error {
	b := p.NewBatch()
	err := p.ForEach(nil, func(key, _ []byte) error {
		return b.Delete(key)
	})
	if err != nil {
		return err
	}
	return b.Commit()
}

// Close is a no-op; the wrapped DB owns its lifecycle.
func (p *PrefixDB) Close() error {
	return nil
}

// NewBatch returns a batch over this namespace. It is atomic when the
// wrapped DB is a Batcher and applies writes one by one otherwise.
func (p *PrefixDB) NewBatch() Batch {
	if batcher, ok := p.inner.(Batcher); ok {
		return &prefixBatch{inner: batcher.NewBatch(), p: p}
	}
	return &prefixBatch{p: p}
}

type prefixBatch struct {
	inner Batch // nil: unbatched fallback
	p     *PrefixDB
	ops   []batchOp
}

func (pb *prefixBatch) Put(key, value []byte) error {
	if pb.inner != nil {
		return pb.inner.Put(pb.p.prefixed(key), value)
	}
	pb.ops = append(pb.ops, batchOp{key: clone(key), value: clone(value)})
	return nil
}

func (pb *prefixBatch) Delete(key []byte) error {
	if pb.inner != nil {
		return pb.inner.Delete(pb.p.prefixed(key))
	}
	pb.ops = append(pb.ops, batchOp{key: clone(key)})
	return nil
}

func (pb *prefixBatch) Commit() error {
	if pb.inner != nil {
		return pb.inner.Commit()
	}
	for _, op := range pb.ops {
		var err error
		if op.value == nil {
			err = pb.p.Delete(op.key)
		} else {
			err = pb.p.Put(op.key, op.value)
		}
		if err != nil {
			return err
		}
	}
	pb.ops = nil
	return nil
}
