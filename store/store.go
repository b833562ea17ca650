// Package store keeps documents on disk as an append-only log of
// their updates, in a pebble database shared by many documents.
//
// A bound document appends the update of every commit; loading a
// document replays its log. Compact folds a log into one update.
// Named snapshots are kept next to the log so that past states can be
// restored from a document created without garbage collection.
package store

import (
	"slices"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"

	"github.com/drpcorg/ydoc"
	"github.com/drpcorg/ydoc/rdx"
	"github.com/drpcorg/ydoc/utils"
)

var (
	ErrClosed          = errors.New("store: closed")
	ErrNameCollision   = errors.New("store: document name hash collision")
	ErrUnknownSnapshot = errors.New("store: no such snapshot")
)

// Updates are stored v1-encoded, the form update observers emit.
const logEncoding = rdx.EncodingV1

type Store struct {
	db   *pebble.DB
	opts Options
	log  utils.Logger

	// writers hold it exclusively, readers shared for every db access;
	// guards names and seqs and the validity of cached vectors
	lock  sync.RWMutex
	names map[docHash]string
	seqs  map[docHash]uint64

	vectors *lru.Cache[docHash, rdx.StateVector]
}

// Open opens or creates the store in dir.
func Open(dir string, opts Options) (*Store, error) {
	opts.SetDefaults()
	vectors, err := lru.New[docHash, rdx.StateVector](opts.CacheSize)
	if err != nil {
		return nil, err
	}
	db, err := pebble.Open(dir, &opts.Options)
	if err != nil {
		return nil, errors.Wrapf(err, "open store %s", dir)
	}
	log := opts.Logger.With("dir", dir)
	log.Info("store open")
	return &Store{
		db:      db,
		opts:    opts,
		log:     log,
		names:   make(map[docHash]string),
		seqs:    make(map[docHash]uint64),
		vectors: vectors,
	}, nil
}

func (s *Store) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.db == nil {
		return ErrClosed
	}
	err := s.db.Close()
	s.db = nil
	s.vectors.Purge()
	s.log.Info("store closed")
	return errors.Wrap(err, "close store")
}

// claim checks that the hash of name is not taken by another name,
// recording name on first use. Called with the lock held.
func (s *Store) claim(h docHash, name string, batch *pebble.Batch) error {
	if known, ok := s.names[h]; ok {
		if known != name {
			return errors.Wrapf(ErrNameCollision, "%q and %q", known, name)
		}
		return nil
	}
	val, closer, err := s.db.Get(nameKey(h))
	switch {
	case err == pebble.ErrNotFound:
		if err := batch.Set(nameKey(h), []byte(name), nil); err != nil {
			return err
		}
	case err != nil:
		return errors.Wrap(err, "read document name")
	default:
		known := string(val)
		_ = closer.Close()
		if known != name {
			return errors.Wrapf(ErrNameCollision, "%q and %q", known, name)
		}
	}
	s.names[h] = name
	return nil
}

// nextSeq allocates the sequence number of the next update of the
// document. Called with the lock held.
func (s *Store) nextSeq(h docHash) (uint64, error) {
	seq, ok := s.seqs[h]
	if !ok {
		lower, upper := updateBounds(h)
		it, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
		if err != nil {
			return 0, err
		}
		if it.Last() {
			last, _ := updateKeySeq(it.Key())
			seq = last + 1
		}
		if err := it.Close(); err != nil {
			return 0, err
		}
	}
	s.seqs[h] = seq + 1
	return seq, nil
}

// Append adds a v1 update to the log of the named document.
func (s *Store) Append(name string, update []byte) error {
	u, err := ydoc.DecodeUpdate(update, logEncoding)
	if err != nil {
		return errors.Wrapf(err, "append to %q", name)
	}
	h := hashOf(name)

	s.lock.Lock()
	defer s.lock.Unlock()
	if s.db == nil {
		return ErrClosed
	}
	batch := s.db.NewBatch()
	defer batch.Close()
	if err := s.claim(h, name, batch); err != nil {
		return err
	}
	seq, err := s.nextSeq(h)
	if err != nil {
		return errors.Wrap(err, "read update log")
	}
	if err := batch.Set(updateKey(h, seq), update, nil); err != nil {
		return err
	}
	if err := batch.Merge(vectorKey(h), u.StateVector().Encode(rdx.EncodingV1), nil); err != nil {
		return err
	}
	if err := batch.Commit(s.opts.WriteOptions); err != nil {
		delete(s.seqs, h)
		s.log.Error("append failed", "doc", name, "err", err)
		return errors.Wrapf(err, "append to %q", name)
	}
	s.vectors.Remove(h)
	return nil
}

// Bind appends every update doc commits from now on. Load the stored
// log first, or the document and its log diverge. Write failures are
// logged; doc.Unobserve with the returned id unbinds.
func (s *Store) Bind(name string, doc *ydoc.Doc) utils.SubscriptionID {
	return doc.ObserveUpdate(func(txn *ydoc.Transaction, update []byte) {
		if err := s.Append(name, update); err != nil {
			s.log.Error("cannot persist update", "doc", name, "err", err)
		}
	})
}

// Load applies the stored log of the named document to doc, in one
// transaction. It returns the number of updates applied; an unknown
// document has none.
func (s *Store) Load(name string, doc *ydoc.Doc) (n int, err error) {
	seqs, updates, err := s.readLog(hashOf(name))
	if err != nil {
		return 0, err
	}
	// applied with the lock released: commit observers may append
	err = doc.WithTransaction(func(txn *ydoc.Transaction) error {
		for i, update := range updates {
			if err := txn.ApplyUpdate(update, logEncoding); err != nil {
				return errors.Wrapf(err, "update %d of %q", seqs[i], name)
			}
			n++
		}
		return nil
	})
	return n, err
}

// readLog copies the update log of a document out of the database.
func (s *Store) readLog(h docHash) (seqs []uint64, updates [][]byte, err error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.db == nil {
		return nil, nil, ErrClosed
	}
	lower, upper := updateBounds(h)
	it, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, nil, errors.Wrap(err, "read update log")
	}
	defer it.Close()
	for valid := it.First(); valid; valid = it.Next() {
		seq, _ := updateKeySeq(it.Key())
		seqs = append(seqs, seq)
		updates = append(updates, slices.Clone(it.Value()))
	}
	return seqs, updates, errors.Wrap(it.Error(), "read update log")
}

// StateVector is the union of the clocks the stored updates reach.
func (s *Store) StateVector(name string) (rdx.StateVector, error) {
	h := hashOf(name)
	// entries are removed under the write lock, so a hit is current
	if sv, ok := s.vectors.Get(h); ok {
		return sv.Clone(), nil
	}
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.db == nil {
		return nil, ErrClosed
	}
	sv, err := s.storedVector(h)
	if err != nil {
		return nil, errors.Wrapf(err, "state vector of %q", name)
	}
	// filled under the read lock: no append can commit in between
	s.vectors.Add(h, sv)
	return sv.Clone(), nil
}

// Names lists the stored documents.
func (s *Store) Names() ([]string, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.db == nil {
		return nil, ErrClosed
	}
	it, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte{kindName},
		UpperBound: []byte{kindName + 1},
	})
	if err != nil {
		return nil, err
	}
	defer it.Close()
	var names []string
	for valid := it.First(); valid; valid = it.Next() {
		names = append(names, string(it.Value()))
	}
	return names, it.Error()
}

// SaveSnapshot stores snap under a new time-ordered id.
func (s *Store) SaveSnapshot(name string, snap *ydoc.Snapshot) (uuid.UUID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, err
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.db == nil {
		return uuid.Nil, ErrClosed
	}
	h := hashOf(name)
	batch := s.db.NewBatch()
	defer batch.Close()
	if err := s.claim(h, name, batch); err != nil {
		return uuid.Nil, err
	}
	if err := batch.Set(snapshotKey(h, id), snap.Encode(rdx.EncodingV2), nil); err != nil {
		return uuid.Nil, err
	}
	if err := batch.Commit(s.opts.WriteOptions); err != nil {
		return uuid.Nil, errors.Wrapf(err, "save snapshot of %q", name)
	}
	return id, nil
}

func (s *Store) LoadSnapshot(name string, id uuid.UUID) (*ydoc.Snapshot, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.db == nil {
		return nil, ErrClosed
	}
	val, closer, err := s.db.Get(snapshotKey(hashOf(name), id))
	if err == pebble.ErrNotFound {
		return nil, errors.Wrapf(ErrUnknownSnapshot, "%s of %q", id, name)
	} else if err != nil {
		return nil, errors.Wrap(err, "read snapshot")
	}
	defer closer.Close()
	return ydoc.DecodeSnapshot(val, rdx.EncodingV2)
}

// Snapshots lists the snapshot ids of the document, oldest first.
func (s *Store) Snapshots(name string) ([]uuid.UUID, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.db == nil {
		return nil, ErrClosed
	}
	lower, upper := snapshotBounds(hashOf(name))
	it, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, err
	}
	defer it.Close()
	var ids []uuid.UUID
	for valid := it.First(); valid; valid = it.Next() {
		if id, ok := snapshotKeyID(it.Key()); ok {
			ids = append(ids, id)
		}
	}
	return ids, it.Error()
}

// Compact replaces the log of the named document with a single update
// holding the whole state of doc, which must have the log loaded.
func (s *Store) Compact(name string, doc *ydoc.Doc) error {
	update, err := doc.EncodeStateAsUpdate(logEncoding)
	if err != nil {
		return err
	}
	sv, err := doc.StateVector()
	if err != nil {
		return err
	}
	h := hashOf(name)

	s.lock.Lock()
	defer s.lock.Unlock()
	if s.db == nil {
		return ErrClosed
	}
	stored, err := s.storedVector(h)
	if err != nil {
		return err
	}
	if !sv.Covers(stored) {
		return errors.Errorf("compact %q: document is behind its log, %s < %s", name, sv, stored)
	}
	batch := s.db.NewBatch()
	defer batch.Close()
	if err := s.claim(h, name, batch); err != nil {
		return err
	}
	seq, err := s.nextSeq(h)
	if err != nil {
		return errors.Wrap(err, "read update log")
	}
	lower, upper := updateBounds(h)
	if err := batch.DeleteRange(lower, upper, nil); err != nil {
		return err
	}
	if err := batch.Set(updateKey(h, seq), update, nil); err != nil {
		return err
	}
	if err := batch.Set(vectorKey(h), sv.Encode(rdx.EncodingV1), nil); err != nil {
		return err
	}
	if err := batch.Commit(s.opts.WriteOptions); err != nil {
		delete(s.seqs, h)
		s.log.Error("compaction failed", "doc", name, "err", err)
		return errors.Wrapf(err, "compact %q", name)
	}
	s.vectors.Remove(h)
	if err := s.db.Compact(lower, upper, false); err != nil {
		return errors.Wrapf(err, "compact %q", name)
	}
	s.log.Info("log compacted", "doc", name, "seq", seq, "bytes", len(update))
	return nil
}

// storedVector reads the stored state vector bypassing the cache.
// Called with the lock held, shared or not.
func (s *Store) storedVector(h docHash) (rdx.StateVector, error) {
	val, closer, err := s.db.Get(vectorKey(h))
	if err == pebble.ErrNotFound {
		return rdx.StateVector{}, nil
	} else if err != nil {
		return nil, errors.Wrap(err, "read state vector")
	}
	defer closer.Close()
	return rdx.DecodeStateVector(val, rdx.EncodingV1)
}
