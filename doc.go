// Package ydoc is a transaction-scoped CRDT document: named shared
// containers (Array, Map, Text and the XML family) that replicas edit
// independently and reconcile by exchanging binary updates.
//
// Every read and write goes through a Transaction. A document admits
// one read-write transaction at a time, or any number of read-only
// ones; a conflicting request fails fast with a ConcurrentAccessError.
// Committing a read-write transaction fires the container observers,
// then the update observers with the encoded changes, then collects
// garbage if the document was created with GC on.
package ydoc

import (
	"math/rand/v2"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/drpcorg/ydoc/rdx"
	"github.com/drpcorg/ydoc/utils"
	"github.com/drpcorg/ydoc/ydoc_errors"
)

// UpdateObserver receives the encoded changes of one committed
// transaction. The transaction is readable but no longer writable.
type UpdateObserver func(txn *Transaction, update []byte)

type updateObserver struct {
	enc rdx.Encoding
	fn  UpdateObserver
}

type Doc struct {
	clientID uint64
	gc       bool
	log      utils.Logger

	// the transaction slot
	lock    sync.Mutex
	writing bool
	readers int

	store    *structStore
	roots    *xsync.MapOf[string, *branch]
	rootLock sync.Mutex

	// structs and deletions waiting for what they depend on
	pending   map[uint64][]*item
	pendingDS rdx.DeleteSet

	updateObservers utils.Observers[updateObserver]
}

// New creates a document; GC is on unless WithGC(false) is given.
func New(opts ...Option) *Doc {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return NewWithOptions(o)
}

func NewWithOptions(o Options) *Doc {
	o.SetDefaults()
	return &Doc{
		clientID:  o.ClientID,
		gc:        o.GC,
		log:       o.Logger.With("client", o.ClientID),
		store:     newStructStore(),
		roots:     xsync.NewMapOf[string, *branch](),
		pending:   make(map[uint64][]*item),
		pendingDS: make(rdx.DeleteSet),
	}
}

// randomClientID picks a 53-bit id, the range every peer implementation
// can hold losslessly.
func randomClientID() uint64 {
	for {
		if id := rand.Uint64() >> 11; id != 0 {
			return id
		}
	}
}

func (d *Doc) ClientID() uint64 {
	return d.clientID
}

// GC reports whether deleted content is collected on commit.
func (d *Doc) GC() bool {
	return d.gc
}

// Transact starts the read-write transaction. It fails with a
// ConcurrentAccessError while any other transaction is active.
func (d *Doc) Transact() (*Transaction, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	switch {
	case d.writing:
		return nil, d.conflict(modeWrite, modeWrite)
	case d.readers > 0:
		return nil, d.conflict(modeWrite, modeRead)
	}
	d.writing = true
	TransactionCount.WithLabelValues(modeWrite.String()).Inc()
	return newTransaction(d, modeWrite), nil
}

// TransactRead starts a read-only transaction. Any number of them may
// run together, but not alongside the read-write one.
func (d *Doc) TransactRead() (*Transaction, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.writing {
		return nil, d.conflict(modeRead, modeWrite)
	}
	d.readers++
	TransactionCount.WithLabelValues(modeRead.String()).Inc()
	return newTransaction(d, modeRead), nil
}

func (d *Doc) conflict(requested, active txnMode) error {
	ConcurrentAccessCount.WithLabelValues(requested.String()).Inc()
	return &ydoc_errors.ConcurrentAccessError{Requested: requested.String(), Active: active.String()}
}

func (d *Doc) release(mode txnMode) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if mode == modeWrite {
		d.writing = false
	} else {
		d.readers--
	}
}

// WithTransaction runs fn in a read-write transaction and commits it,
// whether fn fails or not.
func (d *Doc) WithTransaction(fn func(txn *Transaction) error) error {
	txn, err := d.Transact()
	if err != nil {
		return err
	}
	defer txn.Commit()
	return fn(txn)
}

func (d *Doc) WithReadTransaction(fn func(txn *Transaction) error) error {
	txn, err := d.TransactRead()
	if err != nil {
		return err
	}
	defer txn.Commit()
	return fn(txn)
}

// root returns the named root, specializing an untyped one. Roots
// created by remote updates stay untyped until first accessed.
func (d *Doc) root(name string, kind branchKind) (*branch, error) {
	b, _ := d.roots.LoadOrCompute(name, func() *branch {
		nb := newBranch(d, kindUndefined)
		nb.name = name
		return nb
	})
	if kind == kindUndefined {
		return b, nil
	}
	d.rootLock.Lock()
	defer d.rootLock.Unlock()
	switch b.kind {
	case kindUndefined:
		b.kind = kind
		if kind == kindXmlElement {
			b.tag = name
		}
	case kind:
	default:
		return nil, ydoc_errors.Unsupported("root %q is a %s, not a %s", name, b.kind, kind)
	}
	return b, nil
}

func (d *Doc) GetOrInsertArray(name string) (*Array, error) {
	b, err := d.root(name, kindArray)
	if err != nil {
		return nil, err
	}
	return b.container().(*Array), nil
}

func (d *Doc) GetOrInsertMap(name string) (*Map, error) {
	b, err := d.root(name, kindMap)
	if err != nil {
		return nil, err
	}
	return b.container().(*Map), nil
}

func (d *Doc) GetOrInsertText(name string) (*Text, error) {
	b, err := d.root(name, kindText)
	if err != nil {
		return nil, err
	}
	return b.container().(*Text), nil
}

func (d *Doc) GetOrInsertXmlFragment(name string) (*XmlFragment, error) {
	b, err := d.root(name, kindXmlFrag)
	if err != nil {
		return nil, err
	}
	return b.container().(*XmlFragment), nil
}

// GetOrInsertXmlElement returns a root element; its tag is its name.
func (d *Doc) GetOrInsertXmlElement(name string) (*XmlElement, error) {
	b, err := d.root(name, kindXmlElement)
	if err != nil {
		return nil, err
	}
	return b.container().(*XmlElement), nil
}

func (d *Doc) GetOrInsertXmlText(name string) (*XmlText, error) {
	b, err := d.root(name, kindXmlText)
	if err != nil {
		return nil, err
	}
	return b.container().(*XmlText), nil
}

// Roots lists the root names, sorted.
func (d *Doc) Roots() []string {
	names := make(map[string]struct{})
	d.roots.Range(func(name string, _ *branch) bool {
		names[name] = struct{}{}
		return true
	})
	return sortedKeys(names)
}

// ObserveUpdate subscribes to the v1 update of every committed
// transaction that changed something.
func (d *Doc) ObserveUpdate(fn UpdateObserver) utils.SubscriptionID {
	return d.updateObservers.Add(updateObserver{enc: rdx.EncodingV1, fn: fn})
}

// ObserveUpdateV2 is ObserveUpdate with v2-encoded updates.
func (d *Doc) ObserveUpdateV2(fn UpdateObserver) utils.SubscriptionID {
	return d.updateObservers.Add(updateObserver{enc: rdx.EncodingV2, fn: fn})
}

// Unobserve removes an update subscription; unknown ids return false.
func (d *Doc) Unobserve(id utils.SubscriptionID) bool {
	return d.updateObservers.Remove(id)
}

// commit runs the commit pipeline of a read-write transaction while
// the document is still held by it.
func (d *Doc) commit(txn *Transaction) {
	txn.deleteSet.Normalize()
	txn.observing = true
	for _, b := range txn.changedOrder {
		if b.observers.Len() == 0 {
			continue
		}
		ev := txn.event(b)
		if ev.empty() {
			continue
		}
		b.observers.Each(func(fn EventObserver) {
			fn(txn, ev)
		})
	}
	after := d.store.stateVector()
	if !after.ProgressedOver(txn.beforeState) && txn.deleteSet.IsEmpty() {
		return
	}
	CommitCount.Inc()
	if d.updateObservers.Len() > 0 {
		var encoded [3][]byte
		d.updateObservers.Each(func(o updateObserver) {
			if encoded[o.enc] == nil {
				encoded[o.enc] = encodeUpdate(d.store.blocks(txn.beforeState, nil), txn.deleteSet, o.enc)
				UpdateBytes.WithLabelValues("local").Observe(float64(len(encoded[o.enc])))
			}
			o.fn(txn, encoded[o.enc])
		})
	}
	if d.gc {
		txn.collectGarbage()
	}
	d.log.Debug("commit",
		"before", txn.beforeState.String(),
		"after", after.String(),
		"deleted", txn.deleteSet.String())
}
