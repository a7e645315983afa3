// Package slots implements the transactional slot tables used by the executor.
//
// A Slots value is the committed state of a shard. Every call opens a Nested scope on top of
// it; writes made in a scope become visible to the parent only when the scope is committed,
// and Reset restores every slot the scope touched.
package slots

import (
	"log/slog"
	"slices"

	"github.com/govm-net/nativevm/alignedbuf"
	"github.com/govm-net/nativevm/core"
)

// Key identifies a slot: the data Contract keeps on behalf of Owner.
type Key struct {
	Owner    core.Address
	Contract core.Address
}

// Compare orders keys by owner, then by contract.
func (k Key) Compare(o Key) int {
	if c := k.Owner.Compare(o.Owner); c != 0 {
		return c
	}
	return k.Contract.Compare(o.Contract)
}

func (k Key) logAttrs() []any {
	return []any{"owner", k.Owner, "contract", k.Contract}
}

// Index refers to a slot used read-write in the current scope.
type Index int

// Entry is a committed slot value.
type Entry struct {
	Key    Key
	Buffer alignedbuf.Shared
}

type state uint8

const (
	stateOriginal state = iota
	stateOriginalReadOnly
	stateModified
	stateModifiedReadOnly
	stateOriginalReadWrite
	stateModifiedReadWrite
)

func (s state) readWrite() bool {
	return s == stateOriginalReadWrite || s == stateModifiedReadWrite
}

type slot struct {
	key   Key
	state state
	// buffer is the current value, or the previous one while the slot is used read-write.
	buffer alignedbuf.Shared
	owned  *alignedbuf.Owned
}

type access struct {
	index     Index
	readWrite bool
}

// undo records the value a committed nested scope replaced, so an enclosing scope can revert it.
// It holds the reference the slot used to hold.
type undo struct {
	index  Index
	state  state
	buffer alignedbuf.Shared
}

type inner struct {
	slots        []slot
	index        map[Key]Index
	access       []access
	journal      []undo
	newContracts []core.Address
}

func (in *inner) find(key Key) (Index, bool) {
	i, ok := in.index[key]
	return i, ok
}

func (in *inner) push(key Key, s slot) Index {
	i := Index(len(in.slots))
	s.key = key
	in.slots = append(in.slots, s)
	in.index[key] = i
	return i
}

func (in *inner) accessOf(i Index) (access, bool) {
	for _, a := range in.access {
		if a.index == i {
			return a, true
		}
	}
	return access{}, false
}

func (in *inner) isNewContract(key Key) bool {
	return slices.Contains(in.newContracts, key.Owner) || slices.Contains(in.newContracts, key.Contract)
}

// canCreate reports whether a missing slot may be created: tmp slots and slots whose owner or
// contract was added with addNewContract.
func (in *inner) canCreate(key Key) bool {
	return key.Contract.IsNull() || in.isNewContract(key)
}

func (in *inner) addNewContract(owner core.Address) bool {
	if slices.Contains(in.newContracts, owner) {
		slog.Debug("not adding new contract duplicate", "owner", owner)
		return false
	}
	if i, ok := in.find(Key{Owner: owner, Contract: core.SystemCode}); ok {
		s := &in.slots[i]
		if !s.buffer.IsEmpty() || (s.owned != nil && !s.owned.IsEmpty()) {
			slog.Debug("not adding new contract with existing code", "owner", owner)
			return false
		}
	}
	in.newContracts = append(in.newContracts, owner)
	return true
}

// truncate removes the slots pushed after the first n.
func (in *inner) truncate(n int) {
	for _, s := range in.slots[n:] {
		delete(in.index, s.key)
		s.buffer.Release()
	}
	clear(in.slots[n:])
	in.slots = in.slots[:n]
}

// dropTmp removes tmp slots once a transaction is over.
func (in *inner) dropTmp() {
	in.slots = slices.DeleteFunc(in.slots, func(s slot) bool {
		if s.key.Contract.IsNull() {
			s.buffer.Release()
			return true
		}
		return false
	})
	clear(in.index)
	for i, s := range in.slots {
		in.index[s.key] = Index(i)
	}
}

// Slots is the root table.
type Slots struct {
	in *inner
}

// New creates the root table and takes over the references of the entry buffers. Entries of
// the null contract are tmp data and are dropped.
func New(entries []Entry) *Slots {
	in := &inner{index: make(map[Key]Index, len(entries))}
	for _, e := range entries {
		if e.Key.Contract.IsNull() {
			continue
		}
		if i, ok := in.find(e.Key); ok {
			in.slots[i].buffer.Release()
			in.slots[i].buffer = e.Buffer
			continue
		}
		in.push(e.Key, slot{state: stateOriginal, buffer: e.Buffer})
	}
	return &Slots{in: in}
}

// NewNested opens a scope directly on the root. Committing it ends the transaction.
func (s *Slots) NewNested(readOnly bool) *Nested {
	return &Nested{
		in:              s.in,
		readOnly:        readOnly,
		root:            true,
		slotsLen:        len(s.in.slots),
		accessLen:       len(s.in.access),
		newContractsLen: len(s.in.newContracts),
	}
}

// AddNewContract allows slots of owner to be created. It returns false if owner was already
// added or already has code.
func (s *Slots) AddNewContract(owner core.Address) bool {
	return s.in.addNewContract(owner)
}

// Get returns the committed value of a slot. The buffer is a new reference the caller should
// release.
func (s *Slots) Get(key Key) (alignedbuf.Shared, bool) {
	i, ok := s.in.find(key)
	if !ok {
		return alignedbuf.Empty(), false
	}
	return s.in.slots[i].buffer.Clone(), true
}

// UseSlot returns the value of a slot, or an empty buffer if it does not exist yet.
func (s *Slots) UseSlot(key Key) alignedbuf.Shared {
	buf, _ := s.Get(key)
	return buf
}

// Len returns the number of slots.
func (s *Slots) Len() int { return len(s.in.slots) }

// Iter returns every slot in key order. Every buffer is a new reference, see ReleaseEntries.
func (s *Slots) Iter() []Entry {
	return s.collect(func(slot) bool { return true })
}

// IterModified returns the slots written since the table was created, in key order.
func (s *Slots) IterModified() []Entry {
	return s.collect(func(sl slot) bool { return sl.state == stateModified })
}

func (s *Slots) collect(keep func(slot) bool) []Entry {
	out := make([]Entry, 0, len(s.in.slots))
	for _, sl := range s.in.slots {
		if keep(sl) {
			out = append(out, Entry{Key: sl.key, Buffer: sl.buffer.Clone()})
		}
	}
	slices.SortFunc(out, func(a, b Entry) int { return a.Key.Compare(b.Key) })
	return out
}

// Snapshot copies every slot into plain byte slices, in key order.
func (s *Slots) Snapshot() map[Key][]byte {
	out := make(map[Key][]byte, len(s.in.slots))
	entries := s.Iter()
	for _, e := range entries {
		out[e.Key] = slices.Clone(e.Buffer.Bytes())
	}
	ReleaseEntries(entries)
	return out
}

// ReleaseEntries drops the references returned by Iter or IterModified.
func ReleaseEntries(entries []Entry) {
	for _, e := range entries {
		e.Buffer.Release()
	}
}

// Nested is one call's view of the slots. It must be finished with Commit or Discard.
type Nested struct {
	in              *inner
	readOnly        bool
	root            bool
	done            bool
	slotsLen        int
	accessLen       int
	journalLen      int
	newContractsLen int
}

// ReadOnly reports whether the scope rejects writes.
func (n *Nested) ReadOnly() bool { return n.readOnly }

// NewNested opens a child scope. A read-write child of a read-only scope is refused.
func (n *Nested) NewNested(readOnly bool) (*Nested, bool) {
	if n.readOnly && !readOnly {
		return nil, false
	}
	if readOnly {
		return &Nested{in: n.in, readOnly: true}, true
	}
	return &Nested{
		in:              n.in,
		slotsLen:        len(n.in.slots),
		accessLen:       len(n.in.access),
		journalLen:      len(n.in.journal),
		newContractsLen: len(n.in.newContracts),
	}, true
}

// AddNewContract allows slots of owner to be created in this scope and its children.
func (n *Nested) AddNewContract(owner core.Address) bool {
	if n.readOnly {
		slog.Debug("add_new_contract access violation", "owner", owner)
		return false
	}
	return n.in.addNewContract(owner)
}

// GetCode returns the code of owner without marking the slot used. The buffer is a new
// reference the caller should release.
func (n *Nested) GetCode(owner core.Address) (alignedbuf.Shared, bool) {
	i, ok := n.in.find(Key{Owner: owner, Contract: core.SystemCode})
	if !ok {
		slog.Debug("get_code access violation", "owner", owner)
		return alignedbuf.Empty(), false
	}
	s := &n.in.slots[i]
	if s.state.readWrite() {
		slog.Debug("get_code access violation", "owner", owner)
		return alignedbuf.Empty(), false
	}
	return s.buffer.Clone(), true
}

// UseRo returns the value of a slot for reading. It fails if the slot is used read-write
// anywhere in the current call tree, or if a missing slot cannot be created. The buffer is a
// new reference the caller should release.
func (n *Nested) UseRo(key Key) (alignedbuf.Shared, bool) {
	buf, ok := n.useRo(key)
	if !ok {
		slog.Debug("use_ro access violation", key.logAttrs()...)
	}
	return buf, ok
}

func (n *Nested) useRo(key Key) (alignedbuf.Shared, bool) {
	in := n.in
	i, found := in.find(key)
	if !found {
		if !in.canCreate(key) {
			return alignedbuf.Empty(), false
		}
		if n.readOnly {
			return alignedbuf.Empty(), true
		}
		i = in.push(key, slot{state: stateOriginalReadOnly, buffer: alignedbuf.Empty()})
		in.access = append(in.access, access{index: i})
		return alignedbuf.Empty(), true
	}

	s := &in.slots[i]
	if s.state.readWrite() {
		return alignedbuf.Empty(), false
	}
	if n.readOnly {
		return s.buffer.Clone(), true
	}
	if _, accessed := in.accessOf(i); !accessed {
		in.access = append(in.access, access{index: i})
	}
	switch s.state {
	case stateOriginal:
		s.state = stateOriginalReadOnly
	case stateModified:
		s.state = stateModifiedReadOnly
	}
	return s.buffer.Clone(), true
}

// UseRw returns a writable copy of a slot with at least capacity bytes. The copy replaces the
// slot value when the scope commits. A slot can be used read-write once per call tree and
// not at all after being read.
func (n *Nested) UseRw(key Key, capacity uint32) (Index, *alignedbuf.Owned, bool) {
	idx, buf, ok := n.useRw(key, capacity)
	if !ok {
		slog.Debug("use_rw access violation", key.logAttrs()...)
	}
	return idx, buf, ok
}

func (n *Nested) useRw(key Key, capacity uint32) (Index, *alignedbuf.Owned, bool) {
	if n.readOnly {
		return 0, nil, false
	}
	in := n.in
	i, found := in.find(key)
	if !found {
		if !in.canCreate(key) {
			return 0, nil, false
		}
		owned := alignedbuf.WithCapacity(capacity)
		i = in.push(key, slot{state: stateOriginalReadWrite, buffer: alignedbuf.Empty(), owned: owned})
		in.access = append(in.access, access{index: i, readWrite: true})
		return i, owned, true
	}
	if _, accessed := in.accessOf(i); accessed {
		return 0, nil, false
	}

	s := &in.slots[i]
	switch s.state {
	case stateOriginal:
		s.state = stateOriginalReadWrite
	case stateModified:
		s.state = stateModifiedReadWrite
	default:
		return 0, nil, false
	}
	s.owned = alignedbuf.WithCapacity(max(capacity, s.buffer.Len()))
	s.owned.CopyFromSlice(s.buffer.Bytes())
	in.access = append(in.access, access{index: i, readWrite: true})
	return i, s.owned, true
}

// AccessUsedRw returns the writable buffer of a slot previously returned by UseRw.
func (n *Nested) AccessUsedRw(i Index) (*alignedbuf.Owned, bool) {
	if n.readOnly {
		return nil, false
	}
	if int(i) < 0 || int(i) >= len(n.in.slots) {
		slog.Debug("access_used_rw access violation (not found)", "index", i)
		return nil, false
	}
	s := &n.in.slots[i]
	if !s.state.readWrite() {
		slog.Debug("access_used_rw access violation (read only)", "index", i)
		return nil, false
	}
	return s.owned, true
}

// Commit makes the scope's writes visible to its parent. Committing a scope opened on the root
// ends the transaction and drops tmp slots.
func (n *Nested) Commit() {
	if n.done || n.readOnly {
		n.done = true
		return
	}
	n.done = true
	in := n.in
	for _, a := range in.access[n.accessLen:] {
		s := &in.slots[a.index]
		switch s.state {
		case stateOriginalReadOnly:
			s.state = stateOriginal
		case stateModifiedReadOnly:
			s.state = stateModified
		case stateOriginalReadWrite, stateModifiedReadWrite:
			if !n.root {
				prev := stateOriginal
				if s.state == stateModifiedReadWrite {
					prev = stateModified
				}
				in.journal = append(in.journal, undo{index: a.index, state: prev, buffer: s.buffer})
			} else {
				s.buffer.Release()
			}
			s.buffer = s.owned.IntoShared()
			s.owned = nil
			s.state = stateModified
		}
	}
	in.access = in.access[:n.accessLen]
	if n.root {
		for _, u := range in.journal {
			u.buffer.Release()
		}
		clear(in.journal)
		in.journal = in.journal[:0]
		in.dropTmp()
	}
}

// Reset reverts everything written through the scope, including committed children, and
// removes the slots created since the scope was opened. The scope stays open.
func (n *Nested) Reset() {
	if n.done || n.readOnly {
		return
	}
	in := n.in
	for _, a := range in.access[n.accessLen:] {
		s := &in.slots[a.index]
		switch s.state {
		case stateOriginalReadOnly, stateOriginalReadWrite:
			s.state = stateOriginal
		case stateModifiedReadOnly, stateModifiedReadWrite:
			s.state = stateModified
		}
		s.owned = nil
	}
	in.access = in.access[:n.accessLen]

	for j := len(in.journal) - 1; j >= n.journalLen; j-- {
		u := in.journal[j]
		s := &in.slots[u.index]
		s.buffer.Release()
		s.state, s.buffer = u.state, u.buffer
	}
	clear(in.journal[n.journalLen:])
	in.journal = in.journal[:n.journalLen]
	in.truncate(n.slotsLen)
	in.newContracts = in.newContracts[:n.newContractsLen]
}

// Discard reverts the scope and closes it.
func (n *Nested) Discard() {
	n.Reset()
	n.Commit()
}
