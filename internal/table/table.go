// Package table implements the open-addressed, linear-probing,
// tombstone-aware hash table used both for the VM's global-variable
// bindings and for the string-interning set.
package table

import "loxvm/internal/value"

const maxLoad = 0.75

// entry holds one (key, value) slot. The three states an entry can be in:
//
//	empty:    Key == nil, Value is the zero Value
//	live:     Key != nil
//	tombstone: Key == nil, Value == Bool(true)
type entry struct {
	Key   *value.ObjString
	Value value.Value
}

// Table is an open-addressed map keyed by string-object identity.
type Table struct {
	count    int // live entries + tombstones
	entries  []entry
}

func New() *Table {
	return &Table{}
}

func (t *Table) Count() int    { return t.count }
func (t *Table) Capacity() int { return len(t.entries) }

// Get looks up key, returning its value and whether it was present.
func (t *Table) Get(key *value.ObjString) (value.Value, bool) {
	if len(t.entries) == 0 || key == nil {
		return value.Value{}, false
	}
	e := findEntry(t.entries, key)
	if e.Key == nil {
		return value.Value{}, false
	}
	return e.Value, true
}

// Set inserts or overwrites key -> val, growing the backing array first
// if the load factor would exceed 0.75. Returns true if key was not
// already present.
func (t *Table) Set(key *value.ObjString, val value.Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*maxLoad {
		t.grow(growCapacity(len(t.entries)))
	}

	e := findEntry(t.entries, key)
	isNew := e.Key == nil
	if isNew && e.Value.IsNil() {
		// A genuinely empty slot (not a reused tombstone) grows the count.
		t.count++
	}

	e.Key = key
	e.Value = val
	return isNew
}

// Delete replaces key's entry with a tombstone. count is not decremented
// (tombstones still occupy a probe-chain slot).
func (t *Table) Delete(key *value.ObjString) bool {
	if len(t.entries) == 0 {
		return false
	}
	e := findEntry(t.entries, key)
	if e.Key == nil {
		return false
	}
	e.Key = nil
	e.Value = value.NewBool(true)
	return true
}

// AddAll copies every live entry of from into t.
func (t *Table) AddAll(from *Table) {
	for i := range from.entries {
		e := &from.entries[i]
		if e.Key != nil {
			t.Set(e.Key, e.Value)
		}
	}
}

// FindString looks up a candidate string by byte content and precomputed
// hash, comparing bytes (never reference identity) as required to
// support interning. Returns the canonical object if an equal string is
// already present.
func (t *Table) FindString(chars string, hash uint32) *value.ObjString {
	if len(t.entries) == 0 {
		return nil
	}
	capacity := uint32(len(t.entries))
	index := hash % capacity
	for {
		e := &t.entries[index]
		if e.Key == nil {
			if e.Value.IsNil() {
				return nil
			}
			// tombstone: keep probing
		} else if e.Key.Hash == hash && e.Key.Chars == chars {
			return e.Key
		}
		index = (index + 1) % capacity
	}
}

// findEntry implements the probe sequence shared by Get/Set/Delete: home
// slot = hash mod capacity, linear probing on collision, remembering the
// first tombstone seen so Set can reuse it.
func findEntry(entries []entry, key *value.ObjString) *entry {
	capacity := uint32(len(entries))
	index := key.Hash % capacity
	var tombstone *entry

	for {
		e := &entries[index]
		if e.Key == nil {
			if e.Value.IsNil() {
				// Truly empty: return the remembered tombstone if any,
				// else this empty slot.
				if tombstone != nil {
					return tombstone
				}
				return e
			}
			if tombstone == nil {
				tombstone = e
			}
		} else if e.Key == key {
			return e
		}
		index = (index + 1) % capacity
	}
}

func growCapacity(capacity int) int {
	if capacity < 8 {
		return 8
	}
	return capacity * 2
}

// grow reallocates the backing array at the given capacity and re-probes
// every live entry into it. Tombstones are dropped; count is recomputed
// from live entries only.
func (t *Table) grow(capacity int) {
	fresh := make([]entry, capacity)

	liveCount := 0
	for i := range t.entries {
		old := &t.entries[i]
		if old.Key == nil {
			continue
		}
		dst := findEntry(fresh, old.Key)
		dst.Key = old.Key
		dst.Value = old.Value
		liveCount++
	}

	t.entries = fresh
	t.count = liveCount
}
