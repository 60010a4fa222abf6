package bind

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fenrirdb/syncstore/translate"
)

// readable keys are the backend's string keys, readable values are ints
// stored as decimal strings.
func newTestEntryMap(stub *stubEntryStorage[string], options *Options) *EntryMap[string, string, int] {
	if options == nil {
		options = testOptions()
	}
	return NewEntryMap[string, string, int](translate.Identity[string](), translate.Itoa(), stub, options)
}

func TestEntryMapWritesOnlyTouchedEntry(t *testing.T) {
	stub := newStubEntryStorage[string]()
	m := newTestEntryMap(stub, nil)

	assert.True(t, m.Put("a", 1))
	assert.True(t, m.Put("b", 2))
	assert.Equal(t, []string{"a", "b"}, stub.entryPushes)
	assert.Equal(t, "1", stub.entries["a"])
	assert.Equal(t, "2", stub.entries["b"])
}

func TestEntryMapSaveSuppression(t *testing.T) {
	stub := newStubEntryStorage[string]()
	m := newTestEntryMap(stub, nil)

	assert.True(t, m.Put("a", 1, WithSave(false)))
	assert.Equal(t, 0, len(stub.entryPushes))
	value, ok := m.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, value)

	//Save pushes each cached entry individually
	assert.True(t, m.Save())
	assert.Equal(t, 1, len(stub.entryPushes))
}

func TestEntryMapIdempotentRemoval(t *testing.T) {
	stub := newStubEntryStorage[string]()
	m := newTestEntryMap(stub, nil)
	m.Put("a", 1)

	notified := 0
	m.OnChange(func() { notified++ })

	assert.False(t, m.Remove("missing"))
	assert.Equal(t, 0, len(stub.entryDeletes))
	assert.Equal(t, 0, notified)

	assert.True(t, m.Remove("a"))
	assert.Equal(t, []string{"a"}, stub.entryDeletes)
	assert.Equal(t, 1, notified)
}

func TestEntryMapLockCreateOrUpdate(t *testing.T) {
	stub := newStubEntryStorage[string]()
	m := newTestEntryMap(stub, nil)

	increment := func(current int, exists bool) int {
		if !exists {
			return 1
		}
		return current + 1
	}

	//an absent entry is created with one lock/unlock cycle
	result, persisted := m.Update("k", increment, WithLock())
	assert.True(t, persisted)
	assert.Equal(t, 1, result)
	assert.Equal(t, 1, stub.locks)
	assert.Equal(t, 1, stub.unlocks)
	assert.Equal(t, "1", stub.entries["k"])

	result, persisted = m.Update("k", increment, WithLock())
	assert.True(t, persisted)
	assert.Equal(t, 2, result)
	assert.Equal(t, 2, stub.locks)
	assert.Equal(t, 2, stub.unlocks)
	assert.Equal(t, "2", stub.entries["k"])
}

func TestEntryMapLockNoChangeStillCycles(t *testing.T) {
	stub := newStubEntryStorage[string]()
	stub.entries["k"] = "5"
	m := newTestEntryMap(stub, nil)

	_, persisted := m.Update("k", func(current int, exists bool) int { return current }, WithLock())
	assert.True(t, persisted)
	assert.Equal(t, 1, stub.locks)
	assert.Equal(t, 1, stub.unlocks)
	assert.Equal(t, "5", stub.entries["k"])
}

func TestEntryMapUpdateAllLocksPerEntry(t *testing.T) {
	stub := newStubEntryStorage[string]()
	m := newTestEntryMap(stub, nil)
	m.Put("a", 1)
	m.Put("b", 2)

	assert.True(t, m.UpdateAll(func(key string, value int) int { return value * 10 }, WithLock()))
	//one independent cycle per entry, never one lock over the iteration
	assert.Equal(t, 2, stub.locks)
	assert.Equal(t, 2, stub.unlocks)
	assert.Equal(t, "10", stub.entries["a"])
	assert.Equal(t, "20", stub.entries["b"])
}

func TestEntryMapRemoveWhere(t *testing.T) {
	stub := newStubEntryStorage[string]()
	m := newTestEntryMap(stub, nil)
	m.Put("keep", 1)
	m.Put("drop_a", 2)
	m.Put("drop_b", 3)

	removed := m.RemoveWhere(func(key string, value int) bool {
		return strings.HasPrefix(key, "drop")
	})
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, 2, len(stub.entryDeletes))
	_, ok := stub.entries["keep"]
	assert.True(t, ok)
}

func TestEntryMapIncrementalLoad(t *testing.T) {
	stub := newStubEntryStorage[string]()
	stub.entries["a"] = "1"
	stub.entries["b"] = "2"
	m := newTestEntryMap(stub, nil)

	m.LoadEntry("a")
	assert.Equal(t, 1, m.Len())
	value, ok := m.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, value)

	m.LoadEntries("b")
	assert.Equal(t, 2, m.Len())

	//loading an absent entry delivers the sentinel and drops nothing else
	m.LoadEntry("missing")
	assert.Equal(t, 2, m.Len())
}

func TestEntryMapBulkLoad(t *testing.T) {
	stub := newStubEntryStorage[string]()
	stub.entries["a"] = "1"
	stub.entries["b"] = "2"
	m := newTestEntryMap(stub, nil)

	m.Load()
	assert.Equal(t, 1, stub.pullAlls)
	assert.Equal(t, 2, m.Len())
}

func TestEntryMapCreate(t *testing.T) {
	stub := newStubEntryStorage[string]()
	m := newTestEntryMap(stub, nil)

	key, ok := m.Create(42)
	assert.True(t, ok)
	assert.Equal(t, "generated", key)
	assert.Equal(t, "42", stub.entries["generated"])
	value, ok := m.Get("generated")
	assert.True(t, ok)
	assert.Equal(t, 42, value)
}

func TestEntryMapPutIfAbsent(t *testing.T) {
	stub := newStubEntryStorage[string]()
	m := newTestEntryMap(stub, nil)

	resident, inserted := m.PutIfAbsent("a", 1)
	assert.True(t, inserted)
	assert.Equal(t, 1, resident)
	assert.Equal(t, 1, len(stub.entryPushes))

	resident, inserted = m.PutIfAbsent("a", 99)
	assert.False(t, inserted)
	assert.Equal(t, 1, resident)
	assert.Equal(t, 1, len(stub.entryPushes))
}

func TestEntryMapOwnership(t *testing.T) {
	registry := NewRegistry()
	m := newTestEntryMap(newStubEntryStorage[string](), testOptions().WithRegistry(registry))

	m.Put("a", 7)
	owner, ok := registry.OwnerOf(7)
	assert.True(t, ok)
	assert.Equal(t, Owner(m), owner)

	m.Remove("a")
	_, ok = registry.OwnerOf(7)
	assert.False(t, ok)
}
