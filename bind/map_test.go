package bind

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fenrirdb/syncstore/translate"
)

func newTestMap(stub *stubStorage[map[string]int], options *Options) *Map[map[string]int, string, int] {
	if options == nil {
		options = testOptions()
	}
	return NewMap[map[string]int, string, int](translate.Identity[map[string]int](), stub, options)
}

func TestMapWriteThrough(t *testing.T) {
	stub := newStubStorage[map[string]int]()
	m := newTestMap(stub, nil)

	assert.True(t, m.Put("a", 1))
	value, ok := m.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, value)
	assert.Equal(t, 1, len(stub.pushes))
	assert.Equal(t, map[string]int{"a": 1}, stub.pushes[0])
}

func TestMapPutIfAbsent(t *testing.T) {
	stub := newStubStorage[map[string]int]()
	m := newTestMap(stub, nil)
	notified := 0
	m.OnChange(func() { notified++ })

	resident, inserted := m.PutIfAbsent("a", 1)
	assert.True(t, inserted)
	assert.Equal(t, 1, resident)
	assert.Equal(t, 1, len(stub.pushes))
	assert.Equal(t, 1, notified)

	//a cache hit writes and notifies nothing
	resident, inserted = m.PutIfAbsent("a", 99)
	assert.False(t, inserted)
	assert.Equal(t, 1, resident)
	assert.Equal(t, 1, len(stub.pushes))
	assert.Equal(t, 1, notified)
}

func TestMapIdempotentRemoval(t *testing.T) {
	stub := newStubStorage[map[string]int]()
	m := newTestMap(stub, nil)
	m.Put("a", 1)

	notified := 0
	m.OnChange(func() { notified++ })

	assert.False(t, m.Remove("missing"))
	assert.Equal(t, 1, len(stub.pushes))
	assert.Equal(t, 0, notified)

	assert.True(t, m.Remove("a"))
	assert.Equal(t, 2, len(stub.pushes))
	assert.Equal(t, 1, notified)
}

func TestMapRemoveWhere(t *testing.T) {
	stub := newStubStorage[map[string]int]()
	m := newTestMap(stub, nil)
	m.PutAll(map[string]int{"keep": 1, "drop_a": 2, "drop_b": 3})

	removed := m.RemoveWhere(func(key string, value int) bool {
		return strings.HasPrefix(key, "drop")
	})
	assert.Equal(t, 2, removed)
	assert.Equal(t, []string{"keep"}, m.Keys())

	//nothing selected, nothing written
	pushes := len(stub.pushes)
	assert.Equal(t, 0, m.RemoveWhere(func(string, int) bool { return false }))
	assert.Equal(t, pushes, len(stub.pushes))
}

func TestMapUpdateCreateOrUpdate(t *testing.T) {
	stub := newStubStorage[map[string]int]()
	m := newTestMap(stub, nil)

	increment := func(current int, exists bool) int {
		if !exists {
			return 1
		}
		return current + 1
	}

	result, persisted := m.Update("k", increment)
	assert.True(t, persisted)
	assert.Equal(t, 1, result)

	result, persisted = m.Update("k", increment)
	assert.True(t, persisted)
	assert.Equal(t, 2, result)
}

func TestMapUpdateAllSingleWrite(t *testing.T) {
	stub := newStubStorage[map[string]int]()
	m := newTestMap(stub, nil)
	m.PutAll(map[string]int{"a": 1, "b": 2})

	pushes := len(stub.pushes)
	assert.True(t, m.UpdateAll(func(key string, value int) int { return value * 10 }))
	assert.Equal(t, pushes+1, len(stub.pushes))

	value, _ := m.Get("a")
	assert.Equal(t, 10, value)
	value, _ = m.Get("b")
	assert.Equal(t, 20, value)
}

func TestMapUpdateWithLock(t *testing.T) {
	stub := newStubStorage[map[string]int]()
	stub.value, stub.hasValue = map[string]int{"theirs": 7}, true
	m := newTestMap(stub, nil)

	_, persisted := m.Update("mine", func(int, bool) int { return 1 }, WithLock())
	assert.True(t, persisted)
	assert.Equal(t, 1, stub.locks)
	assert.Equal(t, 1, stub.unlocks)
	//the backend state is merged in, not overwritten
	assert.Equal(t, map[string]int{"theirs": 7, "mine": 1}, stub.value)
}

func TestMapLoad(t *testing.T) {
	stub := newStubStorage[map[string]int]()
	stub.value, stub.hasValue = map[string]int{"a": 1}, true
	m := newTestMap(stub, nil)

	m.Load()
	assert.Equal(t, 1, m.Len())
	value, ok := m.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, value)
}

func TestMapClear(t *testing.T) {
	stub := newStubStorage[map[string]int]()
	m := newTestMap(stub, nil)
	m.Put("a", 1)

	assert.True(t, m.Clear())
	assert.Equal(t, 0, m.Len())

	pushes := len(stub.pushes)
	m.Clear()
	assert.Equal(t, pushes, len(stub.pushes))
}
