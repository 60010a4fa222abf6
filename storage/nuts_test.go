package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xujiajun/nutsdb"

	"github.com/fenrirdb/syncstore/log"
)

func tempNuts(t *testing.T) *nutsdb.DB {
	t.Helper()
	db, err := OpenNuts(t.TempDir())
	assert.Nil(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNutsValuePushPullDelete(t *testing.T) {
	db := tempNuts(t)
	value := NewNutsValue(log.Nop(), db, "bucket", "key")

	var received []byte
	var found bool
	value.OnReceive(func(v []byte, ok bool) { received, found = v, ok })

	value.Pull()
	assert.False(t, found)

	assert.True(t, value.Push([]byte("payload")))
	value.Pull()
	assert.True(t, found)
	assert.Equal(t, []byte("payload"), received)

	assert.True(t, value.Delete())
	value.Pull()
	assert.False(t, found)
}

func TestNutsValueLockAndUpdate(t *testing.T) {
	db := tempNuts(t)
	value := NewNutsValue(log.Nop(), db, "bucket", "counter")

	assert.True(t, value.LockAndUpdate(func(current []byte, exists bool) []byte {
		assert.False(t, exists)
		return []byte("1")
	}))
	assert.True(t, value.LockAndUpdate(func(current []byte, exists bool) []byte {
		assert.True(t, exists)
		assert.Equal(t, []byte("1"), current)
		return []byte("2")
	}))

	var received []byte
	value.OnReceive(func(v []byte, ok bool) { received = v })
	value.Pull()
	assert.Equal(t, []byte("2"), received)
}

func TestNutsDirEntries(t *testing.T) {
	db := tempNuts(t)
	dir, err := NewNutsDir(log.Nop(), db, "entries")
	assert.Nil(t, err)

	latest := map[string][]byte{}
	present := map[string]bool{}
	dir.OnReceiveEntry(func(key string, value []byte, ok bool) {
		latest[key] = value
		present[key] = ok
	})

	dir.PullEntry("missing")
	assert.False(t, present["missing"])

	assert.True(t, dir.PushEntry("a", []byte("1")))
	assert.True(t, dir.PushEntry("b", []byte("2")))
	dir.PullAll()
	assert.Equal(t, []byte("1"), latest["a"])
	assert.Equal(t, []byte("2"), latest["b"])
	assert.ElementsMatch(t, []string{"a", "b"}, dir.Keys())

	key, ok := dir.CreateEntry([]byte("fresh"))
	assert.True(t, ok)
	assert.NotEmpty(t, key)
	dir.PullEntry(key)
	assert.Equal(t, []byte("fresh"), latest[key])

	assert.True(t, dir.DeleteEntry("a"))
	dir.PullEntry("a")
	assert.False(t, present["a"])
}

func TestNutsDirLockAndUpdateEntry(t *testing.T) {
	db := tempNuts(t)
	dir, err := NewNutsDir(log.Nop(), db, "counters")
	assert.Nil(t, err)

	assert.True(t, dir.LockAndUpdateEntry("k", func(current []byte, exists bool) []byte {
		assert.False(t, exists)
		return []byte("1")
	}))
	assert.True(t, dir.LockAndUpdateEntry("k", func(current []byte, exists bool) []byte {
		assert.True(t, exists)
		return append(current, '1')
	}))

	var received []byte
	dir.OnReceiveEntry(func(key string, value []byte, ok bool) { received = value })
	dir.PullEntry("k")
	assert.Equal(t, []byte("11"), received)
}
