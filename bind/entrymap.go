package bind

import (
	"github.com/fenrirdb/syncstore/log"
	"github.com/fenrirdb/syncstore/storage"
	"github.com/fenrirdb/syncstore/translate"
)

// EntryMap is the entry-optimized keyed collection: where Map round-trips the
// whole collection on every write, EntryMap touches only the affected entry,
// can populate itself one entry at a time, and can run the per-entry lock
// cycle against backends shared with other writers. Keys are translated
// between the backend's string form and the readable key type, values between
// the backend's writable form and the readable value type.
type EntryMap[KR comparable, VW, VR any] struct {
	logger    log.Logger
	keys      translate.Translator[string, KR]
	values    translate.Translator[VW, VR]
	store     storage.EntryStorage[VW]
	lockable  storage.LockableEntryStorage[VW]
	options   *Options
	registry  *Registry
	entries   map[KR]VR
	observers []func()
}

func NewEntryMap[KR comparable, VW, VR any](
	keys translate.Translator[string, KR],
	values translate.Translator[VW, VR],
	store storage.EntryStorage[VW],
	options *Options) *EntryMap[KR, VW, VR] {
	if options == nil {
		options = DefaultOptions()
	}
	m := &EntryMap[KR, VW, VR]{
		logger:   options.loggerOr("entrymap"),
		keys:     keys,
		values:   values,
		store:    store,
		options:  options,
		registry: options.registry,
		entries:  map[KR]VR{},
	}
	if lockable, ok := store.(storage.LockableEntryStorage[VW]); ok {
		m.lockable = lockable
	}
	store.OnReceiveEntry(m.receive)
	return m
}

// receive is the inbound callback: a loaded entry is translated and cached,
// the absent sentinel drops the entry from the cache.
func (m *EntryMap[KR, VW, VR]) receive(key string, value VW, ok bool) {
	readableKey, err := m.keys.TranslateWritable(key)
	if err != nil {
		m.logger.Errorf("failed to translate received key %q: %v", key, err)
		return
	}
	if !ok {
		if old, present := m.entries[readableKey]; present {
			m.registry.release(old, m)
			delete(m.entries, readableKey)
			m.notify()
		}
		return
	}
	readable, err := m.values.TranslateWritable(value)
	if err != nil {
		m.logger.Errorf("failed to translate received entry %q: %v", key, err)
		return
	}
	if old, present := m.entries[readableKey]; present {
		m.registry.release(old, m)
	}
	m.entries[readableKey] = readable
	m.registry.claim(readable, m)
	m.notify()
}

func (m *EntryMap[KR, VW, VR]) notify() {
	for _, observer := range m.observers {
		observer()
	}
}

// OnChange registers an observer invoked after every effective mutation and
// after every inbound entry.
func (m *EntryMap[KR, VW, VR]) OnChange(observer func()) {
	m.observers = append(m.observers, observer)
}

func (m *EntryMap[KR, VW, VR]) writableKey(key KR) (string, bool) {
	if writable, err := m.keys.TranslateReadable(key); err != nil {
		m.logger.Errorf("failed to translate key %v: %v", key, err)
		return "", false
	} else {
		return writable, true
	}
}

// pushEntry persists one entry, through the lock cycle when requested.
func (m *EntryMap[KR, VW, VR]) pushEntry(key KR, value VR, resolved callOptions) bool {
	writableKey, ok := m.writableKey(key)
	if !ok {
		return false
	}
	writable, err := m.values.TranslateReadable(value)
	if err != nil {
		m.logger.Errorf("failed to translate entry %v: %v", key, err)
		return false
	}
	if resolved.lock && m.lockable != nil {
		return m.lockable.LockAndUpdateEntry(writableKey, func(VW, bool) VW { return writable })
	}
	return m.store.PushEntry(writableKey, writable)
}

// Put stores the value under the key, writing only the touched entry.
func (m *EntryMap[KR, VW, VR]) Put(key KR, value VR, opts ...Option) bool {
	resolved := m.options.resolve(opts)
	if old, ok := m.entries[key]; ok {
		m.registry.release(old, m)
	}
	m.entries[key] = value
	m.registry.claim(value, m)
	persisted := true
	if resolved.save {
		persisted = m.pushEntry(key, value, resolved)
	}
	if resolved.notify {
		m.notify()
	}
	return persisted
}

// PutIfAbsent stores the value only when the key is absent and returns the
// resident value. A cache hit writes and notifies nothing.
func (m *EntryMap[KR, VW, VR]) PutIfAbsent(key KR, value VR, opts ...Option) (VR, bool) {
	if existing, ok := m.entries[key]; ok {
		return existing, false
	}
	m.Put(key, value, opts...)
	return value, true
}

// Remove deletes the key's entry. Removing an absent key is a no-op: false,
// no write, no notification.
func (m *EntryMap[KR, VW, VR]) Remove(key KR, opts ...Option) bool {
	resolved := m.options.resolve(opts)
	old, ok := m.entries[key]
	if !ok {
		return false
	}
	m.registry.release(old, m)
	delete(m.entries, key)
	if resolved.save {
		if writableKey, ok := m.writableKey(key); ok {
			m.store.DeleteEntry(writableKey)
		}
	}
	if resolved.notify {
		m.notify()
	}
	return true
}

// RemoveWhere deletes every entry the predicate selects, one backend delete
// per entry, and returns how many were removed. Membership in the computed
// removal set is the removal criterion.
func (m *EntryMap[KR, VW, VR]) RemoveWhere(predicate func(key KR, value VR) bool, opts ...Option) int {
	resolved := m.options.resolve(opts)
	toRemove := map[KR]bool{}
	for key, value := range m.entries {
		if predicate(key, value) {
			toRemove[key] = true
		}
	}
	removed := 0
	for key := range toRemove {
		m.registry.release(m.entries[key], m)
		delete(m.entries, key)
		if resolved.save {
			if writableKey, ok := m.writableKey(key); ok {
				m.store.DeleteEntry(writableKey)
			}
		}
		removed++
	}
	if removed > 0 && resolved.notify {
		m.notify()
	}
	return removed
}

// Update applies the update function to the key's current value. Under lock
// the function runs against the backend's state inside one lock cycle, with
// exists=false for an absent entry so callers can create-or-update; the entry
// is written and the lock released even when the function changes nothing.
func (m *EntryMap[KR, VW, VR]) Update(key KR, update func(current VR, exists bool) VR, opts ...Option) (VR, bool) {
	resolved := m.options.resolve(opts)
	var ni VR
	if resolved.save && resolved.lock && m.lockable != nil {
		writableKey, ok := m.writableKey(key)
		if !ok {
			return ni, false
		}
		var translateErr error
		var result VR
		persisted := m.lockable.LockAndUpdateEntry(writableKey, func(current VW, exists bool) VW {
			var readable VR
			if exists {
				if translated, err := m.values.TranslateWritable(current); err != nil {
					translateErr = err
					return current
				} else {
					readable = translated
				}
			}
			result = update(readable, exists)
			if writable, err := m.values.TranslateReadable(result); err != nil {
				translateErr = err
				return current
			} else {
				return writable
			}
		})
		if translateErr != nil {
			m.logger.Errorf("failed to translate entry %v under lock: %v", key, translateErr)
			return ni, false
		}
		if !persisted {
			return ni, false
		}
		if old, present := m.entries[key]; present {
			m.registry.release(old, m)
		}
		m.entries[key] = result
		m.registry.claim(result, m)
		if resolved.notify {
			m.notify()
		}
		return result, true
	}
	current, exists := m.entries[key]
	result := update(current, exists)
	if exists {
		m.registry.release(current, m)
	}
	m.entries[key] = result
	m.registry.claim(result, m)
	persisted := true
	if resolved.save {
		persisted = m.pushEntry(key, result, resolved)
	}
	if resolved.notify {
		m.notify()
	}
	return result, persisted
}

// UpdateAll applies the updater to every cached entry, one entry write per
// entry. Under lock each entry gets its own independent lock cycle; the
// iteration never holds one lock across entries.
func (m *EntryMap[KR, VW, VR]) UpdateAll(update func(key KR, value VR) VR, opts ...Option) bool {
	resolved := m.options.resolve(opts)
	keys := make([]KR, 0, len(m.entries))
	for key := range m.entries {
		keys = append(keys, key)
	}
	persisted := true
	for _, key := range keys {
		value := m.entries[key]
		if _, ok := m.Update(key, func(VR, bool) VR { return update(key, value) },
			WithSave(resolved.save), WithNotify(false), withLock(resolved.lock)); !ok {
			persisted = false
		}
	}
	if len(keys) > 0 && resolved.notify {
		m.notify()
	}
	return persisted
}

// Create persists the value under a backend-generated key and returns the
// readable form of that key.
func (m *EntryMap[KR, VW, VR]) Create(value VR, opts ...Option) (KR, bool) {
	resolved := m.options.resolve(opts)
	var ni KR
	writable, err := m.values.TranslateReadable(value)
	if err != nil {
		m.logger.Errorf("failed to translate entry for create: %v", err)
		return ni, false
	}
	writableKey, ok := m.store.CreateEntry(writable)
	if !ok {
		return ni, false
	}
	key, err := m.keys.TranslateWritable(writableKey)
	if err != nil {
		m.logger.Errorf("failed to translate created key %q: %v", writableKey, err)
		return ni, false
	}
	m.entries[key] = value
	m.registry.claim(value, m)
	if resolved.notify {
		m.notify()
	}
	return key, true
}

// Clear deletes every entry; clearing an empty collection is a no-op.
func (m *EntryMap[KR, VW, VR]) Clear(opts ...Option) bool {
	if len(m.entries) == 0 {
		return false
	}
	resolved := m.options.resolve(opts)
	for key, value := range m.entries {
		m.registry.release(value, m)
		delete(m.entries, key)
		if resolved.save {
			if writableKey, ok := m.writableKey(key); ok {
				m.store.DeleteEntry(writableKey)
			}
		}
	}
	if resolved.notify {
		m.notify()
	}
	return true
}

func (m *EntryMap[KR, VW, VR]) Get(key KR) (VR, bool) {
	value, ok := m.entries[key]
	return value, ok
}

func (m *EntryMap[KR, VW, VR]) Len() int {
	return len(m.entries)
}

func (m *EntryMap[KR, VW, VR]) Keys() []KR {
	keys := make([]KR, 0, len(m.entries))
	for key := range m.entries {
		keys = append(keys, key)
	}
	return keys
}

func (m *EntryMap[KR, VW, VR]) Range(fn func(key KR, value VR) bool) {
	for key, value := range m.entries {
		if !fn(key, value) {
			return
		}
	}
}

// LoadEntry populates one entry from the backend, the incremental alternative
// to a whole-collection Load.
func (m *EntryMap[KR, VW, VR]) LoadEntry(key KR) {
	if writableKey, ok := m.writableKey(key); ok {
		m.store.PullEntry(writableKey)
	}
}

// LoadEntries batches several single-entry loads.
func (m *EntryMap[KR, VW, VR]) LoadEntries(keys ...KR) {
	for _, key := range keys {
		m.LoadEntry(key)
	}
}

// Load populates every entry from the backend.
func (m *EntryMap[KR, VW, VR]) Load() {
	m.store.PullAll()
}

// Save pushes every cached entry individually, implementing Owner.
func (m *EntryMap[KR, VW, VR]) Save(opts ...Option) bool {
	resolved := m.options.resolve(opts)
	persisted := true
	for key, value := range m.entries {
		if !m.pushEntry(key, value, resolved) {
			persisted = false
		}
	}
	return persisted
}

// Close releases the storage handle.
func (m *EntryMap[KR, VW, VR]) Close() error {
	return m.store.Close()
}
