package bind

import (
	"github.com/fenrirdb/syncstore/storage"
	"github.com/fenrirdb/syncstore/translate"
)

// Map is the keyed counterpart of List over whole-collection storage: every
// effective mutation updates the cache, adjusts member ownership, and pushes
// the whole translated map unless the call suppresses saving. For backends
// that can address single entries, see EntryMap.
type Map[W any, KR comparable, VR any] struct {
	value     *Value[W, map[KR]VR]
	options   *Options
	registry  *Registry
	observers []func()
}

func NewMap[W any, KR comparable, VR any](translator translate.Translator[W, map[KR]VR], store storage.Storage[W], options *Options) *Map[W, KR, VR] {
	if options == nil {
		options = DefaultOptions()
	}
	m := &Map[W, KR, VR]{
		value:    NewValue(translator, store, options),
		options:  options,
		registry: options.registry,
	}
	m.value.OnChange(func(entries map[KR]VR) {
		for _, entry := range entries {
			m.registry.claim(entry, m)
		}
		m.notify()
	})
	return m
}

func (m *Map[W, KR, VR]) notify() {
	for _, observer := range m.observers {
		observer()
	}
}

// OnChange registers an observer invoked after every effective mutation and
// after every inbound load.
func (m *Map[W, KR, VR]) OnChange(observer func()) {
	m.observers = append(m.observers, observer)
}

// mutate is the map counterpart of List.mutate; see there for the contract.
func (m *Map[W, KR, VR]) mutate(resolved callOptions, fn func(entries map[KR]VR) (map[KR]VR, bool)) (bool, bool) {
	if m.value.current == nil {
		m.value.current = map[KR]VR{}
	}
	if resolved.save && resolved.lock && m.value.lockable != nil {
		changed := false
		result, persisted := m.value.lockCycle(func(current map[KR]VR, exists bool) map[KR]VR {
			entries := current
			if !exists {
				entries = m.value.current
			}
			if entries == nil {
				entries = map[KR]VR{}
			}
			entries, changed = fn(entries)
			return entries
		})
		if persisted {
			m.value.current = result
			m.value.loaded = true
		}
		if changed && resolved.notify {
			m.notify()
		}
		return changed, persisted
	}
	entries, changed := fn(m.value.current)
	if !changed {
		return false, false
	}
	m.value.current = entries
	m.value.loaded = true
	persisted := true
	if resolved.save {
		persisted = m.value.Write(entries)
	}
	if resolved.notify {
		m.notify()
	}
	return true, persisted
}

// Put stores the value under the key and reports the persistence outcome.
func (m *Map[W, KR, VR]) Put(key KR, value VR, opts ...Option) bool {
	_, persisted := m.mutate(m.options.resolve(opts), func(entries map[KR]VR) (map[KR]VR, bool) {
		if old, ok := entries[key]; ok {
			m.registry.release(old, m)
		}
		m.registry.claim(value, m)
		entries[key] = value
		return entries, true
	})
	return persisted
}

// PutIfAbsent stores the value only when the key is absent and returns the
// resident value. A cache hit writes and notifies nothing.
func (m *Map[W, KR, VR]) PutIfAbsent(key KR, value VR, opts ...Option) (VR, bool) {
	resident := value
	inserted, _ := m.mutate(m.options.resolve(opts), func(entries map[KR]VR) (map[KR]VR, bool) {
		if existing, ok := entries[key]; ok {
			resident = existing
			return entries, false
		}
		m.registry.claim(value, m)
		entries[key] = value
		return entries, true
	})
	return resident, inserted
}

// PutAll stores every entry, issuing at most one write.
func (m *Map[W, KR, VR]) PutAll(updates map[KR]VR, opts ...Option) bool {
	_, persisted := m.mutate(m.options.resolve(opts), func(entries map[KR]VR) (map[KR]VR, bool) {
		if len(updates) == 0 {
			return entries, false
		}
		for key, value := range updates {
			if old, ok := entries[key]; ok {
				m.registry.release(old, m)
			}
			m.registry.claim(value, m)
			entries[key] = value
		}
		return entries, true
	})
	return persisted
}

// Remove drops the key. Removing an absent key is a no-op: false, no write,
// no notification.
func (m *Map[W, KR, VR]) Remove(key KR, opts ...Option) bool {
	changed, _ := m.mutate(m.options.resolve(opts), func(entries map[KR]VR) (map[KR]VR, bool) {
		old, ok := entries[key]
		if !ok {
			return entries, false
		}
		m.registry.release(old, m)
		delete(entries, key)
		return entries, true
	})
	return changed
}

// RemoveWhere drops every entry the predicate selects and returns how many
// were removed. Membership in the computed removal set is the removal
// criterion.
func (m *Map[W, KR, VR]) RemoveWhere(predicate func(key KR, value VR) bool, opts ...Option) int {
	removed := 0
	m.mutate(m.options.resolve(opts), func(entries map[KR]VR) (map[KR]VR, bool) {
		toRemove := map[KR]bool{}
		for key, value := range entries {
			if predicate(key, value) {
				toRemove[key] = true
			}
		}
		for key := range entries {
			if toRemove[key] {
				m.registry.release(entries[key], m)
				delete(entries, key)
				removed++
			}
		}
		return entries, removed > 0
	})
	return removed
}

// Update applies the update function to the key's current value, running it
// with exists=false when the key is absent so callers can create-or-update.
func (m *Map[W, KR, VR]) Update(key KR, update func(current VR, exists bool) VR, opts ...Option) (VR, bool) {
	var result VR
	_, persisted := m.mutate(m.options.resolve(opts), func(entries map[KR]VR) (map[KR]VR, bool) {
		current, exists := entries[key]
		result = update(current, exists)
		if exists {
			m.registry.release(current, m)
		}
		m.registry.claim(result, m)
		entries[key] = result
		return entries, true
	})
	return result, persisted
}

// UpdateAll applies the updater to every entry, issuing at most one write.
func (m *Map[W, KR, VR]) UpdateAll(update func(key KR, value VR) VR, opts ...Option) bool {
	_, persisted := m.mutate(m.options.resolve(opts), func(entries map[KR]VR) (map[KR]VR, bool) {
		if len(entries) == 0 {
			return entries, false
		}
		for key, value := range entries {
			updated := update(key, value)
			m.registry.release(value, m)
			m.registry.claim(updated, m)
			entries[key] = updated
		}
		return entries, true
	})
	return persisted
}

// Clear removes every entry; clearing an empty map is a no-op.
func (m *Map[W, KR, VR]) Clear(opts ...Option) bool {
	_, persisted := m.mutate(m.options.resolve(opts), func(entries map[KR]VR) (map[KR]VR, bool) {
		if len(entries) == 0 {
			return entries, false
		}
		for _, value := range entries {
			m.registry.release(value, m)
		}
		return map[KR]VR{}, true
	})
	return persisted
}

func (m *Map[W, KR, VR]) Get(key KR) (VR, bool) {
	value, ok := m.value.current[key]
	return value, ok
}

func (m *Map[W, KR, VR]) Len() int {
	return len(m.value.current)
}

func (m *Map[W, KR, VR]) Keys() []KR {
	keys := make([]KR, 0, len(m.value.current))
	for key := range m.value.current {
		keys = append(keys, key)
	}
	return keys
}

func (m *Map[W, KR, VR]) Range(fn func(key KR, value VR) bool) {
	for key, value := range m.value.current {
		if !fn(key, value) {
			return
		}
	}
}

// Save pushes the whole cached map, implementing Owner for nested storables.
func (m *Map[W, KR, VR]) Save(opts ...Option) bool {
	resolved := m.options.resolve(opts)
	if resolved.lock && m.value.lockable != nil {
		return m.value.overwriteLocked()
	}
	return m.value.Write(m.value.current)
}

// Load asks the backend for the whole collection.
func (m *Map[W, KR, VR]) Load() {
	m.value.Load()
}

// Close releases the storage handle.
func (m *Map[W, KR, VR]) Close() error {
	return m.value.Close()
}
