package bind

import (
	"math/rand"
	"reflect"
	"time"

	"github.com/pkg/errors"

	"github.com/fenrirdb/syncstore/storage"
	"github.com/fenrirdb/syncstore/translate"
)

// List mirrors every mutation of an in-memory slice to backing storage.
// Mutators apply to the cache first, update member ownership, then push the
// whole translated list unless the call suppresses saving. Readers observe a
// mutation immediately, before the push outcome is known; a failed push is
// reported through the returned boolean and never rolls the cache back.
type List[W, R any] struct {
	value     *Value[W, []R]
	options   *Options
	registry  *Registry
	equals    func(a, b R) bool
	random    *rand.Rand
	observers []func()
}

func NewList[W, R any](translator translate.Translator[W, []R], store storage.Storage[W], options *Options) *List[W, R] {
	if options == nil {
		options = DefaultOptions()
	}
	l := &List[W, R]{
		value:    NewValue(translator, store, options),
		options:  options,
		registry: options.registry,
		equals:   func(a, b R) bool { return reflect.DeepEqual(a, b) },
		random:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	l.value.OnChange(func(items []R) {
		for _, item := range items {
			l.registry.claim(item, l)
		}
		l.notify()
	})
	return l
}

// WithEquals overrides the element equality used by Remove and Replace,
// reflect.DeepEqual by default.
func (l *List[W, R]) WithEquals(equals func(a, b R) bool) *List[W, R] {
	l.equals = equals
	return l
}

func (l *List[W, R]) notify() {
	for _, observer := range l.observers {
		observer()
	}
}

// OnChange registers an observer invoked after every effective mutation and
// after every inbound load.
func (l *List[W, R]) OnChange(observer func()) {
	l.observers = append(l.observers, observer)
}

// mutate applies fn to the cached items and commits the result per the
// resolved options. fn reports whether anything changed; an unchanged result
// neither writes nor notifies. Ownership updates belong inside fn, so they
// precede the push. Under lock, fn is applied to the backend's current state
// instead of the cache.
func (l *List[W, R]) mutate(resolved callOptions, fn func(items []R) ([]R, bool)) (bool, bool) {
	if resolved.save && resolved.lock && l.value.lockable != nil {
		changed := false
		result, persisted := l.value.lockCycle(func(current []R, exists bool) []R {
			items := current
			if !exists {
				items = l.value.current
			}
			items, changed = fn(items)
			return items
		})
		if persisted {
			l.value.current = result
			l.value.loaded = true
		}
		if changed && resolved.notify {
			l.notify()
		}
		return changed, persisted
	}
	items, changed := fn(l.value.current)
	if !changed {
		return false, false
	}
	l.value.current = items
	l.value.loaded = true
	persisted := true
	if resolved.save {
		persisted = l.value.Write(items)
	}
	if resolved.notify {
		l.notify()
	}
	return true, persisted
}

// Add appends the element and reports the persistence outcome.
func (l *List[W, R]) Add(element R, opts ...Option) bool {
	_, persisted := l.mutate(l.options.resolve(opts), func(items []R) ([]R, bool) {
		l.registry.claim(element, l)
		return append(items, element), true
	})
	return persisted
}

// AddAll appends every element, issuing at most one write.
func (l *List[W, R]) AddAll(elements []R, opts ...Option) bool {
	_, persisted := l.mutate(l.options.resolve(opts), func(items []R) ([]R, bool) {
		if len(elements) == 0 {
			return items, false
		}
		for _, element := range elements {
			l.registry.claim(element, l)
		}
		return append(items, elements...), true
	})
	return persisted
}

// Insert places the element at index, shifting later elements right. Bounds
// are checked against the slice being mutated, which under lock is the state
// fetched from the backend and may differ from the cache.
func (l *List[W, R]) Insert(index int, element R, opts ...Option) (bool, error) {
	var bounds error
	_, persisted := l.mutate(l.options.resolve(opts), func(items []R) ([]R, bool) {
		if index < 0 || index > len(items) {
			bounds = errors.WithMessagef(ErrIndexOutOfRange, "insert at %d of %d", index, len(items))
			return items, false
		}
		l.registry.claim(element, l)
		items = append(items, element)
		copy(items[index+1:], items[index:])
		items[index] = element
		return items, true
	})
	if bounds != nil {
		return false, bounds
	}
	return persisted, nil
}

// Set replaces the element at index, bounds-checked like Insert.
func (l *List[W, R]) Set(index int, element R, opts ...Option) (bool, error) {
	var bounds error
	_, persisted := l.mutate(l.options.resolve(opts), func(items []R) ([]R, bool) {
		if index < 0 || index >= len(items) {
			bounds = errors.WithMessagef(ErrIndexOutOfRange, "set at %d of %d", index, len(items))
			return items, false
		}
		l.registry.release(items[index], l)
		l.registry.claim(element, l)
		items[index] = element
		return items, true
	})
	if bounds != nil {
		return false, bounds
	}
	return persisted, nil
}

// RemoveAt removes and returns the element at index, bounds-checked like Insert.
func (l *List[W, R]) RemoveAt(index int, opts ...Option) (R, bool, error) {
	var removed R
	var bounds error
	_, persisted := l.mutate(l.options.resolve(opts), func(items []R) ([]R, bool) {
		if index < 0 || index >= len(items) {
			bounds = errors.WithMessagef(ErrIndexOutOfRange, "remove at %d of %d", index, len(items))
			return items, false
		}
		removed = items[index]
		l.registry.release(removed, l)
		return append(items[:index], items[index+1:]...), true
	})
	if bounds != nil {
		var ni R
		return ni, false, bounds
	}
	return removed, persisted, nil
}

// Remove drops the first element equal to the argument. Removing an absent
// element is a no-op: false, no write, no notification.
func (l *List[W, R]) Remove(element R, opts ...Option) bool {
	changed, _ := l.mutate(l.options.resolve(opts), func(items []R) ([]R, bool) {
		for i, item := range items {
			if l.equals(item, element) {
				l.registry.release(item, l)
				return append(items[:i], items[i+1:]...), true
			}
		}
		return items, false
	})
	return changed
}

// Replace swaps the first element equal to old for new, false when old is absent.
func (l *List[W, R]) Replace(old, new R, opts ...Option) bool {
	changed, _ := l.mutate(l.options.resolve(opts), func(items []R) ([]R, bool) {
		for i, item := range items {
			if l.equals(item, old) {
				l.registry.release(item, l)
				l.registry.claim(new, l)
				items[i] = new
				return items, true
			}
		}
		return items, false
	})
	return changed
}

// SetAll replaces the whole contents, issuing at most one write.
func (l *List[W, R]) SetAll(elements []R, opts ...Option) bool {
	_, persisted := l.mutate(l.options.resolve(opts), func(items []R) ([]R, bool) {
		for _, item := range items {
			l.registry.release(item, l)
		}
		for _, element := range elements {
			l.registry.claim(element, l)
		}
		return append([]R(nil), elements...), true
	})
	return persisted
}

// Shuffle randomizes the element order, issuing at most one write.
func (l *List[W, R]) Shuffle(opts ...Option) bool {
	_, persisted := l.mutate(l.options.resolve(opts), func(items []R) ([]R, bool) {
		if len(items) < 2 {
			return items, false
		}
		l.random.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
		return items, true
	})
	return persisted
}

// Clear removes every element; clearing an empty list is a no-op.
func (l *List[W, R]) Clear(opts ...Option) bool {
	_, persisted := l.mutate(l.options.resolve(opts), func(items []R) ([]R, bool) {
		if len(items) == 0 {
			return items, false
		}
		for _, item := range items {
			l.registry.release(item, l)
		}
		return nil, true
	})
	return persisted
}

func (l *List[W, R]) Get(index int) (R, error) {
	var ni R
	if index < 0 || index >= len(l.value.current) {
		return ni, errors.WithMessagef(ErrIndexOutOfRange, "get at %d of %d", index, len(l.value.current))
	}
	return l.value.current[index], nil
}

func (l *List[W, R]) Len() int {
	return len(l.value.current)
}

// Values returns a copy of the cached elements.
func (l *List[W, R]) Values() []R {
	return append([]R(nil), l.value.current...)
}

// Save pushes the whole cached list, implementing Owner for nested storables.
func (l *List[W, R]) Save(opts ...Option) bool {
	resolved := l.options.resolve(opts)
	if resolved.lock && l.value.lockable != nil {
		return l.value.overwriteLocked()
	}
	return l.value.Write(l.value.current)
}

// Load asks the backend for the whole collection.
func (l *List[W, R]) Load() {
	l.value.Load()
}

// Close releases the storage handle.
func (l *List[W, R]) Close() error {
	return l.value.Close()
}
