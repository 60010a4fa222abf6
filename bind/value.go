package bind

import (
	"github.com/fenrirdb/syncstore/log"
	"github.com/fenrirdb/syncstore/storage"
	"github.com/fenrirdb/syncstore/translate"
)

// Value binds one translator to one storage handle: inbound writable data is
// translated and cached, outbound readable values are translated and pushed.
// It is not safe for concurrent mutation; see the package concurrency notes.
type Value[W, R any] struct {
	logger     log.Logger
	translator translate.Translator[W, R]
	store      storage.Storage[W]
	lockable   storage.Lockable[W]
	options    *Options
	current    R
	loaded     bool
	observers  []func(R)
}

func NewValue[W, R any](translator translate.Translator[W, R], store storage.Storage[W], options *Options) *Value[W, R] {
	if options == nil {
		options = DefaultOptions()
	}
	v := &Value[W, R]{
		logger:     options.loggerOr("value"),
		translator: translator,
		store:      store,
		options:    options,
	}
	if lockable, ok := store.(storage.Lockable[W]); ok {
		v.lockable = lockable
	}
	store.OnReceive(v.receive)
	return v
}

// receive is the inbound callback: the writable is translated even when the
// backend reported no data, so a translator can substitute a default readable
// for the absent sentinel.
func (v *Value[W, R]) receive(writable W, ok bool) {
	if !ok {
		var ni W
		writable = ni
	}
	readable, err := v.translator.TranslateWritable(writable)
	if err != nil {
		v.logger.Errorf("failed to translate received value: %v", err)
		return
	}
	v.setCurrent(readable)
	v.notify()
}

func (v *Value[W, R]) setCurrent(readable R) {
	if v.loaded {
		v.options.registry.release(v.current, v)
	}
	v.current = readable
	v.loaded = true
	v.options.registry.claim(readable, v)
}

func (v *Value[W, R]) notify() {
	for _, observer := range v.observers {
		observer(v.current)
	}
}

// OnChange registers an observer invoked after every cache change.
func (v *Value[W, R]) OnChange(observer func(R)) {
	v.observers = append(v.observers, observer)
}

// Write translates the value and pushes it, leaving the cache untouched; the
// caller decides whether to Set before or after.
func (v *Value[W, R]) Write(value R) bool {
	if writable, err := v.translator.TranslateReadable(value); err != nil {
		v.logger.Errorf("failed to translate value for write: %v", err)
		return false
	} else {
		return v.store.Push(writable)
	}
}

// Load asks the backend to pull; the backend invokes the receive callback,
// with the loaded value or the absent sentinel, before Load returns.
func (v *Value[W, R]) Load() {
	v.store.Pull()
}

// Get returns the cached readable, or ErrStaleValue before any load or set.
func (v *Value[W, R]) Get() (R, error) {
	if !v.loaded {
		var ni R
		return ni, ErrStaleValue
	}
	return v.current, nil
}

// Set caches the value, persists it unless suppressed, and notifies observers.
func (v *Value[W, R]) Set(value R, opts ...Option) bool {
	resolved := v.options.resolve(opts)
	v.setCurrent(value)
	ok := true
	if resolved.save {
		if resolved.lock && v.lockable != nil {
			ok = v.overwriteLocked()
		} else {
			ok = v.Write(value)
		}
	}
	if resolved.notify {
		v.notify()
	}
	return ok
}

// Save pushes the cached value, implementing Owner for nested storables.
func (v *Value[W, R]) Save(opts ...Option) bool {
	resolved := v.options.resolve(opts)
	if !v.loaded {
		return false
	}
	if resolved.lock && v.lockable != nil {
		return v.overwriteLocked()
	}
	return v.Write(v.current)
}

// Delete removes the stored value; the cache keeps its last-known readable.
func (v *Value[W, R]) Delete() bool {
	return v.store.Delete()
}

// UpdateWithLock runs the update function against the backend's current state
// under its lock and caches the result. The update function runs even when no
// prior value exists (create-or-update), and the backend writes and releases
// regardless of whether the function changed anything.
func (v *Value[W, R]) UpdateWithLock(update func(current R, exists bool) R) (R, bool) {
	result, ok := v.lockCycle(update)
	if !ok {
		var ni R
		return ni, false
	}
	v.setCurrent(result)
	v.notify()
	return result, true
}

// lockCycle is UpdateWithLock without the cache update and notification.
func (v *Value[W, R]) lockCycle(update func(current R, exists bool) R) (R, bool) {
	var ni R
	if v.lockable == nil {
		v.logger.Warn("backend is not lockable")
		return ni, false
	}
	var translateErr error
	var result R
	ok := v.lockable.LockAndUpdate(func(current W, exists bool) W {
		var readable R
		if exists {
			if translated, err := v.translator.TranslateWritable(current); err != nil {
				translateErr = err
				return current
			} else {
				readable = translated
			}
		}
		result = update(readable, exists)
		if writable, err := v.translator.TranslateReadable(result); err != nil {
			translateErr = err
			return current
		} else {
			return writable
		}
	})
	if translateErr != nil {
		v.logger.Errorf("failed to translate under lock: %v", translateErr)
		return ni, false
	}
	if !ok {
		return ni, false
	}
	return result, true
}

// overwriteLocked pushes the cached value through the lock cycle, so the write
// is serialized against other lock-and-update writers.
func (v *Value[W, R]) overwriteLocked() bool {
	_, ok := v.lockCycle(func(R, bool) R { return v.current })
	return ok
}

// Close releases the storage handle.
func (v *Value[W, R]) Close() error {
	return v.store.Close()
}
