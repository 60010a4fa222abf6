package storage

import (
	"io"

	"go.uber.org/multierr"
)

// Receiver is the inbound callback a backend invokes with loaded writable
// data. ok=false is the explicit "no data" sentinel for an absent value, so a
// caller waiting on Pull never hangs on a missing entry.
type Receiver[W any] func(value W, ok bool)

// EntryReceiver is the keyed variant of Receiver.
type EntryReceiver[W any] func(key string, value W, ok bool)

// Storage is the contract a backend implements for one stored value.
// Persistence failures are reported as false returns, never as panics or
// errors; backends log the underlying cause themselves.
type Storage[W any] interface {
	// Push persists the value and reports whether the backend accepted it.
	Push(value W) bool
	// Pull asks the backend to load; the registered receiver MUST be invoked,
	// with the loaded value or with the absent sentinel, before Pull returns.
	Pull()
	Delete() bool
	OnReceive(receiver Receiver[W])
	Close() error
}

// EntryStorage is the keyed/directory variant: each entry is addressed by a
// string key, so a collection can touch one entry without a whole-collection
// round trip.
type EntryStorage[W any] interface {
	PushEntry(key string, value W) bool
	// PullEntry loads a single entry, the entry-optimized partial load.
	PullEntry(key string)
	// PullAll loads every entry, invoking the entry receiver once per entry.
	PullAll()
	DeleteEntry(key string) bool
	// CreateEntry persists the value under a backend-generated key.
	CreateEntry(value W) (key string, ok bool)
	OnReceiveEntry(receiver EntryReceiver[W])
	Keys() []string
	Close() error
}

// UpdateFunc receives the current writable value (exists=false when absent,
// letting callers implement create-or-update) and returns the value to write.
type UpdateFunc[W any] func(current W, exists bool) W

// Lockable is implemented by backends that can run an atomic
// lock-fetch-update-write-unlock cycle against the stored value. The write and
// the release happen even when the update function returns its input unchanged,
// so a lock is never left dangling.
type Lockable[W any] interface {
	LockAndUpdate(update UpdateFunc[W]) bool
}

// LockableEntryStorage adds the per-entry lock cycle; locks on distinct
// entries are independent.
type LockableEntryStorage[W any] interface {
	EntryStorage[W]
	LockAndUpdateEntry(key string, update UpdateFunc[W]) bool
}

// CloseAll closes several backends, combining their close errors.
func CloseAll(closers ...io.Closer) error {
	var err error
	for _, closer := range closers {
		err = multierr.Append(err, closer.Close())
	}
	return err
}
