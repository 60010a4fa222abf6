package bind

import (
	"github.com/fenrirdb/syncstore/storage"
)

// stubStorage records every backend call so tests can assert on exactly how
// many pushes, deletes and lock cycles a mutation issued.
type stubStorage[W any] struct {
	pushes   []W
	pulls    int
	deletes  int
	value    W
	hasValue bool
	receiver storage.Receiver[W]
	failPush bool
	locks    int
	unlocks  int
}

func newStubStorage[W any]() *stubStorage[W] {
	return &stubStorage[W]{}
}

func (s *stubStorage[W]) Push(value W) bool {
	s.pushes = append(s.pushes, value)
	if s.failPush {
		return false
	}
	s.value = value
	s.hasValue = true
	return true
}

func (s *stubStorage[W]) Pull() {
	s.pulls++
	if s.receiver != nil {
		s.receiver(s.value, s.hasValue)
	}
}

func (s *stubStorage[W]) Delete() bool {
	s.deletes++
	var ni W
	s.value = ni
	s.hasValue = false
	return true
}

func (s *stubStorage[W]) OnReceive(receiver storage.Receiver[W]) {
	s.receiver = receiver
}

func (s *stubStorage[W]) LockAndUpdate(update storage.UpdateFunc[W]) bool {
	s.locks++
	s.value = update(s.value, s.hasValue)
	s.hasValue = true
	s.unlocks++
	return true
}

func (s *stubStorage[W]) Close() error {
	return nil
}

// stubEntryStorage is the keyed counterpart of stubStorage.
type stubEntryStorage[W any] struct {
	entries      map[string]W
	entryPushes  []string
	entryDeletes []string
	entryPulls   []string
	pullAlls     int
	createdKeys  []string
	nextKey      string
	receiver     storage.EntryReceiver[W]
	locks        int
	unlocks      int
}

func newStubEntryStorage[W any]() *stubEntryStorage[W] {
	return &stubEntryStorage[W]{entries: map[string]W{}, nextKey: "generated"}
}

func (s *stubEntryStorage[W]) PushEntry(key string, value W) bool {
	s.entryPushes = append(s.entryPushes, key)
	s.entries[key] = value
	return true
}

func (s *stubEntryStorage[W]) PullEntry(key string) {
	s.entryPulls = append(s.entryPulls, key)
	if s.receiver != nil {
		value, ok := s.entries[key]
		s.receiver(key, value, ok)
	}
}

func (s *stubEntryStorage[W]) PullAll() {
	s.pullAlls++
	if s.receiver != nil {
		for key, value := range s.entries {
			s.receiver(key, value, true)
		}
	}
}

func (s *stubEntryStorage[W]) DeleteEntry(key string) bool {
	if _, ok := s.entries[key]; !ok {
		return false
	}
	s.entryDeletes = append(s.entryDeletes, key)
	delete(s.entries, key)
	return true
}

func (s *stubEntryStorage[W]) CreateEntry(value W) (string, bool) {
	key := s.nextKey
	s.createdKeys = append(s.createdKeys, key)
	s.entries[key] = value
	return key, true
}

func (s *stubEntryStorage[W]) OnReceiveEntry(receiver storage.EntryReceiver[W]) {
	s.receiver = receiver
}

func (s *stubEntryStorage[W]) LockAndUpdateEntry(key string, update storage.UpdateFunc[W]) bool {
	s.locks++
	current, ok := s.entries[key]
	s.entries[key] = update(current, ok)
	s.unlocks++
	return true
}

func (s *stubEntryStorage[W]) Keys() []string {
	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	return keys
}

func (s *stubEntryStorage[W]) Close() error {
	return nil
}
