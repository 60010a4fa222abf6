package storage

import (
	"sync"

	"github.com/google/uuid"
)

// Memory keeps the value and its entries in process memory. It implements
// every backend contract, including the lock cycles, and is meant for tests
// and single-process use.
type Memory[W any] struct {
	mutex         sync.Mutex
	value         W
	hasValue      bool
	entries       map[string]W
	receiver      Receiver[W]
	entryReceiver EntryReceiver[W]
}

func NewMemory[W any]() *Memory[W] {
	return &Memory[W]{entries: map[string]W{}}
}

func (m *Memory[W]) Push(value W) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.value = value
	m.hasValue = true
	return true
}

func (m *Memory[W]) Pull() {
	m.mutex.Lock()
	value, ok, receiver := m.value, m.hasValue, m.receiver
	m.mutex.Unlock()
	if receiver != nil {
		receiver(value, ok)
	}
}

func (m *Memory[W]) Delete() bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	var ni W
	m.value = ni
	m.hasValue = false
	return true
}

func (m *Memory[W]) OnReceive(receiver Receiver[W]) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.receiver = receiver
}

func (m *Memory[W]) LockAndUpdate(update UpdateFunc[W]) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.value = update(m.value, m.hasValue)
	m.hasValue = true
	return true
}

func (m *Memory[W]) PushEntry(key string, value W) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.entries[key] = value
	return true
}

func (m *Memory[W]) PullEntry(key string) {
	m.mutex.Lock()
	value, ok := m.entries[key]
	receiver := m.entryReceiver
	m.mutex.Unlock()
	if receiver != nil {
		receiver(key, value, ok)
	}
}

func (m *Memory[W]) PullAll() {
	m.mutex.Lock()
	snapshot := make(map[string]W, len(m.entries))
	for key, value := range m.entries {
		snapshot[key] = value
	}
	receiver := m.entryReceiver
	m.mutex.Unlock()
	if receiver != nil {
		for key, value := range snapshot {
			receiver(key, value, true)
		}
	}
}

func (m *Memory[W]) DeleteEntry(key string) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, ok := m.entries[key]; !ok {
		return false
	}
	delete(m.entries, key)
	return true
}

func (m *Memory[W]) CreateEntry(value W) (string, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	key := uuid.NewString()
	m.entries[key] = value
	return key, true
}

func (m *Memory[W]) OnReceiveEntry(receiver EntryReceiver[W]) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.entryReceiver = receiver
}

func (m *Memory[W]) LockAndUpdateEntry(key string, update UpdateFunc[W]) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	current, ok := m.entries[key]
	m.entries[key] = update(current, ok)
	return true
}

func (m *Memory[W]) Keys() []string {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	keys := make([]string, 0, len(m.entries))
	for key := range m.entries {
		keys = append(keys, key)
	}
	return keys
}

func (m *Memory[W]) Close() error {
	return nil
}
