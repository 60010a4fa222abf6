package bind

import (
	"fmt"
	"reflect"
	"sync"
)

var (
	ErrStaleValue      = fmt.Errorf("value read before any load or set")
	ErrIndexOutOfRange = fmt.Errorf("index out of range")
)

// Owner is a collection (or synchronized value) that can persist itself on
// behalf of a member, so a nested storable value can request its own save
// without the caller re-locating its container.
type Owner interface {
	Save(opts ...Option) bool
}

// Registry associates storable values with the collection that currently owns
// them, keyed by value identity. It replaces intrusive back-reference fields
// on stored types; tracked members must therefore be valid map keys (pointer
// types are typical). A value has exactly one owner at a time: a later claim
// overwrites an earlier one.
type Registry struct {
	mutex  sync.Mutex
	owners map[interface{}]Owner
}

func NewRegistry() *Registry {
	return &Registry{owners: map[interface{}]Owner{}}
}

// OwnerOf reports which collection currently owns the member.
func (r *Registry) OwnerOf(member interface{}) (Owner, bool) {
	if r == nil || !keyable(member) {
		return nil, false
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	owner, ok := r.owners[member]
	return owner, ok
}

func (r *Registry) claim(member interface{}, owner Owner) {
	if r == nil || !keyable(member) {
		return
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.owners[member] = owner
}

// keyable reports whether the member can serve as a map key; slices and maps
// themselves cannot and are simply not tracked.
func keyable(member interface{}) bool {
	if member == nil {
		return false
	}
	return reflect.TypeOf(member).Comparable()
}

// release clears the association only while owner is still the recorded one,
// so removing a value from its former collection after a move does not strip
// the new owner.
func (r *Registry) release(member interface{}, owner Owner) {
	if r == nil || !keyable(member) {
		return
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if current, ok := r.owners[member]; ok && current == owner {
		delete(r.owners, member)
	}
}
