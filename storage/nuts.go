package storage

import (
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/xujiajun/nutsdb"

	"github.com/fenrirdb/syncstore/log"
)

// OpenNuts opens an embedded nutsdb store rooted at dir, shared by any number
// of NutsValue and NutsDir backends. The caller owns closing the db.
func OpenNuts(dir string) (*nutsdb.DB, error) {
	opts := nutsdb.DefaultOptions
	opts.Dir = dir
	return nutsdb.Open(opts)
}

// NutsValue persists one value under a fixed key in a nutsdb bucket. The lock
// cycle runs inside a single update transaction, so concurrent lock-and-update
// callers on the same db never interleave fetch and write.
type NutsValue struct {
	logger   log.Logger
	db       *nutsdb.DB
	bucket   string
	key      []byte
	mutex    sync.Mutex
	receiver Receiver[[]byte]
}

func NewNutsValue(logger log.Logger, db *nutsdb.DB, bucket string, key string) *NutsValue {
	return &NutsValue{logger: logger, db: db, bucket: bucket, key: []byte(key)}
}

func (n *NutsValue) Push(value []byte) bool {
	if err := n.db.Update(func(tx *nutsdb.Tx) error {
		return tx.Put(n.bucket, n.key, value, 0)
	}); err != nil {
		n.logger.Errorf("failed to push %s/%s: %v", n.bucket, n.key, err)
		return false
	}
	return true
}

func (n *NutsValue) Pull() {
	var value []byte
	found := false
	if err := n.db.View(func(tx *nutsdb.Tx) error {
		if entry, err := tx.Get(n.bucket, n.key); err != nil {
			return err
		} else {
			value = append([]byte(nil), entry.Value...)
			found = true
			return nil
		}
	}); err != nil {
		n.logger.Debugf("no value at %s/%s: %v", n.bucket, n.key, err)
	}
	n.mutex.Lock()
	receiver := n.receiver
	n.mutex.Unlock()
	if receiver != nil {
		receiver(value, found)
	}
}

func (n *NutsValue) Delete() bool {
	if err := n.db.Update(func(tx *nutsdb.Tx) error {
		return tx.Delete(n.bucket, n.key)
	}); err != nil {
		n.logger.Warnf("failed to delete %s/%s: %v", n.bucket, n.key, err)
		return false
	}
	return true
}

func (n *NutsValue) OnReceive(receiver Receiver[[]byte]) {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	n.receiver = receiver
}

func (n *NutsValue) LockAndUpdate(update UpdateFunc[[]byte]) bool {
	if err := n.db.Update(func(tx *nutsdb.Tx) error {
		var current []byte
		exists := false
		if entry, err := tx.Get(n.bucket, n.key); err == nil {
			current = append([]byte(nil), entry.Value...)
			exists = true
		}
		return tx.Put(n.bucket, n.key, update(current, exists), 0)
	}); err != nil {
		n.logger.Errorf("failed to lock and update %s/%s: %v", n.bucket, n.key, err)
		return false
	}
	return true
}

func (n *NutsValue) Close() error {
	// the db is shared and owned by the caller
	return nil
}

// NutsDir persists one entry per key in a nutsdb bucket. CreateEntry keys are
// snowflake ids, unique across the process.
type NutsDir struct {
	logger        log.Logger
	db            *nutsdb.DB
	bucket        string
	node          *snowflake.Node
	mutex         sync.Mutex
	entryReceiver EntryReceiver[[]byte]
}

func NewNutsDir(logger log.Logger, db *nutsdb.DB, bucket string) (*NutsDir, error) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, err
	}
	return &NutsDir{logger: logger, db: db, bucket: bucket, node: node}, nil
}

func (n *NutsDir) PushEntry(key string, value []byte) bool {
	if err := n.db.Update(func(tx *nutsdb.Tx) error {
		return tx.Put(n.bucket, []byte(key), value, 0)
	}); err != nil {
		n.logger.Errorf("failed to push entry %s/%s: %v", n.bucket, key, err)
		return false
	}
	return true
}

func (n *NutsDir) deliver(key string, value []byte, ok bool) {
	n.mutex.Lock()
	receiver := n.entryReceiver
	n.mutex.Unlock()
	if receiver != nil {
		receiver(key, value, ok)
	}
}

func (n *NutsDir) PullEntry(key string) {
	var value []byte
	found := false
	if err := n.db.View(func(tx *nutsdb.Tx) error {
		if entry, err := tx.Get(n.bucket, []byte(key)); err != nil {
			return err
		} else {
			value = append([]byte(nil), entry.Value...)
			found = true
			return nil
		}
	}); err != nil {
		n.logger.Debugf("no entry at %s/%s: %v", n.bucket, key, err)
	}
	n.deliver(key, value, found)
}

func (n *NutsDir) PullAll() {
	entries := map[string][]byte{}
	if err := n.db.View(func(tx *nutsdb.Tx) error {
		if all, err := tx.GetAll(n.bucket); err != nil {
			return err
		} else {
			for _, entry := range all {
				entries[string(entry.Key)] = append([]byte(nil), entry.Value...)
			}
			return nil
		}
	}); err != nil {
		n.logger.Debugf("no entries in %s: %v", n.bucket, err)
	}
	for key, value := range entries {
		n.deliver(key, value, true)
	}
}

func (n *NutsDir) DeleteEntry(key string) bool {
	if err := n.db.Update(func(tx *nutsdb.Tx) error {
		return tx.Delete(n.bucket, []byte(key))
	}); err != nil {
		n.logger.Warnf("failed to delete entry %s/%s: %v", n.bucket, key, err)
		return false
	}
	return true
}

func (n *NutsDir) CreateEntry(value []byte) (string, bool) {
	key := n.node.Generate().String()
	return key, n.PushEntry(key, value)
}

func (n *NutsDir) OnReceiveEntry(receiver EntryReceiver[[]byte]) {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	n.entryReceiver = receiver
}

func (n *NutsDir) LockAndUpdateEntry(key string, update UpdateFunc[[]byte]) bool {
	if err := n.db.Update(func(tx *nutsdb.Tx) error {
		var current []byte
		exists := false
		if entry, err := tx.Get(n.bucket, []byte(key)); err == nil {
			current = append([]byte(nil), entry.Value...)
			exists = true
		}
		return tx.Put(n.bucket, []byte(key), update(current, exists), 0)
	}); err != nil {
		n.logger.Errorf("failed to lock and update entry %s/%s: %v", n.bucket, key, err)
		return false
	}
	return true
}

func (n *NutsDir) Keys() []string {
	var keys []string
	if err := n.db.View(func(tx *nutsdb.Tx) error {
		if all, err := tx.GetAll(n.bucket); err != nil {
			return err
		} else {
			for _, entry := range all {
				keys = append(keys, string(entry.Key))
			}
			return nil
		}
	}); err != nil {
		n.logger.Debugf("no entries in %s: %v", n.bucket, err)
	}
	return keys
}

func (n *NutsDir) Close() error {
	// the db is shared and owned by the caller
	return nil
}
