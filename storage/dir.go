package storage

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/fenrirdb/syncstore/log"
)

const (
	lockSuffix = ".lock"
	tmpSuffix  = ".tmp"

	lockRetries  = 50
	lockInterval = 20 * time.Millisecond
)

// Dir persists one entry per file in a directory, keyed by the (escaped) file
// name. The directory is watched so entries touched by another process reach
// the registered entry receiver. The per-entry lock cycle uses an exclusive
// lock file next to the entry, which also excludes other processes sharing
// the directory.
type Dir struct {
	logger        log.Logger
	dir           string
	watcher       *fsnotify.Watcher
	mutex         sync.Mutex
	entryReceiver EntryReceiver[[]byte]
	done          chan struct{}
}

func NewDir(logger log.Logger, dir string) (*Dir, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err = watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	d := &Dir{
		logger:  logger,
		dir:     dir,
		watcher: watcher,
		done:    make(chan struct{}),
	}
	go d.watch()
	return d, nil
}

func (d *Dir) watch() {
	for {
		select {
		case <-d.done:
			return
		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			name := filepath.Base(event.Name)
			if strings.HasSuffix(name, lockSuffix) || strings.HasSuffix(name, tmpSuffix) {
				continue
			}
			key, err := url.PathUnescape(name)
			if err != nil {
				continue
			}
			if event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) {
				d.PullEntry(key)
			} else if event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename) {
				d.deliver(key, nil, false)
			}
		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.logger.Warnf("watch error on %s: %v", d.dir, err)
		}
	}
}

func (d *Dir) entryPath(key string) string {
	return filepath.Join(d.dir, url.PathEscape(key))
}

func (d *Dir) deliver(key string, value []byte, ok bool) {
	d.mutex.Lock()
	receiver := d.entryReceiver
	d.mutex.Unlock()
	if receiver != nil {
		receiver(key, value, ok)
	}
}

func (d *Dir) PushEntry(key string, value []byte) bool {
	path := d.entryPath(key)
	tmp := path + tmpSuffix
	if err := os.WriteFile(tmp, value, 0o644); err != nil {
		d.logger.Errorf("failed to write %s: %v", tmp, err)
		return false
	}
	if err := os.Rename(tmp, path); err != nil {
		d.logger.Errorf("failed to rename %s: %v", tmp, err)
		return false
	}
	return true
}

func (d *Dir) PullEntry(key string) {
	if value, err := os.ReadFile(d.entryPath(key)); err != nil {
		if !os.IsNotExist(err) {
			d.logger.Warnf("failed to read entry %s: %v", key, err)
		}
		d.deliver(key, nil, false)
	} else {
		d.deliver(key, value, true)
	}
}

func (d *Dir) PullAll() {
	for _, key := range d.Keys() {
		d.PullEntry(key)
	}
}

func (d *Dir) DeleteEntry(key string) bool {
	if err := os.Remove(d.entryPath(key)); err != nil {
		if !os.IsNotExist(err) {
			d.logger.Warnf("failed to remove entry %s: %v", key, err)
		}
		return false
	}
	return true
}

func (d *Dir) CreateEntry(value []byte) (string, bool) {
	key := uuid.NewString()
	return key, d.PushEntry(key, value)
}

func (d *Dir) OnReceiveEntry(receiver EntryReceiver[[]byte]) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.entryReceiver = receiver
}

// LockAndUpdateEntry acquires an exclusive lock file for the entry, reads the
// current value, applies update and writes the result, then releases the lock.
// The write and the release happen even when update returns its input.
func (d *Dir) LockAndUpdateEntry(key string, update UpdateFunc[[]byte]) bool {
	lockPath := d.entryPath(key) + lockSuffix
	acquired := false
	for i := 0; i < lockRetries; i++ {
		lock, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			_ = lock.Close()
			acquired = true
			break
		}
		if !os.IsExist(err) {
			d.logger.Errorf("failed to create lock for entry %s: %v", key, err)
			return false
		}
		time.Sleep(lockInterval)
	}
	if !acquired {
		d.logger.Errorf("failed to lock entry %s: lock held too long", key)
		return false
	}
	defer func() {
		if err := os.Remove(lockPath); err != nil {
			d.logger.Errorf("failed to release lock for entry %s: %v", key, err)
		}
	}()
	current, err := os.ReadFile(d.entryPath(key))
	exists := err == nil
	if err != nil && !os.IsNotExist(err) {
		d.logger.Warnf("failed to read entry %s under lock: %v", key, err)
	}
	return d.PushEntry(key, update(current, exists))
}

func (d *Dir) Keys() []string {
	dirEntries, err := os.ReadDir(d.dir)
	if err != nil {
		d.logger.Warnf("failed to list %s: %v", d.dir, err)
		return nil
	}
	var keys []string
	for _, dirEntry := range dirEntries {
		name := dirEntry.Name()
		if dirEntry.IsDir() || strings.HasSuffix(name, lockSuffix) || strings.HasSuffix(name, tmpSuffix) {
			continue
		}
		if key, err := url.PathUnescape(name); err == nil {
			keys = append(keys, key)
		}
	}
	return keys
}

func (d *Dir) Close() error {
	close(d.done)
	return d.watcher.Close()
}
