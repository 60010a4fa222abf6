package storage

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/fenrirdb/syncstore/log"
)

// File persists one value in one file. Pushes go through a temp file and an
// atomic rename. The parent directory is watched, so a write or removal by
// another process reaches the registered receiver as well.
type File struct {
	logger   log.Logger
	path     string
	watcher  *fsnotify.Watcher
	mutex    sync.Mutex
	receiver Receiver[[]byte]
	done     chan struct{}
}

func NewFile(logger log.Logger, path string) (*File, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err = watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	f := &File{
		logger:  logger,
		path:    path,
		watcher: watcher,
		done:    make(chan struct{}),
	}
	go f.watch()
	return f, nil
}

func (f *File) watch() {
	for {
		select {
		case <-f.done:
			return
		case event, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if event.Name != f.path {
				continue
			}
			if event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) {
				f.Pull()
			} else if event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename) {
				f.deliver(nil, false)
			}
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			f.logger.Warnf("watch error on %s: %v", f.path, err)
		}
	}
}

func (f *File) deliver(value []byte, ok bool) {
	f.mutex.Lock()
	receiver := f.receiver
	f.mutex.Unlock()
	if receiver != nil {
		receiver(value, ok)
	}
}

func (f *File) Push(value []byte) bool {
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, value, 0o644); err != nil {
		f.logger.Errorf("failed to write %s: %v", tmp, err)
		return false
	}
	if err := os.Rename(tmp, f.path); err != nil {
		f.logger.Errorf("failed to rename %s: %v", tmp, err)
		return false
	}
	return true
}

func (f *File) Pull() {
	if value, err := os.ReadFile(f.path); err != nil {
		if !os.IsNotExist(err) {
			f.logger.Warnf("failed to read %s: %v", f.path, err)
		}
		f.deliver(nil, false)
	} else {
		f.deliver(value, true)
	}
}

func (f *File) Delete() bool {
	if err := os.Remove(f.path); err != nil {
		if !os.IsNotExist(err) {
			f.logger.Warnf("failed to remove %s: %v", f.path, err)
		}
		return false
	}
	return true
}

func (f *File) OnReceive(receiver Receiver[[]byte]) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.receiver = receiver
}

func (f *File) Close() error {
	close(f.done)
	return f.watcher.Close()
}
