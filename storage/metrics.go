package storage

import (
	"github.com/uber-go/tally/v4"
)

type storageMetrics struct {
	pushSuccess   tally.Counter
	pushFailure   tally.Counter
	pushLatency   tally.Timer
	pulls         tally.Counter
	deleteSuccess tally.Counter
	deleteFailure tally.Counter
}

func newStorageMetrics(scope tally.Scope) storageMetrics {
	return storageMetrics{
		pushSuccess:   scope.Tagged(map[string]string{"outcome": "success"}).Counter("pushes"),
		pushFailure:   scope.Tagged(map[string]string{"outcome": "failure"}).Counter("pushes"),
		pushLatency:   scope.Timer("push_latency"),
		pulls:         scope.Counter("pulls"),
		deleteSuccess: scope.Tagged(map[string]string{"outcome": "success"}).Counter("deletes"),
		deleteFailure: scope.Tagged(map[string]string{"outcome": "failure"}).Counter("deletes"),
	}
}

func (m storageMetrics) countPush(ok bool) {
	if ok {
		m.pushSuccess.Inc(1)
	} else {
		m.pushFailure.Inc(1)
	}
}

func (m storageMetrics) countDelete(ok bool) {
	if ok {
		m.deleteSuccess.Inc(1)
	} else {
		m.deleteFailure.Inc(1)
	}
}

type instrumented[W any] struct {
	inner   Storage[W]
	metrics storageMetrics
}

// Instrument decorates a backend with tally counters per operation and
// outcome, plus a push latency timer.
func Instrument[W any](scope tally.Scope, inner Storage[W]) Storage[W] {
	return &instrumented[W]{inner: inner, metrics: newStorageMetrics(scope)}
}

func (i *instrumented[W]) Push(value W) bool {
	stopwatch := i.metrics.pushLatency.Start()
	ok := i.inner.Push(value)
	stopwatch.Stop()
	i.metrics.countPush(ok)
	return ok
}

func (i *instrumented[W]) Pull() {
	i.metrics.pulls.Inc(1)
	i.inner.Pull()
}

func (i *instrumented[W]) Delete() bool {
	ok := i.inner.Delete()
	i.metrics.countDelete(ok)
	return ok
}

func (i *instrumented[W]) OnReceive(receiver Receiver[W]) {
	i.inner.OnReceive(receiver)
}

func (i *instrumented[W]) Close() error {
	return i.inner.Close()
}

type instrumentedEntry[W any] struct {
	inner   EntryStorage[W]
	metrics storageMetrics
	creates tally.Counter
}

// InstrumentEntry is the keyed counterpart of Instrument.
func InstrumentEntry[W any](scope tally.Scope, inner EntryStorage[W]) EntryStorage[W] {
	return &instrumentedEntry[W]{
		inner:   inner,
		metrics: newStorageMetrics(scope),
		creates: scope.Counter("creates"),
	}
}

func (i *instrumentedEntry[W]) PushEntry(key string, value W) bool {
	stopwatch := i.metrics.pushLatency.Start()
	ok := i.inner.PushEntry(key, value)
	stopwatch.Stop()
	i.metrics.countPush(ok)
	return ok
}

func (i *instrumentedEntry[W]) PullEntry(key string) {
	i.metrics.pulls.Inc(1)
	i.inner.PullEntry(key)
}

func (i *instrumentedEntry[W]) PullAll() {
	i.metrics.pulls.Inc(1)
	i.inner.PullAll()
}

func (i *instrumentedEntry[W]) DeleteEntry(key string) bool {
	ok := i.inner.DeleteEntry(key)
	i.metrics.countDelete(ok)
	return ok
}

func (i *instrumentedEntry[W]) CreateEntry(value W) (string, bool) {
	key, ok := i.inner.CreateEntry(value)
	if ok {
		i.creates.Inc(1)
	}
	return key, ok
}

func (i *instrumentedEntry[W]) OnReceiveEntry(receiver EntryReceiver[W]) {
	i.inner.OnReceiveEntry(receiver)
}

func (i *instrumentedEntry[W]) Keys() []string {
	return i.inner.Keys()
}

func (i *instrumentedEntry[W]) Close() error {
	return i.inner.Close()
}
