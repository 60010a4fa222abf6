package bind

import "github.com/fenrirdb/syncstore/log"

// Options carries a collection's configured defaults. The defaults are never
// mutated by a call; per-call overrides live in their own resolved copy, so
// they cannot leak into later calls even when a mutator panics mid-batch.
type Options struct {
	logger log.Logger
	//whether mutators persist by default
	save bool
	//whether mutators notify observers by default
	notify bool
	//ownership registry, nil disables member tracking
	registry *Registry
}

func (o *Options) WithLogger(logger log.Logger) *Options {
	o.logger = logger
	return o
}

func (o *Options) WithSaveByDefault(save bool) *Options {
	o.save = save
	return o
}

func (o *Options) WithNotifyByDefault(notify bool) *Options {
	o.notify = notify
	return o
}

func (o *Options) WithRegistry(registry *Registry) *Options {
	o.registry = registry
	return o
}

func DefaultOptions() *Options {
	return &Options{save: true, notify: true}
}

// callOptions is the per-call resolution of the configured defaults plus any
// overrides passed to a single mutator.
type callOptions struct {
	save   bool
	notify bool
	lock   bool
}

// Option overrides one knob for a single call.
type Option func(*callOptions)

// WithSave overrides whether this one call persists its mutation, so bulk
// operations can suppress intermediate writes and issue exactly one at the end.
func WithSave(save bool) Option {
	return func(o *callOptions) { o.save = save }
}

// WithNotify overrides whether this one call notifies observers.
func WithNotify(notify bool) Option {
	return func(o *callOptions) { o.notify = notify }
}

// WithLock routes this one call through the backend's lock-and-update
// protocol instead of plain write-through, for entries shared with other
// writers. Ignored when the backend is not lockable.
func WithLock() Option {
	return func(o *callOptions) { o.lock = true }
}

func withLock(lock bool) Option {
	return func(o *callOptions) { o.lock = lock }
}

func (o *Options) resolve(opts []Option) callOptions {
	resolved := callOptions{save: o.save, notify: o.notify}
	for _, opt := range opts {
		opt(&resolved)
	}
	return resolved
}

func (o *Options) loggerOr(name string) log.Logger {
	if o.logger != nil {
		return o.logger
	}
	return log.Global().Named(name)
}
