package agent

import "time"

const (
	DefaultStartTimeout = 5 * time.Second
	DefaultCallTimeout  = 5 * time.Second
	DefaultThroughput   = 300
)

type Option func(*Options)

type Options struct {
	// Name registers the handle in the process-local registry.
	Name string
	// StartTimeout bounds the init function.
	StartTimeout time.Duration
	// CallTimeout applies to blocking calls that pass a zero timeout.
	CallTimeout time.Duration
	// AdvanceInterval is the minimum delay between advance steps while the
	// worker is idle. Zero advances continuously.
	AdvanceInterval time.Duration
	// Throughput is how many steps the worker takes before yielding.
	Throughput int
	// Dispatcher picks where the worker loop runs.
	Dispatcher IDispatcher
}

func loadOptions(options ...Option) *Options {
	opts := &Options{
		StartTimeout: DefaultStartTimeout,
		CallTimeout:  DefaultCallTimeout,
		Throughput:   DefaultThroughput,
		Dispatcher:   NewPoolDispatcher(),
	}
	for _, option := range options {
		option(opts)
	}
	if opts.Throughput <= 0 {
		opts.Throughput = DefaultThroughput
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = NewPoolDispatcher()
	}
	return opts
}

func WithName(name string) Option {
	return func(op *Options) {
		op.Name = name
	}
}

func WithStartTimeout(d time.Duration) Option {
	return func(op *Options) {
		op.StartTimeout = d
	}
}

func WithCallTimeout(d time.Duration) Option {
	return func(op *Options) {
		op.CallTimeout = d
	}
}

func WithAdvanceInterval(d time.Duration) Option {
	return func(op *Options) {
		op.AdvanceInterval = d
	}
}

func WithThroughput(n int) Option {
	return func(op *Options) {
		op.Throughput = n
	}
}

func WithDispatcher(d IDispatcher) Option {
	return func(op *Options) {
		op.Dispatcher = d
	}
}
