package enact

import (
	"context"
	"fmt"
	"runtime"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/linger/backoff"
	"github.com/enactiq/enact/handler"
	"github.com/enactiq/enact/persistence"
	"github.com/enactiq/enact/persistence/provider/memory"
	"github.com/enactiq/enact/process"
	"github.com/enactiq/enact/usertask"
)

var (
	// DefaultConcurrencyLimit is the default number of process instances to
	// operate on concurrently during a broadcast.
	//
	// It is overridden by the WithConcurrencyLimit() option.
	DefaultConcurrencyLimit = uint(runtime.GOMAXPROCS(0) * 2)

	// DefaultLogger is the default target for log messages produced by the
	// engine.
	//
	// It is overridden by the WithLogger() option.
	DefaultLogger = logging.DefaultLogger
)

// ProcessStoreOpener opens the process instance store for a single
// definition.
//
// The codec is bound to the definition being opened; durable providers use
// it to marshal instances, the in-memory provider ignores it.
type ProcessStoreOpener func(
	ctx context.Context,
	definitionID string,
	c persistence.Codec[*process.Instance],
) (persistence.Store[*process.Instance], error)

// TaskStoreOpener opens the engine's user task instance store.
type TaskStoreOpener func(
	ctx context.Context,
	scope string,
	c persistence.Codec[*usertask.Instance],
) (persistence.Store[*usertask.Instance], error)

// EngineOption configures the behavior of an engine.
type EngineOption func(*engineOptions)

// WithDefinition returns an engine option that hosts an additional process
// definition on the engine.
//
// There must always be at least one definition specified either by using
// WithDefinition(), the def parameter to New(), or both.
func WithDefinition(def process.Definition) EngineOption {
	return func(opts *engineOptions) {
		for _, d := range opts.Definitions {
			if d.ID() == def.ID() {
				panic(fmt.Sprintf(
					"can not host two definitions with the ID %s",
					def.ID(),
				))
			}
		}

		opts.Definitions = append(opts.Definitions, def)
	}
}

// WithHandler returns an engine option that registers a work item handler
// with the engine.
//
// The engine always registers its own human task handler; additional
// handlers serve the other work item names produced by the hosted
// definitions.
func WithHandler(h handler.Handler) EngineOption {
	return func(opts *engineOptions) {
		opts.Handlers = append(opts.Handlers, h)
	}
}

// WithListener returns an engine option that registers a listener for user
// task lifecycle events.
func WithListener(l usertask.Listener) EngineOption {
	return func(opts *engineOptions) {
		opts.Listeners = append(opts.Listeners, l)
	}
}

// WithProcessStorage returns an engine option that sets the opener used to
// obtain the process instance store for each hosted definition.
//
// If this option is omitted or o is nil, instances are stored in memory.
func WithProcessStorage(o ProcessStoreOpener) EngineOption {
	return func(opts *engineOptions) {
		opts.ProcessStorage = o
	}
}

// WithTaskStorage returns an engine option that sets the opener used to
// obtain the user task instance store.
//
// If this option is omitted or o is nil, instances are stored in memory.
func WithTaskStorage(o TaskStoreOpener) EngineOption {
	return func(opts *engineOptions) {
		opts.TaskStorage = o
	}
}

// WithConcurrencyLimit returns an engine option that limits the number of
// process instances that will be operated on at the same time during a
// broadcast.
//
// If this option is omitted or n is non-positive DefaultConcurrencyLimit is
// used.
func WithConcurrencyLimit(n uint) EngineOption {
	return func(opts *engineOptions) {
		opts.ConcurrencyLimit = n
	}
}

// WithDeadlineBackoff returns an engine option that sets the backoff
// strategy used to delay redelivery of task deadlines after a failure.
//
// If this option is omitted or s is nil timer.DefaultBackoff is used.
func WithDeadlineBackoff(s backoff.Strategy) EngineOption {
	return func(opts *engineOptions) {
		opts.DeadlineBackoff = s
	}
}

// WithLogger returns an engine option that sets the target for log messages
// produced by the engine.
//
// If this option is omitted or l is nil DefaultLogger is used.
func WithLogger(l logging.Logger) EngineOption {
	return func(opts *engineOptions) {
		opts.Logger = l
	}
}

// engineOptions is a container for a fully-resolved set of engine options.
type engineOptions struct {
	Definitions      []process.Definition
	Handlers         []handler.Handler
	Listeners        []usertask.Listener
	ProcessStorage   ProcessStoreOpener
	TaskStorage      TaskStoreOpener
	ConcurrencyLimit uint
	DeadlineBackoff  backoff.Strategy
	Logger           logging.Logger
}

// resolveEngineOptions returns a fully-populated set of engine options built
// from the given set of option functions.
func resolveEngineOptions(options ...EngineOption) *engineOptions {
	opts := &engineOptions{}

	for _, o := range options {
		o(opts)
	}

	if len(opts.Definitions) == 0 {
		panic("no definitions configured, see enact.WithDefinition()")
	}

	if opts.ProcessStorage == nil {
		p := memory.New[*process.Instance]()
		opts.ProcessStorage = func(
			ctx context.Context,
			definitionID string,
			_ persistence.Codec[*process.Instance],
		) (persistence.Store[*process.Instance], error) {
			return p.Open(ctx, definitionID)
		}
	}

	if opts.TaskStorage == nil {
		p := memory.New[*usertask.Instance]()
		opts.TaskStorage = func(
			ctx context.Context,
			scope string,
			_ persistence.Codec[*usertask.Instance],
		) (persistence.Store[*usertask.Instance], error) {
			return p.Open(ctx, scope)
		}
	}

	if opts.ConcurrencyLimit == 0 {
		opts.ConcurrencyLimit = DefaultConcurrencyLimit
	}

	if opts.Logger == nil {
		opts.Logger = DefaultLogger
	}

	return opts
}
