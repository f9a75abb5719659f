// Package tools implements the gateway's operation catalog: one handler
// per advertised tool, plus the dispatcher that routes named invocations
// to them. Handlers never let a backend fault escape; every outcome is a
// tagged Result envelope.
package tools

import (
	"context"
	"time"

	"go.uber.org/zap"

	"dbxmcp/internal/domain"
)

// Handler executes one tool against the backend. Implementations extract
// their own named arguments from the generic mapping.
type Handler func(ctx context.Context, backend domain.Backend, args map[string]any) domain.Result

// Dispatcher routes a tool name plus raw arguments to its handler. It is
// the single fault-containment boundary for operation execution: unknown
// names and recovered panics both come back as failure envelopes, never
// as faults.
type Dispatcher struct {
	backend  domain.Backend
	handlers map[string]Handler
	logger   *zap.Logger
	metrics  domain.Metrics
}

type DispatcherOptions struct {
	Logger  *zap.Logger
	Metrics domain.Metrics
}

func NewDispatcher(backend domain.Backend, opts DispatcherOptions) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		backend: backend,
		handlers: map[string]Handler{
			"list_folder":       listFolder,
			"search_files":      searchFiles,
			"get_file_metadata": getFileMetadata,
			"download_file":     downloadFile,
			"read_text_file":    readTextFile,
			"upload_file":       uploadFile,
			"create_folder":     createFolder,
			"move_file":         moveFile,
			"copy_file":         copyFile,
			"delete_file":       deleteFile,
			"get_shared_link":   getSharedLink,
			"list_revisions":    listRevisions,
			"get_space_usage":   getSpaceUsage,
			"test_connection":   testConnection,
		},
		logger:  logger.Named("dispatch"),
		metrics: opts.Metrics,
	}
}

// Dispatch runs the named tool. Exactly one backend attempt per call;
// retry policy belongs to the backend, not here.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args map[string]any) (result domain.Result) {
	handler, ok := d.handlers[name]
	if !ok {
		return domain.Failuref("unknown operation: %s", name)
	}

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error("tool panicked",
				zap.String("tool", name),
				zap.Any("panic", rec),
			)
			result = domain.Failuref("%s failed: %v", name, rec)
		}
		if d.metrics != nil {
			d.metrics.ObserveToolCall(name, time.Since(start), result.OK())
		}
	}()

	if args == nil {
		args = map[string]any{}
	}
	result = handler(ctx, d.backend, args)

	if !result.OK() {
		d.logger.Warn("tool failed",
			zap.String("tool", name),
			zap.String("error", result.ErrorMessage()),
			zap.Duration("duration", time.Since(start)),
		)
	} else {
		d.logger.Debug("tool succeeded",
			zap.String("tool", name),
			zap.Duration("duration", time.Since(start)),
		)
	}
	return result
}

// backendFailure normalizes a backend fault into a failure envelope.
func backendFailure(err error) domain.Result {
	return domain.FailureFrom(err)
}
