package tools

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbxmcp/internal/domain"
)

// fakeBackend implements domain.Backend with overridable function fields.
// Unset operations return zero values.
type fakeBackend struct {
	listFolder         func(ctx context.Context, path string, recursive bool, limit int) (domain.Page, error)
	listFolderContinue func(ctx context.Context, cursor string) (domain.Page, error)
	search             func(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.Entry, error)
	getMetadata        func(ctx context.Context, path string) (domain.Entry, error)
	download           func(ctx context.Context, path string) (domain.FileContent, error)
	upload             func(ctx context.Context, path string, data []byte, mode domain.WriteMode) (domain.Entry, error)
	createFolder       func(ctx context.Context, path string) (domain.Entry, error)
	move               func(ctx context.Context, fromPath, toPath string) (domain.Entry, error)
	copyEntry          func(ctx context.Context, fromPath, toPath string) (domain.Entry, error)
	deleteEntry        func(ctx context.Context, path string) (domain.Entry, error)
	listSharedLinks    func(ctx context.Context, path string) ([]domain.SharedLink, error)
	createSharedLink   func(ctx context.Context, path string) (domain.SharedLink, error)
	listRevisions      func(ctx context.Context, path string, limit int) ([]domain.Revision, error)
	spaceUsage         func(ctx context.Context) (domain.SpaceUsage, error)
	currentAccount     func(ctx context.Context) (domain.Account, error)
}

func (f *fakeBackend) ListFolder(ctx context.Context, path string, recursive bool, limit int) (domain.Page, error) {
	if f.listFolder == nil {
		return domain.Page{}, nil
	}
	return f.listFolder(ctx, path, recursive, limit)
}

func (f *fakeBackend) ListFolderContinue(ctx context.Context, cursor string) (domain.Page, error) {
	if f.listFolderContinue == nil {
		return domain.Page{}, nil
	}
	return f.listFolderContinue(ctx, cursor)
}

func (f *fakeBackend) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.Entry, error) {
	if f.search == nil {
		return nil, nil
	}
	return f.search(ctx, query, opts)
}

func (f *fakeBackend) GetMetadata(ctx context.Context, path string) (domain.Entry, error) {
	if f.getMetadata == nil {
		return domain.Entry{}, nil
	}
	return f.getMetadata(ctx, path)
}

func (f *fakeBackend) Download(ctx context.Context, path string) (domain.FileContent, error) {
	if f.download == nil {
		return domain.FileContent{}, nil
	}
	return f.download(ctx, path)
}

func (f *fakeBackend) Upload(ctx context.Context, path string, data []byte, mode domain.WriteMode) (domain.Entry, error) {
	if f.upload == nil {
		return domain.Entry{}, nil
	}
	return f.upload(ctx, path, data, mode)
}

func (f *fakeBackend) CreateFolder(ctx context.Context, path string) (domain.Entry, error) {
	if f.createFolder == nil {
		return domain.Entry{}, nil
	}
	return f.createFolder(ctx, path)
}

func (f *fakeBackend) Move(ctx context.Context, fromPath, toPath string) (domain.Entry, error) {
	if f.move == nil {
		return domain.Entry{}, nil
	}
	return f.move(ctx, fromPath, toPath)
}

func (f *fakeBackend) Copy(ctx context.Context, fromPath, toPath string) (domain.Entry, error) {
	if f.copyEntry == nil {
		return domain.Entry{}, nil
	}
	return f.copyEntry(ctx, fromPath, toPath)
}

func (f *fakeBackend) Delete(ctx context.Context, path string) (domain.Entry, error) {
	if f.deleteEntry == nil {
		return domain.Entry{}, nil
	}
	return f.deleteEntry(ctx, path)
}

func (f *fakeBackend) ListSharedLinks(ctx context.Context, path string) ([]domain.SharedLink, error) {
	if f.listSharedLinks == nil {
		return nil, nil
	}
	return f.listSharedLinks(ctx, path)
}

func (f *fakeBackend) CreateSharedLink(ctx context.Context, path string) (domain.SharedLink, error) {
	if f.createSharedLink == nil {
		return domain.SharedLink{}, nil
	}
	return f.createSharedLink(ctx, path)
}

func (f *fakeBackend) ListRevisions(ctx context.Context, path string, limit int) ([]domain.Revision, error) {
	if f.listRevisions == nil {
		return nil, nil
	}
	return f.listRevisions(ctx, path, limit)
}

func (f *fakeBackend) SpaceUsage(ctx context.Context) (domain.SpaceUsage, error) {
	if f.spaceUsage == nil {
		return domain.SpaceUsage{}, nil
	}
	return f.spaceUsage(ctx)
}

func (f *fakeBackend) CurrentAccount(ctx context.Context) (domain.Account, error) {
	if f.currentAccount == nil {
		return domain.Account{}, nil
	}
	return f.currentAccount(ctx)
}

var _ domain.Backend = (*fakeBackend)(nil)

type recordedCall struct {
	tool string
	ok   bool
}

type recordingMetrics struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (r *recordingMetrics) ObserveRequest(method string, duration time.Duration, errCode int64) {}

func (r *recordingMetrics) ObserveToolCall(tool string, duration time.Duration, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recordedCall{tool: tool, ok: ok})
}

func TestDispatchUnknownOperation(t *testing.T) {
	dispatcher := NewDispatcher(&fakeBackend{}, DispatcherOptions{})

	result := dispatcher.Dispatch(context.Background(), "bogus_tool", nil)

	require.False(t, result.OK())
	assert.Equal(t, "unknown operation: bogus_tool", result.ErrorMessage())
}

func TestDispatchKnownOperations(t *testing.T) {
	dispatcher := NewDispatcher(&fakeBackend{}, DispatcherOptions{})

	for _, name := range []string{
		"list_folder", "search_files", "get_file_metadata", "download_file",
		"read_text_file", "upload_file", "create_folder", "move_file",
		"copy_file", "delete_file", "get_shared_link", "list_revisions",
		"get_space_usage", "test_connection",
	} {
		t.Run(name, func(t *testing.T) {
			_, registered := dispatcher.handlers[name]
			assert.True(t, registered)
		})
	}
	assert.Len(t, dispatcher.handlers, 14)
}

func TestDispatchRecoversPanic(t *testing.T) {
	dispatcher := NewDispatcher(&fakeBackend{
		spaceUsage: func(ctx context.Context) (domain.SpaceUsage, error) {
			panic("backend exploded")
		},
	}, DispatcherOptions{})

	result := dispatcher.Dispatch(context.Background(), "get_space_usage", nil)

	require.False(t, result.OK())
	assert.Contains(t, result.ErrorMessage(), "get_space_usage failed")
	assert.Contains(t, result.ErrorMessage(), "backend exploded")
}

func TestDispatchObservesMetrics(t *testing.T) {
	metrics := &recordingMetrics{}
	dispatcher := NewDispatcher(&fakeBackend{}, DispatcherOptions{Metrics: metrics})

	ok := dispatcher.Dispatch(context.Background(), "get_space_usage", nil)
	require.True(t, ok.OK())

	failed := dispatcher.Dispatch(context.Background(), "get_file_metadata", map[string]any{})
	require.False(t, failed.OK())

	require.Len(t, metrics.calls, 2)
	assert.Equal(t, recordedCall{tool: "get_space_usage", ok: true}, metrics.calls[0])
	assert.Equal(t, recordedCall{tool: "get_file_metadata", ok: false}, metrics.calls[1])
}

func TestDispatchNilArguments(t *testing.T) {
	dispatcher := NewDispatcher(&fakeBackend{}, DispatcherOptions{})

	result := dispatcher.Dispatch(context.Background(), "test_connection", nil)
	require.True(t, result.OK())
}
