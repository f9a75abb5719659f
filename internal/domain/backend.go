package domain

import (
	"context"
	"time"
)

// EntryType discriminates files from folders in listings and metadata.
type EntryType string

const (
	EntryFile   EntryType = "file"
	EntryFolder EntryType = "folder"
)

// Entry is normalized metadata for a file or folder as reported by the
// storage backend. Size, timestamps, Rev and ContentHash are only
// meaningful for files; folders leave them at their zero values.
type Entry struct {
	Name           string
	PathDisplay    string
	Type           EntryType
	Size           int64
	ServerModified time.Time
	ClientModified time.Time
	Rev            string
	ContentHash    string
	IsDownloadable bool
}

// Page is one page of a folder listing together with the continuation
// cursor needed to fetch the next one.
type Page struct {
	Entries []Entry
	Cursor  string
	HasMore bool
}

// SearchOptions narrows a backend search.
type SearchOptions struct {
	Path           string
	MaxResults     int
	FileExtensions []string
}

// FileContent is a downloaded file: its metadata plus raw bytes.
type FileContent struct {
	Meta Entry
	Data []byte
}

// WriteMode selects overwrite-vs-conflict behaviour for uploads.
type WriteMode string

const (
	WriteModeOverwrite WriteMode = "overwrite"
	WriteModeAdd       WriteMode = "add"
)

// SharedLink is a shared link to a file or folder.
type SharedLink struct {
	URL       string
	PathLower string
}

// Revision is one historical version of a file.
type Revision struct {
	Rev            string
	Size           int64
	ServerModified time.Time
}

// SpaceUsage reports account storage consumption. Allocated == 0 means
// the allocation ceiling is unknown (unlimited plan).
type SpaceUsage struct {
	Used      int64
	Allocated int64
}

// Account identifies the authenticated storage account.
type Account struct {
	AccountID   string
	DisplayName string
	Email       string
	AccountType string
	Team        string
}

// Backend is the injected capability performing real remote-storage
// operations. Every implementation surfaces provider-side errors as a
// *BackendError so callers can branch on the fault kind. Paths are opaque
// strings passed through untouched.
type Backend interface {
	ListFolder(ctx context.Context, path string, recursive bool, limit int) (Page, error)
	ListFolderContinue(ctx context.Context, cursor string) (Page, error)
	Search(ctx context.Context, query string, opts SearchOptions) ([]Entry, error)
	GetMetadata(ctx context.Context, path string) (Entry, error)
	Download(ctx context.Context, path string) (FileContent, error)
	Upload(ctx context.Context, path string, data []byte, mode WriteMode) (Entry, error)
	CreateFolder(ctx context.Context, path string) (Entry, error)
	Move(ctx context.Context, fromPath, toPath string) (Entry, error)
	Copy(ctx context.Context, fromPath, toPath string) (Entry, error)
	Delete(ctx context.Context, path string) (Entry, error)
	ListSharedLinks(ctx context.Context, path string) ([]SharedLink, error)
	CreateSharedLink(ctx context.Context, path string) (SharedLink, error)
	ListRevisions(ctx context.Context, path string, limit int) ([]Revision, error)
	SpaceUsage(ctx context.Context) (SpaceUsage, error)
	CurrentAccount(ctx context.Context) (Account, error)
}
