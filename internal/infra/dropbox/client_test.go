package dropbox

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbxmcp/internal/domain"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Options{
		AccessToken: "test-token",
		APIBase:     server.URL,
		ContentBase: server.URL,
	})
	require.NoError(t, err)
	return client
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)

	_, err = New(Options{AccessToken: "tok"})
	require.NoError(t, err)

	// A partial refresh triple is not enough.
	_, err = New(Options{RefreshToken: "r", AppKey: "k"})
	require.Error(t, err)

	_, err = New(Options{RefreshToken: "r", AppKey: "k", AppSecret: "s"})
	require.NoError(t, err)
}

func TestListFolder(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/2/files/list_folder", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var params map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		assert.Equal(t, "/docs", params["path"])
		assert.Equal(t, false, params["recursive"])
		assert.Equal(t, float64(25), params["limit"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"entries": []map[string]any{
				{
					".tag":            "file",
					"name":            "report.pdf",
					"path_display":    "/docs/report.pdf",
					"size":            2048,
					"server_modified": "2024-03-15T10:30:00Z",
					"rev":             "rev123",
					"content_hash":    "hash456",
				},
				{".tag": "folder", "name": "archive", "path_display": "/docs/archive"},
			},
			"cursor":   "cursor-abc",
			"has_more": true,
		})
	}))

	page, err := client.ListFolder(context.Background(), "/docs", false, 25)
	require.NoError(t, err)

	require.Len(t, page.Entries, 2)
	assert.Equal(t, "report.pdf", page.Entries[0].Name)
	assert.Equal(t, domain.EntryFile, page.Entries[0].Type)
	assert.Equal(t, int64(2048), page.Entries[0].Size)
	assert.Equal(t, "rev123", page.Entries[0].Rev)
	assert.True(t, page.Entries[0].IsDownloadable)
	assert.Equal(t, domain.EntryFolder, page.Entries[1].Type)
	assert.Equal(t, "cursor-abc", page.Cursor)
	assert.True(t, page.HasMore)
}

func TestListFolderCapsLimit(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var params map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		assert.Equal(t, float64(domain.MaxListPageSize), params["limit"])
		_ = json.NewEncoder(w).Encode(map[string]any{"entries": []any{}})
	}))

	_, err := client.ListFolder(context.Background(), "", false, 999999)
	require.NoError(t, err)
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		summary string
		want    domain.FaultKind
	}{
		{"unauthorized", http.StatusUnauthorized, "invalid_access_token/", domain.FaultAuth},
		{"expired", http.StatusBadRequest, "expired_access_token/..", domain.FaultAuth},
		{"rate limited", http.StatusTooManyRequests, "too_many_requests/..", domain.FaultRateLimited},
		{"not found", http.StatusConflict, "path/not_found/..", domain.FaultNotFound},
		{"conflict", http.StatusConflict, "path/conflict/folder/..", domain.FaultConflict},
		{"server error", http.StatusInternalServerError, "", domain.FaultOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(map[string]any{"error_summary": tt.summary})
			}))

			_, err := client.GetMetadata(context.Background(), "/x")
			require.Error(t, err)
			assert.Equal(t, tt.want, domain.FaultKindOf(err))
		})
	}
}

func TestTokenRefresh(t *testing.T) {
	var tokenRequests int
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		tokenRequests++
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.FormValue("grant_type"))
		assert.Equal(t, "refresh-xyz", r.FormValue("refresh_token"))

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "app-key", user)
		assert.Equal(t, "app-secret", pass)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "short-lived",
			"expires_in":   14400,
		})
	})
	mux.HandleFunc("/2/users/get_space_usage", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer short-lived", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"used":       100,
			"allocation": map[string]any{".tag": "individual", "allocated": 1000},
		})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := New(Options{
		RefreshToken: "refresh-xyz",
		AppKey:       "app-key",
		AppSecret:    "app-secret",
		APIBase:      server.URL,
		ContentBase:  server.URL,
	})
	require.NoError(t, err)

	usage, err := client.SpaceUsage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(100), usage.Used)
	assert.Equal(t, int64(1000), usage.Allocated)

	// The bearer is memoized; a second call must not refresh again.
	_, err = client.SpaceUsage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, tokenRequests)
}

func TestTokenRefreshFailureIsAuthFault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	t.Cleanup(server.Close)

	client, err := New(Options{
		RefreshToken: "bad",
		AppKey:       "k",
		AppSecret:    "s",
		APIBase:      server.URL,
	})
	require.NoError(t, err)

	_, err = client.CurrentAccount(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.FaultAuth, domain.FaultKindOf(err))
}

func TestDownload(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/2/files/download", r.URL.Path)

		var arg map[string]any
		require.NoError(t, json.Unmarshal([]byte(r.Header.Get("Dropbox-API-Arg")), &arg))
		assert.Equal(t, "/notes.txt", arg["path"])

		meta, _ := json.Marshal(map[string]any{
			".tag":         "file",
			"name":         "notes.txt",
			"path_display": "/notes.txt",
			"size":         5,
		})
		w.Header().Set("Dropbox-API-Result", string(meta))
		_, _ = w.Write([]byte("hello"))
	}))

	file, err := client.Download(context.Background(), "/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", file.Meta.Name)
	assert.Equal(t, []byte("hello"), file.Data)
}

func TestUpload(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/2/files/upload", r.URL.Path)
		require.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))

		var arg map[string]any
		require.NoError(t, json.Unmarshal([]byte(r.Header.Get("Dropbox-API-Arg")), &arg))
		assert.Equal(t, "/new.txt", arg["path"])
		assert.Equal(t, "add", arg["mode"])

		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, []byte("payload"), body)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"name":         "new.txt",
			"path_display": "/new.txt",
			"size":         7,
			"rev":          "rev-1",
		})
	}))

	entry, err := client.Upload(context.Background(), "/new.txt", []byte("payload"), domain.WriteModeAdd)
	require.NoError(t, err)
	assert.Equal(t, "new.txt", entry.Name)
	assert.Equal(t, int64(7), entry.Size)
	assert.Equal(t, domain.EntryFile, entry.Type)
}

func TestSearchUnwrapsNestedMetadata(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/2/files/search_v2", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"matches": []map[string]any{
				{
					"metadata": map[string]any{
						"metadata": map[string]any{
							".tag":         "file",
							"name":         "hit.txt",
							"path_display": "/hit.txt",
							"size":         10,
						},
					},
				},
			},
		})
	}))

	entries, err := client.Search(context.Background(), "hit", domain.SearchOptions{MaxResults: 5})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "hit.txt", entries[0].Name)
}

func TestCurrentAccount(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/2/users/get_current_account", r.URL.Path)

		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "null", string(body))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"account_id":   "dbid:abc",
			"name":         map[string]any{"display_name": "Ada"},
			"email":        "ada@example.com",
			"account_type": map[string]any{".tag": "pro"},
			"team":         map[string]any{"name": "Acme"},
		})
	}))

	account, err := client.CurrentAccount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "dbid:abc", account.AccountID)
	assert.Equal(t, "Ada", account.DisplayName)
	assert.Equal(t, "pro", account.AccountType)
	assert.Equal(t, "Acme", account.Team)
}
