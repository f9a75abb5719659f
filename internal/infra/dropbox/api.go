package dropbox

import (
	"context"
	"encoding/json"
	"time"

	"dbxmcp/internal/domain"
)

// decodeHeaderMetadata parses the Dropbox-API-Result header payload that
// accompanies content downloads.
func decodeHeaderMetadata(raw []byte, out *metadataEnvelope) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return domain.BackendFault(domain.FaultOther, "files/download", "decode metadata header", err)
	}
	return nil
}

// metadataEnvelope is the union shape Dropbox uses for file and folder
// metadata, discriminated by ".tag".
type metadataEnvelope struct {
	Tag            string `json:".tag"`
	Name           string `json:"name"`
	PathDisplay    string `json:"path_display"`
	PathLower      string `json:"path_lower"`
	Size           int64  `json:"size"`
	ServerModified string `json:"server_modified"`
	ClientModified string `json:"client_modified"`
	Rev            string `json:"rev"`
	ContentHash    string `json:"content_hash"`
	IsDownloadable *bool  `json:"is_downloadable"`
}

func (m metadataEnvelope) toEntry() domain.Entry {
	entryType := domain.EntryFile
	if m.Tag == "folder" {
		entryType = domain.EntryFolder
	}
	downloadable := true
	if m.IsDownloadable != nil {
		downloadable = *m.IsDownloadable
	}
	return domain.Entry{
		Name:           m.Name,
		PathDisplay:    m.PathDisplay,
		Type:           entryType,
		Size:           m.Size,
		ServerModified: parseTime(m.ServerModified),
		ClientModified: parseTime(m.ClientModified),
		Rev:            m.Rev,
		ContentHash:    m.ContentHash,
		IsDownloadable: downloadable,
	}
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return ts
}

type listFolderResult struct {
	Entries []metadataEnvelope `json:"entries"`
	Cursor  string             `json:"cursor"`
	HasMore bool               `json:"has_more"`
}

func (r listFolderResult) toPage() domain.Page {
	entries := make([]domain.Entry, 0, len(r.Entries))
	for _, entry := range r.Entries {
		entries = append(entries, entry.toEntry())
	}
	return domain.Page{Entries: entries, Cursor: r.Cursor, HasMore: r.HasMore}
}

func (c *Client) ListFolder(ctx context.Context, path string, recursive bool, limit int) (domain.Page, error) {
	if limit <= 0 || limit > domain.MaxListPageSize {
		limit = domain.MaxListPageSize
	}
	var result listFolderResult
	err := c.rpc(ctx, "files/list_folder", map[string]any{
		"path":      path,
		"recursive": recursive,
		"limit":     limit,
	}, &result)
	if err != nil {
		return domain.Page{}, err
	}
	return result.toPage(), nil
}

func (c *Client) ListFolderContinue(ctx context.Context, cursor string) (domain.Page, error) {
	var result listFolderResult
	err := c.rpc(ctx, "files/list_folder/continue", map[string]any{
		"cursor": cursor,
	}, &result)
	if err != nil {
		return domain.Page{}, err
	}
	return result.toPage(), nil
}

func (c *Client) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.Entry, error) {
	options := map[string]any{
		"max_results": opts.MaxResults,
	}
	if opts.Path != "" {
		options["path"] = opts.Path
	}
	if len(opts.FileExtensions) > 0 {
		options["file_extensions"] = opts.FileExtensions
	}

	var result struct {
		Matches []struct {
			Metadata struct {
				Metadata metadataEnvelope `json:"metadata"`
			} `json:"metadata"`
		} `json:"matches"`
	}
	err := c.rpc(ctx, "files/search_v2", map[string]any{
		"query":   query,
		"options": options,
	}, &result)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.Entry, 0, len(result.Matches))
	for _, match := range result.Matches {
		entries = append(entries, match.Metadata.Metadata.toEntry())
	}
	return entries, nil
}

func (c *Client) GetMetadata(ctx context.Context, path string) (domain.Entry, error) {
	var result metadataEnvelope
	err := c.rpc(ctx, "files/get_metadata", map[string]any{
		"path":                               path,
		"include_has_explicit_shared_members": true,
	}, &result)
	if err != nil {
		return domain.Entry{}, err
	}
	return result.toEntry(), nil
}

func (c *Client) Download(ctx context.Context, path string) (domain.FileContent, error) {
	metaJSON, data, err := c.contentDownload(ctx, "files/download", map[string]any{
		"path": path,
	})
	if err != nil {
		return domain.FileContent{}, err
	}

	meta := metadataEnvelope{Tag: "file"}
	if len(metaJSON) > 0 {
		if err := decodeHeaderMetadata(metaJSON, &meta); err != nil {
			return domain.FileContent{}, err
		}
	}
	return domain.FileContent{Meta: meta.toEntry(), Data: data}, nil
}

func (c *Client) Upload(ctx context.Context, path string, data []byte, mode domain.WriteMode) (domain.Entry, error) {
	var result metadataEnvelope
	err := c.contentUpload(ctx, "files/upload", map[string]any{
		"path": path,
		"mode": string(mode),
	}, data, &result)
	if err != nil {
		return domain.Entry{}, err
	}
	result.Tag = "file"
	return result.toEntry(), nil
}

func (c *Client) CreateFolder(ctx context.Context, path string) (domain.Entry, error) {
	var result struct {
		Metadata metadataEnvelope `json:"metadata"`
	}
	err := c.rpc(ctx, "files/create_folder_v2", map[string]any{
		"path": path,
	}, &result)
	if err != nil {
		return domain.Entry{}, err
	}
	result.Metadata.Tag = "folder"
	return result.Metadata.toEntry(), nil
}

func (c *Client) Move(ctx context.Context, fromPath, toPath string) (domain.Entry, error) {
	return c.relocate(ctx, "files/move_v2", fromPath, toPath)
}

func (c *Client) Copy(ctx context.Context, fromPath, toPath string) (domain.Entry, error) {
	return c.relocate(ctx, "files/copy_v2", fromPath, toPath)
}

func (c *Client) relocate(ctx context.Context, endpoint, fromPath, toPath string) (domain.Entry, error) {
	var result struct {
		Metadata metadataEnvelope `json:"metadata"`
	}
	err := c.rpc(ctx, endpoint, map[string]any{
		"from_path": fromPath,
		"to_path":   toPath,
	}, &result)
	if err != nil {
		return domain.Entry{}, err
	}
	return result.Metadata.toEntry(), nil
}

func (c *Client) Delete(ctx context.Context, path string) (domain.Entry, error) {
	var result struct {
		Metadata metadataEnvelope `json:"metadata"`
	}
	err := c.rpc(ctx, "files/delete_v2", map[string]any{
		"path": path,
	}, &result)
	if err != nil {
		return domain.Entry{}, err
	}
	return result.Metadata.toEntry(), nil
}

func (c *Client) ListSharedLinks(ctx context.Context, path string) ([]domain.SharedLink, error) {
	var result struct {
		Links []struct {
			URL       string `json:"url"`
			PathLower string `json:"path_lower"`
		} `json:"links"`
	}
	err := c.rpc(ctx, "sharing/list_shared_links", map[string]any{
		"path":        path,
		"direct_only": true,
	}, &result)
	if err != nil {
		return nil, err
	}

	links := make([]domain.SharedLink, 0, len(result.Links))
	for _, link := range result.Links {
		links = append(links, domain.SharedLink{URL: link.URL, PathLower: link.PathLower})
	}
	return links, nil
}

func (c *Client) CreateSharedLink(ctx context.Context, path string) (domain.SharedLink, error) {
	var result struct {
		URL       string `json:"url"`
		PathLower string `json:"path_lower"`
	}
	err := c.rpc(ctx, "sharing/create_shared_link_with_settings", map[string]any{
		"path": path,
		"settings": map[string]any{
			"requested_visibility": "public",
		},
	}, &result)
	if err != nil {
		return domain.SharedLink{}, err
	}
	return domain.SharedLink{URL: result.URL, PathLower: result.PathLower}, nil
}

func (c *Client) ListRevisions(ctx context.Context, path string, limit int) ([]domain.Revision, error) {
	if limit <= 0 {
		limit = domain.DefaultRevisionLimit
	}
	var result struct {
		Entries []metadataEnvelope `json:"entries"`
	}
	err := c.rpc(ctx, "files/list_revisions", map[string]any{
		"path":  path,
		"limit": limit,
	}, &result)
	if err != nil {
		return nil, err
	}

	revisions := make([]domain.Revision, 0, len(result.Entries))
	for _, entry := range result.Entries {
		revisions = append(revisions, domain.Revision{
			Rev:            entry.Rev,
			Size:           entry.Size,
			ServerModified: parseTime(entry.ServerModified),
		})
	}
	return revisions, nil
}

func (c *Client) SpaceUsage(ctx context.Context) (domain.SpaceUsage, error) {
	var result struct {
		Used       int64 `json:"used"`
		Allocation struct {
			Tag       string `json:".tag"`
			Allocated int64  `json:"allocated"`
		} `json:"allocation"`
	}
	if err := c.rpc(ctx, "users/get_space_usage", nil, &result); err != nil {
		return domain.SpaceUsage{}, err
	}
	return domain.SpaceUsage{Used: result.Used, Allocated: result.Allocation.Allocated}, nil
}

func (c *Client) CurrentAccount(ctx context.Context) (domain.Account, error) {
	var result struct {
		AccountID string `json:"account_id"`
		Name      struct {
			DisplayName string `json:"display_name"`
		} `json:"name"`
		Email       string `json:"email"`
		AccountType struct {
			Tag string `json:".tag"`
		} `json:"account_type"`
		Team *struct {
			Name string `json:"name"`
		} `json:"team"`
	}
	if err := c.rpc(ctx, "users/get_current_account", nil, &result); err != nil {
		return domain.Account{}, err
	}

	account := domain.Account{
		AccountID:   result.AccountID,
		DisplayName: result.Name.DisplayName,
		Email:       result.Email,
		AccountType: result.AccountType.Tag,
	}
	if result.Team != nil {
		account.Team = result.Team.Name
	}
	return account, nil
}
