package tools

import (
	"context"
	"encoding/base64"
	"unicode/utf8"

	"dbxmcp/internal/domain"
)

func listFolder(ctx context.Context, backend domain.Backend, args map[string]any) domain.Result {
	path, err := optStringArg(args, "path", "")
	if err != nil {
		return domain.FailureFrom(err)
	}
	recursive, err := optBoolArg(args, "recursive", false)
	if err != nil {
		return domain.FailureFrom(err)
	}
	limit, err := optIntArg(args, "limit", domain.DefaultListLimit)
	if err != nil {
		return domain.FailureFrom(err)
	}
	if limit <= 0 {
		limit = domain.DefaultListLimit
	}

	pageSize := limit
	if pageSize > domain.MaxListPageSize {
		pageSize = domain.MaxListPageSize
	}

	entries := make([]map[string]any, 0, limit)
	page, err := backend.ListFolder(ctx, path, recursive, pageSize)
	for pages := 1; ; pages++ {
		if err != nil {
			return backendFailure(err)
		}
		for _, entry := range page.Entries {
			if len(entries) >= limit {
				break
			}
			entries = append(entries, entryInfo(entry, true))
		}
		// One termination check per page: the ceiling and backend
		// exhaustion are evaluated together so a limit landing exactly on
		// a page boundary never fetches an extra page.
		if len(entries) >= limit || !page.HasMore || pages >= domain.MaxListPages {
			break
		}
		page, err = backend.ListFolderContinue(ctx, page.Cursor)
	}

	displayPath := path
	if displayPath == "" {
		displayPath = "/"
	}
	return domain.Success(map[string]any{
		"path":    displayPath,
		"count":   len(entries),
		"entries": entries,
	})
}

func searchFiles(ctx context.Context, backend domain.Backend, args map[string]any) domain.Result {
	query, err := stringArg(args, "query")
	if err != nil {
		return domain.FailureFrom(err)
	}
	path, err := optStringArg(args, "path", "")
	if err != nil {
		return domain.FailureFrom(err)
	}
	extensions, err := optStringSliceArg(args, "file_extensions")
	if err != nil {
		return domain.FailureFrom(err)
	}
	maxResults, err := optIntArg(args, "max_results", domain.DefaultSearchResults)
	if err != nil {
		return domain.FailureFrom(err)
	}
	if maxResults <= 0 {
		maxResults = domain.DefaultSearchResults
	}
	if maxResults > domain.MaxSearchResults {
		maxResults = domain.MaxSearchResults
	}

	found, err := backend.Search(ctx, query, domain.SearchOptions{
		Path:           path,
		MaxResults:     maxResults,
		FileExtensions: extensions,
	})
	if err != nil {
		return backendFailure(err)
	}
	if len(found) > maxResults {
		found = found[:maxResults]
	}

	matches := make([]map[string]any, 0, len(found))
	for _, entry := range found {
		matches = append(matches, entryInfo(entry, false))
	}
	return domain.Success(map[string]any{
		"query":   query,
		"count":   len(matches),
		"matches": matches,
	})
}

func getFileMetadata(ctx context.Context, backend domain.Backend, args map[string]any) domain.Result {
	path, err := stringArg(args, "path")
	if err != nil {
		return domain.FailureFrom(err)
	}

	meta, err := backend.GetMetadata(ctx, path)
	if err != nil {
		return backendFailure(err)
	}

	fields := map[string]any{
		"name": meta.Name,
		"path": meta.PathDisplay,
		"type": string(meta.Type),
	}
	if meta.Type == domain.EntryFile {
		fields["size"] = meta.Size
		fields["size_human"] = formatSize(meta.Size)
		fields["modified"] = timestampOrNil(meta.ServerModified)
		fields["client_modified"] = timestampOrNil(meta.ClientModified)
		fields["rev"] = meta.Rev
		fields["content_hash"] = meta.ContentHash
		fields["is_downloadable"] = meta.IsDownloadable
	}
	return domain.Success(fields)
}

func downloadFile(ctx context.Context, backend domain.Backend, args map[string]any) domain.Result {
	path, err := stringArg(args, "path")
	if err != nil {
		return domain.FailureFrom(err)
	}
	asText, err := optBoolArg(args, "as_text", true)
	if err != nil {
		return domain.FailureFrom(err)
	}

	file, err := backend.Download(ctx, path)
	if err != nil {
		return backendFailure(err)
	}

	fields := map[string]any{
		"name": file.Meta.Name,
		"path": file.Meta.PathDisplay,
		"size": file.Meta.Size,
	}
	if asText && utf8.Valid(file.Data) {
		fields["content"] = string(file.Data)
		fields["encoding"] = "utf-8"
	} else {
		fields["content"] = base64.StdEncoding.EncodeToString(file.Data)
		fields["encoding"] = "base64"
		if asText {
			fields["note"] = "Binary file returned as base64"
		}
	}
	return domain.Success(fields)
}

func readTextFile(ctx context.Context, backend domain.Backend, args map[string]any) domain.Result {
	path, err := stringArg(args, "path")
	if err != nil {
		return domain.FailureFrom(err)
	}
	maxBytes, err := optIntArg(args, "max_bytes", domain.DefaultReadMaxBytes)
	if err != nil {
		return domain.FailureFrom(err)
	}
	if maxBytes <= 0 {
		maxBytes = domain.DefaultReadMaxBytes
	}

	file, err := backend.Download(ctx, path)
	if err != nil {
		return backendFailure(err)
	}

	data := file.Data
	truncated := len(data) > maxBytes
	if truncated {
		data = data[:maxBytes]
	}

	var text string
	if utf8.Valid(data) {
		text = string(data)
	} else {
		text = decodeLatin1(data)
	}

	return domain.Success(map[string]any{
		"name":       file.Meta.Name,
		"path":       file.Meta.PathDisplay,
		"size":       file.Meta.Size,
		"content":    text,
		"truncated":  truncated,
		"bytes_read": len(data),
	})
}

func uploadFile(ctx context.Context, backend domain.Backend, args map[string]any) domain.Result {
	path, err := stringArg(args, "path")
	if err != nil {
		return domain.FailureFrom(err)
	}
	content, err := stringArg(args, "content")
	if err != nil {
		return domain.FailureFrom(err)
	}
	isBase64, err := optBoolArg(args, "is_base64", false)
	if err != nil {
		return domain.FailureFrom(err)
	}
	overwrite, err := optBoolArg(args, "overwrite", true)
	if err != nil {
		return domain.FailureFrom(err)
	}

	var data []byte
	if isBase64 {
		data, err = base64.StdEncoding.DecodeString(content)
		if err != nil {
			return domain.Failuref("invalid base64 content: %v", err)
		}
	} else {
		data = []byte(content)
	}

	mode := domain.WriteModeOverwrite
	if !overwrite {
		mode = domain.WriteModeAdd
	}

	meta, err := backend.Upload(ctx, path, data, mode)
	if err != nil {
		return backendFailure(err)
	}
	return domain.Success(map[string]any{
		"name":       meta.Name,
		"path":       meta.PathDisplay,
		"size":       meta.Size,
		"size_human": formatSize(meta.Size),
		"rev":        meta.Rev,
	})
}

func createFolder(ctx context.Context, backend domain.Backend, args map[string]any) domain.Result {
	path, err := stringArg(args, "path")
	if err != nil {
		return domain.FailureFrom(err)
	}

	meta, err := backend.CreateFolder(ctx, path)
	if err != nil {
		// Folder creation is idempotent from the caller's point of view:
		// an existing folder is informational, not an error.
		if domain.IsFault(err, domain.FaultConflict) {
			return domain.Success(map[string]any{
				"message": "Folder already exists",
				"path":    path,
			})
		}
		return backendFailure(err)
	}
	return domain.Success(map[string]any{
		"name": meta.Name,
		"path": meta.PathDisplay,
	})
}

// entryInfo renders one listing entry. Listing rows truncate the content
// hash for readability; full hashes come from get_file_metadata.
func entryInfo(entry domain.Entry, truncateHash bool) map[string]any {
	info := map[string]any{
		"name": entry.Name,
		"path": entry.PathDisplay,
		"type": string(entry.Type),
	}
	if entry.Type != domain.EntryFile {
		return info
	}
	info["size"] = entry.Size
	info["size_human"] = formatSize(entry.Size)
	info["modified"] = timestampOrNil(entry.ServerModified)
	if truncateHash {
		if entry.ContentHash == "" {
			info["content_hash"] = nil
		} else if len(entry.ContentHash) > 16 {
			info["content_hash"] = entry.ContentHash[:16] + "..."
		} else {
			info["content_hash"] = entry.ContentHash
		}
	}
	return info
}

// decodeLatin1 widens each byte to its code point, yielding valid text
// for content that is not UTF-8.
func decodeLatin1(data []byte) string {
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}
