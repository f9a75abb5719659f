package tools

import (
	"context"

	"dbxmcp/internal/domain"
)

func getSharedLink(ctx context.Context, backend domain.Backend, args map[string]any) domain.Result {
	path, err := stringArg(args, "path")
	if err != nil {
		return domain.FailureFrom(err)
	}
	createIfMissing, err := optBoolArg(args, "create_if_missing", true)
	if err != nil {
		return domain.FailureFrom(err)
	}

	// Reuse before create. A lookup failure is surfaced rather than
	// papered over with a fresh link.
	links, err := backend.ListSharedLinks(ctx, path)
	if err != nil {
		return backendFailure(err)
	}
	if len(links) > 0 {
		return domain.Success(map[string]any{
			"url":      links[0].URL,
			"path":     links[0].PathLower,
			"existing": true,
		})
	}

	if createIfMissing {
		link, err := backend.CreateSharedLink(ctx, path)
		if err != nil {
			return backendFailure(err)
		}
		return domain.Success(map[string]any{
			"url":      link.URL,
			"path":     link.PathLower,
			"existing": false,
		})
	}

	return domain.Failure("no existing shared link found")
}

func listRevisions(ctx context.Context, backend domain.Backend, args map[string]any) domain.Result {
	path, err := stringArg(args, "path")
	if err != nil {
		return domain.FailureFrom(err)
	}
	limit, err := optIntArg(args, "limit", domain.DefaultRevisionLimit)
	if err != nil {
		return domain.FailureFrom(err)
	}
	if limit <= 0 {
		limit = domain.DefaultRevisionLimit
	}

	found, err := backend.ListRevisions(ctx, path, limit)
	if err != nil {
		return backendFailure(err)
	}
	if len(found) > limit {
		found = found[:limit]
	}

	revisions := make([]map[string]any, 0, len(found))
	for _, rev := range found {
		revisions = append(revisions, map[string]any{
			"rev":        rev.Rev,
			"size":       rev.Size,
			"size_human": formatSize(rev.Size),
			"modified":   timestampOrNil(rev.ServerModified),
		})
	}
	return domain.Success(map[string]any{
		"path":      path,
		"count":     len(revisions),
		"revisions": revisions,
	})
}
