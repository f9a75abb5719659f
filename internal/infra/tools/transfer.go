package tools

import (
	"context"

	"dbxmcp/internal/domain"
)

func moveFile(ctx context.Context, backend domain.Backend, args map[string]any) domain.Result {
	fromPath, err := stringArg(args, "from_path")
	if err != nil {
		return domain.FailureFrom(err)
	}
	toPath, err := stringArg(args, "to_path")
	if err != nil {
		return domain.FailureFrom(err)
	}

	meta, err := backend.Move(ctx, fromPath, toPath)
	if err != nil {
		return backendFailure(err)
	}
	return domain.Success(map[string]any{
		"from_path": fromPath,
		"to_path":   meta.PathDisplay,
	})
}

func copyFile(ctx context.Context, backend domain.Backend, args map[string]any) domain.Result {
	fromPath, err := stringArg(args, "from_path")
	if err != nil {
		return domain.FailureFrom(err)
	}
	toPath, err := stringArg(args, "to_path")
	if err != nil {
		return domain.FailureFrom(err)
	}

	meta, err := backend.Copy(ctx, fromPath, toPath)
	if err != nil {
		return backendFailure(err)
	}
	return domain.Success(map[string]any{
		"from_path": fromPath,
		"to_path":   meta.PathDisplay,
	})
}

func deleteFile(ctx context.Context, backend domain.Backend, args map[string]any) domain.Result {
	path, err := stringArg(args, "path")
	if err != nil {
		return domain.FailureFrom(err)
	}

	meta, err := backend.Delete(ctx, path)
	if err != nil {
		return backendFailure(err)
	}
	return domain.Success(map[string]any{
		"deleted_path": meta.PathDisplay,
		"note":         "File moved to trash - can be recovered from Dropbox",
	})
}
