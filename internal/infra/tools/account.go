package tools

import (
	"context"
	"math"

	"dbxmcp/internal/domain"
)

func getSpaceUsage(ctx context.Context, backend domain.Backend, args map[string]any) domain.Result {
	usage, err := backend.SpaceUsage(ctx)
	if err != nil {
		return backendFailure(err)
	}

	fields := map[string]any{
		"used":       usage.Used,
		"used_human": formatSize(usage.Used),
	}
	if usage.Allocated > 0 {
		percent := float64(usage.Used) / float64(usage.Allocated) * 100
		fields["allocated"] = usage.Allocated
		fields["allocated_human"] = formatSize(usage.Allocated)
		fields["percent_used"] = math.Round(percent*100) / 100
	} else {
		// Unlimited plan: no ceiling to divide by.
		fields["allocated"] = nil
		fields["allocated_human"] = "Unlimited"
		fields["percent_used"] = nil
	}
	return domain.Success(fields)
}

func testConnection(ctx context.Context, backend domain.Backend, args map[string]any) domain.Result {
	account, err := backend.CurrentAccount(ctx)
	if err != nil {
		// Credential problems get called out so callers can react
		// differently from transient provider errors.
		if domain.IsFault(err, domain.FaultAuth) {
			return domain.Failuref("Authentication failed: %v", err)
		}
		return backendFailure(err)
	}

	var team any
	if account.Team != "" {
		team = account.Team
	}
	return domain.Success(map[string]any{
		"account_id":   account.AccountID,
		"name":         account.DisplayName,
		"email":        account.Email,
		"account_type": account.AccountType,
		"team":         team,
	})
}
