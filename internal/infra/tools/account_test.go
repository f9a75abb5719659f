package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbxmcp/internal/domain"
)

func TestGetSpaceUsageWithAllocation(t *testing.T) {
	backend := &fakeBackend{
		spaceUsage: func(ctx context.Context) (domain.SpaceUsage, error) {
			return domain.SpaceUsage{Used: 512 * 1024 * 1024, Allocated: 2 * 1024 * 1024 * 1024}, nil
		},
	}

	result := getSpaceUsage(context.Background(), backend, nil)

	require.True(t, result.OK())
	assert.Equal(t, int64(512*1024*1024), result.Field("used"))
	assert.Equal(t, "512.0 MB", result.Field("used_human"))
	assert.Equal(t, "2.0 GB", result.Field("allocated_human"))
	assert.Equal(t, 25.0, result.Field("percent_used"))
}

func TestGetSpaceUsageUnlimited(t *testing.T) {
	backend := &fakeBackend{
		spaceUsage: func(ctx context.Context) (domain.SpaceUsage, error) {
			return domain.SpaceUsage{Used: 1024}, nil
		},
	}

	result := getSpaceUsage(context.Background(), backend, nil)

	require.True(t, result.OK())
	assert.Nil(t, result.Field("allocated"))
	assert.Equal(t, "Unlimited", result.Field("allocated_human"))
	assert.Nil(t, result.Field("percent_used"))
}

func TestGetSpaceUsagePercentRounding(t *testing.T) {
	backend := &fakeBackend{
		spaceUsage: func(ctx context.Context) (domain.SpaceUsage, error) {
			return domain.SpaceUsage{Used: 1, Allocated: 3}, nil
		},
	}

	result := getSpaceUsage(context.Background(), backend, nil)

	require.True(t, result.OK())
	assert.Equal(t, 33.33, result.Field("percent_used"))
}

func TestTestConnectionSuccess(t *testing.T) {
	backend := &fakeBackend{
		currentAccount: func(ctx context.Context) (domain.Account, error) {
			return domain.Account{
				AccountID:   "dbid:abc123",
				DisplayName: "Ada Lovelace",
				Email:       "ada@example.com",
				AccountType: "basic",
			}, nil
		},
	}

	result := testConnection(context.Background(), backend, nil)

	require.True(t, result.OK())
	assert.Equal(t, "dbid:abc123", result.Field("account_id"))
	assert.Equal(t, "Ada Lovelace", result.Field("name"))
	assert.Equal(t, "ada@example.com", result.Field("email"))
	assert.Equal(t, "basic", result.Field("account_type"))
	assert.Nil(t, result.Field("team"))
}

func TestTestConnectionReportsTeam(t *testing.T) {
	backend := &fakeBackend{
		currentAccount: func(ctx context.Context) (domain.Account, error) {
			return domain.Account{AccountID: "dbid:x", AccountType: "business", Team: "Acme"}, nil
		},
	}

	result := testConnection(context.Background(), backend, nil)

	require.True(t, result.OK())
	assert.Equal(t, "Acme", result.Field("team"))
}

func TestTestConnectionAuthFailure(t *testing.T) {
	backend := &fakeBackend{
		currentAccount: func(ctx context.Context) (domain.Account, error) {
			return domain.Account{}, domain.BackendFault(domain.FaultAuth, "users/get_current_account", "expired_access_token/", nil)
		},
	}

	result := testConnection(context.Background(), backend, nil)

	require.False(t, result.OK())
	assert.Contains(t, result.ErrorMessage(), "Authentication failed:")
}

func TestTestConnectionOtherFailure(t *testing.T) {
	backend := &fakeBackend{
		currentAccount: func(ctx context.Context) (domain.Account, error) {
			return domain.Account{}, domain.BackendFault(domain.FaultOther, "users/get_current_account", "http 500", nil)
		},
	}

	result := testConnection(context.Background(), backend, nil)

	require.False(t, result.OK())
	assert.NotContains(t, result.ErrorMessage(), "Authentication failed:")
}
