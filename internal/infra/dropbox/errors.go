package dropbox

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"dbxmcp/internal/domain"
)

// apiError turns a non-200 Dropbox response into a classified backend
// fault. Dropbox reports structured errors with an error_summary string
// such as "path/not_found/.." or "path/conflict/folder/".
func apiError(endpoint string, status int, body []byte) *domain.BackendError {
	var parsed struct {
		ErrorSummary string `json:"error_summary"`
	}
	_ = json.Unmarshal(body, &parsed)

	message := strings.TrimSpace(parsed.ErrorSummary)
	if message == "" {
		message = fmt.Sprintf("http %d: %s", status, strings.TrimSpace(string(body)))
	}

	return domain.BackendFault(classify(status, parsed.ErrorSummary), endpoint, message, nil)
}

func classify(status int, summary string) domain.FaultKind {
	switch {
	case status == http.StatusUnauthorized,
		strings.Contains(summary, "invalid_access_token"),
		strings.Contains(summary, "expired_access_token"),
		strings.Contains(summary, "invalid_select_user"):
		return domain.FaultAuth
	case status == http.StatusTooManyRequests,
		strings.Contains(summary, "too_many_requests"),
		strings.Contains(summary, "too_many_write_operations"):
		return domain.FaultRateLimited
	case strings.Contains(summary, "not_found"):
		return domain.FaultNotFound
	case strings.Contains(summary, "conflict"):
		return domain.FaultConflict
	default:
		return domain.FaultOther
	}
}
