package s3store

import (
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"dbxmcp/internal/domain"
)

// mapError converts an aws-sdk error into a classified backend fault.
func mapError(op string, err error) *domain.BackendError {
	if err == nil {
		return nil
	}

	var backendErr *domain.BackendError
	if errors.As(err, &backendErr) {
		return backendErr
	}

	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) || errors.As(err, &noSuchBucket) {
		return domain.BackendFault(domain.FaultNotFound, op, "", err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchBucket", "NoSuchVersion":
			return domain.BackendFault(domain.FaultNotFound, op, "", err)
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch",
			"ExpiredToken", "TokenRefreshRequired", "InvalidToken":
			return domain.BackendFault(domain.FaultAuth, op, "", err)
		case "SlowDown", "Throttling", "ThrottlingException", "RequestLimitExceeded":
			return domain.BackendFault(domain.FaultRateLimited, op, "", err)
		}
	}

	return domain.BackendFault(domain.FaultOther, op, "", err)
}
