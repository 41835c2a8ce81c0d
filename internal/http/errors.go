package http

import "subtrack/internal/core"

// ErrorCodeRateLimited is only produced by the transport.
const ErrorCodeRateLimited core.ErrorCode = "RATE_LIMITED"

var errRateLimited = core.NewDomainError(ErrorCodeRateLimited, "rate limit exceeded, retry later")
