package utils

import (
	"time"
)

// Token time constants
const (
	// AccessTokenTTL is the time-to-live for access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// RefreshTokenTTL is the time-to-live for refresh tokens (7 days)
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// ContextKey is the type for request-scoped context values
type ContextKey string

// Request-scoped context keys for observability
const (
	RequestIDKey  ContextKey = "request_id"
	UserAgentKey  ContextKey = "user_agent"
	IPAddressKey  ContextKey = "ip_address"
	EndpointKey   ContextKey = "endpoint"
	TimeoutKey    ContextKey = "timeout"
	CancelFuncKey ContextKey = "cancel_func"
)

// Dispatch constants
const (
	// SendQueueKey is the Redis list consumed by the sender process
	SendQueueKey = "raijin:send_queue"

	// SendJobType tags per-recipient send jobs on the queue
	SendJobType = "campaign_send"

	// MaxSplitPercentTotal is the upper bound for the sum of variant splits
	MaxSplitPercentTotal = 100.0

	// PreviewCountCacheTTL bounds staleness of cached audience preview counts
	PreviewCountCacheTTL = 30 * time.Second
)
