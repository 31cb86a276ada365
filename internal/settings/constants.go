package settings

// DB config keys and defaults for settings.
const (
	// DailyLimitKey overrides the per-identity daily operation budget.
	DailyLimitKey = "QUOTA_DAILY_LIMIT"
	// ModerationEnabledKey toggles the moderation stage of publishing.
	ModerationEnabledKey = "MODERATION_ENABLED"
	// RateLimitPerMinuteKey overrides the secondary per-minute publish limit.
	RateLimitPerMinuteKey = "RATE_LIMIT_PER_MINUTE"

	// DefaultDailyLimit is the fallback daily operation budget.
	DefaultDailyLimit = 50
	// DefaultModerationEnabled enables moderation unless overridden.
	DefaultModerationEnabled = true
	// DefaultRateLimitPerMinute is the fallback per-minute publish limit.
	DefaultRateLimitPerMinute = 10
)
