package analyzer

import "subtrack/internal/core"

// UsageSignal reports subscriptions that show no recent use.
type UsageSignal interface {
	FindUnused(subs []core.Subscription) []core.Subscription
}

// NoUsageSignal is the default signal. No usage data is collected, so
// nothing is ever reported as unused.
type NoUsageSignal struct{}

func (NoUsageSignal) FindUnused([]core.Subscription) []core.Subscription {
	return []core.Subscription{}
}

// FindUnused applies the default signal.
func FindUnused(subs []core.Subscription) []core.Subscription {
	return NoUsageSignal{}.FindUnused(subs)
}
