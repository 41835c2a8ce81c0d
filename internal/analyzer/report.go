package analyzer

import "subtrack/internal/core"

// ExpensiveRef identifies the costliest subscription in a report.
type ExpensiveRef struct {
	Name  string            `json:"name"`
	Cost  float64           `json:"cost"`
	Cycle core.BillingCycle `json:"cycle"`
}

// Report is the spending summary of a set of subscriptions.
type Report struct {
	TotalMonthly      float64                  `json:"total_monthly"`
	TotalYearly       float64                  `json:"total_yearly"`
	ByCategory        map[string]CategoryTotal `json:"by_category"`
	MostExpensive     *ExpensiveRef            `json:"most_expensive"`
	LeastUsed         []core.Subscription      `json:"least_used"`
	SubscriptionCount int                      `json:"subscription_count"`
}

// Summarize builds a Report. Category totals are rounded here, for
// presentation; the yearly figure is twelve times the rounded monthly one.
func Summarize(subs []core.Subscription, usage UsageSignal) Report {
	if usage == nil {
		usage = NoUsageSignal{}
	}
	monthly := MonthlyTotal(subs)

	breakdown := CategoryBreakdown(subs)
	for k, v := range breakdown {
		v.Total = core.Round2(v.Total)
		breakdown[k] = v
	}

	r := Report{
		TotalMonthly:      monthly,
		TotalYearly:       core.Round2(core.Mul(monthly, 12)),
		ByCategory:        breakdown,
		LeastUsed:         usage.FindUnused(subs),
		SubscriptionCount: len(subs),
	}
	if top, ok := MostExpensive(subs); ok {
		r.MostExpensive = &ExpensiveRef{Name: top.Name, Cost: top.Cost, Cycle: top.Cycle()}
	}
	return r
}
