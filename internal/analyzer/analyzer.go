// Package analyzer computes spend figures over a list of subscriptions.
//
// Every function is pure: callers pass a snapshot and the package never
// reaches into a store.
package analyzer

import (
	"strings"
	"time"

	"subtrack/internal/core"
)

const (
	yearlyProjection  = 365 * 24 * time.Hour
	monthlyProjection = 30 * 24 * time.Hour
)

// NormalizeToMonthly converts cost to a monthly figure. Only yearly costs are
// rounded; monthly costs are returned unchanged.
func NormalizeToMonthly(cost float64, cycle core.BillingCycle) float64 {
	if core.ParseBillingCycle(string(cycle)) == core.Yearly {
		return core.Round2(cost / 12)
	}
	return cost
}

// MonthlyTotal is the rounded sum of every record's monthly cost.
func MonthlyTotal(subs []core.Subscription) float64 {
	values := make([]float64, len(subs))
	for i, s := range subs {
		values[i] = NormalizeToMonthly(s.Cost, s.Cycle())
	}
	return core.Round2(core.Sum(values...))
}

// CategoryTotal aggregates the records of one category. Total is the
// unrounded monthly sum.
type CategoryTotal struct {
	Count int     `json:"count"`
	Total float64 `json:"total"`
}

// CategoryBreakdown groups records by category, "other" when unset.
func CategoryBreakdown(subs []core.Subscription) map[string]CategoryTotal {
	out := make(map[string]CategoryTotal)
	for _, s := range subs {
		key := s.CategoryOrDefault()
		ct := out[key]
		ct.Count++
		ct.Total = core.Sum(ct.Total, NormalizeToMonthly(s.Cost, s.Cycle()))
		out[key] = ct
	}
	return out
}

// MostExpensive returns the record with the highest raw cost. The first
// record wins ties.
func MostExpensive(subs []core.Subscription) (core.Subscription, bool) {
	if len(subs) == 0 {
		return core.Subscription{}, false
	}
	best := subs[0]
	for _, s := range subs[1:] {
		if s.Cost > best.Cost {
			best = s
		}
	}
	return best, true
}

// NextBillingDate projects the next charge as a fixed offset from now:
// 365 days for yearly, 30 days otherwise, truncated to whole seconds.
func NextBillingDate(cycle core.BillingCycle, now time.Time) time.Time {
	base := now.Truncate(time.Second)
	if core.ParseBillingCycle(string(cycle)) == core.Yearly {
		return base.Add(yearlyProjection)
	}
	return base.Add(monthlyProjection)
}

// FormatTimestamp renders t as ISO-8601 with second precision.
func FormatTimestamp(t time.Time) string {
	return t.Truncate(time.Second).Format(time.RFC3339)
}

// DuplicateGroup is a set of records sharing a normalized name.
type DuplicateGroup struct {
	Key             string              `json:"key"`
	Services        []string            `json:"services"`
	Members         []core.Subscription `json:"-"`
	PotentialSaving float64             `json:"potential_saving"`
}

// NormalizeName is the key used to compare service names.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// FindDuplicates groups records by normalized name and returns every group
// with more than one member, in order of first appearance. The potential
// saving is the cheapest member's cost.
func FindDuplicates(subs []core.Subscription) []DuplicateGroup {
	index := make(map[string]int)
	var groups []DuplicateGroup
	for _, s := range subs {
		key := NormalizeName(s.Name)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, DuplicateGroup{Key: key})
		}
		groups[i].Members = append(groups[i].Members, s)
		groups[i].Services = append(groups[i].Services, s.Name)
	}

	out := make([]DuplicateGroup, 0)
	for _, g := range groups {
		if len(g.Members) < 2 {
			continue
		}
		cheapest := g.Members[0].Cost
		for _, m := range g.Members[1:] {
			if m.Cost < cheapest {
				cheapest = m.Cost
			}
		}
		g.PotentialSaving = cheapest
		out = append(out, g)
	}
	return out
}
