// Package recommend derives cost-saving suggestions from a subscription list.
package recommend

import (
	"fmt"
	"strings"

	"subtrack/internal/analyzer"
	"subtrack/internal/catalog"
	"subtrack/internal/core"
)

const (
	TypeDuplicate   = "duplicate"
	TypeUnused      = "unused"
	TypeAlternative = "alternative"
	TypeBundle      = "bundle"

	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

const (
	// DefaultLimit caps the returned list. Totals still cover every
	// recommendation produced.
	DefaultLimit = 5
	// BundleThreshold is the number of streaming services above which a
	// bundle is suggested.
	BundleThreshold = 2
	// BundleSavingsPerService is the flat monthly estimate per streaming service.
	BundleSavingsPerService = 5.0
)

// Recommendation is one actionable suggestion. Duplicate and bundle entries
// name several services, the others exactly one.
type Recommendation struct {
	Type     string   `json:"type"`
	Severity string   `json:"severity"`
	Services []string `json:"services,omitempty"`
	Service  string   `json:"service,omitempty"`
	Action   string   `json:"action"`
	Savings  float64  `json:"savings"`
}

// Result is the engine output. TotalRecommendations and both savings figures
// are computed before the list is capped.
type Result struct {
	Recommendations         []Recommendation `json:"recommendations"`
	PotentialMonthlySavings float64          `json:"potential_monthly_savings"`
	PotentialYearlySavings  float64          `json:"potential_yearly_savings"`
	TotalRecommendations    int              `json:"total_recommendations"`
}

type Engine struct {
	usage   analyzer.UsageSignal
	catalog *catalog.Catalog
	limit   int
}

type Option func(*Engine)

// WithUsageSignal replaces the default no-signal usage source.
func WithUsageSignal(u analyzer.UsageSignal) Option {
	return func(e *Engine) { e.usage = u }
}

func WithCatalog(c *catalog.Catalog) Option {
	return func(e *Engine) { e.catalog = c }
}

func WithLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.limit = n
		}
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{
		usage:   analyzer.NoUsageSignal{},
		catalog: catalog.Default(),
		limit:   DefaultLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Recommend runs the rules in a fixed order: duplicates, unused, cheaper
// alternatives, then bundling. The order decides what survives the cap.
func (e *Engine) Recommend(subs []core.Subscription) Result {
	var all []Recommendation
	all = append(all, e.duplicates(subs)...)
	all = append(all, e.unused(subs)...)
	all = append(all, e.alternatives(subs)...)
	all = append(all, e.bundle(subs)...)

	savings := make([]float64, len(all))
	for i, r := range all {
		savings[i] = r.Savings
	}
	total := core.Sum(savings...)

	shown := all
	if len(shown) > e.limit {
		shown = shown[:e.limit]
	}
	out := make([]Recommendation, len(shown))
	copy(out, shown)

	return Result{
		Recommendations:         out,
		PotentialMonthlySavings: core.Round2(total),
		PotentialYearlySavings:  core.Round2(core.Mul(total, 12)),
		TotalRecommendations:    len(all),
	}
}

func (e *Engine) duplicates(subs []core.Subscription) []Recommendation {
	var out []Recommendation
	for _, g := range analyzer.FindDuplicates(subs) {
		out = append(out, Recommendation{
			Type:     TypeDuplicate,
			Severity: SeverityHigh,
			Services: g.Services,
			Action:   "Consider cancelling one of: " + strings.Join(g.Services, ", "),
			Savings:  g.PotentialSaving,
		})
	}
	return out
}

func (e *Engine) unused(subs []core.Subscription) []Recommendation {
	var out []Recommendation
	for _, s := range e.usage.FindUnused(subs) {
		out = append(out, Recommendation{
			Type:     TypeUnused,
			Severity: SeverityMedium,
			Service:  s.Name,
			Action:   fmt.Sprintf("Cancel %s - not used for 60+ days", s.Name),
			Savings:  s.Cost,
		})
	}
	return out
}

func (e *Engine) alternatives(subs []core.Subscription) []Recommendation {
	var out []Recommendation
	for _, s := range subs {
		alt, ok := e.catalog.Suggestion(s.Name)
		if !ok {
			continue
		}
		out = append(out, Recommendation{
			Type:     TypeAlternative,
			Severity: SeverityLow,
			Service:  s.Name,
			Action:   "Switch to " + alt.Alternative,
			Savings:  alt.Savings,
		})
	}
	return out
}

func (e *Engine) bundle(subs []core.Subscription) []Recommendation {
	var streaming []string
	for _, s := range subs {
		if s.Category == core.CategoryStreaming {
			streaming = append(streaming, s.Name)
		}
	}
	if len(streaming) <= BundleThreshold {
		return nil
	}
	return []Recommendation{{
		Type:     TypeBundle,
		Severity: SeverityMedium,
		Services: streaming,
		Action:   "Consider a streaming bundle package",
		Savings:  core.Mul(float64(len(streaming)), BundleSavingsPerService),
	}}
}
