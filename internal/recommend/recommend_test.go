package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subtrack/internal/catalog"
	"subtrack/internal/core"
)

func sub(name string, cost float64, category string) core.Subscription {
	return core.Subscription{Name: name, Cost: cost, Category: category, BillingCycle: core.Monthly}
}

func TestRecommendEmpty(t *testing.T) {
	r := New().Recommend(nil)
	assert.NotNil(t, r.Recommendations)
	assert.Empty(t, r.Recommendations)
	assert.Equal(t, 0, r.TotalRecommendations)
	assert.Equal(t, 0.0, r.PotentialMonthlySavings)
}

func TestDuplicateRecommendation(t *testing.T) {
	r := New().Recommend([]core.Subscription{
		sub("Netflix", 15.99, "streaming"),
		sub(" NETFLIX", 12.99, "streaming"),
	})
	require.Len(t, r.Recommendations, 1)
	rec := r.Recommendations[0]
	assert.Equal(t, TypeDuplicate, rec.Type)
	assert.Equal(t, SeverityHigh, rec.Severity)
	assert.Equal(t, 12.99, rec.Savings)
	assert.Equal(t, []string{"Netflix", " NETFLIX"}, rec.Services)
	assert.Equal(t, "Consider cancelling one of: Netflix,  NETFLIX", rec.Action)
	assert.Equal(t, 12.99, r.PotentialMonthlySavings)
	assert.Equal(t, 155.88, r.PotentialYearlySavings)
}

func TestAlternativeRecommendation(t *testing.T) {
	r := New().Recommend([]core.Subscription{
		sub("Adobe Creative Cloud", 54.99, "software"),
		sub("Dropbox Plus", 11.99, "storage"),
		sub("dropbox plus", 11.99, "storage"),
	})
	var alts []Recommendation
	for _, rec := range r.Recommendations {
		if rec.Type == TypeAlternative {
			alts = append(alts, rec)
		}
	}
	// exact name match only
	require.Len(t, alts, 2)
	assert.Equal(t, Recommendation{
		Type: TypeAlternative, Severity: SeverityLow, Service: "Adobe Creative Cloud",
		Action: "Switch to Canva Pro", Savings: 43,
	}, alts[0])
	assert.Equal(t, "Switch to Google One", alts[1].Action)
}

func TestBundleRecommendation(t *testing.T) {
	two := []core.Subscription{sub("Netflix", 15.99, "streaming"), sub("Spotify", 9.99, "streaming")}
	assert.Empty(t, New().Recommend(two).Recommendations)

	three := append(two, sub("Hulu", 7.99, "streaming"))
	r := New().Recommend(three)
	require.Len(t, r.Recommendations, 1)
	rec := r.Recommendations[0]
	assert.Equal(t, TypeBundle, rec.Type)
	assert.Equal(t, SeverityMedium, rec.Severity)
	assert.Equal(t, 15.0, rec.Savings)
	assert.Equal(t, []string{"Netflix", "Spotify", "Hulu"}, rec.Services)
}

func TestRecommendCapKeepsTotals(t *testing.T) {
	subs := []core.Subscription{
		sub("Netflix", 15.99, "streaming"),
		sub("netflix", 12.99, "streaming"),
		sub("Spotify", 9.99, "streaming"),
		sub("Spotify", 9.99, "streaming"),
		sub("Adobe Creative Cloud", 54.99, "software"),
		sub("Adobe Creative Cloud", 54.99, "software"),
		sub("Dropbox Plus", 11.99, "storage"),
	}
	r := New().Recommend(subs)
	assert.Equal(t, 7, r.TotalRecommendations)
	require.Len(t, r.Recommendations, 5)

	types := make([]string, len(r.Recommendations))
	for i, rec := range r.Recommendations {
		types[i] = rec.Type
	}
	assert.Equal(t, []string{TypeDuplicate, TypeDuplicate, TypeDuplicate, TypeAlternative, TypeAlternative}, types)

	// totals cover the uncapped list
	assert.Equal(t, 193.97, r.PotentialMonthlySavings)
	assert.Equal(t, 2327.64, r.PotentialYearlySavings)
}

type staticUsage []core.Subscription

func (s staticUsage) FindUnused([]core.Subscription) []core.Subscription { return s }

func TestUnusedRuleUsesSignal(t *testing.T) {
	gym := sub("Gym", 29.9, "fitness")
	r := New(WithUsageSignal(staticUsage{gym})).Recommend([]core.Subscription{gym})
	require.Len(t, r.Recommendations, 1)
	assert.Equal(t, Recommendation{
		Type: TypeUnused, Severity: SeverityMedium, Service: "Gym",
		Action: "Cancel Gym - not used for 60+ days", Savings: 29.9,
	}, r.Recommendations[0])
}

func TestOptions(t *testing.T) {
	cat := catalog.New(catalog.Entry{
		Service:   "Netflix",
		Suggested: catalog.Suggestion{Alternative: "Free TV", Savings: 15.99},
	})
	subs := []core.Subscription{sub("Netflix", 15.99, ""), sub("Netflix", 15.99, "")}
	r := New(WithCatalog(cat), WithLimit(1)).Recommend(subs)
	assert.Equal(t, 3, r.TotalRecommendations)
	require.Len(t, r.Recommendations, 1)
	assert.Equal(t, TypeDuplicate, r.Recommendations[0].Type)
}
