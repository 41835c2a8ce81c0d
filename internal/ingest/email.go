package ingest

import (
	"regexp"
	"strings"

	"subtrack/internal/core"
)

// UnknownService is reported when no known service appears in a message.
const UnknownService = "Unknown"

// amountPattern matches an amount with its currency symbol on either side:
// "€15.99", "15,99 €", "$7".
var amountPattern = regexp.MustCompile(`(?:(€|\$|£)\s?(\d+(?:[.,]\d+)?))|(?:(\d+(?:[.,]\d+)?)\s?(€|\$|£))`)

var currencySymbols = map[string]string{
	"€": "EUR",
	"$": "USD",
	"£": "GBP",
}

type serviceKeyword struct {
	keyword  string
	name     string
	category string
}

// Longer, more specific keywords come first.
var emailServices = []serviceKeyword{
	{"adobe creative cloud", "Adobe Creative Cloud", "software"},
	{"dropbox plus", "Dropbox Plus", "storage"},
	{"dropbox", "Dropbox", "storage"},
	{"github pro", "GitHub Pro", "software"},
	{"netflix", "Netflix", core.CategoryStreaming},
	{"spotify", "Spotify", core.CategoryStreaming},
	{"basicfit", "Basicfit", "fitness"},
	{"basic-fit", "Basicfit", "fitness"},
	{"powerprot", "Powerprot", "entertainment"},
	{"watch watch", "Watch Watch", "entertainment"},
	{"radiojazz", "Radiojazz", "entertainment"},
	{"google cloud", "Google Cloud", "entertainment"},
}

// EmailParser turns receipt text into a candidate record.
type EmailParser struct {
	services []serviceKeyword
}

func NewEmailParser() *EmailParser {
	return &EmailParser{services: emailServices}
}

// Parse extracts service, amount and currency from a receipt. Messages
// without a recognised service yield "Unknown"; messages without an amount
// yield 0 EUR. The cycle is always monthly.
func (p *EmailParser) Parse(text string) core.Candidate {
	lower := strings.ToLower(text)

	c := core.Candidate{
		Service:  UnknownService,
		Currency: core.DefaultCurrency,
		Cycle:    string(core.Monthly),
		Category: "entertainment",
	}

	if m := amountPattern.FindStringSubmatch(lower); m != nil {
		symbol, digits := m[1], m[2]
		if digits == "" {
			digits, symbol = m[3], m[4]
		}
		if amount, err := core.ParseAmount(digits); err == nil {
			c.Amount = amount
			c.Currency = currencySymbols[symbol]
		}
	}

	for _, s := range p.services {
		if strings.Contains(lower, s.keyword) {
			c.Service = s.name
			c.Category = s.category
			break
		}
	}
	return c
}

// MockEmails are the canned receipts served by the "email" source.
func MockEmails() []string {
	return []string{
		"Your Netflix subscription of €15.99 has been renewed",
		"Spotify Premium: €9.99 charged to your account",
		"Adobe Creative Cloud: Payment received €54.99",
		"Dropbox Plus: €11.99 monthly subscription",
		"GitHub Pro: $7 monthly payment confirmed",
	}
}
