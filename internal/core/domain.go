package core

import (
	"strings"
	"time"
)

const (
	Monthly BillingCycle = "monthly"
	Yearly  BillingCycle = "yearly"
)

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
)

// DefaultCategory is reported for records that carry no category.
const DefaultCategory = "other"

// CategoryStreaming is the category the bundle rule counts.
const CategoryStreaming = "streaming"

// DefaultCurrency is the tag assigned when a source does not carry one.
const DefaultCurrency = "EUR"

type (
	BillingCycle string

	Status string

	// Subscription is a recurring charge tracked by the store.
	Subscription struct {
		ID              string       `json:"id"`
		Name            string       `json:"name"`
		Cost            float64      `json:"cost"`
		Currency        string       `json:"currency"`
		BillingCycle    BillingCycle `json:"billing_cycle,omitempty"`
		Category        string       `json:"category,omitempty"`
		Status          Status       `json:"status"`
		StartDate       time.Time    `json:"start_date"`
		CreatedAt       time.Time    `json:"created_at"`
		UpdatedAt       *time.Time   `json:"updated_at,omitempty"`
		CancelledAt     *time.Time   `json:"cancelled_at,omitempty"`
		SourceMessageID string       `json:"source_message_id,omitempty"`
	}
)

// ParseBillingCycle maps a cycle name onto the two supported cycles. Only
// "yearly" (any case, surrounding spaces ignored) is yearly; everything else,
// including synonyms such as "annual", counts as monthly.
func ParseBillingCycle(s string) BillingCycle {
	if strings.EqualFold(strings.TrimSpace(s), string(Yearly)) {
		return Yearly
	}
	return Monthly
}

// Title returns the cycle name with an upper-case first letter.
func (c BillingCycle) Title() string {
	s := string(c)
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Cycle returns the effective billing cycle, monthly when unset or unknown.
func (s Subscription) Cycle() BillingCycle {
	return ParseBillingCycle(string(s.BillingCycle))
}

// CategoryOrDefault returns the category, or DefaultCategory when unset.
func (s Subscription) CategoryOrDefault() string {
	if strings.TrimSpace(s.Category) == "" {
		return DefaultCategory
	}
	return s.Category
}

// MatchesName reports whether the subscription name equals name, ignoring case.
func (s Subscription) MatchesName(name string) bool {
	return SameName(s.Name, name)
}

// SameName is the name comparison every store uses: full Unicode lower-casing.
func SameName(a, b string) bool {
	return strings.ToLower(a) == strings.ToLower(b)
}

// Clone returns a copy that shares no pointers with s.
func (s Subscription) Clone() Subscription {
	c := s
	if s.UpdatedAt != nil {
		t := *s.UpdatedAt
		c.UpdatedAt = &t
	}
	if s.CancelledAt != nil {
		t := *s.CancelledAt
		c.CancelledAt = &t
	}
	return c
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Name         *string       `json:"name,omitempty"`
	Cost         *float64      `json:"cost,omitempty"`
	Currency     *string       `json:"currency,omitempty"`
	BillingCycle *BillingCycle `json:"billing_cycle,omitempty"`
	Category     *string       `json:"category,omitempty"`
	Status       *Status       `json:"status,omitempty"`
	UpdatedAt    *time.Time    `json:"updated_at,omitempty"`
	CancelledAt  *time.Time    `json:"cancelled_at,omitempty"`
}

// IsEmpty reports whether the patch sets no field.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Cost == nil && p.Currency == nil && p.BillingCycle == nil &&
		p.Category == nil && p.Status == nil && p.UpdatedAt == nil && p.CancelledAt == nil
}

// Apply merges the patch into sub. UpdatedAt is stamped with now unless the
// patch sets it explicitly. The ID is never touched.
func (p Patch) Apply(sub *Subscription, now time.Time) {
	if p.Name != nil {
		sub.Name = *p.Name
	}
	if p.Cost != nil {
		sub.Cost = *p.Cost
	}
	if p.Currency != nil {
		sub.Currency = *p.Currency
	}
	if p.BillingCycle != nil {
		sub.BillingCycle = *p.BillingCycle
	}
	if p.Category != nil {
		sub.Category = *p.Category
	}
	if p.Status != nil {
		sub.Status = *p.Status
	}
	if p.CancelledAt != nil {
		t := *p.CancelledAt
		sub.CancelledAt = &t
	}
	updated := now
	if p.UpdatedAt != nil {
		updated = *p.UpdatedAt
	}
	sub.UpdatedAt = &updated
}

// CancelPatch transitions a record to cancelled at the given time.
func CancelPatch(at time.Time) Patch {
	status := StatusCancelled
	return Patch{Status: &status, CancelledAt: &at}
}
