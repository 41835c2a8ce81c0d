package core

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// Candidate is the canonical record a normalizer produces from a bank row or
// an email receipt.
type Candidate struct {
	Service         string  `json:"service" validate:"required"`
	Amount          float64 `json:"amount" validate:"gte=0"`
	Currency        string  `json:"currency,omitempty" validate:"omitempty,max=8"`
	Cycle           string  `json:"cycle,omitempty"`
	Category        string  `json:"category,omitempty"`
	SourceMessageID string  `json:"source_message_id,omitempty"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateStruct runs tag based validation and converts failures into a
// VALIDATION_FAILED domain error listing the offending fields.
func ValidateStruct(v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return WrapError(ErrorCodeValidationFailed, "invalid record", err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field()+" "+fe.Tag())
	}
	return NewDomainError(ErrorCodeValidationFailed, "invalid record: "+strings.Join(fields, ", ")).
		WithDetail("fields", fields)
}

// Validate checks the fields every ingested record must carry.
func (c Candidate) Validate() error {
	if strings.TrimSpace(c.Service) == "" {
		return NewDomainError(ErrorCodeValidationFailed, "invalid record: Service required").
			WithDetail("fields", []string{"Service required"})
	}
	return ValidateStruct(c)
}

// ToSubscription builds an active subscription from the candidate. Cycle and
// category are kept as given; their defaults apply when they are read.
func (c Candidate) ToSubscription(now time.Time) Subscription {
	currency := strings.TrimSpace(c.Currency)
	if currency == "" {
		currency = DefaultCurrency
	}
	return Subscription{
		Name:            strings.TrimSpace(c.Service),
		Cost:            c.Amount,
		Currency:        currency,
		BillingCycle:    BillingCycle(strings.ToLower(strings.TrimSpace(c.Cycle))),
		Category:        strings.TrimSpace(c.Category),
		Status:          StatusActive,
		StartDate:       now,
		CreatedAt:       now,
		SourceMessageID: c.SourceMessageID,
	}
}
