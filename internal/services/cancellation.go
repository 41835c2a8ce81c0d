package services

import (
	"fmt"
	"strconv"

	"subtrack/internal/core"
)

// CancellationNotice renders the email a user can send to the provider.
func CancellationNotice(sub core.Subscription) string {
	return fmt.Sprintf(`Subject: Cancellation Request - %[1]s Subscription

Dear %[1]s Support Team,

I would like to cancel my subscription effective immediately.

Account Information:
- Service: %[1]s
- Current Plan: %[2]s
- Monthly Cost: %[3]s%[4]s

Please confirm the cancellation and the last billing date.

Thank you for your service.

Best regards,
[Your Name]`, sub.Name, sub.Cycle().Title(), sub.Currency, strconv.FormatFloat(sub.Cost, 'f', -1, 64))
}

// CancellationSteps is the fixed follow-up checklist.
func CancellationSteps(name string) []string {
	return []string{
		fmt.Sprintf("1. Send the cancellation email to %s support", name),
		"2. Check for any cancellation fees or notice period",
		"3. Download any data you want to keep",
		"4. Remove payment method from their platform",
		"5. Keep the cancellation confirmation for your records",
	}
}
