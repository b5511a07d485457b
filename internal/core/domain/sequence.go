package domain

import (
	"fmt"
	"time"
)

// Reference number prefixes. Each prefix combined with a year-month forms an
// independent counter scope per tenant.
const (
	JournalRefPrefix     = "JE"
	SavingsRefPrefix     = "SV"
	LoanPaymentRefPrefix = "LP"
	LoanNumberPrefix     = "LN"
)

// ReferenceScope returns the counter scope for prefix in the month of date,
// e.g. "JE-202401".
func ReferenceScope(prefix string, date time.Time) string {
	return fmt.Sprintf("%s-%s", prefix, DateOf(date).Format("200601"))
}

// FormatReference renders the n-th number of scope, e.g. "JE-202401-0007".
func FormatReference(scope string, n int64) string {
	return fmt.Sprintf("%s-%04d", scope, n)
}
