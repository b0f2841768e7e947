package tenancy

import (
	"time"

	"github.com/shopspring/decimal"

	"rentledger/internal/payment"
	"rentledger/pkg/domain"
)

// GenerateSchedule deterministically produces one payment obligation per lease
// month. It is pure: persistence happens only inside the proposal transaction,
// and the schedule is never regenerated afterwards.
//
// The split is frozen at generation time from the agreed rent and the
// configured tax rate: taxAmount = round(rent * rate, 2), landlord share is
// the remainder, so the two always sum back to the rent exactly.
func GenerateSchedule(agreement *Agreement, taxRate decimal.Decimal, now time.Time) []*payment.Obligation {
	obligations := make([]*payment.Obligation, 0, agreement.LeaseDurationMonths)
	taxAmount := agreement.AgreedRent.Mul(taxRate).Round(2)
	landlordShare := agreement.AgreedRent.Sub(taxAmount)

	for i := 0; i < agreement.LeaseDurationMonths; i++ {
		dueDate := AddMonths(agreement.StartDate, i)
		obligations = append(obligations, &payment.Obligation{
			ID:               domain.NewObligationID(),
			AgreementID:      agreement.ID,
			MonthLabel:       dueDate.Format("January 2006"),
			DueDate:          dueDate,
			MonthlyRent:      agreement.AgreedRent,
			TaxAmount:        taxAmount,
			AmountToLandlord: landlordShare,
			Status:           payment.StatusPending,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	}
	return obligations
}

// LeaseEndDate computes start + months calendar months - 1 day.
func LeaseEndDate(start time.Time, months int) time.Time {
	return AddMonths(start, months).AddDate(0, 0, -1)
}

// AddMonths advances by calendar months with end-of-month clamping: a Jan 31
// anchor rolls to Feb 28/29 rather than normalizing into March, matching
// standard calendar semantics for rent due dates.
func AddMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	firstOfTarget := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, 0, 0, 0, 0, t.Location())
}
