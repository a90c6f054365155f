// Package loans provides the loan payment and amortization calculator.
package loans

import (
	"fmt"
	"math"

	"github.com/iwvelando/finance-calculators/pkg/calc"
	"github.com/iwvelando/finance-calculators/pkg/constants"
	"github.com/iwvelando/finance-calculators/pkg/mathutil"
)

// Field keys.
const (
	FieldAmount = "amount"
	FieldRate   = "rate"
	FieldYears  = "years"
)

// Result keys and series names.
const (
	KeyMonthlyPayment = "monthlyPayment"
	KeyTotalPayment   = "totalPayment"
	KeyTotalInterest  = "totalInterest"

	SeriesBreakdown    = "breakdown"
	SeriesAmortization = "amortization"
)

// Payment holds the values for a given payment.
type Payment struct {
	Month              int
	Payment            float64
	Principal          float64
	Interest           float64
	RemainingPrincipal float64
}

// Summary is the headline outcome of a loan.
type Summary struct {
	MonthlyPayment float64
	TotalPayment   float64
	TotalInterest  float64
	Payments       float64
}

// CalculateMonthlyPayment calculates the monthly payment for a loan using the standard amortization formula.
func CalculateMonthlyPayment(principal, annualInterestRate, termMonths float64) float64 {
	if annualInterestRate == 0 {
		// For zero interest, simply divide the principal by term
		return principal / termMonths
	}

	periodicInterestRate := annualInterestRate / (constants.PercentageMultiplier * constants.MonthsPerYear)
	power := math.Pow(1.00+periodicInterestRate, termMonths)
	return principal * periodicInterestRate * power / (power - 1.00)
}

// CalculateInterestPayment calculates the interest portion of a payment.
func CalculateInterestPayment(remainingPrincipal, annualInterestRate float64) float64 {
	return remainingPrincipal * annualInterestRate / (constants.PercentageMultiplier * constants.MonthsPerYear)
}

// Summarize computes the payment summary. Principal, rate and term must all
// be strictly positive; a zero rate is not computable.
func Summarize(principal, annualInterestRate, years float64) (Summary, bool) {
	monthlyRate := annualInterestRate / constants.PercentageMultiplier / constants.MonthsPerYear
	payments := years * constants.MonthsPerYear
	if !(principal > 0 && monthlyRate > 0 && payments > 0) {
		return Summary{}, false
	}

	monthly := CalculateMonthlyPayment(principal, annualInterestRate, payments)
	total := monthly * payments
	s := Summary{
		MonthlyPayment: monthly,
		TotalPayment:   total,
		TotalInterest:  total - principal,
		Payments:       payments,
	}
	if !mathutil.AllFinite(s.MonthlyPayment, s.TotalPayment, s.TotalInterest) {
		return Summary{}, false
	}
	return s, true
}

// Schedule builds the month-by-month amortization schedule. The final
// payment settles whatever balance remains so the loan ends at exactly zero.
func Schedule(principal, annualInterestRate float64, termMonths int) ([]Payment, error) {
	if termMonths <= 0 {
		return nil, fmt.Errorf("term must be positive, got %d months", termMonths)
	}
	if termMonths > constants.MaxLoanMonths {
		return nil, fmt.Errorf("term of %d months exceeds the maximum of %d", termMonths, constants.MaxLoanMonths)
	}

	monthlyPayment := CalculateMonthlyPayment(principal, annualInterestRate, float64(termMonths))
	schedule := make([]Payment, 0, termMonths)
	remaining := principal
	for month := 1; month <= termMonths; month++ {
		var p Payment
		p.Month = month
		p.Interest = CalculateInterestPayment(remaining, annualInterestRate)
		p.Principal = monthlyPayment - p.Interest
		if month == termMonths || mathutil.Round(remaining-p.Principal) == 0 {
			// We will get machine error otherwise so just settle the balance.
			p.Principal = remaining
			p.RemainingPrincipal = 0
		} else {
			p.RemainingPrincipal = remaining - p.Principal
		}
		p.Payment = p.Principal + p.Interest
		schedule = append(schedule, p)
		remaining = p.RemainingPrincipal
		if remaining == 0 {
			break
		}
	}
	return schedule, nil
}

// YearlyTotals folds a monthly schedule into one point per loan year.
func YearlyTotals(schedule []Payment) []calc.Point {
	var points []calc.Point
	for i, p := range schedule {
		if i%constants.MonthsPerYear == 0 {
			points = append(points, calc.Point{
				Name:   fmt.Sprintf("Year %d", i/constants.MonthsPerYear+1),
				Values: map[string]float64{"principal": 0, "interest": 0, "balance": 0},
			})
		}
		last := points[len(points)-1]
		last.Values["principal"] += p.Principal
		last.Values["interest"] += p.Interest
		last.Values["balance"] = p.RemainingPrincipal
	}
	return points
}
