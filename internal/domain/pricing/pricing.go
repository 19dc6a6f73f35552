package pricing

import (
	"errors"
	"fmt"
	"time"

	"circlo/internal/domain/catalog"
	"circlo/internal/domain/shared/daterange"
	"circlo/internal/domain/shared/money"
)

var (
	ErrInvalidPrice  = errors.New("pricing: unit price must be positive")
	ErrInvalidPolicy = errors.New("pricing: policy values cannot be negative")
)

const (
	DefaultPlatformFeeBasisPoints = 1500
	DefaultSafetyDepositMinor     = 200
)

// Policy holds the platform-wide charges added on top of rent.
type Policy struct {
	PlatformFeeBasisPoints int64
	SafetyDepositMinor     int64
}

func DefaultPolicy() Policy {
	return Policy{
		PlatformFeeBasisPoints: DefaultPlatformFeeBasisPoints,
		SafetyDepositMinor:     DefaultSafetyDepositMinor,
	}
}

func (p Policy) Validate() error {
	if p.PlatformFeeBasisPoints < 0 || p.SafetyDepositMinor < 0 {
		return ErrInvalidPolicy
	}
	return nil
}

// Breakdown is the itemized charge for a rental. Total always equals the sum
// of the three components.
type Breakdown struct {
	Units         int64
	PriceUnit     catalog.PriceUnit
	UnitPrice     money.Money
	RentPayment   money.Money
	PlatformFee   money.Money
	SafetyDeposit money.Money
	Total         money.Money
}

func (b Breakdown) Currency() string {
	return b.Total.Currency
}

type Calculator struct {
	Policy Policy
}

func NewCalculator(policy Policy) (*Calculator, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{Policy: policy}, nil
}

// ComputeBreakdown prices the inclusive range [start, end] for an item rented
// at unitPrice per unit. It is pure and deterministic.
func (c Calculator) ComputeBreakdown(unitPrice money.Money, unit catalog.PriceUnit, start, end time.Time) (Breakdown, error) {
	if !unitPrice.IsPositive() {
		return Breakdown{}, ErrInvalidPrice
	}
	if _, err := money.New(unitPrice.Amount, unitPrice.Currency); err != nil {
		return Breakdown{}, err
	}
	dr, err := daterange.New(start, end)
	if err != nil {
		return Breakdown{}, err
	}
	units, err := DurationUnits(dr, unit)
	if err != nil {
		return Breakdown{}, err
	}

	rent := unitPrice.Multiply(units)
	fee := rent.CeilBasisPoints(c.Policy.PlatformFeeBasisPoints)
	deposit := money.Money{Amount: c.Policy.SafetyDepositMinor, Currency: unitPrice.Currency}

	total, err := rent.Add(fee)
	if err != nil {
		return Breakdown{}, err
	}
	if total, err = total.Add(deposit); err != nil {
		return Breakdown{}, err
	}
	return Breakdown{
		Units:         units,
		PriceUnit:     unit,
		UnitPrice:     unitPrice,
		RentPayment:   rent,
		PlatformFee:   fee,
		SafetyDeposit: deposit,
		Total:         total,
	}, nil
}

// DurationUnits counts billable units in an inclusive date range. A partial
// week is billed as a full week.
func DurationUnits(dr daterange.DateRange, unit catalog.PriceUnit) (int64, error) {
	days := int64(dr.Days())
	var units int64
	switch unit {
	case catalog.PriceUnitHour:
		units = days * 24
	case catalog.PriceUnitDay:
		units = days
	case catalog.PriceUnitWeek:
		units = (days + 6) / 7
	default:
		return 0, fmt.Errorf("%w: %q", catalog.ErrUnknownPriceUnit, unit)
	}
	if units < 1 {
		units = 1
	}
	return units, nil
}
