package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"circlo/internal/domain/shared/money"
)

var (
	ErrItemNotFound     = errors.New("catalog: item not found")
	ErrInvalidItem      = errors.New("catalog: invalid item")
	ErrUnknownPriceUnit = errors.New("catalog: unknown price unit")
)

type ItemID string

// PriceUnit is the granularity an item is rented by.
type PriceUnit string

const (
	PriceUnitHour PriceUnit = "hour"
	PriceUnitDay  PriceUnit = "day"
	PriceUnitWeek PriceUnit = "week"
)

func ParsePriceUnit(raw string) (PriceUnit, error) {
	switch unit := PriceUnit(strings.ToLower(strings.TrimSpace(raw))); unit {
	case PriceUnitHour, PriceUnitDay, PriceUnitWeek:
		return unit, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPriceUnit, raw)
	}
}

// Item is the catalog view the reservation core prices against. It is owned
// by the catalog collaborator and read-only here.
type Item struct {
	ID        ItemID
	OwnerID   string
	UnitPrice money.Money
	PriceUnit PriceUnit
}

func (i Item) Validate() error {
	if strings.TrimSpace(string(i.ID)) == "" {
		return fmt.Errorf("%w: id required", ErrInvalidItem)
	}
	if strings.TrimSpace(i.OwnerID) == "" {
		return fmt.Errorf("%w: owner required", ErrInvalidItem)
	}
	if !i.UnitPrice.IsPositive() {
		return fmt.Errorf("%w: unit price must be positive", ErrInvalidItem)
	}
	if _, err := ParsePriceUnit(string(i.PriceUnit)); err != nil {
		return err
	}
	return nil
}

func (i Item) OwnedBy(actorID string) bool {
	return actorID != "" && i.OwnerID == actorID
}

type Repository interface {
	ByID(ctx context.Context, id ItemID) (*Item, error)
}
