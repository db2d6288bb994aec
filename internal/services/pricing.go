package services

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/table-order/api/internal/domain"
)

// PriceQuote is the server-side price snapshot for a requested order. Totals
// and per-line prices come from the current menu, never from the client.
type PriceQuote struct {
	Lines []domain.OrderDraftLine
	Total int64
}

// QuoteOrder resolves each requested line against the available menu items
// and computes the order total. Unknown or unavailable items fail the whole
// quote with ErrMenuItemNotFound.
func QuoteOrder(menu []domain.MenuItem, lines []OrderLineInput) (PriceQuote, error) {
	if len(lines) == 0 {
		return PriceQuote{}, fmt.Errorf("%w: order needs at least one line", ErrOrderInvalidInput)
	}

	byID := make(map[int64]domain.MenuItem, len(menu))
	for _, item := range menu {
		if item.Available {
			byID[item.ID] = item
		}
	}

	quote := PriceQuote{Lines: make([]domain.OrderDraftLine, 0, len(lines))}
	for _, line := range lines {
		if line.Quantity < 1 {
			return PriceQuote{}, fmt.Errorf("%w: quantity must be at least 1", ErrOrderInvalidInput)
		}

		item, ok := byID[line.MenuItemID]
		if !ok {
			return PriceQuote{}, fmt.Errorf("%w: item %d", ErrMenuItemNotFound, line.MenuItemID)
		}

		quote.Lines = append(quote.Lines, domain.OrderDraftLine{
			MenuItemID: item.ID,
			Name:       item.Name,
			Quantity:   line.Quantity,
			UnitPrice:  item.UnitPrice,
		})
		quote.Total += item.UnitPrice * int64(line.Quantity)
	}

	return quote, nil
}

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: invalid email address", ErrOrderInvalidInput)
	}
	return nil
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
