// README: Money value object used for fare labels on the driver card.
package types

import "strconv"

type Money struct {
	Amount   int64
	Currency string
}

var currencySymbols = map[string]string{
	"PHP": "₱",
	"TWD": "NT$",
	"USD": "$",
}

// String renders the amount with the currency symbol, e.g. "₱50".
// Unknown currencies fall back to "50 XYZ".
func (m Money) String() string {
	amount := strconv.FormatInt(m.Amount, 10)
	if sym, ok := currencySymbols[m.Currency]; ok {
		return sym + amount
	}
	if m.Currency == "" {
		return amount
	}
	return amount + " " + m.Currency
}
