package services

import (
	"fmt"
	"strings"

	"github.com/Govind-619/Esdukas/utils"
)

// MerchantResolver maps currency codes to gateway merchant accounts. The
// table is fixed at construction.
type MerchantResolver struct {
	accounts        map[string]string
	defaultCurrency string
}

// NewMerchantResolver copies accounts; defaultCurrency must have an entry.
func NewMerchantResolver(accounts map[string]string, defaultCurrency string) (*MerchantResolver, error) {
	table := make(map[string]string, len(accounts))
	for currency, account := range accounts {
		table[strings.ToUpper(strings.TrimSpace(currency))] = account
	}
	defaultCurrency = strings.ToUpper(strings.TrimSpace(defaultCurrency))
	if table[defaultCurrency] == "" {
		return nil, fmt.Errorf("no merchant account for default currency %q", defaultCurrency)
	}
	return &MerchantResolver{accounts: table, defaultCurrency: defaultCurrency}, nil
}

// Resolve returns the merchant account for currency. Unknown codes fall back
// to the default account.
func (r *MerchantResolver) Resolve(currency string) string {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if account, ok := r.accounts[code]; ok && account != "" {
		return account
	}
	utils.LogWarn("Unsupported currency %q, using %s merchant account", currency, r.defaultCurrency)
	return r.accounts[r.defaultCurrency]
}

// Supports reports whether currency has its own merchant account
func (r *MerchantResolver) Supports(currency string) bool {
	_, ok := r.accounts[strings.ToUpper(strings.TrimSpace(currency))]
	return ok
}

// DefaultCurrency returns the fallback currency code
func (r *MerchantResolver) DefaultCurrency() string {
	return r.defaultCurrency
}
