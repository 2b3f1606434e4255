package domain

import (
	"encoding/json"
	"strings"
)

// AccountSentinel is the canonical value substituted for an absent account
// inside the storage-layer uniqueness index. It never appears in business
// logic; Account.Key is the only place that produces it.
const AccountSentinel = "__none__"

// Account is an optional account number. Absence is a first-class value with
// defined equality rather than an empty string.
type Account struct {
	Number string
	Valid  bool
}

// NewAccount returns a present account. A blank number is treated as absent.
func NewAccount(number string) Account {
	number = strings.TrimSpace(number)
	if number == "" {
		return NoAccount()
	}
	return Account{Number: number, Valid: true}
}

// NoAccount returns the absent account value.
func NoAccount() Account {
	return Account{}
}

// Equal treats all absent accounts as a single canonical value.
func (a Account) Equal(other Account) bool {
	if !a.Valid && !other.Valid {
		return true
	}
	return a.Valid == other.Valid && a.Number == other.Number
}

// Key returns the value used in the uniqueness tuple: the account number when
// present, the sentinel otherwise.
func (a Account) Key() string {
	if !a.Valid {
		return AccountSentinel
	}
	return a.Number
}

// Ptr returns the nullable-column representation.
func (a Account) Ptr() *string {
	if !a.Valid {
		return nil
	}
	n := a.Number
	return &n
}

// AccountFromPtr builds an Account from a nullable column value.
func AccountFromPtr(p *string) Account {
	if p == nil {
		return NoAccount()
	}
	return NewAccount(*p)
}

func (a Account) String() string {
	if !a.Valid {
		return ""
	}
	return a.Number
}

func (a Account) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(a.Number)
}

func (a *Account) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*a = NoAccount()
		return nil
	}
	var number string
	if err := json.Unmarshal(data, &number); err != nil {
		return err
	}
	*a = NewAccount(number)
	return nil
}
