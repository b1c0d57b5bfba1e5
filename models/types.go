package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Metadata is a flat string map persisted as a JSON text column
type Metadata map[string]string

// Value implements driver.Valuer
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (m *Metadata) Scan(value interface{}) error {
	raw, err := columnBytes(value)
	if err != nil {
		return fmt.Errorf("scan metadata: %w", err)
	}
	out := Metadata{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("scan metadata: %w", err)
		}
	}
	*m = out
	return nil
}

// CartItems is the ordered item list of a cart, persisted as JSON
type CartItems []CartItem

// Value implements driver.Valuer
func (items CartItems) Value() (driver.Value, error) {
	if items == nil {
		return "[]", nil
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (items *CartItems) Scan(value interface{}) error {
	raw, err := columnBytes(value)
	if err != nil {
		return fmt.Errorf("scan cart items: %w", err)
	}
	out := CartItems{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("scan cart items: %w", err)
		}
	}
	*items = out
	return nil
}

func columnBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported column type %T", value)
	}
}
