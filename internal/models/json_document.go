package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONDocument stores an arbitrary JSON value in a TEXT column and renders it inline in API responses.
type JSONDocument json.RawMessage

func (d JSONDocument) Value() (driver.Value, error) {
	if len(d) == 0 {
		return "null", nil
	}
	if !json.Valid(d) {
		return nil, fmt.Errorf("models.JSONDocument: invalid JSON")
	}
	return string(d), nil
}

func (d *JSONDocument) Scan(value interface{}) error {
	if d == nil {
		return fmt.Errorf("models.JSONDocument: Scan on nil pointer")
	}
	switch v := value.(type) {
	case nil:
		*d = JSONDocument("null")
	case []byte:
		*d = append(JSONDocument(nil), v...)
	case string:
		*d = JSONDocument(v)
	default:
		return fmt.Errorf("models.JSONDocument: unsupported Scan type %T", value)
	}
	return nil
}

func (d JSONDocument) MarshalJSON() ([]byte, error) {
	if len(d) == 0 {
		return []byte("null"), nil
	}
	return d, nil
}

func (d *JSONDocument) UnmarshalJSON(data []byte) error {
	*d = append((*d)[0:0], data...)
	return nil
}
