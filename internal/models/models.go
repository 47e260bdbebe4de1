// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package models holds the records persisted by the stores and returned by the API.
package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
)

// JSON is an opaque JSON document stored verbatim in a text or jsonb column.
type JSON []byte

// MarshalJSON returns j unchanged, or null when empty.
func (j JSON) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON stores a copy of data.
func (j *JSON) UnmarshalJSON(data []byte) error {
	if j == nil {
		return errors.New("models.JSON: UnmarshalJSON on nil pointer")
	}
	*j = append((*j)[0:0], data...)
	return nil
}

// Value implements driver.Valuer.
func (j JSON) Value() (driver.Value, error) {
	if len(j) == 0 {
		return "null", nil
	}
	return string(j), nil
}

// Scan implements sql.Scanner.
func (j *JSON) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*j = nil
	case string:
		*j = JSON(v)
	case []byte:
		*j = append((*j)[0:0], v...)
	default:
		return fmt.Errorf("models.JSON: cannot scan %T", src)
	}
	return nil
}
