package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/receiptvault/receiptvault/internal/extract"
)

// LineItems stores a receipt's ordered item list as a JSON column, portable
// across postgres and the sqlite test driver.
type LineItems []extract.LineItem

func (l LineItems) Value() (driver.Value, error) {
	if l == nil {
		l = LineItems{}
	}
	return json.Marshal(l)
}

func (l *LineItems) Scan(value any) error {
	return scanJSON(value, l)
}

// StringList stores free-text tags as a JSON column.
type StringList []string

func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		s = StringList{}
	}
	return json.Marshal(s)
}

func (s *StringList) Scan(value any) error {
	return scanJSON(value, s)
}

// JSONBlob stores an opaque structured payload (the raw extraction record).
type JSONBlob json.RawMessage

func (j JSONBlob) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return []byte(j), nil
}

func (j *JSONBlob) Scan(value any) error {
	if value == nil {
		*j = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*j = append((*j)[:0], v...)
		return nil
	case string:
		*j = JSONBlob(v)
		return nil
	default:
		return fmt.Errorf("unsupported JSON column type %T", value)
	}
}

func (j JSONBlob) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

func (j *JSONBlob) UnmarshalJSON(data []byte) error {
	if j == nil {
		return errors.New("entity.JSONBlob: UnmarshalJSON on nil pointer")
	}
	*j = append((*j)[:0], data...)
	return nil
}

func scanJSON(value any, dest any) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("unsupported JSON column type %T", value)
	}
}
