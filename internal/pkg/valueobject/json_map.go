package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// ErrScanTypeUnsupported indicates a database value that cannot be decoded
// into a JSONMap.
var ErrScanTypeUnsupported = errors.New("valueobject: unsupported scan type for jsonmap")

// JSONMap holds an arbitrary JSON object, usable both as a JSONB column value
// and as loosely-typed template or event data.
type JSONMap map[string]any

// Value implements driver.Valuer.
func (j JSONMap) Value() (driver.Value, error) {
	return json.Marshal(j)
}

// Scan implements sql.Scanner.
func (j *JSONMap) Scan(value any) error {
	if value == nil {
		*j = JSONMap{}
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	case json.RawMessage:
		raw = []byte(v)
	case map[string]any:
		*j = JSONMap(v)
		return nil
	default:
		return ErrScanTypeUnsupported
	}

	var decoded JSONMap
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}

	*j = decoded
	return nil
}

// Set adds or replaces a key.
func (j JSONMap) Set(key string, value any) {
	j[key] = value
}

// Has reports whether the key exists.
func (j JSONMap) Has(key string) bool {
	_, ok := j[key]
	return ok
}

// GetString returns the string at key, or "" when missing or not a string.
func (j JSONMap) GetString(key string) string {
	if v, ok := j[key].(string); ok {
		return v
	}
	return ""
}

// GetInt64 returns the integer at key. JSON numbers decode as float64, so
// both representations are accepted.
func (j JSONMap) GetInt64(key string) int64 {
	switch v := j[key].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// GetBool returns the bool at key, or false when missing or not a bool.
func (j JSONMap) GetBool(key string) bool {
	if v, ok := j[key].(bool); ok {
		return v
	}
	return false
}
