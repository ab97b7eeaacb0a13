package config

import (
	"io"
	"time"
)

// TimeConfig reads duration values stored as plain integers, interpreting the
// key's unit suffix (seconds, minutes, hours, days) for the caller.
type TimeConfig interface {
	// GetSecond reads the key as a number of seconds.
	GetSecond(key string) time.Duration
	// GetMinute reads the key as a number of minutes.
	GetMinute(key string) time.Duration
	// GetHour reads the key as a number of hours.
	GetHour(key string) time.Duration
	// GetDay reads the key as a number of 24h days.
	GetDay(key string) time.Duration
}

// SignedIntConfig reads signed integer values.
type SignedIntConfig interface {
	GetInt(key string) int
	GetInt32(key string) int32
	GetInt64(key string) int64
}

// UnsignedIntConfig reads unsigned integer values.
type UnsignedIntConfig interface {
	GetUint(key string) uint
	GetUint16(key string) uint16
	GetUint32(key string) uint32
	GetUint64(key string) uint64
}

// FloatConfig reads floating-point values.
type FloatConfig interface {
	GetFloat32(key string) float32
	GetFloat64(key string) float64
}

// Config is the read-only configuration surface handed to the rest of the
// application. Implementations return zero values for missing keys; callers
// that need a default apply it themselves.
type Config interface {
	io.Closer
	TimeConfig
	SignedIntConfig
	UnsignedIntConfig
	FloatConfig

	// GetBool reads the key as a bool.
	GetBool(key string) bool

	// GetString reads the key as a string.
	GetString(key string) string

	// GetBinary reads the key as base64-encoded bytes.
	GetBinary(key string) []byte

	// GetArray reads the key as a comma-separated list.
	GetArray(key string) []string

	// GetMap reads the key as "k1:v1,k2:v2" pairs.
	GetMap(key string) map[string]string
}
