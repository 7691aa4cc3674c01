package ptrs

import "time"

// Ptr is the "&T(v)" you always wanted.
func Ptr[T any](v T) *T {
	return &v
}

// Float64Ptr is the "&float64(1)" you always wanted.
func Float64Ptr(val float64) *float64 {
	return &val
}

// TimePtr is the &time.Now().UTC() you always wanted.
func TimePtr(val time.Time) *time.Time {
	return &val
}

// Deref returns the pointed-to value, or the fallback for a nil pointer.
func Deref[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}
