package utils

// Value dereferences v, returning the zero value for nil.
func Value[T any](v *T) T {
	if v == nil {
		var zero T
		return zero
	}
	return *v
}

// Ptr returns a pointer to a copy of v, for optional fields of partial
// updates.
func Ptr[T any](v T) *T {
	return &v
}

// PtrIf returns Ptr(v) when set is true and nil otherwise.
func PtrIf[T any](set bool, v T) *T {
	if !set {
		return nil
	}
	return &v
}
