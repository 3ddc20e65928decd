// Package utils provides small shared helpers.
package utils

// Ptr returns a pointer to v. Student attributes are pointer-optional so a
// missing upload column stays distinguishable from a zero value; this keeps
// literals for those fields readable.
func Ptr[T any](v T) *T {
	return &v
}
