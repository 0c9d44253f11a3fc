package util

// CloneSlice returns a copy of src sized cloneSize, or len(src) when
// cloneSize is 0. Link responses share one backing array per exchange, so
// anything kept past an exchange must be cloned.
func CloneSlice[T any](src []T, cloneSize int) []T {
	if cloneSize == 0 {
		cloneSize = len(src)
	}
	clone := make([]T, cloneSize)
	copy(clone, src)
	return clone
}

// ReverseBytes returns a new slice with the bytes of src in reverse order.
// The chip reports multi-byte fields such as firmware versions least
// significant byte first.
func ReverseBytes(src []byte) []byte {
	out := make([]byte, len(src))
	for i, b := range src {
		out[len(src)-1-i] = b
	}
	return out
}
