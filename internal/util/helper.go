package util

// CloneSlice clones slice with cloneSize.
// This function will use src length as the clone size if cloneSize is 0.
func CloneSlice[T any](src []T, cloneSize int) []T {
	if cloneSize == 0 {
		cloneSize = len(src)
	}
	clone := make([]T, cloneSize)
	copy(clone, src)

	return clone
}

// CutNull returns the prefix of b before the first NUL byte.
func CutNull(b []byte) []byte {
	for i, c := range b {
		if c == 0 {
			return b[:i]
		}
	}

	return b
}
