package internal

// Filter returns the elements of input for which keep returns true.
func Filter[T any](input []T, keep func(T) bool) []T {
	result := make([]T, 0, len(input))
	for _, v := range input {
		if keep(v) {
			result = append(result, v)
		}
	}
	return result
}

// Map returns a new slice with mapper applied to each element.
func Map[T any, U any](input []T, mapper func(T) U) []U {
	result := make([]U, 0, len(input))
	for _, v := range input {
		result = append(result, mapper(v))
	}
	return result
}

// Any reports whether pred holds for at least one element, stopping at the first match.
func Any[T any](input []T, pred func(T) bool) bool {
	for _, v := range input {
		if pred(v) {
			return true
		}
	}
	return false
}
