// Package fn holds small generic helpers for slices, results and traced
// processing stages.
package fn

// Map applies f to each element. The result always has len(items) entries.
func Map[T, U any](items []T, f func(T) U) []U {
	out := make([]U, len(items))
	for i, v := range items {
		out[i] = f(v)
	}
	return out
}

// Filter returns the elements where pred is true, preserving order. The
// result is never nil so it encodes as an empty JSON array.
func Filter[T any](items []T, pred func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, v := range items {
		if pred(v) {
			out = append(out, v)
		}
	}
	return out
}
