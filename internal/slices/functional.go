package slices

func Map[L ~[]X, X, Y any](l L, f func(X) Y) []Y {
	r := make([]Y, len(l))
	for i, x := range l {
		r[i] = f(x)
	}
	return r
}

// FilterMap applies f to every element of l and keeps the results for which
// f reports true.
func FilterMap[L ~[]X, X, Y any](l L, f func(X) (Y, bool)) []Y {
	var r []Y
	for _, x := range l {
		if y, ok := f(x); ok {
			r = append(r, y)
		}
	}
	return r
}
