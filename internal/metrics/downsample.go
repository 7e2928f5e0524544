package metrics

// Downsample reduces points to at most maxPoints entries by stride sampling,
// then appends the final point if the stride skipped it. The result therefore
// holds at most maxPoints+1 entries, keeps the input order and always ends with
// the input's last point. Selected points are returned unmodified.
//
// Inputs no longer than maxPoints, or a non-positive maxPoints, are returned as-is.
func Downsample[T any](data []T, maxPoints int) []T {
	if maxPoints <= 0 || len(data) <= maxPoints {
		return data
	}

	result := make([]T, 0, maxPoints+1)
	lastIdx := -1
	for i := 0; i < maxPoints; i++ {
		lastIdx = i * len(data) / maxPoints
		result = append(result, data[lastIdx])
	}
	if lastIdx != len(data)-1 {
		result = append(result, data[len(data)-1])
	}
	return result
}
