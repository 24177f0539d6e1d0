package stickers

// PageCount returns ceil(n/capacity), and 0 when there are no rows. A
// capacity below 1 is treated as 1.
func PageCount(n, capacity int) int {
	if n <= 0 {
		return 0
	}
	if capacity < 1 {
		capacity = 1
	}
	return (n + capacity - 1) / capacity
}

// PageSlice returns the rows printed on page. Pages outside
// [0, PageCount) are empty, not an error. The result shares ds's backing
// array and must not be modified.
func PageSlice(ds Dataset, page, capacity int) Dataset {
	if capacity < 1 {
		capacity = 1
	}
	if page < 0 || page >= PageCount(len(ds), capacity) {
		return Dataset{}
	}
	start := page * capacity
	end := start + capacity
	if end > len(ds) {
		end = len(ds)
	}
	return ds[start:end:end]
}
