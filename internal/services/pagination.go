package services

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// NormalizePage defaults page to 1 and size to DefaultPageSize, capping size at MaxPageSize.
func NormalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

func offset(page, size int) int {
	return (page - 1) * size
}
