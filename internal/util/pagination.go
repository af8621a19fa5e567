package util

const (
	DefaultPageSize = 50
	MaxPageSize     = 100

	// MaxWindow matches Elasticsearch's default index.max_result_window: from+size may not exceed it.
	MaxWindow = 10000
)

// Calculate turns a 1-based page and a page size into an offset and limit.
// Out-of-range values fall back to the first page and the default size; pages past
// MaxWindow are clamped to the last reachable one.
func Calculate(page, size int) (from, limit int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > MaxPageSize {
		size = DefaultPageSize
	}
	if page > MaxWindow/size {
		page = MaxWindow / size
	}
	from = (page - 1) * size
	return from, size
}
