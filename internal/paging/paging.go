package paging

// Page описывает одну страницу элементов.
type Page[T any] struct {
	Items    []T  `json:"items"`
	Page     int  `json:"page"`      // номер страницы (с 1)
	PageSize int  `json:"page_size"` // количество элементов на странице
	HasNext  bool `json:"has_next"`
	HasPrev  bool `json:"has_prev"`
	Total    int  `json:"total"` // общее количество элементов
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Paginate возвращает срез items для указанной страницы и метаданные.
// page нумеруется с 1. При некорректных значениях используются дефолты,
// pageSize ограничен MaxPageSize.
func Paginate[T any](items []T, page, pageSize int) Page[T] {
	total := len(items)

	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if page <= 0 {
		page = 1
	}

	start := (page - 1) * pageSize
	if start > total {
		start = total
	}

	end := start + pageSize
	if end > total {
		end = total
	}

	pageItems := items[start:end]
	if pageItems == nil {
		pageItems = []T{}
	}

	return Page[T]{
		Items:    pageItems,
		Page:     page,
		PageSize: pageSize,
		HasNext:  end < total,
		HasPrev:  page > 1,
		Total:    total,
	}
}

// Map converts page items while keeping the metadata.
func Map[T, U any](p Page[T], fn func(T) U) Page[U] {
	out := make([]U, 0, len(p.Items))
	for _, it := range p.Items {
		out = append(out, fn(it))
	}
	return Page[U]{
		Items:    out,
		Page:     p.Page,
		PageSize: p.PageSize,
		HasNext:  p.HasNext,
		HasPrev:  p.HasPrev,
		Total:    p.Total,
	}
}
