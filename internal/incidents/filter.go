package incidents

import (
	"slices"
	"strings"

	"github.com/miradorstack/opsboard/internal/store"
	"github.com/miradorstack/opsboard/internal/utils"
)

// Match reports whether inc satisfies f.
func Match(inc Incident, f Filters) bool {
	if len(f.Status) > 0 && !slices.Contains(f.Status, inc.Status) {
		return false
	}
	if len(f.Severity) > 0 && !slices.Contains(f.Severity, inc.Severity) {
		return false
	}
	if !utils.ContainsFold(inc.Service, f.Service) {
		return false
	}
	from, _ := utils.ParseDateBound(f.DateFrom, false)
	to, _ := utils.ParseDateBound(f.DateTo, true)
	if !utils.WithinRange(inc.CreatedAt, from, to) {
		return false
	}
	return f.Search == "" ||
		utils.ContainsFold(inc.Title, f.Search) ||
		utils.ContainsFold(inc.Description, f.Search)
}

// Compare orders two incidents by s; the result follows cmp conventions.
func Compare(a, b Incident, s store.Sort) int {
	var c int
	switch s.Field {
	case SortSeverity:
		c = a.Severity.Rank() - b.Severity.Rank()
	case SortStatus:
		c = a.Status.Rank() - b.Status.Rank()
	case SortService:
		c = strings.Compare(strings.ToLower(a.Service), strings.ToLower(b.Service))
	case SortUpdatedAt:
		c = a.UpdatedAt.Compare(b.UpdatedAt)
	default:
		c = a.CreatedAt.Compare(b.CreatedAt)
	}
	if s.Direction == store.Desc {
		return -c
	}
	return c
}

// ValidSortField reports whether field is sortable.
func ValidSortField(field string) bool {
	switch field {
	case SortCreatedAt, SortUpdatedAt, SortSeverity, SortStatus, SortService:
		return true
	}
	return false
}
