package deployments

import (
	"slices"
	"strings"

	"github.com/miradorstack/opsboard/internal/store"
	"github.com/miradorstack/opsboard/internal/utils"
)

// Match reports whether d satisfies f.
func Match(d Deployment, f Filters) bool {
	if len(f.Status) > 0 && !slices.Contains(f.Status, d.Status) {
		return false
	}
	if !utils.ContainsFold(d.Service, f.Service) {
		return false
	}
	return f.Search == "" || utils.ContainsFold(d.Name, f.Search) || utils.ContainsFold(d.Version, f.Search)
}

// Compare orders two deployments by s.
func Compare(a, b Deployment, s store.Sort) int {
	var c int
	switch s.Field {
	case SortName:
		c = strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	case SortService:
		c = strings.Compare(strings.ToLower(a.Service), strings.ToLower(b.Service))
	case SortStatus:
		c = strings.Compare(string(a.Status), string(b.Status))
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
	case SortCreatedAt, SortUpdatedAt, SortName, SortService, SortStatus:
		return true
	}
	return false
}
