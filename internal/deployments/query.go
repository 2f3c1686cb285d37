package deployments

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/miradorstack/opsboard/internal/store"
)

// EncodeQuery renders a list query as URL parameters.
func EncodeQuery(q store.ListQuery[Filters]) url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("pageSize", strconv.Itoa(q.PageSize))
	for _, s := range q.Filters.Status {
		v.Add("status", string(s))
	}
	if q.Filters.Service != "" {
		v.Set("service", q.Filters.Service)
	}
	if q.Filters.Search != "" {
		v.Set("search", q.Filters.Search)
	}
	if q.Sort.Field != "" {
		v.Set("sortField", q.Sort.Field)
		v.Set("sortDirection", string(q.Sort.Direction))
	}
	return v
}

// DecodeQuery parses URL parameters produced by EncodeQuery.
func DecodeQuery(v url.Values, defaultPageSize int) (store.ListQuery[Filters], error) {
	q := store.ListQuery[Filters]{
		Page:     1,
		PageSize: defaultPageSize,
		Sort:     DefaultSort,
	}
	for key, dst := range map[string]*int{"page": &q.Page, "pageSize": &q.PageSize} {
		raw := v.Get(key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return q, fmt.Errorf("invalid %s %q", key, raw)
		}
		*dst = n
	}
	for _, raw := range v["status"] {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				q.Filters.Status = append(q.Filters.Status, Status(s))
			}
		}
	}
	q.Filters.Service = v.Get("service")
	q.Filters.Search = v.Get("search")
	if field := v.Get("sortField"); field != "" {
		if !ValidSortField(field) {
			return q, fmt.Errorf("unknown sort field %q", field)
		}
		q.Sort.Field = field
		q.Sort.Direction = store.Desc
		if strings.EqualFold(v.Get("sortDirection"), string(store.Asc)) {
			q.Sort.Direction = store.Asc
		}
	}
	return q, nil
}
