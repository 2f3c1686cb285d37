package incidents

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
	for _, s := range q.Filters.Severity {
		v.Add("severity", string(s))
	}
	setIf(v, "service", q.Filters.Service)
	setIf(v, "search", q.Filters.Search)
	setIf(v, "dateFrom", q.Filters.DateFrom)
	setIf(v, "dateTo", q.Filters.DateTo)
	setIf(v, "sortField", q.Sort.Field)
	setIf(v, "sortDirection", string(q.Sort.Direction))
	return v
}

// DecodeQuery parses URL parameters produced by EncodeQuery. Missing paging values
// default to page 1 of defaultPageSize.
func DecodeQuery(v url.Values, defaultPageSize int) (store.ListQuery[Filters], error) {
	q := store.ListQuery[Filters]{Page: 1, PageSize: defaultPageSize}
	var err error
	if q.Page, err = intParam(v, "page", 1); err != nil {
		return q, err
	}
	if q.PageSize, err = intParam(v, "pageSize", defaultPageSize); err != nil {
		return q, err
	}
	for _, s := range splitMulti(v["status"]) {
		q.Filters.Status = append(q.Filters.Status, Status(s))
	}
	for _, s := range splitMulti(v["severity"]) {
		q.Filters.Severity = append(q.Filters.Severity, Severity(s))
	}
	q.Filters.Service = v.Get("service")
	q.Filters.Search = v.Get("search")
	q.Filters.DateFrom = v.Get("dateFrom")
	q.Filters.DateTo = v.Get("dateTo")
	q.Sort.Field = v.Get("sortField")
	if q.Sort.Field != "" && !ValidSortField(q.Sort.Field) {
		return q, fmt.Errorf("unknown sort field %q", q.Sort.Field)
	}
	q.Sort.Direction = store.Desc
	if strings.EqualFold(v.Get("sortDirection"), string(store.Asc)) {
		q.Sort.Direction = store.Asc
	}
	return q, nil
}

func intParam(v url.Values, key string, def int) (int, error) {
	raw := v.Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return n, nil
}

func splitMulti(values []string) []string {
	var out []string
	for _, raw := range values {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func setIf(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}
