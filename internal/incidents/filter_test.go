package incidents

import (
	"net/url"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/opsboard/internal/store"
)

func TestMatch(t *testing.T) {
	inc := Incident{
		Title:     "API latency in payments service",
		Status:    StatusInvestigating,
		Severity:  SeverityHigh,
		Service:   "payments",
		CreatedAt: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}

	assert.True(t, Match(inc, Filters{}))
	assert.True(t, Match(inc, Filters{Status: []Status{StatusOpen, StatusInvestigating}}))
	assert.False(t, Match(inc, Filters{Severity: []Severity{SeverityCritical}}))
	assert.True(t, Match(inc, Filters{Service: "PAY"}))
	assert.True(t, Match(inc, Filters{Search: "latency"}))
	assert.False(t, Match(inc, Filters{Search: "relevance"}))
	assert.True(t, Match(inc, Filters{DateFrom: "2024-05-01", DateTo: "2024-05-01"}))
	assert.False(t, Match(inc, Filters{DateFrom: "2024-05-02"}))
}

func TestCompareOrdersBySeverityRank(t *testing.T) {
	items := []Incident{
		{ID: "low", Severity: SeverityLow},
		{ID: "crit", Severity: SeverityCritical},
		{ID: "med", Severity: SeverityMedium},
	}
	slices.SortFunc(items, func(a, b Incident) int {
		return Compare(a, b, store.Sort{Field: SortSeverity, Direction: store.Desc})
	})
	ids := []string{items[0].ID, items[1].ID, items[2].ID}
	assert.Equal(t, []string{"crit", "med", "low"}, ids)
}

func TestQueryEncodingRoundTrips(t *testing.T) {
	q := store.ListQuery[Filters]{
		Page:     3,
		PageSize: 25,
		Filters: Filters{
			Status:   []Status{StatusOpen, StatusMitigated},
			Severity: []Severity{SeverityCritical},
			Service:  "auth",
			Search:   "spike",
			DateFrom: "2024-05-01",
		},
		Sort: store.Sort{Field: SortSeverity, Direction: store.Asc},
	}

	v := EncodeQuery(q)
	assert.Equal(t, []string{"open", "mitigated"}, v["status"])
	assert.Empty(t, v.Get("dateTo"))

	got, err := DecodeQuery(v, 10)
	require.NoError(t, err)
	assert.Equal(t, q, got)
}

func TestDecodeQuery(t *testing.T) {
	q, err := DecodeQuery(url.Values{"status": {"open,resolved"}}, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 10, q.PageSize)
	assert.Equal(t, []Status{StatusOpen, StatusResolved}, q.Filters.Status)
	assert.Equal(t, store.Desc, q.Sort.Direction)

	_, err = DecodeQuery(url.Values{"page": {"0"}}, 10)
	assert.Error(t, err)
	_, err = DecodeQuery(url.Values{"sortField": {"owner"}}, 10)
	assert.Error(t, err)
}

func TestMapperFillsSLAWhenMissing(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := Mapper{Now: func() time.Time { return now }}

	inc := m.ToDomain(DTO{
		ID:        "inc-1",
		Status:    "open",
		CreatedAt: "2024-05-01T10:00:00Z",
		UpdatedAt: "2024-05-01T11:00:00Z",
		SLADueAt:  "2024-05-01T11:30:00Z",
	})
	assert.Equal(t, SLABreached, inc.SLAStatus)
	assert.Equal(t, []string{}, inc.AffectedSystems)
	require.NotNil(t, inc.SLADueAt)

	inc = m.ToDomain(DTO{ID: "inc-2", Status: "open", SLADueAt: "2024-05-01T11:30:00Z", SLAStatus: "ok"})
	assert.Equal(t, SLAOk, inc.SLAStatus, "server value wins")

	dto := ToDTO(inc)
	assert.Equal(t, "2024-05-01T11:30:00Z", dto.SLADueAt)
	assert.Equal(t, "ok", dto.SLAStatus)
}
