package incidents

import (
	"context"
	"slices"
	"sync"

	"github.com/miradorstack/opsboard/internal/audit"
	"github.com/miradorstack/opsboard/internal/store"
	"github.com/miradorstack/opsboard/internal/utils"
)

// fakeAPI is an in-memory DataAPI that counts calls.
type fakeAPI struct {
	mu        sync.Mutex
	incidents []Incident
	calls     map[string]int
	queries   []store.ListQuery[Filters]
	err       error
}

func newFakeAPI(items ...Incident) *fakeAPI {
	return &fakeAPI{incidents: items, calls: map[string]int{}}
}

func (f *fakeAPI) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeAPI) track(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	return f.err
}

func (f *fakeAPI) find(id string) (int, bool) {
	i := slices.IndexFunc(f.incidents, func(inc Incident) bool { return inc.ID == id })
	return i, i >= 0
}

func (f *fakeAPI) List(_ context.Context, q store.ListQuery[Filters]) (store.Page[Incident], error) {
	if err := f.track("list"); err != nil {
		return store.Page[Incident]{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	var matched []Incident
	for _, inc := range f.incidents {
		if Match(inc, q.Filters) {
			matched = append(matched, inc)
		}
	}
	start := min((q.Page-1)*q.PageSize, len(matched))
	end := min(start+q.PageSize, len(matched))
	return store.Page[Incident]{Items: matched[start:end], Total: len(matched), Page: q.Page, PageSize: q.PageSize}, nil
}

func (f *fakeAPI) Get(_ context.Context, id string) (Incident, error) {
	if err := f.track("get"); err != nil {
		return Incident{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if i, ok := f.find(id); ok {
		return f.incidents[i], nil
	}
	return Incident{}, utils.ErrNotFound
}

func (f *fakeAPI) Create(_ context.Context, p CreatePayload) (Incident, error) {
	if err := f.track("create"); err != nil {
		return Incident{}, err
	}
	inc := Incident{ID: "new-" + p.Title, Title: p.Title, Severity: p.Severity, Service: p.Service, Status: StatusOpen}
	f.mu.Lock()
	f.incidents = append([]Incident{inc}, f.incidents...)
	f.mu.Unlock()
	return inc, nil
}

func (f *fakeAPI) Update(_ context.Context, id string, p UpdatePayload) (Incident, error) {
	if err := f.track("update"); err != nil {
		return Incident{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i, ok := f.find(id)
	if !ok {
		return Incident{}, utils.ErrNotFound
	}
	if p.Title != nil {
		f.incidents[i].Title = *p.Title
	}
	return f.incidents[i], nil
}

func (f *fakeAPI) Delete(_ context.Context, id string) error {
	if err := f.track("delete"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.incidents = slices.DeleteFunc(f.incidents, func(inc Incident) bool { return inc.ID == id })
	return nil
}

func (f *fakeAPI) ChangeStatus(_ context.Context, id string, status Status) (Incident, error) {
	if err := f.track("status"); err != nil {
		return Incident{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i, ok := f.find(id)
	if !ok {
		return Incident{}, utils.ErrNotFound
	}
	f.incidents[i].Status = status
	return f.incidents[i], nil
}

func (f *fakeAPI) Assign(_ context.Context, id, userID string) (Incident, error) {
	if err := f.track("assign"); err != nil {
		return Incident{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i, ok := f.find(id)
	if !ok {
		return Incident{}, utils.ErrNotFound
	}
	f.incidents[i].AssignedTo = userID
	return f.incidents[i], nil
}

func (f *fakeAPI) AddComment(_ context.Context, id, message, actor string) (Incident, error) {
	if err := f.track("comment"); err != nil {
		return Incident{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i, ok := f.find(id)
	if !ok {
		return Incident{}, utils.ErrNotFound
	}
	f.incidents[i].Timeline = append(f.incidents[i].Timeline, TimelineEvent{Type: EventComment, Message: message, Actor: actor})
	return f.incidents[i], nil
}

type sinkRecorder struct {
	mu      sync.Mutex
	actions []string
}

func (s *sinkRecorder) Record(in audit.Input) {
	s.mu.Lock()
	s.actions = append(s.actions, in.Action)
	s.mu.Unlock()
}
