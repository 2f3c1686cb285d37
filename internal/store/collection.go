package store

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/miradorstack/opsboard/internal/utils"
)

// DefaultPageSize applies when Config.PageSize is not set.
const DefaultPageSize = 10

// Config parameterises a Collection.
type Config[T Entity, F any] struct {
	Name string
	Mode Mode
	// Lister fetches data for Load. Optional for client-mode collections fed through Patch.
	Lister Lister[T, F]
	// Match filters items in ModeClient. Required there, ignored in ModeServer.
	Match func(item T, filters F) bool
	// Less orders visible items in ModeClient. Items keep their order when nil.
	Less           func(a, b T, sort Sort) bool
	DefaultFilters F
	DefaultSort    Sort
	PageSize       int
	Persistence    Persistence[F]
	// LoadError is the message recorded when Load fails.
	LoadError string
	Logger    *slog.Logger
}

// Collection is a thread-safe reactive container for one entity type.
//
// Every change is applied atomically under mu and then published to subscribers in the
// order it was applied. Subscribers must not modify the collection synchronously.
type Collection[T Entity, F any] struct {
	cfg    Config[T, F]
	logger *slog.Logger

	mu    sync.Mutex
	state State[T, F]
	// loadSeq identifies the newest Load; older results are discarded.
	loadSeq    uint64
	loadActive bool
	// epoch changes on Reset so in-flight mutations cannot resurrect old state.
	epoch     uint64
	mutations int

	notifyMu sync.Mutex
	subs     map[int]func(State[T, F])
	nextSub  int
}

// New validates cfg and returns an empty collection.
func New[T Entity, F any](cfg Config[T, F]) (*Collection[T, F], error) {
	if cfg.Mode == ModeClient && cfg.Match == nil {
		return nil, errors.New("client-mode collection requires a Match predicate")
	}
	if cfg.Mode != ModeClient && cfg.Mode != ModeServer {
		return nil, errors.New("unknown collection mode")
	}
	if cfg.PageSize < 1 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.LoadError == "" {
		cfg.LoadError = "Failed to load " + cfg.Name
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &Collection[T, F]{
		cfg:    cfg,
		logger: logger.With(slog.String("collection", cfg.Name)),
		subs:   make(map[int]func(State[T, F])),
	}
	c.state = c.initialState()
	return c, nil
}

func (c *Collection[T, F]) initialState() State[T, F] {
	return State[T, F]{
		Filters:    c.cfg.DefaultFilters,
		Sort:       c.cfg.DefaultSort,
		Pagination: Pagination{Page: 1, PageSize: c.cfg.PageSize},
	}
}

// Mode reports how the collection filters.
func (c *Collection[T, F]) Mode() Mode { return c.cfg.Mode }

// Load fetches the current page. A newer Load or a Reset supersedes it; a superseded
// result is dropped and nil is returned. When the server reports fewer pages than the
// current page, the page is clamped and fetched once more.
func (c *Collection[T, F]) Load(ctx context.Context) error {
	if c.cfg.Lister == nil {
		return nil
	}

	var (
		seq   uint64
		query ListQuery[F]
	)
	c.commit(func(s *State[T, F]) bool {
		c.loadSeq++
		seq = c.loadSeq
		c.loadActive = true
		s.Error = ""
		query = ListQuery[F]{
			Page:     s.Pagination.Page,
			PageSize: s.Pagination.PageSize,
			Filters:  s.Filters,
			Sort:     s.Sort,
		}
		return true
	})

	for attempt := 0; ; attempt++ {
		page, err := c.cfg.Lister.List(ctx, query)

		var (
			stale   bool
			refetch bool
		)
		c.commit(func(s *State[T, F]) bool {
			if seq != c.loadSeq {
				stale = true
				return false
			}
			if err != nil {
				c.loadActive = false
				s.Error = c.cfg.LoadError
				return true
			}
			if c.cfg.Mode == ModeServer && attempt == 0 && page.Total > 0 &&
				(query.Page-1)*query.PageSize >= page.Total {
				s.Pagination.Page = lastPage(page.Total, query.PageSize)
				query.Page = s.Pagination.Page
				refetch = true
				return true
			}
			c.applyPage(s, page)
			c.loadActive = false
			return true
		})

		switch {
		case stale:
			c.logger.Debug("discarded superseded load", slog.Uint64("seq", seq))
			return nil
		case err != nil:
			c.logger.Error(c.cfg.LoadError, slog.Any("error", err))
			return utils.NewAppError("load "+c.cfg.Name, c.cfg.LoadError, err)
		case refetch:
			continue
		}
		return nil
	}
}

func (c *Collection[T, F]) applyPage(s *State[T, F], page Page[T]) {
	s.Items = slices.Clone(page.Items)
	if c.cfg.Mode == ModeServer {
		s.Pagination.Total = max(page.Total, 0)
		if page.Page > 0 {
			s.Pagination.Page = page.Page
		}
		if page.PageSize > 0 {
			s.Pagination.PageSize = page.PageSize
		}
	}
	if s.Selected != nil {
		s.Selected = findPtr(s.Items, (*s.Selected).EntityID())
	}
}

// UpdateFilters applies change to the filters, resets to the first page and persists.
func (c *Collection[T, F]) UpdateFilters(ctx context.Context, change func(f *F)) {
	var saved Persisted[F]
	c.commit(func(s *State[T, F]) bool {
		change(&s.Filters)
		s.Pagination.Page = 1
		s.Error = ""
		saved = Persisted[F]{Filters: s.Filters, Sort: s.Sort}
		return true
	})
	if c.cfg.Persistence != nil {
		c.cfg.Persistence.Save(ctx, saved)
	}
}

// ResetFilters restores the default filters and sort and forgets persisted ones.
func (c *Collection[T, F]) ResetFilters(ctx context.Context) {
	c.commit(func(s *State[T, F]) bool {
		s.Filters = c.cfg.DefaultFilters
		s.Sort = c.cfg.DefaultSort
		s.Pagination.Page = 1
		return true
	})
	if c.cfg.Persistence != nil {
		c.cfg.Persistence.Clear(ctx)
	}
}

// Hydrate restores persisted filters and sort. It reports whether anything was restored.
func (c *Collection[T, F]) Hydrate(ctx context.Context) bool {
	if c.cfg.Persistence == nil {
		return false
	}
	saved, ok := c.cfg.Persistence.Load(ctx)
	if !ok {
		return false
	}
	c.commit(func(s *State[T, F]) bool {
		s.Filters = saved.Filters
		if saved.Sort.Field != "" {
			s.Sort = saved.Sort
		}
		s.Pagination.Page = 1
		return true
	})
	return true
}

// ChangeSort sets the ordering, resets to the first page and persists it with the filters.
func (c *Collection[T, F]) ChangeSort(ctx context.Context, sort Sort) {
	if sort.Direction != Asc {
		sort.Direction = Desc
	}
	var saved Persisted[F]
	c.commit(func(s *State[T, F]) bool {
		s.Sort = sort
		s.Pagination.Page = 1
		saved = Persisted[F]{Filters: s.Filters, Sort: s.Sort}
		return true
	})
	if c.cfg.Persistence != nil {
		c.cfg.Persistence.Save(ctx, saved)
	}
}

// ChangePage moves to page n (at least 1). It does not reload.
func (c *Collection[T, F]) ChangePage(n int) {
	c.commit(func(s *State[T, F]) bool {
		s.Pagination.Page = max(n, 1)
		return true
	})
}

// ChangePageSize sets the page size (at least 1) and returns to the first page.
func (c *Collection[T, F]) ChangePageSize(n int) {
	c.commit(func(s *State[T, F]) bool {
		s.Pagination.PageSize = max(n, 1)
		s.Pagination.Page = 1
		return true
	})
}

// Select points Selected at the item with id, or clears it for "" or an unknown id.
func (c *Collection[T, F]) Select(id string) {
	c.commit(func(s *State[T, F]) bool {
		if id == "" {
			s.Selected = nil
			return true
		}
		s.Selected = findPtr(s.Items, id)
		return true
	})
}

// Mutate runs call and applies its outcome: a non-nil result replaces the item with id in
// place (or is inserted first when absent), a nil result removes id. Selected follows the
// change when it pointed at the same entity. On failure message is recorded and prior data
// is kept.
func (c *Collection[T, F]) Mutate(ctx context.Context, id, message string, call func(ctx context.Context) (*T, error)) (*T, error) {
	epoch := c.beginMutation()
	result, err := call(ctx)

	applied := false
	c.commit(func(s *State[T, F]) bool {
		if epoch != c.epoch {
			return false
		}
		applied = true
		c.mutations--
		if err != nil {
			s.Error = message
			return true
		}
		if result == nil {
			c.remove(s, id)
			return true
		}
		c.upsert(s, id, *result)
		return true
	})

	if err != nil {
		if applied {
			c.logger.Error(message, slog.String("id", id), slog.Any("error", err))
		}
		return nil, utils.NewAppError("mutate "+c.cfg.Name, message, err)
	}
	return result, nil
}

// FetchOne runs call and selects its result, refreshing the item in place when loaded.
func (c *Collection[T, F]) FetchOne(ctx context.Context, message string, call func(ctx context.Context) (*T, error)) (*T, error) {
	epoch := c.beginMutation()
	result, err := call(ctx)

	c.commit(func(s *State[T, F]) bool {
		if epoch != c.epoch {
			return false
		}
		c.mutations--
		if err != nil {
			s.Error = message
			return true
		}
		if result == nil {
			return true
		}
		id := (*result).EntityID()
		if i := indexOf(s.Items, id); i >= 0 {
			s.Items = slices.Clone(s.Items)
			s.Items[i] = *result
		}
		selected := *result
		s.Selected = &selected
		return true
	})

	if err != nil {
		c.logger.Error(message, slog.Any("error", err))
		return nil, utils.NewAppError("fetch "+c.cfg.Name, message, err)
	}
	return result, nil
}

func (c *Collection[T, F]) beginMutation() uint64 {
	var epoch uint64
	c.commit(func(s *State[T, F]) bool {
		c.mutations++
		s.Error = ""
		epoch = c.epoch
		return true
	})
	return epoch
}

func (c *Collection[T, F]) upsert(s *State[T, F], id string, item T) {
	if id == "" {
		id = item.EntityID()
	}
	items := slices.Clone(s.Items)
	if i := indexOf(items, id); i >= 0 {
		items[i] = item
	} else {
		items = append([]T{item}, items...)
		s.Pagination.Total++
	}
	s.Items = items
	if s.Selected != nil && ((*s.Selected).EntityID() == id || (*s.Selected).EntityID() == item.EntityID()) {
		selected := item
		s.Selected = &selected
	}
}

func (c *Collection[T, F]) remove(s *State[T, F], id string) {
	i := indexOf(s.Items, id)
	if i < 0 {
		return
	}
	s.Items = slices.Delete(slices.Clone(s.Items), i, i+1)
	s.Pagination.Total = max(s.Pagination.Total-1, 0)
	if s.Selected != nil && (*s.Selected).EntityID() == id {
		s.Selected = nil
	}
}

// Patch applies a feature-specific change atomically.
func (c *Collection[T, F]) Patch(change func(s *State[T, F])) {
	c.commit(func(s *State[T, F]) bool {
		change(s)
		return true
	})
}

// Fail records message without touching data.
func (c *Collection[T, F]) Fail(message string) {
	c.commit(func(s *State[T, F]) bool {
		s.Error = message
		return true
	})
}

// ClearError drops the recorded error.
func (c *Collection[T, F]) ClearError() {
	c.commit(func(s *State[T, F]) bool {
		s.Error = ""
		return true
	})
}

// Reset returns to the initial state and invalidates every in-flight load and mutation.
func (c *Collection[T, F]) Reset() {
	c.commit(func(s *State[T, F]) bool {
		*s = c.initialState()
		c.loadSeq++
		c.epoch++
		c.loadActive = false
		c.mutations = 0
		return true
	})
}

// Snapshot returns a copy of the current state.
func (c *Collection[T, F]) Snapshot() State[T, F] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyState()
}

// Visible returns the items a list view shows: the loaded page in ModeServer, or all items
// matching the filters in sort order in ModeClient.
func (c *Collection[T, F]) Visible() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visibleLocked()
}

// PageItems returns the visible items of the current page.
func (c *Collection[T, F]) PageItems() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	visible := c.visibleLocked()
	if c.cfg.Mode == ModeServer {
		return visible
	}
	p := c.state.Pagination
	start := (p.Page - 1) * p.PageSize
	if start >= len(visible) {
		return nil
	}
	end := min(start+p.PageSize, len(visible))
	return visible[start:end]
}

// TotalPages is at least 1.
func (c *Collection[T, F]) TotalPages() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return max(1, lastPage(c.state.Pagination.Total, c.state.Pagination.PageSize))
}

// Subscribe registers fn for every published state. The returned func unsubscribes.
func (c *Collection[T, F]) Subscribe(fn func(State[T, F])) func() {
	c.notifyMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.notifyMu.Unlock()
	return func() {
		c.notifyMu.Lock()
		delete(c.subs, id)
		c.notifyMu.Unlock()
	}
}

// commit applies change under mu, derives computed fields and publishes the result while
// still holding notifyMu so subscribers observe patches in application order.
func (c *Collection[T, F]) commit(change func(s *State[T, F]) bool) {
	c.mu.Lock()
	if !change(&c.state) {
		c.mu.Unlock()
		return
	}
	c.derive()
	snapshot := c.copyState()
	c.notifyMu.Lock()
	c.mu.Unlock()
	defer c.notifyMu.Unlock()

	for _, fn := range c.subs {
		fn(snapshot)
	}
}

func (c *Collection[T, F]) derive() {
	s := &c.state
	s.Loading = c.loadActive || c.mutations > 0
	if s.Pagination.PageSize < 1 {
		s.Pagination.PageSize = c.cfg.PageSize
	}
	if c.cfg.Mode != ModeClient {
		return
	}
	s.Pagination.Total = len(c.visibleLocked())
	if s.Pagination.Total > 0 {
		s.Pagination.Page = min(max(s.Pagination.Page, 1), lastPage(s.Pagination.Total, s.Pagination.PageSize))
	} else {
		s.Pagination.Page = 1
	}
}

func (c *Collection[T, F]) visibleLocked() []T {
	items := c.state.Items
	if c.cfg.Mode == ModeServer {
		return slices.Clone(items)
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		if c.cfg.Match(item, c.state.Filters) {
			out = append(out, item)
		}
	}
	if c.cfg.Less != nil {
		sort := c.state.Sort
		slices.SortStableFunc(out, func(a, b T) int {
			switch {
			case c.cfg.Less(a, b, sort):
				return -1
			case c.cfg.Less(b, a, sort):
				return 1
			default:
				return 0
			}
		})
	}
	return out
}

func (c *Collection[T, F]) copyState() State[T, F] {
	out := c.state
	out.Items = slices.Clone(c.state.Items)
	if c.state.Selected != nil {
		selected := *c.state.Selected
		out.Selected = &selected
	}
	return out
}

func lastPage(total, pageSize int) int {
	if pageSize < 1 {
		pageSize = 1
	}
	return (total + pageSize - 1) / pageSize
}

func indexOf[T Entity](items []T, id string) int {
	for i, item := range items {
		if item.EntityID() == id {
			return i
		}
	}
	return -1
}

func findPtr[T Entity](items []T, id string) *T {
	if i := indexOf(items, id); i >= 0 {
		item := items[i]
		return &item
	}
	return nil
}
