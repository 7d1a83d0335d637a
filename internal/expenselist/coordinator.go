// Package expenselist keeps the client-side view of the remote expense list:
// the query parameters the user controls, a cache of fetched pages keyed by
// the full query tuple, and the create/update/delete flows that invalidate
// it.
package expenselist

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"spendlog/internal/cache"
	"spendlog/internal/core"
	"spendlog/internal/log"
)

const (
	DefaultDebounce  = 400 * time.Millisecond
	DefaultCacheTTL  = 5 * time.Minute
	defaultCacheSize = 64
)

var (
	// ErrStaleResponse is returned by Fetch when the query changed while the
	// request was in flight; the result was not applied.
	ErrStaleResponse = errors.New("stale response: query changed during fetch")
	// ErrDeleteInFlight rejects a second delete of an id already being deleted.
	ErrDeleteInFlight = errors.New("delete already in flight for this expense")
)

// API is the remote expense collection.
type API interface {
	ListExpenses(ctx context.Context, q core.ListQuery) (core.ExpensePage, error)
	GetExpense(ctx context.Context, id string) (core.Expense, error)
	CreateExpense(ctx context.Context, in core.ExpenseInput) (core.Expense, error)
	UpdateExpense(ctx context.Context, id string, patch core.ExpensePatch) (core.Expense, error)
	DeleteExpense(ctx context.Context, id string) error
	Dashboard(ctx context.Context) (core.Dashboard, error)
}

// Notifier receives the outcome of writes.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

type Options struct {
	Debounce  time.Duration
	CacheTTL  time.Duration
	CacheSize int
	Notifier  Notifier
	Logger    *log.Logger
	// OnQueryChange, when set, is called with the new query after every
	// state change that alters it, including a settled debounced search.
	OnQueryChange func(core.ListQuery)
}

// View is the last applied list result.
type View struct {
	Query core.ListQuery
	Page  core.ExpensePage
}

type Coordinator struct {
	api      API
	notifier Notifier
	logger   *log.Logger
	onChange func(core.ListQuery)
	debounce time.Duration

	mu              sync.Mutex
	searchInput     string
	debouncedSearch string
	sortBy          string
	sortOrder       string
	page            int
	pageSize        int
	timer           *time.Timer
	timerToken      uint64
	view            *View
	deleting        map[string]struct{}
	// bumped on every invalidation so fetches started earlier do not
	// repopulate the cache
	generation uint64

	lists     *cache.LRUCache[core.ExpensePage]
	details   *cache.LRUCache[core.Expense]
	dashboard *cache.LRUCache[core.Dashboard]
	group     singleflight.Group
}

func New(api API, opts Options) *Coordinator {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	return &Coordinator{
		api:       api,
		notifier:  opts.Notifier,
		logger:    opts.Logger.WithComponent(log.ComponentCoordinator),
		onChange:  opts.OnQueryChange,
		debounce:  opts.Debounce,
		sortBy:    core.DefaultSortBy,
		sortOrder: core.DefaultSortOrder,
		page:      1,
		pageSize:  core.DefaultPageSize,
		deleting:  make(map[string]struct{}),
		lists:     cache.NewLRUCache[core.ExpensePage](opts.CacheSize, opts.CacheTTL),
		details:   cache.NewLRUCache[core.Expense](opts.CacheSize, opts.CacheTTL),
		dashboard: cache.NewLRUCache[core.Dashboard](1, opts.CacheTTL),
	}
}

// RegisterCaches hands the coordinator's caches to a cleanup manager.
func (c *Coordinator) RegisterCaches(m *cache.Manager) {
	m.Register(c.lists)
	m.Register(c.details)
	m.Register(c.dashboard)
}

// Close cancels a pending debounced search.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelTimerLocked()
}

// Query is the remote query derived from the current state.
func (c *Coordinator) Query() core.ListQuery {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queryLocked()
}

func (c *Coordinator) queryLocked() core.ListQuery {
	return core.ListQuery{
		Search:    strings.TrimSpace(c.debouncedSearch),
		SortBy:    c.sortBy,
		SortOrder: c.sortOrder,
		Page:      c.page,
		PageSize:  c.pageSize,
	}
}

// SearchInput is the search text as last typed, before debouncing.
func (c *Coordinator) SearchInput() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.searchInput
}

// SetSearch records the typed text immediately and schedules it to become
// the query search after the debounce interval. A newer call cancels and
// replaces the pending one.
func (c *Coordinator) SetSearch(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.searchInput = text
	c.cancelTimerLocked()
	c.timerToken++
	token := c.timerToken
	c.timer = time.AfterFunc(c.debounce, func() {
		c.settleSearch(token)
	})
}

// FlushSearch applies a pending debounced search now.
func (c *Coordinator) FlushSearch() {
	c.mu.Lock()
	if c.timer == nil {
		c.mu.Unlock()
		return
	}
	c.cancelTimerLocked()
	q, changed := c.applySearchLocked()
	c.mu.Unlock()
	if changed {
		c.emit(q)
	}
}

func (c *Coordinator) settleSearch(token uint64) {
	c.mu.Lock()
	if token != c.timerToken || c.timer == nil {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	q, changed := c.applySearchLocked()
	c.mu.Unlock()
	if changed {
		c.emit(q)
	}
}

func (c *Coordinator) applySearchLocked() (core.ListQuery, bool) {
	if c.debouncedSearch == c.searchInput {
		return core.ListQuery{}, false
	}
	c.debouncedSearch = c.searchInput
	c.page = 1
	return c.queryLocked(), true
}

func (c *Coordinator) cancelTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.timerToken++
}

// SetSort sorts by column. Re-selecting the current column flips the
// direction; a new column starts descending. Columns outside the whitelist
// fall back to the default. The page resets to 1.
func (c *Coordinator) SetSort(column string) {
	c.mu.Lock()
	if !core.IsSortable(column) {
		column = core.DefaultSortBy
	}
	if column == c.sortBy {
		if c.sortOrder == core.SortAsc {
			c.sortOrder = core.SortDesc
		} else {
			c.sortOrder = core.SortAsc
		}
	} else {
		c.sortBy = column
		c.sortOrder = core.SortDesc
	}
	c.page = 1
	q := c.queryLocked()
	c.mu.Unlock()
	c.emit(q)
}

// SetPage moves to page n. Clamping to the page count is left to the caller.
func (c *Coordinator) SetPage(n int) {
	c.mu.Lock()
	c.page = n
	q := c.queryLocked()
	c.mu.Unlock()
	c.emit(q)
}

// SetPageSize changes the page size and returns to page 1. Sizes outside
// core.PageSizes fall back to the default.
func (c *Coordinator) SetPageSize(n int) {
	c.mu.Lock()
	if !validPageSize(n) {
		n = core.DefaultPageSize
	}
	c.pageSize = n
	c.page = 1
	q := c.queryLocked()
	c.mu.Unlock()
	c.emit(q)
}

func validPageSize(n int) bool {
	for _, s := range core.PageSizes {
		if s == n {
			return true
		}
	}
	return false
}

// PageCount is the number of pages for total rows at the current page size.
func (c *Coordinator) PageCount(total int) int {
	c.mu.Lock()
	size := c.pageSize
	c.mu.Unlock()
	if total <= 0 {
		return 1
	}
	return (total + size - 1) / size
}

func (c *Coordinator) emit(q core.ListQuery) {
	if c.onChange != nil {
		c.onChange(q)
	}
}

// View returns the last applied result, if any.
func (c *Coordinator) View() (View, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.view == nil {
		return View{}, false
	}
	return *c.view, true
}

// Fetch loads the page for the current query, from cache while fresh. When
// the query changes before the response arrives the page is still returned
// but not applied to View, and the error is ErrStaleResponse.
func (c *Coordinator) Fetch(ctx context.Context) (core.ExpensePage, error) {
	q := c.Query()
	page, err := c.List(ctx, q)
	if err != nil {
		return core.ExpensePage{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.queryLocked().Key() != q.Key() {
		c.logger.DebugContext(ctx, "Discarding stale list response", log.FieldQueryKey, q.Key())
		return page, ErrStaleResponse
	}
	c.view = &View{Query: q, Page: page}
	return page, nil
}

// List returns the page for q, sharing one remote call between concurrent
// callers with the same query.
func (c *Coordinator) List(ctx context.Context, q core.ListQuery) (core.ExpensePage, error) {
	key := ListKey(q)
	if page, ok := c.lists.Get(key); ok {
		return page, nil
	}
	v, err := c.load(ctx, key, func(ctx context.Context, gen uint64) (any, error) {
		page, err := c.api.ListExpenses(ctx, q)
		if err != nil {
			return nil, err
		}
		c.store(gen, func() { c.lists.Set(key, page) })
		return page, nil
	})
	if err != nil {
		return core.ExpensePage{}, err
	}
	return v.(core.ExpensePage), nil
}

// Get returns one expense, cached by id.
func (c *Coordinator) Get(ctx context.Context, id string) (core.Expense, error) {
	key := DetailKey(id)
	if e, ok := c.details.Get(key); ok {
		return e, nil
	}
	v, err := c.load(ctx, key, func(ctx context.Context, gen uint64) (any, error) {
		e, err := c.api.GetExpense(ctx, id)
		if err != nil {
			return nil, err
		}
		c.store(gen, func() { c.details.Set(key, e) })
		return e, nil
	})
	if err != nil {
		return core.Expense{}, err
	}
	return v.(core.Expense), nil
}

// Dashboard returns the aggregate view, cached until the next write.
func (c *Coordinator) Dashboard(ctx context.Context) (core.Dashboard, error) {
	key := DashboardKey()
	if d, ok := c.dashboard.Get(key); ok {
		return d, nil
	}
	v, err := c.load(ctx, key, func(ctx context.Context, gen uint64) (any, error) {
		d, err := c.api.Dashboard(ctx)
		if err != nil {
			return nil, err
		}
		c.store(gen, func() { c.dashboard.Set(key, d) })
		return d, nil
	})
	if err != nil {
		return core.Dashboard{}, err
	}
	return v.(core.Dashboard), nil
}

// load deduplicates in-flight calls per key and cache generation, so a call
// started after an invalidation never joins one started before it. The
// shared call runs detached from any single caller's cancellation; each
// caller stops waiting when its own ctx ends.
func (c *Coordinator) load(ctx context.Context, key string, fn func(ctx context.Context, gen uint64) (any, error)) (any, error) {
	c.mu.Lock()
	gen := c.generation
	c.mu.Unlock()
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(fmt.Sprintf("%s#%d", key, gen), func() (any, error) {
		return fn(shared, gen)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Coordinator) store(gen uint64, set func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen == c.generation {
		set()
	}
}

// Invalidate drops every cached list, detail and dashboard entry.
func (c *Coordinator) Invalidate() {
	c.mu.Lock()
	c.generation++
	removed := c.lists.DeletePrefix(expensesNamespace) +
		c.details.DeletePrefix(expensesNamespace) +
		c.dashboard.DeletePrefix(dashboardNamespace)
	c.mu.Unlock()
	c.logger.Debug("Caches invalidated", "entries_removed", removed)
}

// Create validates form and creates the expense. An invalid form returns
// ErrInvalidForm without a remote call or notification.
func (c *Coordinator) Create(ctx context.Context, form Form) (core.Expense, error) {
	in, err := form.Input()
	if err != nil {
		return core.Expense{}, err
	}
	e, err := c.api.CreateExpense(ctx, in)
	if err != nil {
		return core.Expense{}, c.fail(ctx, log.OpCreate, "", err)
	}
	c.succeed(ctx, log.OpCreate, e.ID, "Expense added")
	return e, nil
}

// Update validates form and replaces every field of expense id.
func (c *Coordinator) Update(ctx context.Context, id string, form Form) (core.Expense, error) {
	patch, err := form.Patch()
	if err != nil {
		return core.Expense{}, err
	}
	e, err := c.api.UpdateExpense(ctx, id, patch)
	if err != nil {
		return core.Expense{}, c.fail(ctx, log.OpUpdate, id, err)
	}
	c.succeed(ctx, log.OpUpdate, id, "Expense updated")
	return e, nil
}

// Delete removes expense id. While the call is in flight id is reported by
// DeletingIDs and a second Delete of the same id fails with
// ErrDeleteInFlight; other ids are not affected.
func (c *Coordinator) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	if _, busy := c.deleting[id]; busy {
		c.mu.Unlock()
		return ErrDeleteInFlight
	}
	c.deleting[id] = struct{}{}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.deleting, id)
		c.mu.Unlock()
	}()

	if err := c.api.DeleteExpense(ctx, id); err != nil {
		return c.fail(ctx, log.OpDelete, id, err)
	}
	c.succeed(ctx, log.OpDelete, id, "Expense deleted")
	return nil
}

// IsDeleting reports whether a delete of id is in flight.
func (c *Coordinator) IsDeleting(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.deleting[id]
	return ok
}

// DeletingIDs lists the ids with a delete in flight, sorted.
func (c *Coordinator) DeletingIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.deleting))
	for id := range c.deleting {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (c *Coordinator) succeed(ctx context.Context, op, id, msg string) {
	c.Invalidate()
	c.logger.InfoContext(ctx, msg, log.FieldOperation, op, log.FieldExpenseID, id)
	c.notifier.Success(msg)
}

func (c *Coordinator) fail(ctx context.Context, op, id string, err error) error {
	fields := log.NewFields()
	if id != "" {
		fields[log.FieldExpenseID] = id
	}
	c.logger.LogError(ctx, "Expense write failed", err, op, fields)
	c.notifier.Error(err.Error())
	return err
}

type nopNotifier struct{}

func (nopNotifier) Success(string) {}
func (nopNotifier) Error(string)   {}
