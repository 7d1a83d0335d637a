// Package upload tracks receipt images on their way through OCR and turns
// the recognised text into a prefilled expense draft.
//
// A single OCR request reports no byte-level progress, so each item shows
// synthetic progress: +10 every 300ms while the request is outstanding,
// never past 90. Only the response moves an item to 100 and completed.
package upload

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"spendlog/internal/core"
	"spendlog/internal/expenselist"
	"spendlog/internal/log"
	"spendlog/internal/receipt"
)

const (
	DefaultTick    = 300 * time.Millisecond
	DefaultStep    = 10
	DefaultCeiling = 90
	progressDone   = 100
)

const (
	StatusUploading Status = "uploading"
	StatusCompleted Status = "completed"
)

// ErrClosed is returned by Add after Close.
var ErrClosed = errors.New("upload tracker closed")

type Status string

// Item is one tracked upload.
type Item struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Progress int    `json:"progress"`
	Status   Status `json:"status"`
}

// Extractor runs OCR on an image.
type Extractor interface {
	ExtractReceiptText(ctx context.Context, name string, image io.Reader) (string, error)
}

// Outcome is delivered once per upload that was not removed before its OCR
// call returned.
type Outcome struct {
	Item Item
	Text string
	// Amount is the extractor result; zero when Text is blank.
	Amount receipt.Result
	// Draft is the create form to confirm; nil on failure or blank text.
	Draft *expenselist.Form
	Err   error
}

type Options struct {
	Tick    time.Duration
	Step    int
	Ceiling int
	Logger  *log.Logger
	// Today dates the draft.
	Today func() core.Date
	// OnChange receives a snapshot of all items after every change.
	OnChange func([]Item)
}

type Tracker struct {
	ocr      Extractor
	tick     time.Duration
	step     int
	ceiling  int
	logger   *log.Logger
	today    func() core.Date
	onChange func([]Item)

	mu      sync.Mutex
	items   []*Item
	ticking bool
	closed  bool
	done    chan struct{}
	wg      sync.WaitGroup
}

func NewTracker(ocr Extractor, opts Options) *Tracker {
	if opts.Tick <= 0 {
		opts.Tick = DefaultTick
	}
	if opts.Step <= 0 {
		opts.Step = DefaultStep
	}
	if opts.Ceiling <= 0 || opts.Ceiling >= progressDone {
		opts.Ceiling = DefaultCeiling
	}
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.Today == nil {
		opts.Today = core.Today
	}
	return &Tracker{
		ocr:      ocr,
		tick:     opts.Tick,
		step:     opts.Step,
		ceiling:  opts.Ceiling,
		logger:   opts.Logger.WithComponent(log.ComponentUpload),
		today:    opts.Today,
		onChange: opts.OnChange,
		done:     make(chan struct{}),
	}
}

// Add validates the file and starts its OCR call. Rejected files return the
// receipt validation error and create no item. The returned channel yields
// one Outcome, or is closed empty when the item is removed first.
func (t *Tracker) Add(ctx context.Context, name string, size int64, image io.Reader) (Item, <-chan Outcome, error) {
	if err := receipt.ValidateFile(name, size); err != nil {
		return Item{}, nil, err
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return Item{}, nil, ErrClosed
	}
	item := &Item{ID: uuid.NewString(), Name: name, Status: StatusUploading}
	t.items = append(t.items, item)
	t.startTickerLocked()
	snapshot := *item
	t.wg.Add(1)
	t.mu.Unlock()

	t.logger.DebugContext(ctx, "Upload started", log.FieldUploadID, snapshot.ID, log.FieldFileName, name)
	t.notify()

	out := make(chan Outcome, 1)
	go func() {
		defer t.wg.Done()
		defer close(out)
		text, err := t.ocr.ExtractReceiptText(ctx, name, image)
		if o, ok := t.complete(ctx, snapshot.ID, text, err); ok {
			out <- o
		}
	}()
	return snapshot, out, nil
}

// complete marks the item done and builds its outcome. It reports false when
// the item was removed while the request was in flight.
func (t *Tracker) complete(ctx context.Context, id, text string, err error) (Outcome, bool) {
	t.mu.Lock()
	item := t.findLocked(id)
	if item == nil {
		t.mu.Unlock()
		t.logger.DebugContext(ctx, "Dropping result of removed upload", log.FieldUploadID, id)
		return Outcome{}, false
	}
	item.Progress = progressDone
	item.Status = StatusCompleted
	o := Outcome{Item: *item, Text: text, Err: err}
	t.mu.Unlock()
	t.notify()

	if err != nil {
		t.logger.LogError(ctx, "Receipt OCR failed", err, log.OpExtract,
			log.LogFields{log.FieldUploadID: id, log.FieldFileName: o.Item.Name})
		return o, true
	}
	if strings.TrimSpace(text) == "" {
		t.logger.InfoContext(ctx, "Receipt OCR returned no text", log.FieldUploadID, id)
		return o, true
	}

	o.Amount = receipt.ExtractAmount(text)
	o.Draft = &expenselist.Form{
		Amount:      o.Amount.FormString(),
		Category:    core.CategoryOther.String(),
		ExpenseDate: t.today().String(),
	}
	t.logger.InfoContext(ctx, "Receipt amount extracted",
		log.FieldUploadID, id,
		log.FieldAmount, o.Amount.FormString(),
		"rule", string(o.Amount.Rule))
	return o, true
}

// startTickerLocked runs the progress task unless one is already running.
// The task exits by itself once nothing is uploading.
func (t *Tracker) startTickerLocked() {
	if t.ticking {
		return
	}
	t.ticking = true
	go t.runTicker()
}

func (t *Tracker) runTicker() {
	ticker := time.NewTicker(t.tick)
	defer ticker.Stop()
	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			if !t.advance() {
				return
			}
			t.notify()
		}
	}
}

// advance bumps every uploading item and reports whether any remain.
func (t *Tracker) advance() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	uploading := false
	for _, item := range t.items {
		if item.Status != StatusUploading {
			continue
		}
		uploading = true
		if item.Progress < t.ceiling {
			item.Progress = min(item.Progress+t.step, t.ceiling)
		}
	}
	if !uploading {
		t.ticking = false
	}
	return uploading
}

// Ticking reports whether the progress task is running.
func (t *Tracker) Ticking() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ticking
}

// Items returns a snapshot in the order the files were added.
func (t *Tracker) Items() []Item {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() []Item {
	out := make([]Item, len(t.items))
	for i, item := range t.items {
		out[i] = *item
	}
	return out
}

// Remove stops tracking id. An OCR request already sent keeps running but
// its result is discarded.
func (t *Tracker) Remove(id string) bool {
	t.mu.Lock()
	removed := false
	for i, item := range t.items {
		if item.ID == id {
			t.items = append(t.items[:i], t.items[i+1:]...)
			removed = true
			break
		}
	}
	t.mu.Unlock()
	if removed {
		t.notify()
	}
	return removed
}

// Reset forgets every item.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.items = nil
	t.mu.Unlock()
	t.notify()
}

// Close stops the progress task and waits for in-flight OCR calls to return.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	close(t.done)
	t.mu.Unlock()
	t.wg.Wait()
}

func (t *Tracker) findLocked(id string) *Item {
	for _, item := range t.items {
		if item.ID == id {
			return item
		}
	}
	return nil
}

func (t *Tracker) notify() {
	if t.onChange == nil {
		return
	}
	t.mu.Lock()
	items := t.snapshotLocked()
	t.mu.Unlock()
	t.onChange(items)
}
