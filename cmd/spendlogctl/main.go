// Command spendlogctl drives the expense list and receipt upload flows
// against a running spendlog API from the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"spendlog/internal/apiclient"
	"spendlog/internal/cli"
	"spendlog/internal/config"
	"spendlog/internal/core"
	"spendlog/internal/expenselist"
	"spendlog/internal/log"
	"spendlog/internal/upload"
)

const usage = `usage: spendlogctl <command> [flags]

commands:
  list       list expenses (-search, -sort, -order, -page, -size)
  show       show one expense by id
  add        create an expense (-title, -amount, -category, -date, -desc)
  edit       edit an expense: edit [flags] <id>
  delete     delete one or more expenses by id
  dashboard  show the dashboard summary
  scan       OCR a receipt image and prefill an expense: scan [-save -title ...] <file>
`

// errReported marks failures the notifier has already printed.
var errReported = errors.New("reported")

// reported maps coordinator write failures to errReported. Invalid forms
// and duplicate deletes never reach the notifier.
func reported(err error) error {
	if err == nil || errors.Is(err, expenselist.ErrInvalidForm) {
		return err
	}
	if errors.Is(err, expenselist.ErrDeleteInFlight) {
		return err
	}
	return errReported
}

type app struct {
	coord    *expenselist.Coordinator
	client   *apiclient.Client
	logger   *log.Logger
	notifier termNotifier
	out      io.Writer
}

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()

	level := slog.LevelWarn
	if os.Getenv("LOG_LEVEL") != "" {
		level = log.ParseLevel(cfg.LogLevel)
	}
	logger := log.New(log.Config{
		Level:     level,
		Format:    cfg.LogFormat,
		Component: log.ComponentClient,
		Output:    os.Stderr,
	})

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	client := apiclient.New(cfg.APIURL)
	notifier := termNotifier{out: os.Stderr}
	coord := expenselist.New(client, expenselist.Options{
		CacheTTL: cfg.CacheTTL,
		Notifier: notifier,
		Logger:   logger,
	})
	defer coord.Close()

	a := &app{coord: coord, client: client, logger: logger, notifier: notifier, out: os.Stdout}
	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		switch {
		case errors.Is(err, expenselist.ErrInvalidForm):
			fmt.Fprintln(os.Stderr, errorStyle.Render("a title, a non-negative amount and a date are required"))
		case errors.Is(err, flag.ErrHelp), errors.Is(err, errReported):
		default:
			fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		}
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "list":
		return a.list(ctx, args)
	case "show":
		return a.show(ctx, args)
	case "add":
		return a.add(ctx, args)
	case "edit":
		return a.edit(ctx, args)
	case "delete":
		return a.delete(ctx, args)
	case "dashboard":
		return a.dashboard(ctx)
	case "scan":
		return a.scan(ctx, args)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	search := fs.String("search", "", "search title and description")
	sortBy := fs.String("sort", core.DefaultSortBy, "sort column: "+strings.Join(core.SortableColumns, ", "))
	order := fs.String("order", core.DefaultSortOrder, "sort order: asc or desc")
	page := fs.Int("page", 1, "page number")
	size := fs.Int("size", core.DefaultPageSize, fmt.Sprintf("page size: one of %v", core.PageSizes))
	if err := fs.Parse(args); err != nil {
		return err
	}

	a.coord.SetSearch(*search)
	a.coord.FlushSearch()
	a.coord.SetPageSize(*size)
	a.coord.SetSort(*sortBy)
	if a.coord.Query().SortOrder != strings.ToLower(*order) {
		a.coord.SetSort(*sortBy)
	}
	a.coord.SetPage(*page)

	if _, err := a.coord.Fetch(ctx); err != nil {
		return err
	}
	view, _ := a.coord.View()
	renderPage(a.out, view, a.coord.PageCount(view.Page.Total))
	return nil
}

func (a *app) show(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: spendlogctl show <id>")
	}
	e, err := a.coord.Get(ctx, args[0])
	if err != nil {
		return err
	}
	renderExpense(a.out, e)
	return nil
}

// formFlags binds the expense form fields to fs.
func formFlags(fs *flag.FlagSet, f *expenselist.Form) {
	fs.StringVar(&f.Title, "title", f.Title, "title")
	fs.StringVar(&f.Amount, "amount", f.Amount, "amount, e.g. 12.50")
	fs.StringVar(&f.Category, "category", f.Category, "category: "+categoryList())
	fs.StringVar(&f.ExpenseDate, "date", f.ExpenseDate, "date as YYYY-MM-DD")
	fs.StringVar(&f.Description, "desc", f.Description, "description")
}

func categoryList() string {
	names := make([]string, len(core.Categories))
	for i, c := range core.Categories {
		names[i] = c.String()
	}
	return strings.Join(names, ", ")
}

func (a *app) add(ctx context.Context, args []string) error {
	form := expenselist.Form{Category: core.CategoryOther.String(), ExpenseDate: core.Today().String()}
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	formFlags(fs, &form)
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, err := a.coord.Create(ctx, form)
	if err != nil {
		return reported(err)
	}
	renderExpense(a.out, e)
	return nil
}

func (a *app) edit(ctx context.Context, args []string) error {
	var flagsOnly expenselist.Form
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	formFlags(fs, &flagsOnly)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: spendlogctl edit [flags] <id>")
	}
	id := fs.Arg(0)

	current, err := a.coord.Get(ctx, id)
	if err != nil {
		return err
	}
	form := expenselist.FormFromExpense(current)
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "title":
			form.Title = flagsOnly.Title
		case "amount":
			form.Amount = flagsOnly.Amount
		case "category":
			form.Category = flagsOnly.Category
		case "date":
			form.ExpenseDate = flagsOnly.ExpenseDate
		case "desc":
			form.Description = flagsOnly.Description
		}
	})

	e, err := a.coord.Update(ctx, id, form)
	if err != nil {
		return reported(err)
	}
	renderExpense(a.out, e)
	return nil
}

// delete removes every id concurrently; each id is guarded by the
// coordinator's in-flight marker so repeated ids are rejected.
func (a *app) delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return errors.New("usage: spendlogctl delete <id>...")
	}
	var g errgroup.Group
	for _, id := range ids {
		g.Go(func() error {
			return reported(a.coord.Delete(ctx, id))
		})
	}
	return g.Wait()
}

func (a *app) dashboard(ctx context.Context) error {
	d, err := a.coord.Dashboard(ctx)
	if err != nil {
		return err
	}
	renderDashboard(a.out, d)
	return nil
}

func (a *app) scan(ctx context.Context, args []string) error {
	var draft expenselist.Form
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	save := fs.Bool("save", false, "create the expense from the draft")
	formFlags(fs, &draft)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: spendlogctl scan [-save -title ...] <file>")
	}
	path := fs.Arg(0)

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}

	var printMu sync.Mutex
	tracker := upload.NewTracker(a.client, upload.Options{
		Logger: a.logger,
		OnChange: func(items []upload.Item) {
			printMu.Lock()
			defer printMu.Unlock()
			for _, item := range items {
				renderProgress(a.out, item)
			}
		},
	})
	defer tracker.Close()

	_, outcomes, err := tracker.Add(ctx, info.Name(), info.Size(), f)
	if err != nil {
		return err
	}
	o, ok := <-outcomes
	if !ok {
		return errors.New("upload removed")
	}
	if o.Err != nil {
		a.notifier.Error(o.Err.Error())
		return errReported
	}
	if o.Draft == nil {
		fmt.Fprintln(a.out, mutedStyle.Render("No text recognised on the receipt."))
		return nil
	}

	prefilled := *o.Draft
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "title":
			prefilled.Title = draft.Title
		case "amount":
			prefilled.Amount = draft.Amount
		case "category":
			prefilled.Category = draft.Category
		case "date":
			prefilled.ExpenseDate = draft.ExpenseDate
		case "desc":
			prefilled.Description = draft.Description
		}
	})
	renderDraft(a.out, prefilled)

	if !*save {
		fmt.Fprintln(a.out, mutedStyle.Render("Re-run with -save -title <title> to create the expense."))
		return nil
	}
	e, err := a.coord.Create(ctx, prefilled)
	if err != nil {
		return reported(err)
	}
	renderExpense(a.out, e)
	return nil
}
