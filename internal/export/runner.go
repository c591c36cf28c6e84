// Package export drives a full run: scan, classify, assemble one PDF per
// group, clean up sources and report what happened.
package export

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"binder/internal/assemble"
	"binder/internal/config"
	"binder/internal/errkind"
	"binder/internal/group"
	"binder/internal/scan"
)

type Runner struct {
	cfg      config.ExportConfig
	log      *slog.Logger
	progress func(Progress)
	onState  func(State)

	mu    sync.Mutex
	state State
}

type Option func(*Runner)

func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// WithProgress installs a callback invoked synchronously after every unit
// of work. Calls never overlap, even with several workers.
func WithProgress(fn func(Progress)) Option {
	return func(r *Runner) { r.progress = fn }
}

func WithStateHook(fn func(State)) Option {
	return func(r *Runner) { r.onState = fn }
}

func New(cfg config.ExportConfig, opts ...Option) *Runner {
	r := &Runner{cfg: cfg, state: StateIdle}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r
}

func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
	if r.onState != nil {
		r.onState(s)
	}
}

// Plan is the classified view of one scan, ready to be reordered and
// exported.
type Plan struct {
	Root     string
	Groups   *group.Set
	Warnings []scan.Warning
}

// Target pairs a group with the PDF it will be written to.
type Target struct {
	Group *group.Group
	Dest  string
}

// Plan scans root and classifies what it finds. Scan and pattern errors are
// fatal and leave the runner Failed.
func (r *Runner) Plan(ctx context.Context, root string) (*Plan, error) {
	r.setState(StateScanning)

	reg, err := group.NewRegistry(r.cfg.Patterns...)
	if err != nil {
		r.setState(StateFailed)
		return nil, err
	}

	opts := scan.Options{
		Extensions: r.cfg.Extensions,
		Recursive:  r.cfg.Recursive,
		Natural:    r.cfg.Natural,
		IgnoreFile: r.cfg.IgnoreFile,
	}
	if r.cfg.OutputDir != "" {
		opts.ExcludeDirs = []string{r.cfg.OutputDir}
	}
	scanner, err := scan.New(root, opts)
	if err != nil {
		r.setState(StateFailed)
		return nil, err
	}

	entries, warnings := scanner.Collect(ctx)
	for _, w := range warnings {
		r.log.Warn("skipped unreadable path", "kind", errkind.Scan, "path", w.Path, "err", w.Err)
	}

	r.setState(StateClassifying)
	set := group.Build(scanner.Root(), entries, group.NewClassifier(reg, r.cfg.Match), r.cfg.Merge)
	r.log.Info("classified images", "root", scanner.Root(), "images", len(entries), "groups", len(set.NonEmpty()))

	return &Plan{Root: scanner.Root(), Groups: set, Warnings: warnings}, nil
}

// Targets resolves the output path of every non-empty group in plan order.
func (r *Runner) Targets(plan *Plan) []Target {
	resolver := newCollisionResolver()
	var targets []Target
	for _, g := range plan.Groups.NonEmpty() {
		requested := filepath.Join(OutputDir(r.cfg, g), OutputName(r.cfg.Template, plan.Root, g))
		targets = append(targets, Target{Group: g, Dest: resolver.resolve(g.Key, requested)})
	}
	return targets
}

// Run plans and exports root in one go. The error is non-nil only when the
// run Failed before any group was processed.
func (r *Runner) Run(ctx context.Context, root string) (Report, error) {
	started := time.Now()
	plan, err := r.Plan(ctx, root)
	if err != nil {
		r.log.Error("run failed", "kind", kindOf(err), "path", root, "err", err)
		return Report{Root: root, State: StateFailed, Started: started, Finished: time.Now()}, err
	}
	report := r.Export(ctx, plan)
	report.Started = started
	return report, nil
}

// Export assembles every non-empty group of plan. Groups sharing an output
// directory are handled by the same worker one after another; distinct
// directories may run in parallel when Workers > 1.
func (r *Runner) Export(ctx context.Context, plan *Plan) Report {
	report := Report{Root: plan.Root, Started: time.Now()}
	for _, w := range plan.Warnings {
		report.Warnings = append(report.Warnings, issueFrom(w.Path, errkind.New(errkind.Scan, w.Path, w.Err)))
	}

	r.setState(StateExporting)
	targets := r.Targets(plan)
	report.Groups = make([]GroupReport, len(targets))

	t := &tracker{fn: r.progress, p: Progress{GroupsTotal: len(targets)}}
	for _, tg := range targets {
		t.p.PagesTotal += tg.Group.Len()
	}

	var batches [][]int
	byDir := map[string]int{}
	for i, tg := range targets {
		dir := filepath.Dir(tg.Dest)
		b, ok := byDir[dir]
		if !ok {
			b = len(batches)
			byDir[dir] = b
			batches = append(batches, nil)
		}
		batches[b] = append(batches[b], i)
	}

	jobs := make(chan []int)
	workers := r.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(batches) {
		workers = len(batches)
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for batch := range jobs {
				for _, idx := range batch {
					report.Groups[idx] = r.exportGroup(ctx, plan.Root, targets[idx], t)
				}
			}
		}()
	}
	for _, batch := range batches {
		jobs <- batch
	}
	close(jobs)
	wg.Wait()

	report.State = StateDone
	report.Partial = report.Count(StatusSkipped) > 0
	report.Finished = time.Now()
	r.setState(StateDone)

	r.log.Info("run finished",
		"root", plan.Root,
		"groups", len(targets),
		"succeeded", report.Count(StatusSuccess),
		"partial", report.Count(StatusPartial),
		"failed", report.Count(StatusFailed),
		"skipped", report.Count(StatusSkipped),
	)
	return report
}

func (r *Runner) exportGroup(ctx context.Context, root string, tg Target, t *tracker) GroupReport {
	g := tg.Group
	gr := GroupReport{
		Label:     g.Label,
		Folder:    g.Folder,
		Ungrouped: g.Ungrouped,
		Total:     g.Len(),
		Status:    StatusSkipped,
	}
	if ctx != nil && ctx.Err() != nil {
		return gr
	}

	t.begin(g.Label)
	reported := 0
	res, err := assemble.Assemble(ctx, g.Entries, tg.Dest, assemble.Options{
		Policy:            r.cfg.Page,
		StopOnDecodeError: r.cfg.StopOnDecodeError,
		Title:             g.Label,
		OnPage: func(int, int) {
			reported++
			t.page()
		},
	})
	gr.Pages = res.Pages

	for _, f := range res.Failures {
		gr.Issues = append(gr.Issues, issueFrom(f.Path, f.Err))
		r.log.Warn("skipped page", "kind", kindOf(f.Err), "path", f.Path, "group", g.Label, "err", f.Err)
	}

	switch {
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return gr
	case err != nil:
		gr.Status = StatusFailed
		gr.Issues = append(gr.Issues, issueFrom(tg.Dest, err))
		g.State = group.Failed
		r.log.Error("group export failed", "kind", kindOf(err), "path", tg.Dest, "group", g.Label, "err", err)
	default:
		gr.OutputPath = res.Path
		gr.Status = StatusSuccess
		if res.Partial() {
			gr.Status = StatusPartial
		}
		g.State = group.Succeeded
		r.log.Info("wrote pdf", "path", res.Path, "group", g.Label, "pages", res.Pages)
	}

	if gr.Status == StatusSuccess && r.cfg.DeleteAfter {
		deleted, issues := removeSources(root, g)
		gr.Deleted = deleted
		for _, issue := range issues {
			gr.Issues = append(gr.Issues, issue)
			r.log.Warn("could not delete source", "kind", issue.Kind, "path", issue.Path, "err", issue.Message)
		}
	}

	t.finish(gr.Total - reported)
	return gr
}

func kindOf(err error) errkind.Kind {
	kind, _ := errkind.KindOf(err)
	return kind
}

// tracker serialises progress callbacks across workers.
type tracker struct {
	mu sync.Mutex
	fn func(Progress)
	p  Progress
}

func (t *tracker) begin(label string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.p.CurrentGroupLabel = label
	t.emit()
}

func (t *tracker) page() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.p.PagesDone++
	t.emit()
}

// finish marks a group done. unreported covers pages the assembler never
// reached after stopping early, so PagesDone still ends at PagesTotal.
func (t *tracker) finish(unreported int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.p.GroupsDone++
	t.p.PagesDone += unreported
	t.emit()
}

func (t *tracker) emit() {
	if t.fn != nil {
		t.fn(t.p)
	}
}
