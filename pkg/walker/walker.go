// Package walker builds the extraction tree of a project: it resolves each
// entry through the presets, dispatches terminal entries to extractors or
// the content cache, and collects the resulting modules per page.
package walker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/mitchellh/hashstructure/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/grovetools/kb/pkg/cache"
	"github.com/grovetools/kb/pkg/content"
	"github.com/grovetools/kb/pkg/extractor"
	"github.com/grovetools/kb/pkg/models"
	"github.com/grovetools/kb/pkg/preset"
	"github.com/grovetools/kb/pkg/tree"
)

// Event describes the handling of one terminal entry.
type Event struct {
	EntryID   string
	Page      string
	Extractor string
	Segments  []string
	Cached    bool
	Duration  time.Duration
	Sizes     []int
}

// Options configures a Walker.
type Options struct {
	Resolver   *preset.Resolver
	Extractors *extractor.Registry
	// Cache may be nil, which disables caching.
	Cache *cache.Store
	// ExtractorContext is copied for every extraction; EntryID and Logger
	// are filled in per entry.
	ExtractorContext extractor.Context
	// Concurrency bounds the number of entries resolved or extracted at
	// once. Values below 2 walk strictly sequentially.
	Concurrency int
	Logger      *logrus.Entry
	Now         func() time.Time
	// OnEntry, when set, is called for every terminal entry. It may be
	// called from several goroutines.
	OnEntry func(Event)
}

// Result is the outcome of a walk.
type Result struct {
	Roots     []*tree.Node
	Pages     *content.Pages
	Extracted int
	CacheHits int
	Skipped   int
}

// Walker walks entries into an extraction tree.
type Walker struct {
	opts   Options
	logger *logrus.Entry
	sem    *semaphore.Weighted

	extracted atomic.Int64
	hits      atomic.Int64
	skipped   atomic.Int64
}

// New creates a Walker.
func New(opts Options) *Walker {
	if opts.Extractors == nil {
		opts.Extractors = extractor.Default()
	}
	if opts.Resolver == nil {
		opts.Resolver = preset.Default(&preset.Env{})
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	limit := opts.Concurrency
	if limit < 1 {
		limit = 1
	}
	return &Walker{
		opts:   opts,
		logger: logger.WithField("component", "walker"),
		sem:    semaphore.NewWeighted(int64(limit)),
	}
}

// Fingerprint hashes every field of an entry, nested values included.
// Map ordering does not affect the result.
func Fingerprint(entry models.Entry) (string, error) {
	h, err := hashstructure.Hash(entry.Fields(), hashstructure.FormatV2, nil)
	if err != nil {
		return "", fmt.Errorf("hash entry %s: %w", entry.ID, err)
	}
	return fmt.Sprintf("%016x", h), nil
}

// Walk processes entries in order. Each distinct page gets a root node,
// in order of first appearance. The first fatal error aborts the walk.
func (w *Walker) Walk(ctx context.Context, entries models.Entries) (*Result, error) {
	w.extracted.Store(0)
	w.hits.Store(0)
	w.skipped.Store(0)

	var roots []*tree.Node
	byPage := map[string]*tree.Node{}
	nodes := make([]*tree.Node, len(entries))
	for i := range entries {
		page := entries[i].DisplayPage()
		root, ok := byPage[page]
		if !ok {
			root = tree.NewRoot(entries[i].Page)
			byPage[page] = root
			roots = append(roots, root)
		}
		nodes[i] = root.AddChild(&entries[i])
	}

	err := w.fanOut(ctx, len(entries), func(ctx context.Context, i int) error {
		return w.process(ctx, nodes[i], entries[i])
	})
	res := &Result{
		Roots:     roots,
		Pages:     BuildPages(roots),
		Extracted: int(w.extracted.Load()),
		CacheHits: int(w.hits.Load()),
		Skipped:   int(w.skipped.Load()),
	}
	return res, err
}

// BuildPages collects the modules of the tree per declared page, depth
// first. This matches the order a sequential walk appends in.
func BuildPages(roots []*tree.Node) *content.Pages {
	pages := content.NewPages()
	for _, root := range roots {
		_ = root.Walk(func(n *tree.Node, _ int) error {
			if n.Entry == nil {
				return nil
			}
			if mods := n.Content(); len(mods) > 0 {
				pages.Append(n.Entry.Page, mods...)
			}
			return nil
		})
	}
	return pages
}

// fanOut runs fn for 0..n-1, in order when the walk is sequential.
func (w *Walker) fanOut(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	if w.opts.Concurrency < 2 || n < 2 {
		for i := 0; i < n; i++ {
			if err := fn(ctx, i); err != nil {
				return err
			}
		}
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		g.Go(func() error { return fn(gctx, i) })
	}
	return g.Wait()
}

// limited holds a concurrency slot while fn runs. Slots are never held
// across recursion, so nested fan-outs cannot starve each other.
func (w *Walker) limited(ctx context.Context, fn func() error) error {
	if err := w.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer w.sem.Release(1)
	return fn()
}

func (w *Walker) process(ctx context.Context, node *tree.Node, entry models.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log := w.logger.WithField("entry", node.ID)
	if entry.Type != "" {
		log.Infof("[type %s] %s", entry.Type, node.ID)
	}
	if log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		log.WithField("fields", entry.Fields()).Debug("Resolving entry")
	}

	var res preset.Result
	err := w.limited(ctx, func() error {
		var err error
		res, err = w.opts.Resolver.Resolve(ctx, entry)
		return err
	})
	if err != nil {
		return fmt.Errorf("entry %s: %w", node.ID, err)
	}

	switch res.Outcome {
	case preset.Skip:
		log.WithField("type", entry.Type).Debug("Skipping entry")
		w.skipped.Add(1)
		return nil
	case preset.Children:
		children := res.Entries
		nodes := make([]*tree.Node, len(children))
		for i := range children {
			nodes[i] = node.AddChild(&children[i])
		}
		log.Infof("Expanded into %d entries", len(children))
		return w.fanOut(ctx, len(children), func(ctx context.Context, i int) error {
			return w.process(ctx, nodes[i], children[i])
		})
	case preset.Replace:
		repl := res.Entry
		log.WithField("type", repl.Type).Debug("Replaced entry")
		return w.process(ctx, node.AddChild(&repl), repl)
	case preset.ExtractorHint:
		entry.Extractor = res.Extractor
		node.Entry = &entry
	}
	return w.terminal(ctx, node, entry)
}

func (w *Walker) terminal(ctx context.Context, node *tree.Node, entry models.Entry) error {
	log := w.logger.WithField("entry", node.ID)
	if entry.Extractor == "" {
		if entry.Type != "" && !w.opts.Resolver.Has(entry.Type) {
			log.WithField("type", entry.Type).Warn("Skipping entry of unknown type without extractor")
			w.skipped.Add(1)
			return nil
		}
		return fmt.Errorf("entry %s: %w", node.ID, models.ErrMissingExtractor)
	}

	start := time.Now()
	hash, err := Fingerprint(entry)
	if err != nil {
		return err
	}
	page := entry.Page
	segments := node.Segments()
	now := w.opts.Now()

	mods, cached, err := w.fromCache(node, entry, hash, now)
	if err != nil {
		return err
	}
	if !cached {
		mods, err = w.extract(ctx, node.ID, entry)
		if err != nil {
			return err
		}
		if w.opts.Cache != nil {
			if err := w.opts.Cache.Record(page, node.ID, hash, now, segments, mods); err != nil {
				return fmt.Errorf("entry %s: %w", node.ID, err)
			}
		}
		w.extracted.Add(1)
	} else {
		log.WithField("modules", len(mods)).Info("Using cached content")
		w.hits.Add(1)
	}
	node.AddContent(mods...)

	if w.opts.OnEntry != nil {
		sizes := make([]int, len(mods))
		for i, m := range mods {
			sizes[i] = len(m.SourceText())
		}
		w.opts.OnEntry(Event{
			EntryID:   node.ID,
			Page:      page,
			Extractor: entry.Extractor,
			Segments:  segments,
			Cached:    cached,
			Duration:  time.Since(start),
			Sizes:     sizes,
		})
	}
	log.WithFields(logrus.Fields{"modules": len(mods), "cached": cached}).Debug("Processed entry")
	return nil
}

// fromCache returns the stored modules of an entry when they are valid
// and complete. A missing content file is a full miss.
func (w *Walker) fromCache(node *tree.Node, entry models.Entry, hash string, now time.Time) ([]*content.Module, bool, error) {
	store := w.opts.Cache
	if store == nil || !store.IsValid(entry.Page, node.ID, hash, now) {
		return nil, false, nil
	}
	mods, err := store.Restore(entry.Page, node.ID, node.Segments(), node.Entry)
	if errors.Is(err, cache.ErrIncomplete) {
		w.logger.WithField("entry", node.ID).Info("Cached content incomplete, extracting again")
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return mods, true, nil
}

func (w *Walker) extract(ctx context.Context, id string, entry models.Entry) ([]*content.Module, error) {
	xctx := w.opts.ExtractorContext
	xctx.EntryID = id
	xctx.Logger = w.logger.WithFields(logrus.Fields{"entry": id, "extractor": entry.Extractor})

	x, err := w.opts.Extractors.New(entry.Extractor, &entry, &xctx)
	if err != nil {
		return nil, fmt.Errorf("entry %s: %w", id, err)
	}
	xctx.Logger.Infof("[extractor %s] %s", entry.Extractor, id)
	if err := w.limited(ctx, func() error { return x.Init(ctx) }); err != nil {
		return nil, fmt.Errorf("entry %s: %w", id, err)
	}

	var mods []*content.Module
	for _, m := range x.ContentModules() {
		if m.IsEmpty() {
			xctx.Logger.WithField("kind", m.Kind()).Warn("Discarding empty content")
			continue
		}
		xctx.Logger.WithField("kind", m.Kind()).Infof("Produced %d characters", len(m.SourceText()))
		mods = append(mods, m)
	}
	return mods, nil
}
