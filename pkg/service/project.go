package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/sirupsen/logrus"

	"github.com/grovetools/kb/pkg/cache"
	"github.com/grovetools/kb/pkg/extractor"
	"github.com/grovetools/kb/pkg/models"
	"github.com/grovetools/kb/pkg/output"
	"github.com/grovetools/kb/pkg/preset"
	"github.com/grovetools/kb/pkg/report"
	"github.com/grovetools/kb/pkg/tree"
	"github.com/grovetools/kb/pkg/walker"
)

// DebugDir receives raw downloads in debug mode, relative to the output
// folder.
const DebugDir = "debug"

// ProjectResult summarizes one compiled project.
type ProjectResult struct {
	Project   string
	OutFolder string
	Entries   int
	Modules   int
	Extracted int
	CacheHits int
	Skipped   int
	// Outputs are paths relative to OutFolder.
	Outputs []string
	Roots   []*tree.Node
	Report  *report.Report
}

// RunProject compiles a single project. Any entry failure aborts it; the
// cache index is then left as it was on disk.
func (s *Service) RunProject(ctx context.Context, project string) (*ProjectResult, error) {
	log := s.logger.WithField("project", project)
	started := s.now()

	entriesFile, err := s.EntriesFile(project)
	if err != nil {
		return nil, err
	}
	entries, err := models.LoadEntriesFile(entriesFile)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{"file": entriesFile, "entries": len(entries)}).Info("Loaded entries")

	outFolder := s.opts.OutFolder(project)
	if err := os.MkdirAll(outFolder, 0o755); err != nil {
		return nil, fmt.Errorf("create output folder: %w", err)
	}
	fs := osfs.New(outFolder)

	store := cache.NewStore(fs, cache.Policy{
		Enabled:            s.opts.UseCache,
		ExpireAfter:        s.opts.CacheExpiry(),
		InvalidateOnChange: s.opts.InvalidateCacheOnEntryChange,
	}, s.opts.OutputFileExtension, log)
	store.Load()

	env := &preset.Env{
		Fetcher:        s.fetcher,
		GitHub:         s.github,
		Logger:         log.WithField("component", "preset"),
		BaseDir:        s.opts.ProjectFolder(project),
		ArchiveBaseURL: s.archiveURL,
	}
	defer env.Cleanup()

	xopts := extractor.Options{
		PandocPath:          s.opts.PandocPath,
		ChromeExecutable:    s.opts.ChromeExecutable,
		OutputFileExtension: s.opts.OutputFileExtension,
	}
	if s.opts.Debug {
		xopts.DebugFolder = filepath.Join(outFolder, DebugDir)
	}

	var collector *report.Collector
	wopts := walker.Options{
		Resolver:   preset.Default(env),
		Extractors: s.extractors,
		Cache:      store,
		ExtractorContext: extractor.Context{
			Options: xopts,
			Fetcher: s.fetcher,
			Run:     s.runner,
		},
		Concurrency: s.opts.Concurrency,
		Logger:      log,
		Now:         s.now,
	}
	if s.opts.Debug {
		collector = report.NewCollector(project, started)
		wopts.OnEntry = collector.Observe
	}

	res, err := walker.New(wopts).Walk(ctx, entries)
	if err != nil {
		return nil, err
	}

	if store.Enabled() {
		if err := store.Save(); err != nil {
			log.WithError(err).Warn("Could not write cache index")
		}
	}

	outputs, err := output.Write(ctx, s.opts.OutputMode, &output.Context{
		Project:   project,
		FS:        fs,
		OutFolder: outFolder,
		Extension: s.opts.OutputFileExtension,
		Minify:    s.opts.MinifyWholeDocument,
		Pages:     res.Pages,
		Logger:    log.WithField("component", "output"),
	})
	if err != nil {
		return nil, fmt.Errorf("write %s output: %w", s.opts.OutputMode, err)
	}

	if s.opts.OutputTreeFile != "" {
		if err := writeTree(s.opts.OutputTreeFile, outFolder, res.Roots); err != nil {
			return nil, err
		}
	}

	result := &ProjectResult{
		Project:   project,
		OutFolder: outFolder,
		Entries:   len(entries),
		Modules:   res.Pages.Len(),
		Extracted: res.Extracted,
		CacheHits: res.CacheHits,
		Skipped:   res.Skipped,
		Outputs:   outputs,
		Roots:     res.Roots,
	}
	if collector != nil {
		r := collector.Finish(res, outputs, s.now())
		if err := report.Write(fs, report.File, r); err != nil {
			log.WithError(err).Warn("Could not write report")
		}
		result.Report = &r
	}
	log.WithFields(logrus.Fields{
		"modules":   result.Modules,
		"extracted": result.Extracted,
		"cached":    result.CacheHits,
	}).Info("Compiled project")
	return result, nil
}

// writeTree stores the outline of the extraction tree. Relative paths are
// taken against the output folder.
func writeTree(file, outFolder string, roots []*tree.Node) error {
	if !filepath.IsAbs(file) {
		file = filepath.Join(outFolder, file)
	}
	data, err := tree.MarshalOutlines(roots)
	if err != nil {
		return fmt.Errorf("encode tree: %w", err)
	}
	dir := osfs.New(filepath.Dir(file))
	if err := util.WriteFile(dir, filepath.Base(file), data, 0o644); err != nil {
		return fmt.Errorf("write tree file: %w", err)
	}
	return nil
}
