package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/globalise-huygens/document-feature-extraction/internal/pagexml"
	"github.com/globalise-huygens/document-feature-extraction/internal/region"
)

// Summary reports what happened to each unit of work in a batch run.
type Summary struct {
	Processed int // documents that produced an output file
	Skipped   int // documents that parsed but yielded no records
	Failed    int // documents that could not be parsed or written
}

func (s Summary) String() string {
	return fmt.Sprintf("%d processed, %d skipped, %d failed", s.Processed, s.Skipped, s.Failed)
}

// Runner drives extraction over a directory of PAGE-XML files, one output
// JSON per document. Documents are independent; a malformed document is
// logged and skipped, never aborting the batch.
type Runner struct {
	Extractor *Extractor
	Log       *logrus.Logger
	// Workers bounds concurrent documents. Zero or one runs sequentially
	// in directory-listing order.
	Workers int
}

// Run processes every .xml file in inputDir and writes a same-basename
// .json file to outputDir for each document that yielded records. The
// output directory is created if missing. Only configuration-time problems
// (unreadable input dir, uncreatable output dir) return an error.
func (r *Runner) Run(ctx context.Context, inputDir, outputDir string) (Summary, error) {
	log := r.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to read input directory: %w", err)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return Summary{}, fmt.Errorf("failed to create output directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".xml") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var (
		mu      sync.Mutex
		summary Summary
	)
	g, ctx := errgroup.WithContext(ctx)
	workers := r.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for _, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			outcome := r.processOne(log, inputDir, outputDir, name)
			mu.Lock()
			switch outcome {
			case outcomeProcessed:
				summary.Processed++
			case outcomeSkipped:
				summary.Skipped++
			case outcomeFailed:
				summary.Failed++
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}

	log.WithFields(logrus.Fields{
		"processed": summary.Processed,
		"skipped":   summary.Skipped,
		"failed":    summary.Failed,
	}).Info("extraction batch complete")
	return summary, nil
}

type outcome int

const (
	outcomeProcessed outcome = iota
	outcomeSkipped
	outcomeFailed
)

// processOne handles a single document. All per-document failures are
// caught here and converted to a logged warning.
func (r *Runner) processOne(log *logrus.Logger, inputDir, outputDir, name string) outcome {
	inPath := filepath.Join(inputDir, name)

	records, err := r.Extractor.ExtractFile(inPath)
	if err != nil {
		log.WithField("file", name).WithError(err).Warn("skipping unparsable document")
		return outcomeFailed
	}
	if len(records) == 0 {
		log.WithField("file", name).Info("no regions extracted")
		return outcomeSkipped
	}

	base := strings.TrimSuffix(name, filepath.Ext(name))
	outPath := filepath.Join(outputDir, base+".json")
	if err := region.WriteFile(outPath, records); err != nil {
		log.WithField("file", name).WithError(err).Warn("failed to write output")
		return outcomeFailed
	}

	log.WithFields(logrus.Fields{
		"file":    name,
		"regions": len(records),
	}).Debug("document extracted")
	return outcomeProcessed
}

// ExtractFile parses and extracts one PAGE-XML file. A document without a
// Page element yields zero records and no error.
func (e *Extractor) ExtractFile(path string) ([]region.Record, error) {
	doc, err := pagexml.ParseFile(path)
	if err != nil {
		return nil, err
	}
	if doc.Page == nil {
		e.log.WithField("file", filepath.Base(path)).Warn("no Page element, treating as empty")
		return nil, nil
	}
	return e.Extract(doc), nil
}
