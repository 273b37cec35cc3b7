package detect

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/globalise-huygens/document-feature-extraction/internal/llm"
)

// Dirs names the directories one detection run reads and writes.
type Dirs struct {
	Images         string
	Regions        string
	Output         string
	ExampleScans   string
	ExampleRegions string
	ExampleCoords  string
}

// Options configures a detection run.
type Options struct {
	NumExamples  int
	MaxRetries   int
	AllowedTypes []string
	Model        string
	MaxTokens    int
	Temperature  float64
}

// DefaultOptions returns the options matching a plain run.
func DefaultOptions() Options {
	return Options{
		NumExamples: DefaultNumExamples,
		MaxRetries:  llm.DefaultMaxAttempts,
	}
}

// Summary reports what a detection run did.
type Summary struct {
	Proposed int
	RawSaved int
	Skipped  int
	Failed   int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d proposed, %d raw, %d skipped, %d failed", s.Proposed, s.RawSaved, s.Skipped, s.Failed)
}

// Runner drives the few-shot proposer over a directory of target scans.
type Runner struct {
	Provider llm.Provider
	Log      *logrus.Logger
	Opts     Options
}

// NewRunner creates a runner with defaulted options.
func NewRunner(provider llm.Provider, opts Options, log *logrus.Logger) *Runner {
	if opts.NumExamples <= 0 {
		opts.NumExamples = DefaultNumExamples
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = llm.DefaultMaxAttempts
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Runner{Provider: provider, Log: log, Opts: opts}
}

// Run proposes coordinates for every scan in dirs.Images that has an
// aligned region JSON. Targets are processed sequentially so provider
// rate limits apply to one request at a time.
func (r *Runner) Run(ctx context.Context, dirs Dirs) (Summary, error) {
	var summary Summary

	names, err := CollectExampleBasenames(dirs.ExampleScans, dirs.ExampleRegions, dirs.ExampleCoords, r.Opts.NumExamples)
	if err != nil {
		return summary, err
	}
	if len(names) < r.Opts.NumExamples {
		r.Log.WithFields(logrus.Fields{
			"requested": r.Opts.NumExamples,
			"found":     len(names),
		}).Warn("fewer aligned examples than requested")
	}
	examples, err := LoadExamples(dirs.ExampleScans, dirs.ExampleRegions, dirs.ExampleCoords, names)
	if err != nil {
		return summary, err
	}

	entries, err := os.ReadDir(dirs.Images)
	if err != nil {
		return summary, fmt.Errorf("failed to read images directory: %w", err)
	}
	if err := os.MkdirAll(dirs.Output, 0o755); err != nil {
		return summary, fmt.Errorf("failed to create output directory: %w", err)
	}

	var targets []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, "._") {
			continue
		}
		if _, ok := imageExts[strings.ToLower(filepath.Ext(name))]; ok {
			targets = append(targets, name)
		}
	}
	sort.Strings(targets)

	for _, name := range targets {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		base := strings.TrimSuffix(name, filepath.Ext(name))
		regionPath := filepath.Join(dirs.Regions, base+".json")
		if _, err := os.Stat(regionPath); err != nil {
			r.Log.WithField("image", name).Warn("region JSON missing, skipping")
			summary.Skipped++
			continue
		}

		outPath := filepath.Join(dirs.Output, base+".json")
		switch r.proposeOne(ctx, examples, filepath.Join(dirs.Images, name), regionPath, outPath) {
		case outcomeProposed:
			summary.Proposed++
		case outcomeRaw:
			summary.RawSaved++
		case outcomeFailed:
			summary.Failed++
		}
	}

	r.Log.WithFields(logrus.Fields{
		"proposed": summary.Proposed,
		"raw":      summary.RawSaved,
		"skipped":  summary.Skipped,
		"failed":   summary.Failed,
	}).Info("detection run complete")
	return summary, nil
}

type outcome int

const (
	outcomeProposed outcome = iota
	outcomeRaw
	outcomeFailed
)

func (r *Runner) proposeOne(ctx context.Context, examples []llm.Example, imgPath, regionPath, outPath string) outcome {
	log := r.Log.WithField("image", filepath.Base(imgPath))

	imgData, err := os.ReadFile(imgPath)
	if err != nil {
		log.WithError(err).Error("failed to read target scan")
		return outcomeFailed
	}
	regionSet, err := os.ReadFile(regionPath)
	if err != nil {
		log.WithError(err).Error("failed to read target region JSON")
		return outcomeFailed
	}

	mime := imageExts[strings.ToLower(filepath.Ext(imgPath))]
	req := llm.BuildRequest(examples, imgData, mime, strings.TrimSpace(string(regionSet)))
	req.Model = r.Opts.Model
	req.MaxTokens = r.Opts.MaxTokens
	req.Temperature = r.Opts.Temperature

	raw, err := llm.Retry(ctx, r.Opts.MaxRetries, func() (string, error) {
		return r.Provider.Propose(ctx, req)
	})
	if err != nil {
		log.WithError(err).Error("provider request failed")
		return outcomeFailed
	}

	cleaned := CleanResponse(raw)
	proposal, err := ParseProposal([]byte(cleaned))
	if err != nil {
		// Never discard model output: keep the raw body for debugging.
		log.WithError(err).Warn("unparsable response, saving raw body")
		if werr := os.WriteFile(outPath, []byte(raw), 0o644); werr != nil {
			log.WithError(werr).Error("failed to save raw response")
			return outcomeFailed
		}
		return outcomeRaw
	}

	proposal = Filter(proposal, r.Opts.AllowedTypes, r.Log)
	data, err := proposal.Marshal()
	if err != nil {
		log.WithError(err).Error("failed to encode proposal")
		return outcomeFailed
	}
	if err := os.WriteFile(outPath, append(data, '\n'), 0o644); err != nil {
		log.WithError(err).Error("failed to write proposal")
		return outcomeFailed
	}
	log.Info("proposal saved")
	return outcomeProposed
}
