package overlay

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	_ "image/png"

	_ "golang.org/x/image/tiff"

	"github.com/globalise-huygens/document-feature-extraction/internal/pagexml"
	"github.com/globalise-huygens/document-feature-extraction/internal/region"
)

// jpegQuality matches the comparison sheets produced by the reference
// tooling.
const jpegQuality = 90

// OutputSuffix is appended to the image basename for comparison sheets.
const OutputSuffix = "_comparison_overlay.jpg"

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".tif":  true,
	".tiff": true,
}

// Processor walks a directory of page scans and writes one comparison
// sheet per image: PAGE-XML ground-truth regions overlaid on the left,
// extracted-JSON regions on the right. Sibling files are matched by
// basename; a missing sibling leaves that half of the sheet bare.
type Processor struct {
	Renderer *Renderer
	Log      *logrus.Logger

	ImageDir  string
	XMLDir    string
	JSONDir   string
	OutputDir string
}

// Summary counts the units of one overlay run.
type Summary struct {
	Processed int
	Skipped   int
}

// Run produces comparison sheets for every image in ImageDir. Unreadable
// images and missing siblings are logged and recovered from; only an
// unusable input or output directory is an error.
func (p *Processor) Run() (Summary, error) {
	log := p.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	entries, err := os.ReadDir(p.ImageDir)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to read image directory: %w", err)
	}
	if err := os.MkdirAll(p.OutputDir, 0755); err != nil {
		return Summary{}, fmt.Errorf("failed to create output directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		// macOS resource forks show up as ._ files on external volumes.
		if entry.IsDir() || strings.HasPrefix(name, "._") {
			continue
		}
		if !imageExtensions[strings.ToLower(filepath.Ext(name))] {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var summary Summary
	for _, name := range names {
		if err := p.processImage(log, name); err != nil {
			log.WithField("image", name).WithError(err).Warn("skipping image")
			summary.Skipped++
			continue
		}
		summary.Processed++
	}

	log.WithFields(logrus.Fields{
		"processed": summary.Processed,
		"skipped":   summary.Skipped,
	}).Info("overlay batch complete")
	return summary, nil
}

func (p *Processor) processImage(log *logrus.Logger, name string) error {
	base := strings.TrimSuffix(name, filepath.Ext(name))

	f, err := os.Open(filepath.Join(p.ImageDir, name))
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	img, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}

	left := img
	if regions := p.loadXMLRegions(log, base); len(regions) > 0 {
		left = p.Renderer.Draw(img, regions)
	}

	right := img
	if regions := p.loadJSONRegions(log, base); len(regions) > 0 {
		right = p.Renderer.Draw(img, regions)
	}

	sheet := SideBySide(left, right)

	outPath := filepath.Join(p.OutputDir, base+OutputSuffix)
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	defer out.Close()
	if err := jpeg.Encode(out, sheet, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return fmt.Errorf("failed to encode comparison sheet: %w", err)
	}

	log.WithField("sheet", filepath.Base(outPath)).Debug("comparison sheet written")
	return nil
}

// loadXMLRegions reads the ground-truth sibling, if present.
func (p *Processor) loadXMLRegions(log *logrus.Logger, base string) []Region {
	path := filepath.Join(p.XMLDir, base+".xml")
	doc, err := pagexml.ParseFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.WithField("file", base+".xml").WithError(err).Warn("unusable XML sibling")
		}
		return nil
	}
	return FromDocument(doc)
}

// loadJSONRegions reads the extracted-record sibling. The _simplified
// suffix variant is preferred when both exist, matching the layout of the
// reference data set.
func (p *Processor) loadJSONRegions(log *logrus.Logger, base string) []Region {
	for _, candidate := range []string{base + "_simplified.json", base + ".json"} {
		path := filepath.Join(p.JSONDir, candidate)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		records, err := region.Normalize(data)
		if err != nil {
			log.WithField("file", candidate).WithError(err).Warn("unusable JSON sibling")
			return nil
		}
		return FromRecords(records)
	}
	return nil
}
