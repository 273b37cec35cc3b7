// Package detect proposes layout coordinates for manuscript scans by
// prompting a vision model with aligned few-shot examples.
package detect

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/globalise-huygens/document-feature-extraction/internal/geometry"
	"github.com/globalise-huygens/document-feature-extraction/internal/llm"
)

// DefaultNumExamples is how many aligned examples go into the prompt.
const DefaultNumExamples = 1

// imageExts are the scan formats the proposer accepts.
var imageExts = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// Region is one proposed layout region: a type and its pixel polygon.
type Region struct {
	Type    string        `json:"type"`
	Polygon geometry.Ring `json:"polygon"`
}

// Proposal is the validated model output for one page.
type Proposal struct {
	Regions []Region `json:"regions"`
}

// CollectExampleBasenames returns up to n basenames present in all three
// example directories (scans, region JSON, coordinate JSON), sorted.
func CollectExampleBasenames(scansDir, regionDir, coordDir string, n int) ([]string, error) {
	scans, err := basenames(scansDir, func(ext string) bool {
		_, ok := imageExts[ext]
		return ok
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list example scans: %w", err)
	}
	regions, err := basenames(regionDir, isJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to list example region JSON: %w", err)
	}
	coords, err := basenames(coordDir, isJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to list example coordinate JSON: %w", err)
	}

	common := make([]string, 0, len(scans))
	for base := range scans {
		if regions[base] && coords[base] {
			common = append(common, base)
		}
	}
	sort.Strings(common)
	if n > 0 && len(common) > n {
		common = common[:n]
	}
	return common, nil
}

func isJSON(ext string) bool { return ext == ".json" }

func basenames(dir string, keep func(ext string) bool) (map[string]bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if keep(ext) {
			out[strings.TrimSuffix(name, filepath.Ext(name))] = true
		}
	}
	return out, nil
}

// LoadExamples reads the aligned triples for the given basenames.
func LoadExamples(scansDir, regionDir, coordDir string, names []string) ([]llm.Example, error) {
	examples := make([]llm.Example, 0, len(names))
	for _, base := range names {
		imgPath, mime, err := findScan(scansDir, base)
		if err != nil {
			return nil, err
		}
		imgData, err := os.ReadFile(imgPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read example scan: %w", err)
		}
		regionSet, err := os.ReadFile(filepath.Join(regionDir, base+".json"))
		if err != nil {
			return nil, fmt.Errorf("failed to read example region JSON: %w", err)
		}
		coordSet, err := os.ReadFile(filepath.Join(coordDir, base+".json"))
		if err != nil {
			return nil, fmt.Errorf("failed to read example coordinate JSON: %w", err)
		}
		examples = append(examples, llm.Example{
			ImageData: imgData,
			ImageMIME: mime,
			RegionSet: strings.TrimSpace(string(regionSet)),
			CoordSet:  strings.TrimSpace(string(coordSet)),
		})
	}
	return examples, nil
}

// findScan locates base.<ext> in dir, trying each known image extension.
func findScan(dir, base string) (string, string, error) {
	for _, ext := range []string{".jpg", ".jpeg", ".png"} {
		path := filepath.Join(dir, base+ext)
		if _, err := os.Stat(path); err == nil {
			return path, imageExts[ext], nil
		}
	}
	return "", "", fmt.Errorf("no scan found for %s in %s", base, dir)
}

// CleanResponse strips markdown fences and any leading prose before the
// first brace or bracket. Vision models often wrap JSON in ```json
// fences or preface it with commentary.
func CleanResponse(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.IndexAny(s, "{[")
	if start > 0 {
		s = s[start:]
	}
	return s
}

// ParseProposal decodes a cleaned model response. Both response shapes
// seen in the wild are accepted: {"regions": [...]} and a bare array.
func ParseProposal(data []byte) (*Proposal, error) {
	var regions []Region
	if err := json.Unmarshal(data, &regions); err == nil {
		return &Proposal{Regions: regions}, nil
	}

	var proposal Proposal
	if err := json.Unmarshal(data, &proposal); err != nil {
		return nil, fmt.Errorf("response is not valid region JSON: %w", err)
	}
	if proposal.Regions == nil {
		return nil, fmt.Errorf("response has no regions field")
	}
	return &proposal, nil
}

// Filter drops regions missing a type or polygon, and, when allowed is
// non-empty, regions whose type is not listed. Dropped entries are logged.
func Filter(p *Proposal, allowed []string, log *logrus.Logger) *Proposal {
	allowSet := make(map[string]bool, len(allowed))
	for _, t := range allowed {
		allowSet[strings.ToLower(t)] = true
	}

	kept := make([]Region, 0, len(p.Regions))
	for _, r := range p.Regions {
		switch {
		case r.Type == "":
			log.Warn("dropping proposed region without a type")
		case len(r.Polygon) == 0:
			log.WithField("type", r.Type).Warn("dropping proposed region without a polygon")
		case len(allowSet) > 0 && !allowSet[strings.ToLower(r.Type)]:
			log.WithField("type", r.Type).Warn("dropping proposed region with unlisted type")
		default:
			kept = append(kept, r)
		}
	}
	return &Proposal{Regions: kept}
}

// Marshal renders a proposal as indented JSON without HTML escaping.
func (p *Proposal) Marshal() ([]byte, error) {
	if p.Regions == nil {
		p.Regions = []Region{}
	}
	var buf strings.Builder
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(p); err != nil {
		return nil, fmt.Errorf("failed to encode proposal: %w", err)
	}
	return []byte(strings.TrimRight(buf.String(), "\n")), nil
}
