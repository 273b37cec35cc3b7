package detect

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/globalise-huygens/document-feature-extraction/internal/geometry"
	"github.com/globalise-huygens/document-feature-extraction/internal/llm"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// stubProvider returns a canned response and records the requests it saw.
type stubProvider struct {
	response string
	err      error
	requests []llm.Request
}

func (s *stubProvider) Name() string    { return "stub" }
func (s *stubProvider) Validate() error { return nil }

func (s *stubProvider) Propose(ctx context.Context, req llm.Request) (string, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// exampleDirs lays out aligned scan/region/coordinate triples for the
// given basenames and returns the three directories.
func exampleDirs(t *testing.T, names ...string) (string, string, string) {
	t.Helper()
	root := t.TempDir()
	scans := filepath.Join(root, "scans")
	regions := filepath.Join(root, "regions")
	coords := filepath.Join(root, "coords")
	for _, dir := range []string{scans, regions, coords} {
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatalf("failed to create %s: %v", dir, err)
		}
	}
	for _, base := range names {
		writeFile(t, filepath.Join(scans, base+".jpg"), "\xff\xd8fake")
		writeFile(t, filepath.Join(regions, base+".json"), `[{"type": "paragraph", "text": "tekst"}]`)
		writeFile(t, filepath.Join(coords, base+".json"), `{"regions": []}`)
	}
	return scans, regions, coords
}

func TestCollectExampleBasenames(t *testing.T) {
	scans, regions, coords := exampleDirs(t, "page_b", "page_a", "page_c")

	// page_d exists only as a scan, so it must not be selected.
	writeFile(t, filepath.Join(scans, "page_d.png"), "fake")

	names, err := CollectExampleBasenames(scans, regions, coords, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("expected 2 names, got %v", names)
	}
	if names[0] != "page_a" || names[1] != "page_b" {
		t.Errorf("expected sorted prefix [page_a page_b], got %v", names)
	}
}

func TestCollectExampleBasenames_MissingDir(t *testing.T) {
	_, regions, coords := exampleDirs(t, "page_a")

	_, err := CollectExampleBasenames(filepath.Join(t.TempDir(), "nope"), regions, coords, 1)
	if err == nil {
		t.Error("expected error for missing scans directory")
	}
}

func TestLoadExamples(t *testing.T) {
	scans, regions, coords := exampleDirs(t, "page_a")

	examples, err := LoadExamples(scans, regions, coords, []string{"page_a"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(examples) != 1 {
		t.Fatalf("expected 1 example, got %d", len(examples))
	}
	ex := examples[0]
	if ex.ImageMIME != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %s", ex.ImageMIME)
	}
	if !strings.Contains(ex.RegionSet, "paragraph") {
		t.Errorf("unexpected region set: %s", ex.RegionSet)
	}
	if ex.CoordSet != `{"regions": []}` {
		t.Errorf("unexpected coord set: %s", ex.CoordSet)
	}
}

func TestCleanResponse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain object", `{"regions": []}`, `{"regions": []}`},
		{"plain array", `[]`, `[]`},
		{"json fence", "```json\n{\"regions\": []}\n```", `{"regions": []}`},
		{"bare fence", "```\n{\"regions\": []}\n```", `{"regions": []}`},
		{"leading prose", "Here is the layout:\n{\"regions\": []}", `{"regions": []}`},
		{"whitespace", "  \n{\"regions\": []}\n ", `{"regions": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanResponse(tt.in); got != tt.want {
				t.Errorf("CleanResponse(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseProposal(t *testing.T) {
	envelope := `{"regions": [{"type": "paragraph", "polygon": [[0, 0], [10, 0], [10, 10]]}]}`
	p, err := ParseProposal([]byte(envelope))
	if err != nil {
		t.Fatalf("envelope: unexpected error: %v", err)
	}
	if len(p.Regions) != 1 || p.Regions[0].Type != "paragraph" {
		t.Errorf("envelope: unexpected proposal %+v", p)
	}

	bare := `[{"type": "marginalia", "polygon": [[1, 2]]}]`
	p, err = ParseProposal([]byte(bare))
	if err != nil {
		t.Fatalf("bare array: unexpected error: %v", err)
	}
	if len(p.Regions) != 1 || p.Regions[0].Type != "marginalia" {
		t.Errorf("bare array: unexpected proposal %+v", p)
	}

	if _, err := ParseProposal([]byte(`"just a string"`)); err == nil {
		t.Error("expected error for non-region JSON")
	}
	if _, err := ParseProposal([]byte(`{"other": 1}`)); err == nil {
		t.Error("expected error for object without regions")
	}
}

func TestFilter(t *testing.T) {
	p := &Proposal{Regions: []Region{
		{Type: "paragraph", Polygon: ring(3)},
		{Type: "marginalia", Polygon: ring(3)},
		{Type: "doodle", Polygon: ring(3)},
		{Type: "", Polygon: ring(3)},
		{Type: "paragraph"},
	}}

	got := Filter(p, []string{"paragraph", "marginalia"}, quietLogger())
	if len(got.Regions) != 2 {
		t.Fatalf("expected 2 kept regions, got %d", len(got.Regions))
	}
	if got.Regions[0].Type != "paragraph" || got.Regions[1].Type != "marginalia" {
		t.Errorf("unexpected kept regions: %+v", got.Regions)
	}
}

func TestFilter_EmptyWhitelistKeepsTypedRegions(t *testing.T) {
	p := &Proposal{Regions: []Region{
		{Type: "doodle", Polygon: ring(3)},
		{Type: "", Polygon: ring(3)},
	}}

	got := Filter(p, nil, quietLogger())
	if len(got.Regions) != 1 || got.Regions[0].Type != "doodle" {
		t.Errorf("unexpected kept regions: %+v", got.Regions)
	}
}

func TestRunner_Run(t *testing.T) {
	scans, regions, coords := exampleDirs(t, "example_1")

	root := t.TempDir()
	images := filepath.Join(root, "images")
	targetRegions := filepath.Join(root, "regions")
	output := filepath.Join(root, "output")
	for _, dir := range []string{images, targetRegions} {
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatalf("failed to create %s: %v", dir, err)
		}
	}
	writeFile(t, filepath.Join(images, "target_1.jpg"), "\xff\xd8fake")
	writeFile(t, filepath.Join(targetRegions, "target_1.json"), `[{"type": "paragraph", "text": "aan den"}]`)
	// target_2 has no region JSON and must be skipped.
	writeFile(t, filepath.Join(images, "target_2.jpg"), "\xff\xd8fake")
	// macOS resource forks are ignored.
	writeFile(t, filepath.Join(images, "._target_1.jpg"), "junk")

	provider := &stubProvider{
		response: "```json\n{\"regions\": [{\"type\": \"paragraph\", \"polygon\": [[0, 0], [10, 0], [10, 10], [0, 10], [0, 0]]}, {\"type\": \"doodle\", \"polygon\": [[1, 1]]}]}\n```",
	}
	runner := NewRunner(provider, Options{
		NumExamples:  1,
		AllowedTypes: []string{"paragraph", "marginalia"},
	}, quietLogger())

	summary, err := runner.Run(context.Background(), Dirs{
		Images:         images,
		Regions:        targetRegions,
		Output:         output,
		ExampleScans:   scans,
		ExampleRegions: regions,
		ExampleCoords:  coords,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Proposed != 1 || summary.Skipped != 1 || summary.Failed != 0 {
		t.Errorf("unexpected summary: %+v", summary)
	}

	// The few-shot context must precede the target turn.
	if len(provider.requests) != 1 {
		t.Fatalf("expected 1 provider call, got %d", len(provider.requests))
	}
	if len(provider.requests[0].Turns) != 3 {
		t.Errorf("expected 3 turns (1 example + target), got %d", len(provider.requests[0].Turns))
	}

	data, err := os.ReadFile(filepath.Join(output, "target_1.json"))
	if err != nil {
		t.Fatalf("expected proposal output: %v", err)
	}
	var saved Proposal
	if err := json.Unmarshal(data, &saved); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(saved.Regions) != 1 || saved.Regions[0].Type != "paragraph" {
		t.Errorf("whitelist filter not applied: %+v", saved.Regions)
	}
}

func TestRunner_Run_SavesRawOnUnparsableResponse(t *testing.T) {
	scans, regions, coords := exampleDirs(t, "example_1")

	root := t.TempDir()
	images := filepath.Join(root, "images")
	targetRegions := filepath.Join(root, "regions")
	output := filepath.Join(root, "output")
	for _, dir := range []string{images, targetRegions} {
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatalf("failed to create %s: %v", dir, err)
		}
	}
	writeFile(t, filepath.Join(images, "target_1.jpg"), "\xff\xd8fake")
	writeFile(t, filepath.Join(targetRegions, "target_1.json"), `[]`)

	provider := &stubProvider{response: "I could not find any regions on this page."}
	runner := NewRunner(provider, DefaultOptions(), quietLogger())

	summary, err := runner.Run(context.Background(), Dirs{
		Images:         images,
		Regions:        targetRegions,
		Output:         output,
		ExampleScans:   scans,
		ExampleRegions: regions,
		ExampleCoords:  coords,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.RawSaved != 1 || summary.Proposed != 0 {
		t.Errorf("unexpected summary: %+v", summary)
	}

	data, err := os.ReadFile(filepath.Join(output, "target_1.json"))
	if err != nil {
		t.Fatalf("expected raw output: %v", err)
	}
	if string(data) != provider.response {
		t.Errorf("raw body not preserved: %q", string(data))
	}
}

func TestRunner_Run_ProviderFailure(t *testing.T) {
	scans, regions, coords := exampleDirs(t, "example_1")

	root := t.TempDir()
	images := filepath.Join(root, "images")
	targetRegions := filepath.Join(root, "regions")
	for _, dir := range []string{images, targetRegions} {
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatalf("failed to create %s: %v", dir, err)
		}
	}
	writeFile(t, filepath.Join(images, "target_1.jpg"), "\xff\xd8fake")
	writeFile(t, filepath.Join(targetRegions, "target_1.json"), `[]`)

	provider := &stubProvider{err: errInvalidKey}
	runner := NewRunner(provider, DefaultOptions(), quietLogger())

	summary, err := runner.Run(context.Background(), Dirs{
		Images:         images,
		Regions:        targetRegions,
		Output:         filepath.Join(root, "output"),
		ExampleScans:   scans,
		ExampleRegions: regions,
		ExampleCoords:  coords,
	})
	if err != nil {
		t.Fatalf("per-image failures must not abort the run: %v", err)
	}
	if summary.Failed != 1 {
		t.Errorf("unexpected summary: %+v", summary)
	}
}

var errInvalidKey = errors.New("invalid api key")

func ring(n int) geometry.Ring {
	pts := make(geometry.Ring, n)
	for i := range pts {
		pts[i] = geometry.Point{X: float64(i), Y: float64(i)}
	}
	return pts
}
