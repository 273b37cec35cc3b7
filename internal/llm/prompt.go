package llm

import "fmt"

// SystemPrompt is the layout-analysis instruction for VOC manuscript
// pages. The corpus is handwritten 17th/18th-century Dutch East India
// Company material; the nuances below steer polygon placement around its
// recurring artifacts.
const SystemPrompt = `You are an expert historical-document layout analyst specialising in 17th- and 18th-century Dutch East India Company (VOC) archives. Pages contain: paragraphs, marginalia, catch-words, page numbers, signature-marks. Ink bleed-through and wrinkled baselines are common; polygon vertices must follow the visual contour of the written strokes, ignore mirrored bleed-through, and no two regions may share a pixel. All coordinates are absolute pixel positions in the original image. Respond ONLY with the coordinate JSON described below.`

// Example is one aligned few-shot triple: a page scan, its region JSON
// (types and transcribed text, no polygons), and the ground-truth
// coordinate JSON the model should have produced.
type Example struct {
	ImageData []byte
	ImageMIME string
	RegionSet string
	CoordSet  string
}

// BuildRequest assembles the few-shot prompt: each example replayed as a
// user turn (region JSON + scan) answered by a model turn (coordinate
// JSON), followed by the target page as the final user turn.
func BuildRequest(examples []Example, targetImage []byte, targetMIME, targetRegionSet string) Request {
	turns := make([]Turn, 0, 2*len(examples)+1)

	for _, ex := range examples {
		turns = append(turns, Turn{
			Role: RoleUser,
			Text: fmt.Sprintf("Example input:\nRegion JSON (with transcribed text):\n%s\n\nProvide the coordinate-only JSON for this page.", ex.RegionSet),
			ImageData: ex.ImageData,
			ImageMIME: ex.ImageMIME,
		})
		turns = append(turns, Turn{
			Role: RoleModel,
			Text: ex.CoordSet,
		})
	}

	turns = append(turns, Turn{
		Role: RoleUser,
		Text: fmt.Sprintf("Input:\nRegion JSON (with transcribed text):\n%s\n\nOutput only the coordinate JSON for this page.", targetRegionSet),
		ImageData: targetImage,
		ImageMIME: targetMIME,
	})

	return Request{
		System: SystemPrompt,
		Turns:  turns,
	}
}
