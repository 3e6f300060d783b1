package lsconv

// Label Studio task export specific functionality.

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
)

// The label record types handled by the converter.
const (
	TypeRectangleLabels = "rectanglelabels"
	TypePolygonLabels   = "polygonlabels"
)

// LSValue is the value object of a result record. The box coordinate fields
// are pointers so that their presence can be distinguished from a zero value
// when checking for mixed coordinate schemas.
type LSValue struct {
	X               *float64    `json:"x,omitempty"`
	Y               *float64    `json:"y,omitempty"`
	Width           *float64    `json:"width,omitempty"`
	Height          *float64    `json:"height,omitempty"`
	Rotation        float64     `json:"rotation,omitempty"`
	Points          [][]float64 `json:"points,omitempty"`
	RectangleLabels []string    `json:"rectanglelabels,omitempty"`
	PolygonLabels   []string    `json:"polygonlabels,omitempty"`
	OriginalWidth   float64     `json:"original_width,omitempty"`
	OriginalHeight  float64     `json:"original_height,omitempty"`
}

// LSLabel is a single result record within a task annotation.
type LSLabel struct {
	ID             string  `json:"id"`
	Type           string  `json:"type"`
	ParentID       string  `json:"parentID,omitempty"`
	Value          LSValue `json:"value"`
	OriginalWidth  float64 `json:"original_width,omitempty"`
	OriginalHeight float64 `json:"original_height,omitempty"`
	ToName         string  `json:"to_name,omitempty"`
	FromName       string  `json:"from_name,omitempty"`
	Origin         string  `json:"origin,omitempty"`
}

// dimensions returns the original image dimensions reported by the label.
// The value object is checked first, then the label's own top level.
func (l *LSLabel) dimensions() (width, height float64, ok bool) {
	if l.Value.OriginalWidth > 0 && l.Value.OriginalHeight > 0 {
		return l.Value.OriginalWidth, l.Value.OriginalHeight, true
	}
	if l.OriginalWidth > 0 && l.OriginalHeight > 0 {
		return l.OriginalWidth, l.OriginalHeight, true
	}
	return 0, 0, false
}

// LSAnnotation is one annotation pass over a task, carrying the author and
// the ordered result records.
type LSAnnotation struct {
	CompletedBy   int64     `json:"completed_by"`
	Result        []LSLabel `json:"result"`
	WasCancelled  bool      `json:"was_cancelled,omitempty"`
	GroundTruth   bool      `json:"ground_truth,omitempty"`
	CreatedAt     string    `json:"created_at,omitempty"`
	UpdatedAt     string    `json:"updated_at,omitempty"`
	LastCreatedAt string    `json:"last_created_at,omitempty"`
	LastUpdatedAt string    `json:"last_updated_at,omitempty"`
}

// LSTaskData is the data object of a task, referencing the source image.
type LSTaskData struct {
	Image  string  `json:"image"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// LSTask is one exported unit of work: a single image with its annotations.
type LSTask struct {
	ID          int64             `json:"id,omitempty"`
	Data        LSTaskData        `json:"data"`
	Drafts      []json.RawMessage `json:"drafts,omitempty"`
	Annotations []LSAnnotation    `json:"annotations"`
}

// HasDraft reports whether the task carries unsubmitted draft annotations.
func (t *LSTask) HasDraft() bool {
	return len(t.Drafts) > 0
}

// FromLabelStudio reads and parses a Label Studio task export from path.
func FromLabelStudio(path string) ([]LSTask, error) {
	enc, err := readFile(path)
	if err != nil {
		return nil, err
	}

	var tasks []LSTask
	if err := json.Unmarshal(enc, &tasks); err != nil {
		return nil, fmt.Errorf("failed to parse Label Studio input from %q: %v", path, err)
	}

	return tasks, nil
}

// WriteLabelStudio writes the tasks to outFile as a Label Studio import file.
func WriteLabelStudio(outFile string, tasks []LSTask) error {
	enc, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return err
	}
	if err := ioutil.WriteFile(outFile, enc, 0644); err != nil {
		return fmt.Errorf("cannot write file %q: %v", outFile, err)
	}
	return nil
}
