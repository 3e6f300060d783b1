package lsconv

// COCO keypoint dataset specific functionality.

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"time"
)

// The fixed keypoint topology for polygon categories: four generic corner
// points connected as a quadrilateral. This is a convention, not derived
// from the annotation data.
const keypointArity = 4

var quadSkeleton = [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}}

const supercategory = "tm"

// COCOImage is one image entry in the dataset.
type COCOImage struct {
	ID                 int     `json:"id"`
	Width              float64 `json:"width"`
	Height             float64 `json:"height"`
	FileName           string  `json:"file_name"`
	LabelStudioImageID int64   `json:"label_studio_image_id,omitempty"`
}

// COCOCategory is one keypoint category entry in the dataset.
type COCOCategory struct {
	ID            int      `json:"id"`
	Name          string   `json:"name"`
	Supercategory string   `json:"supercategory"`
	Keypoints     []string `json:"keypoints"`
	Skeleton      [][2]int `json:"skeleton"`
}

// COCOAnnotation fuses a box with one keypoint set. Keypoints are flat
// (x, y, visibility) triples in pixel space.
type COCOAnnotation struct {
	ID           int        `json:"id"`
	ImageID      int        `json:"image_id"`
	CategoryID   int        `json:"category_id"`
	BBox         [4]float64 `json:"bbox"`
	Area         float64    `json:"area"`
	Keypoints    []float64  `json:"keypoints"`
	NumKeypoints int        `json:"num_keypoints"`
	IsCrowd      int        `json:"iscrowd"`
	BBoxLabel    []string   `json:"bbox_label,omitempty"`
	AuthorID     int64      `json:"author_id,omitempty"`
}

// COCOInfo is the dataset metadata block.
type COCOInfo struct {
	Year        int    `json:"year"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Contributor string `json:"contributor"`
	URL         string `json:"url"`
	DateCreated string `json:"date_created"`
}

// COCODataset is the complete output document.
type COCODataset struct {
	Images      []COCOImage      `json:"images"`
	Categories  []COCOCategory   `json:"categories"`
	Annotations []COCOAnnotation `json:"annotations"`
	Info        COCOInfo         `json:"info"`
}

// newCOCOInfo builds the metadata block for a conversion run.
func newCOCOInfo() COCOInfo {
	now := time.Now()
	return COCOInfo{
		Year:        now.Year(),
		Version:     "1.0",
		Contributor: "Label Studio",
		DateCreated: now.Format("2006-01-02 15:04:05"),
	}
}

// cocoCategories generates the output category list from the full polygon
// taxonomy. Every category carries the fixed 4-point topology.
func cocoCategories(poly Taxonomy) []COCOCategory {
	names := make([]string, keypointArity)
	for i := range names {
		names[i] = fmt.Sprintf("kpt%d", i)
	}

	categories := make([]COCOCategory, 0, len(poly.Categories))
	for _, c := range poly.Categories {
		categories = append(categories, COCOCategory{
			ID:            c.ID,
			Name:          c.Name,
			Supercategory: supercategory,
			Keypoints:     names,
			Skeleton:      quadSkeleton,
		})
	}
	return categories
}

// FromCOCO reads and parses a COCO dataset from path.
func FromCOCO(path string) (*COCODataset, error) {
	enc, err := readFile(path)
	if err != nil {
		return nil, err
	}

	var ds COCODataset
	if err := json.Unmarshal(enc, &ds); err != nil {
		return nil, fmt.Errorf("failed to parse COCO input from %q: %v", path, err)
	}

	return &ds, nil
}

// WriteCOCO writes the dataset to outFile.
func WriteCOCO(outFile string, ds *COCODataset) error {
	enc, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return err
	}
	if err := ioutil.WriteFile(outFile, enc, 0644); err != nil {
		return fmt.Errorf("cannot write file %q: %v", outFile, err)
	}
	return nil
}
