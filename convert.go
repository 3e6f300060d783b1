package lsconv

// The Label Studio to COCO conversion pipeline.

import (
	"fmt"
	"log"
)

// DefaultOrientations maps polygon category names to their expected winding
// order (true for clockwise, in image coordinates). Front-facing outlines
// are annotated counter-clockwise, back-facing ones clockwise. Categories
// without an entry skip the winding check.
var DefaultOrientations = map[string]bool{
	"front": false,
	"back":  true,
}

// Converter converts Label Studio task exports to COCO keypoint datasets.
// The taxonomies are built once from the labeling config and stay immutable
// for the lifetime of the converter.
type Converter struct {
	Config *LabelConfig

	// Orientations maps polygon category names to the expected winding
	// order (true for clockwise). A winding mismatch is advisory: it is
	// logged but the annotation is still emitted.
	Orientations map[string]bool

	// ProbeImageDims resolves the pixel dimensions of a referenced image.
	// It is consulted only when no label in a task reports dimensions.
	// Optional; without it such tasks are skipped.
	ProbeImageDims func(imageRef string) (width, height float64, err error)
}

// NewConverter builds a converter from the labeling config at configPath.
func NewConverter(configPath string) (*Converter, error) {
	config, err := ParseLabelConfig(configPath)
	if err != nil {
		return nil, err
	}

	return &Converter{
		Config:       config,
		Orientations: DefaultOrientations,
	}, nil
}

// Stats summarises a conversion run.
type Stats struct {
	Images                int // Image entries emitted.
	ImagesWithAnnotations int // Images with at least one emitted annotation.
	Annotations           int // Total emitted annotations.
}

// taskContext carries the per-task state threaded through the pipeline
// stages. It is discarded once the task's annotations have been emitted.
type taskContext struct {
	task     *LSTask
	imageID  int
	author   int64
	hasDraft bool
	width    float64
	height   float64
}

// String identifies the source record for diagnostics.
func (tc *taskContext) String() string {
	return fmt.Sprintf("author: %d, image ID: %d (draft present: %t)",
		tc.author, tc.task.ID, tc.hasDraft)
}

// ToCOCO converts the tasks to a COCO keypoint dataset. Record-level
// problems are logged and the offending records excluded; the conversion
// itself always completes.
func (c *Converter) ToCOCO(tasks []LSTask) (*COCODataset, Stats) {
	ds := &COCODataset{
		Images:      []COCOImage{},
		Categories:  cocoCategories(c.Config.Poly),
		Annotations: []COCOAnnotation{},
		Info:        newCOCOInfo(),
	}

	for i := range tasks {
		task := &tasks[i]
		if len(task.Annotations) == 0 {
			log.Printf("No annotations found for task %d (image %s), skipping",
				task.ID, task.Data.Image)
			continue
		}

		tc := &taskContext{
			task:     task,
			imageID:  len(ds.Images),
			author:   task.Annotations[0].CompletedBy,
			hasDraft: task.HasDraft(),
		}
		c.convertTask(tc, ds)
	}

	stats := Stats{Images: len(ds.Images), Annotations: len(ds.Annotations)}
	withAnnotations := make(map[int]bool)
	for _, a := range ds.Annotations {
		withAnnotations[a.ImageID] = true
	}
	stats.ImagesWithAnnotations = len(withAnnotations)

	return ds, stats
}

// convertTask runs the per-task pipeline: dimension resolution, association,
// orphan resolution and annotation emission.
func (c *Converter) convertTask(tc *taskContext, ds *COCODataset) {
	labels := c.resolveDimensions(tc)
	if tc.width == 0 || tc.height == 0 {
		log.Printf("No image dimensions available for %s, %v, skipping the task",
			tc.task.Data.Image, tc)
		return
	}

	// The image entry is emitted as soon as the dimensions resolve, even if
	// every label of the task is later rejected.
	ds.Images = append(ds.Images, COCOImage{
		ID:                 tc.imageID,
		Width:              tc.width,
		Height:             tc.height,
		FileName:           tc.task.Data.Image,
		LabelStudioImageID: tc.task.ID,
	})

	tl := c.associateTask(tc, labels)
	c.resolveOrphans(tc, tl)
	c.emitAnnotations(tc, tl, ds)
}

// resolveDimensions seeds the task's width and height from the first label
// that reports them. Labels that arrive before the dimensions resolve and
// report none cannot be converted and are dropped with a diagnostic.
//
// When no label reports dimensions at all, the image file is probed as a
// fallback; on success every label of the task becomes processable.
func (c *Converter) resolveDimensions(tc *taskContext) []*LSLabel {
	result := tc.task.Annotations[0].Result

	labels := make([]*LSLabel, 0, len(result))
	for i := range result {
		l := &result[i]
		if tc.width == 0 || tc.height == 0 {
			w, h, ok := l.dimensions()
			if !ok {
				log.Printf("original_width or original_height not found in %s for record %s, %v",
					tc.task.Data.Image, l.ID, tc)
				continue
			}
			tc.width, tc.height = w, h
		}
		labels = append(labels, l)
	}
	if tc.width != 0 && tc.height != 0 {
		return labels
	}

	if c.ProbeImageDims == nil || len(result) == 0 {
		return nil
	}
	w, h, err := c.ProbeImageDims(tc.task.Data.Image)
	if err != nil {
		log.Printf("Failed to probe the dimensions of %s, %v: %v", tc.task.Data.Image, tc, err)
		return nil
	}
	tc.width, tc.height = w, h

	labels = labels[:0]
	for i := range result {
		labels = append(labels, &result[i])
	}
	return labels
}

// emitAnnotations validates every associated keypoint set and appends one
// annotation per surviving set to the dataset. Objects whose box never
// arrived are dangling placeholders and emit nothing.
func (c *Converter) emitAnnotations(tc *taskContext, tl *taskLabels, ds *COCODataset) {
	tl.objects.each(func(id string, o *associatedObject) bool {
		if o.box == nil {
			return true
		}

		bbox := convertBBox(o.box, tc.width, tc.height)
		for _, kp := range o.keypointSets {
			points := convertPoints(kp.Value.Points, tc.width, tc.height)
			if len(points) != keypointArity {
				log.Printf("Number of keypoints is not %d: %d, record %s, %v, check the point count",
					keypointArity, len(points), kp.ID, tc)
				continue
			}
			if !bboxContains(bbox, points) {
				log.Printf("Keypoints outside the box bounds, record %s, %v, check the annotation",
					kp.ID, tc)
				continue
			}
			if len(kp.Value.PolygonLabels) == 0 {
				log.Printf("polygonlabels record %s declares no category, %v, skipping", kp.ID, tc)
				continue
			}
			name := kp.Value.PolygonLabels[0]
			categoryID, ok := c.Config.Poly.NameToID[name]
			if !ok {
				log.Printf("Unknown polygon category %q, record %s, %v, skipping", name, kp.ID, tc)
				continue
			}

			if expectCW, checked := c.Orientations[name]; checked {
				if !polygonOrderMatches(points, expectCW) {
					// Advisory only; the annotation is still emitted.
					log.Printf("Unexpected point order for %q, record %s, %v, check the annotation order",
						name, kp.ID, tc)
				}
			}

			ds.Annotations = append(ds.Annotations, COCOAnnotation{
				ID:           len(ds.Annotations),
				ImageID:      tc.imageID,
				CategoryID:   categoryID,
				BBox:         bbox,
				Area:         bbox[2] * bbox[3],
				Keypoints:    flattenKeypoints(points),
				NumKeypoints: len(points),
				IsCrowd:      0,
				BBoxLabel:    o.box.Value.RectangleLabels,
				AuthorID:     tc.author,
			})
		}
		return true
	})
}
