package lsconv

// COCO dataset to Label Studio import task conversion. This direction is
// pure schema remapping: no association or validation is applied.

import (
	"fmt"
	"log"
	"path/filepath"
	"time"
)

// Traversal modes for ToLabelStudio.
const (
	TraverseAnnotations = "annotations" // Tasks only for images that have annotations.
	TraverseImages      = "images"      // Tasks for every image.
)

// ToLabelStudio converts a COCO dataset back to Label Studio import tasks.
//
// Category names are taken from the dataset's category list. Images with
// missing dimensions are resolved through probe when available and skipped
// otherwise. localDir names the directory the Label Studio local-files
// storage serves the images from.
func ToLabelStudio(ds *COCODataset, localDir, traverseBy string,
	probe func(imageRef string) (width, height float64, err error)) ([]LSTask, error) {

	if traverseBy != TraverseAnnotations && traverseBy != TraverseImages {
		return nil, fmt.Errorf("unsupported traversal mode %q", traverseBy)
	}

	categoryNames := make(map[int]string, len(ds.Categories))
	for _, c := range ds.Categories {
		categoryNames[c.ID] = c.Name
	}

	// Group annotations by image.
	byImage := make(map[int][]*COCOAnnotation, len(ds.Images))
	for i := range ds.Annotations {
		a := &ds.Annotations[i]
		byImage[a.ImageID] = append(byImage[a.ImageID], a)
	}

	imagesWithAnnotations := 0
	tasks := make([]LSTask, 0, len(ds.Images))
	for i := range ds.Images {
		img := ds.Images[i]
		annotations := byImage[img.ID]
		if len(annotations) > 0 {
			imagesWithAnnotations++
		}
		if traverseBy == TraverseAnnotations && len(annotations) == 0 {
			continue
		}

		if img.Width == 0 || img.Height == 0 {
			if probe == nil {
				log.Printf("Missing dimensions for image %s and no probe available, skipping",
					img.FileName)
				continue
			}
			w, h, err := probe(img.FileName)
			if err != nil {
				log.Printf("Failed to probe the dimensions of %s: %v, skipping", img.FileName, err)
				continue
			}
			img.Width, img.Height = w, h
		}

		task := newImportTask(&img, localDir)
		for _, a := range annotations {
			appendTaskResults(&task, a, &img, categoryNames)
		}
		tasks = append(tasks, task)
	}

	log.Printf("Total images: %d, images with annotations: %d, tasks created: %d",
		len(ds.Images), imagesWithAnnotations, len(tasks))

	return tasks, nil
}

// newImportTask builds the task skeleton for one image.
func newImportTask(img *COCOImage, localDir string) LSTask {
	now := time.Now().Format(time.RFC3339)
	ref := "/data/local-files/?d=" + filepath.Base(img.FileName)
	if localDir != "" {
		ref = "/data/local-files/?d=" + filepath.Base(localDir) + "/" + filepath.Base(img.FileName)
	}

	return LSTask{
		Data: LSTaskData{
			Image:  ref,
			Width:  img.Width,
			Height: img.Height,
		},
		Annotations: []LSAnnotation{{
			CompletedBy:   1,
			Result:        []LSLabel{},
			CreatedAt:     now,
			UpdatedAt:     now,
			LastCreatedAt: now,
			LastUpdatedAt: now,
		}},
	}
}

// appendTaskResults converts one annotation back to percentage-space result
// records: a rectanglelabels record for the box and a polygonlabels record
// for the visible keypoints.
func appendTaskResults(task *LSTask, a *COCOAnnotation, img *COCOImage,
	categoryNames map[int]string) {

	name, ok := categoryNames[a.CategoryID]
	if !ok {
		log.Printf("Unknown category ID %d for annotation %d, skipping", a.CategoryID, a.ID)
		return
	}
	labels := []string{name}
	result := &task.Annotations[0].Result

	x := toPercent(a.BBox[0], img.Width)
	y := toPercent(a.BBox[1], img.Height)
	w := toPercent(a.BBox[2], img.Width)
	h := toPercent(a.BBox[3], img.Height)
	*result = append(*result, LSLabel{
		ID:   fmt.Sprintf("bbox_%d", a.ID),
		Type: TypeRectangleLabels,
		Value: LSValue{
			X: &x, Y: &y, Width: &w, Height: &h,
			RectangleLabels: labels,
			OriginalWidth:   img.Width,
			OriginalHeight:  img.Height,
		},
		ToName:   "image",
		FromName: "rectLabel",
		Origin:   "manual",
	})

	// Only visible keypoints are carried back.
	var points [][]float64
	for i := 0; i+2 < len(a.Keypoints); i += 3 {
		if a.Keypoints[i+2] <= 0 {
			continue
		}
		points = append(points, []float64{
			toPercent(a.Keypoints[i], img.Width),
			toPercent(a.Keypoints[i+1], img.Height),
		})
	}
	if len(points) == 0 {
		return
	}
	*result = append(*result, LSLabel{
		ID:   fmt.Sprintf("poly_%d", a.ID),
		Type: TypePolygonLabels,
		Value: LSValue{
			Points:         points,
			PolygonLabels:  labels,
			OriginalWidth:  img.Width,
			OriginalHeight: img.Height,
		},
		ToName:   "image",
		FromName: "polyLabel",
		Origin:   "manual",
	})
}
