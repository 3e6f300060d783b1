package lsconv

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDataset() *COCODataset {
	return &COCODataset{
		Images: []COCOImage{
			{ID: 0, Width: 200, Height: 100, FileName: "/data/upload/a.jpg"},
			{ID: 1, Width: 100, Height: 100, FileName: "/data/upload/b.jpg"},
		},
		Categories: cocoCategories(testConverter().Config.Poly),
		Annotations: []COCOAnnotation{{
			ID:         0,
			ImageID:    0,
			CategoryID: 1,
			BBox:       [4]float64{20, 10, 100, 50},
			Area:       5000,
			// The last point is not visible and must not be carried back.
			Keypoints:    []float64{40, 20, 2, 40, 40, 2, 80, 40, 2, 80, 20, 0},
			NumKeypoints: 4,
		}},
		Info: newCOCOInfo(),
	}
}

func TestToLabelStudioTraverseAnnotations(t *testing.T) {
	tasks, err := ToLabelStudio(testDataset(), "images", TraverseAnnotations, nil)
	require.NoError(t, err)

	// Only the image with annotations becomes a task.
	require.Len(t, tasks, 1)
	task := tasks[0]
	assert.Equal(t, "/data/local-files/?d=images/a.jpg", task.Data.Image)
	require.Len(t, task.Annotations, 1)

	result := task.Annotations[0].Result
	require.Len(t, result, 2)

	// The box goes back to percentage space.
	box := result[0]
	assert.Equal(t, "bbox_0", box.ID)
	assert.Equal(t, TypeRectangleLabels, box.Type)
	assert.Equal(t, float64(10), *box.Value.X)
	assert.Equal(t, float64(10), *box.Value.Y)
	assert.Equal(t, float64(50), *box.Value.Width)
	assert.Equal(t, float64(50), *box.Value.Height)
	assert.Equal(t, []string{"front"}, box.Value.RectangleLabels)
	assert.Equal(t, float64(200), box.Value.OriginalWidth)

	// Only the visible keypoints are carried back.
	poly := result[1]
	assert.Equal(t, "poly_0", poly.ID)
	assert.Equal(t, TypePolygonLabels, poly.Type)
	assert.Equal(t, []string{"front"}, poly.Value.PolygonLabels)
	require.Len(t, poly.Value.Points, 3)
	assert.Equal(t, []float64{20, 20}, poly.Value.Points[0])
	assert.Equal(t, []float64{20, 40}, poly.Value.Points[1])
	assert.Equal(t, []float64{40, 40}, poly.Value.Points[2])
}

func TestToLabelStudioTraverseImages(t *testing.T) {
	tasks, err := ToLabelStudio(testDataset(), "", TraverseImages, nil)
	require.NoError(t, err)

	require.Len(t, tasks, 2)
	assert.Len(t, tasks[0].Annotations[0].Result, 2)
	assert.Empty(t, tasks[1].Annotations[0].Result)
	assert.Equal(t, "/data/local-files/?d=b.jpg", tasks[1].Data.Image)
}

func TestToLabelStudioInvalidTraversalMode(t *testing.T) {
	_, err := ToLabelStudio(testDataset(), "", "everything", nil)
	require.Error(t, err)
}

func TestToLabelStudioMissingDimensions(t *testing.T) {
	ds := testDataset()
	ds.Images[0].Width, ds.Images[0].Height = 0, 0

	// Without a probe the image is skipped.
	tasks, err := ToLabelStudio(ds, "", TraverseAnnotations, nil)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	// With a probe the dimensions are resolved.
	ds = testDataset()
	ds.Images[0].Width, ds.Images[0].Height = 0, 0
	probe := func(imageRef string) (float64, float64, error) { return 200, 100, nil }
	tasks, err = ToLabelStudio(ds, "", TraverseAnnotations, probe)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, float64(200), tasks[0].Data.Width)
}

func TestToLabelStudioUnknownCategory(t *testing.T) {
	ds := testDataset()
	ds.Annotations[0].CategoryID = 99

	tasks, err := ToLabelStudio(ds, "", TraverseAnnotations, nil)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Empty(t, tasks[0].Annotations[0].Result)
}

func TestCOCOFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, WriteCOCO(path, testDataset()))

	ds, err := FromCOCO(path)
	require.NoError(t, err)
	assert.Len(t, ds.Images, 2)
	assert.Len(t, ds.Annotations, 1)
	assert.Equal(t, [4]float64{20, 10, 100, 50}, ds.Annotations[0].BBox)
	assert.Equal(t, "front", ds.Categories[0].Name)
}
