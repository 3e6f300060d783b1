package lsconv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToPixelsRoundTrip(t *testing.T) {
	values := []float64{0, 12.5, 33.3, 99.99, 100}
	for _, p := range values {
		px := toPixels(p, 1920)
		assert.InDelta(t, p, toPercent(px, 1920), 1e-9)
	}
}

func TestConvertBBox(t *testing.T) {
	l := boxLabel("B1", "antenna", 10, 20, 50, 25)
	bbox := convertBBox(&l, 200, 100)
	assert.Equal(t, [4]float64{20, 20, 100, 25}, bbox)
}

func TestConvertPoints(t *testing.T) {
	points := convertPoints([][]float64{{10, 20}, {50, 50}}, 200, 100)
	require.Len(t, points, 2)
	assert.Equal(t, [2]float64{20, 20}, points[0])
	assert.Equal(t, [2]float64{100, 50}, points[1])
}

func TestFlattenKeypoints(t *testing.T) {
	flat := flattenKeypoints([][2]float64{{1, 2}, {3, 4}})
	assert.Equal(t, []float64{1, 2, 2, 3, 4, 2}, flat)
}

func TestBBoxContains(t *testing.T) {
	bbox := [4]float64{10, 10, 20, 20} // x, y, w, h.

	// The bounds are inclusive on all four edges.
	assert.True(t, bboxContains(bbox, [][2]float64{{10, 10}, {30, 30}, {20, 20}}))
	assert.False(t, bboxContains(bbox, [][2]float64{{20, 20}, {30.01, 20}}))
	assert.False(t, bboxContains(bbox, [][2]float64{{9.99, 15}}))
	assert.False(t, bboxContains(bbox, [][2]float64{{15, 9.99}}))
	assert.False(t, bboxContains(bbox, [][2]float64{{15, 30.01}}))
}

func TestPolygonOrderMatches(t *testing.T) {
	// In image coordinates (y down) this sequence runs clockwise on screen:
	// the shoelace total is negative.
	clockwise := [][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	assert.True(t, polygonOrderMatches(clockwise, true))
	assert.False(t, polygonOrderMatches(clockwise, false))

	counterClockwise := [][2]float64{{0, 0}, {0, 1}, {1, 1}, {1, 0}}
	assert.True(t, polygonOrderMatches(counterClockwise, false))
	assert.False(t, polygonOrderMatches(counterClockwise, true))
}

func TestPolygonOrderMatchesDegenerate(t *testing.T) {
	// Fewer than 3 points is not a polygon and never matches.
	assert.False(t, polygonOrderMatches([][2]float64{{0, 0}, {1, 1}}, true))
	assert.False(t, polygonOrderMatches([][2]float64{{0, 0}, {1, 1}}, false))
}
