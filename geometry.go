package lsconv

// Coordinate conversion and geometric validation.

// Keypoint visibility flag for exported points. All exported keypoints are
// labelled visible.
const keypointVisible = 2

// toPixels converts a percentage value in [0, 100] over dimension d to an
// absolute pixel value.
func toPixels(p, d float64) float64 {
	return p * d / 100
}

// toPercent converts an absolute pixel value over dimension d back to a
// percentage in [0, 100].
func toPercent(v, d float64) float64 {
	return v / d * 100
}

// convertBBox converts the box label's percentage coordinates to an absolute
// [x, y, width, height] pixel box. The coordinate fields must be present;
// the associator rejects records that lack them.
func convertBBox(l *LSLabel, width, height float64) [4]float64 {
	v := l.Value
	return [4]float64{
		toPixels(*v.X, width),
		toPixels(*v.Y, height),
		toPixels(*v.Width, width),
		toPixels(*v.Height, height),
	}
}

// convertPoints converts percentage (x, y) pairs to absolute pixel
// coordinates.
func convertPoints(points [][]float64, width, height float64) [][2]float64 {
	abs := make([][2]float64, 0, len(points))
	for _, p := range points {
		if len(p) < 2 {
			continue
		}
		abs = append(abs, [2]float64{toPixels(p[0], width), toPixels(p[1], height)})
	}
	return abs
}

// flattenKeypoints flattens absolute points into COCO (x, y, visibility)
// triples.
func flattenKeypoints(points [][2]float64) []float64 {
	flat := make([]float64, 0, 3*len(points))
	for _, p := range points {
		flat = append(flat, p[0], p[1], keypointVisible)
	}
	return flat
}

// bboxContains reports whether every point lies within the box bounds,
// inclusive on all four edges. An empty point list is trivially contained.
func bboxContains(bbox [4]float64, points [][2]float64) bool {
	xMin, yMin := bbox[0], bbox[1]
	xMax, yMax := bbox[0]+bbox[2], bbox[1]+bbox[3]
	for _, p := range points {
		if p[0] < xMin || p[0] > xMax || p[1] < yMin || p[1] > yMax {
			return false
		}
	}
	return true
}

// polygonOrderMatches checks the winding order of the point sequence against
// the expected orientation. The signed area is computed with the shoelace
// formula over the cyclic point sequence; a negative total means clockwise
// in image coordinates (y axis pointing down). Fewer than 3 points never
// match.
func polygonOrderMatches(points [][2]float64, expectClockwise bool) bool {
	if len(points) < 3 {
		return false
	}

	var total float64
	for i := range points {
		j := (i + 1) % len(points)
		total += (points[j][0] - points[i][0]) * (points[j][1] + points[i][1])
	}

	return (total < 0) == expectClockwise
}
