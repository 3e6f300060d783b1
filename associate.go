package lsconv

// Association of box and keypoint labels within a single task.

import "log"

// associatedObject pairs a box label with the keypoint sets that belong to
// it. The box stays nil while only child keypoint sets have arrived; such a
// placeholder is never emitted.
type associatedObject struct {
	box          *LSLabel
	keypointSets []*LSLabel
}

// objectMap is an insertion-ordered map from label ID to associatedObject.
// The creation order decides which box wins when an orphan keypoint set is
// contained by more than one candidate, so it must stay deterministic.
type objectMap struct {
	ids     []string
	objects map[string]*associatedObject
}

func newObjectMap() *objectMap {
	return &objectMap{objects: make(map[string]*associatedObject)}
}

func (m *objectMap) get(id string) (*associatedObject, bool) {
	o, ok := m.objects[id]
	return o, ok
}

func (m *objectMap) put(id string, o *associatedObject) {
	if _, exists := m.objects[id]; !exists {
		m.ids = append(m.ids, id)
	}
	m.objects[id] = o
}

// each calls fn for every object in insertion order until fn returns false.
func (m *objectMap) each(fn func(id string, o *associatedObject) bool) {
	for _, id := range m.ids {
		if !fn(id, m.objects[id]) {
			return
		}
	}
}

// taskLabels is the outcome of the association pass over one task: the
// associated objects plus the keypoint sets that carry no parent reference.
type taskLabels struct {
	objects *objectMap
	orphans []*LSLabel
}

// associateTask partitions the task's labels into associated objects and
// orphan keypoint sets in a single ordered pass.
//
// A box whose ID already has an object updates that object's box; box data
// arriving in two fragments is treated as an update, not an error. A keypoint
// set referencing an unknown parent creates a placeholder that a later box
// record may complete. Records mixing the coordinate schemas of the two label
// types are rejected.
func (c *Converter) associateTask(tc *taskContext, labels []*LSLabel) *taskLabels {
	tl := &taskLabels{objects: newObjectMap()}

	for _, l := range labels {
		switch l.Type {
		case TypeRectangleLabels:
			if l.Value.Points != nil {
				log.Printf("rectanglelabels record %s carries a point list, %v, check the label", l.ID, tc)
				continue
			}
			if l.Value.X == nil || l.Value.Y == nil || l.Value.Width == nil || l.Value.Height == nil {
				log.Printf("rectanglelabels record %s is missing box coordinates, %v, check the label", l.ID, tc)
				continue
			}
			if o, ok := tl.objects.get(l.ID); ok {
				o.box = l
			} else {
				tl.objects.put(l.ID, &associatedObject{box: l})
			}

		case TypePolygonLabels:
			if l.Value.X != nil {
				log.Printf("polygonlabels record %s carries box coordinates, %v, check the label", l.ID, tc)
				continue
			}
			if l.ParentID != "" {
				if o, ok := tl.objects.get(l.ParentID); ok {
					o.keypointSets = append(o.keypointSets, l)
				} else {
					tl.objects.put(l.ParentID, &associatedObject{keypointSets: []*LSLabel{l}})
				}
			} else {
				tl.orphans = append(tl.orphans, l)
			}

		default:
			log.Printf("Unknown label type %q for record %s, %v, skipping", l.Type, l.ID, tc)
		}
	}

	return tl
}

// resolveOrphans binds each orphan keypoint set to the first associated
// object, in creation order, whose box contains every point of the orphan.
// This is a deliberate first-match policy: with multiple containing
// candidates the earliest created box wins. Orphans with no containing box
// are dropped.
func (c *Converter) resolveOrphans(tc *taskContext, tl *taskLabels) {
	for _, orphan := range tl.orphans {
		points := convertPoints(orphan.Value.Points, tc.width, tc.height)

		matched := false
		tl.objects.each(func(id string, o *associatedObject) bool {
			if o.box == nil {
				return true
			}
			if !bboxContains(convertBBox(o.box, tc.width, tc.height), points) {
				return true
			}
			o.keypointSets = append(o.keypointSets, orphan)
			matched = true
			return false
		})

		if !matched {
			log.Printf("Keypoint set %s could not be matched to any box, %v, keypoints: %v",
				orphan.ID, tc, points)
		}
	}
}
