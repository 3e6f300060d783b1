package lsconv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTaskContext() *taskContext {
	return &taskContext{task: &LSTask{ID: 1}, author: 7, width: 100, height: 100}
}

func labelPtrs(labels []LSLabel) []*LSLabel {
	ptrs := make([]*LSLabel, len(labels))
	for i := range labels {
		ptrs[i] = &labels[i]
	}
	return ptrs
}

func TestAssociateTaskLinksByParentID(t *testing.T) {
	c := testConverter()
	labels := []LSLabel{
		boxLabel("B1", "antenna", 10, 10, 50, 50),
		polyLabel("P1", "B1", "front", insidePoints()),
		polyLabel("P2", "B1", "side", insidePoints()),
	}

	tl := c.associateTask(testTaskContext(), labelPtrs(labels))

	require.Len(t, tl.objects.ids, 1)
	o, ok := tl.objects.get("B1")
	require.True(t, ok)
	require.NotNil(t, o.box)
	assert.Len(t, o.keypointSets, 2)
	assert.Empty(t, tl.orphans)
}

func TestAssociateTaskPlaceholderBeforeBox(t *testing.T) {
	c := testConverter()
	labels := []LSLabel{
		polyLabel("P1", "B1", "front", insidePoints()),
		boxLabel("B1", "antenna", 10, 10, 50, 50),
	}

	tl := c.associateTask(testTaskContext(), labelPtrs(labels))

	o, ok := tl.objects.get("B1")
	require.True(t, ok)
	require.NotNil(t, o.box)
	assert.Len(t, o.keypointSets, 1)
}

func TestAssociateTaskOrphanQueue(t *testing.T) {
	c := testConverter()
	labels := []LSLabel{
		boxLabel("B1", "antenna", 10, 10, 50, 50),
		polyLabel("P1", "", "front", insidePoints()),
	}

	tl := c.associateTask(testTaskContext(), labelPtrs(labels))

	o, _ := tl.objects.get("B1")
	assert.Empty(t, o.keypointSets)
	require.Len(t, tl.orphans, 1)
	assert.Equal(t, "P1", tl.orphans[0].ID)
}

func TestAssociateTaskRejectsMixedSchemas(t *testing.T) {
	c := testConverter()

	badBox := boxLabel("B1", "antenna", 10, 10, 50, 50)
	badBox.Value.Points = [][]float64{{1, 1}}
	badPoly := polyLabel("P1", "", "front", insidePoints())
	badPoly.Value.X = f64(5)
	unknown := LSLabel{ID: "C1", Type: "choices"}

	tl := c.associateTask(testTaskContext(), labelPtrs([]LSLabel{badBox, badPoly, unknown}))

	assert.Empty(t, tl.objects.ids)
	assert.Empty(t, tl.orphans)
}

func TestAssociateTaskRejectsBoxWithMissingCoords(t *testing.T) {
	c := testConverter()
	box := boxLabel("B1", "antenna", 10, 10, 50, 50)
	box.Value.Width = nil

	tl := c.associateTask(testTaskContext(), labelPtrs([]LSLabel{box}))
	assert.Empty(t, tl.objects.ids)
}

func TestResolveOrphansFirstMatchWins(t *testing.T) {
	c := testConverter()
	// Both boxes contain the orphan; the earlier created one must win.
	labels := []LSLabel{
		boxLabel("B1", "antenna", 0, 0, 50, 50),
		boxLabel("B2", "antenna", 0, 0, 100, 100),
		polyLabel("P1", "", "front", [][]float64{{10, 10}, {10, 20}, {20, 20}, {20, 10}}),
	}

	tc := testTaskContext()
	tl := c.associateTask(tc, labelPtrs(labels))
	c.resolveOrphans(tc, tl)

	first, _ := tl.objects.get("B1")
	second, _ := tl.objects.get("B2")
	require.Len(t, first.keypointSets, 1)
	assert.Equal(t, "P1", first.keypointSets[0].ID)
	assert.Empty(t, second.keypointSets)
}

func TestResolveOrphansSkipsPlaceholders(t *testing.T) {
	c := testConverter()
	// The only candidate object has no box yet; the orphan cannot bind.
	labels := []LSLabel{
		polyLabel("P0", "B9", "front", insidePoints()),
		polyLabel("P1", "", "front", [][]float64{{10, 10}, {10, 20}, {20, 20}, {20, 10}}),
	}

	tc := testTaskContext()
	tl := c.associateTask(tc, labelPtrs(labels))
	c.resolveOrphans(tc, tl)

	placeholder, _ := tl.objects.get("B9")
	assert.Len(t, placeholder.keypointSets, 1) // Only the parented set.
}

func TestResolveOrphansNoMatch(t *testing.T) {
	c := testConverter()
	labels := []LSLabel{
		boxLabel("B1", "antenna", 0, 0, 10, 10),
		polyLabel("P1", "", "front", [][]float64{{50, 50}, {50, 60}, {60, 60}, {60, 50}}),
	}

	tc := testTaskContext()
	tl := c.associateTask(tc, labelPtrs(labels))
	c.resolveOrphans(tc, tl)

	o, _ := tl.objects.get("B1")
	assert.Empty(t, o.keypointSets)
}

func TestObjectMapPreservesInsertionOrder(t *testing.T) {
	m := newObjectMap()
	m.put("b", &associatedObject{})
	m.put("a", &associatedObject{})
	m.put("b", &associatedObject{}) // Re-put must not duplicate the key.

	var order []string
	m.each(func(id string, o *associatedObject) bool {
		order = append(order, id)
		return true
	})
	assert.Equal(t, []string{"b", "a"}, order)
}
