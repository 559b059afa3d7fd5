package postprocess

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-crossarm/detection"
)

func buildInstances(t *testing.T, w, h int, rects ...image.Rectangle) []*Instance {
	t.Helper()

	dets := detections(w, h, rects...)
	out := make([]*Instance, dets.Len())
	for i := range out {
		inst, err := NewInstance(i, dets.Instance(i), detection.CrossarmClasses, Dilation{KernelSize: 1})
		require.NoError(t, err)
		t.Cleanup(inst.Close)
		out[i] = inst
	}
	return out
}

func TestRank(t *testing.T) {
	list := buildInstances(t, 100, 100,
		image.Rect(0, 0, 10, 10),   // 100
		image.Rect(0, 0, 30, 30),   // 900
		image.Rect(50, 50, 60, 60), // 100
		image.Rect(0, 0, 20, 20),   // 400
	)

	Rank(list)

	counts := make([]int, len(list))
	order := make([]int, len(list))
	for i, inst := range list {
		counts[i] = inst.PixelCount
		order[i] = inst.DetectorIndex
	}

	assert.Equal(t, []int{900, 400, 100, 100}, counts)
	// Equal counts keep their detector order.
	assert.Equal(t, []int{1, 3, 0, 2}, order)
}

func TestOverlapRatio(t *testing.T) {
	list := buildInstances(t, 300, 200,
		image.Rect(0, 0, 200, 150),
		image.Rect(100, 0, 300, 100),
		image.Rect(250, 150, 300, 200),
	)

	tests := []struct {
		name     string
		ref      int
		mask     int
		expected float64
	}{
		{"Half of the smaller mask", 0, 1, 50.0},
		{"Third of the larger mask", 1, 0, 100.0 / 3.0},
		{"Disjoint", 0, 2, 0.0},
		{"Self", 0, 0, 100.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ratio, err := OverlapRatio(list[tt.ref].Mask, list[tt.mask].Mask)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, ratio, 1e-9)
		})
	}
}

func TestOverlapRatio_SizeMismatch(t *testing.T) {
	ref := buildInstances(t, 300, 200, image.Rect(0, 0, 200, 150))
	other := buildInstances(t, 100, 100, image.Rect(0, 0, 50, 50))

	_, err := OverlapRatio(ref[0].Mask, other[0].Mask)
	assert.Error(t, err)
}

func TestOverlapRatio_EmptyMask(t *testing.T) {
	list := buildInstances(t, 50, 50, image.Rect(0, 0, 50, 50), image.Rectangle{})

	assert.Equal(t, 0, list[1].PixelCount)
	ratio, err := OverlapRatio(list[0].Mask, list[1].Mask)
	require.NoError(t, err)
	assert.Equal(t, 0.0, ratio)
}

func TestDeduplicate(t *testing.T) {
	// A is the largest. B overlaps A by 50%. C overlaps A by 25%. D overlaps
	// nothing of A but lies entirely inside C.
	a := image.Rect(0, 0, 200, 150)
	b := image.Rect(100, 0, 300, 100)
	c := image.Rect(150, 110, 250, 190)
	d := image.Rect(210, 150, 250, 180)

	tests := []struct {
		name       string
		policy     DedupPolicy
		unique     []bool
		duplicates int
	}{
		{"Top only", CompareToTopOnly, []bool{true, false, true, true}, 1},
		{"Union", CompareToUnion, []bool{true, false, true, false}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list := buildInstances(t, 300, 200, a, b, c, d)
			Rank(list)

			n, err := Deduplicate(list, 30, tt.policy)
			require.NoError(t, err)
			assert.Equal(t, tt.duplicates, n)

			unique := make([]bool, len(list))
			for i, inst := range list {
				unique[i] = inst.Unique
			}
			assert.Equal(t, tt.unique, unique)

			assert.InDelta(t, 50.0, list[1].Ratio, 1e-9)
			assert.InDelta(t, 25.0, list[2].Ratio, 1e-9)
		})
	}
}

func TestDeduplicate_ThresholdIsExclusive(t *testing.T) {
	list := buildInstances(t, 300, 200, image.Rect(0, 0, 200, 150), image.Rect(100, 0, 300, 100))
	Rank(list)

	_, err := Deduplicate(list, 50, CompareToTopOnly)
	require.NoError(t, err)
	assert.True(t, list[1].Unique)

	_, err = Deduplicate(list, 49.9, CompareToTopOnly)
	require.NoError(t, err)
	assert.False(t, list[1].Unique)
}

func TestDeduplicate_Empty(t *testing.T) {
	n, err := Deduplicate(nil, 30, CompareToTopOnly)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestDeduplicate_UnmeasurableOverlap(t *testing.T) {
	for _, policy := range []DedupPolicy{CompareToTopOnly, CompareToUnion} {
		t.Run(string(policy), func(t *testing.T) {
			list := buildInstances(t, 300, 200, image.Rect(0, 0, 200, 150), image.Rect(100, 0, 300, 100))
			list = append(list, buildInstances(t, 100, 100, image.Rect(0, 0, 50, 50))...)
			Rank(list)
			require.Equal(t, 2500, list[2].PixelCount)

			n, err := Deduplicate(list, 30, policy)
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			assert.NoError(t, list[1].Err)
			assert.False(t, list[1].Unique)
			assert.Error(t, list[2].Err)
			assert.Equal(t, 0.0, list[2].Ratio)
		})
	}
}
