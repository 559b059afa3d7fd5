package postprocess

import (
	"sort"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Rank orders instances by mask pixel count, largest first. Instances with
// equal counts keep their detector order.
func Rank(instances []*Instance) {
	sort.SliceStable(instances, func(a, b int) bool {
		return instances[a].PixelCount > instances[b].PixelCount
	})
}

// OverlapRatio returns the percentage of mask's foreground that is also
// foreground in ref. An empty mask overlaps nothing and yields 0.
//
// Arguments:
//   - ref: The reference mask.
//   - mask: The mask being tested. It must have the size and type of ref.
//
// Returns:
//   - float64: A value in [0, 100].
//   - error: An error if the masks cannot be intersected.
func OverlapRatio(ref, mask gocv.Mat) (float64, error) {
	current := gocv.CountNonZero(mask)
	if current == 0 {
		return 0, nil
	}

	shared := gocv.NewMat()
	defer shared.Close()

	if err := gocv.BitwiseAnd(ref, mask, &shared); err != nil {
		return 0, errors.Wrap(err, "intersect masks")
	}

	return float64(gocv.CountNonZero(shared)) / float64(current) * 100, nil
}

// Deduplicate walks ranked instances and marks the ones whose mask overlaps the
// reference mask by more than threshold percent as not unique. The top-ranked
// instance is always unique. Every visited instance has its Ratio set, or its
// Err when the overlap cannot be measured.
//
// Arguments:
//   - instances: Instances in rank order.
//   - threshold: The overlap percentage above which an instance is a duplicate.
//   - policy: Selects the reference mask.
//
// Returns:
//   - int: The number of instances marked as duplicates.
//   - error: An error if the union reference mask cannot be updated.
func Deduplicate(instances []*Instance, threshold float64, policy DedupPolicy) (int, error) {
	if len(instances) == 0 {
		return 0, nil
	}

	anchor := instances[0]
	anchor.Unique = true

	ref := anchor.Mask
	if policy == CompareToUnion {
		ref = anchor.Mask.Clone()
		defer ref.Close()
	}

	duplicates := 0
	for i, inst := range instances[1:] {
		ratio, err := OverlapRatio(ref, inst.Mask)
		if err != nil {
			inst.Err = errors.Wrapf(err, "overlap of instance %d", i+1)
			continue
		}

		inst.Ratio = ratio
		if inst.Ratio > threshold {
			inst.Unique = false
			duplicates++
			continue
		}

		if policy == CompareToUnion {
			if err := gocv.BitwiseOr(ref, inst.Mask, &ref); err != nil {
				return duplicates, errors.Wrapf(err, "merge instance %d into reference", i+1)
			}
		}
	}

	return duplicates, nil
}
