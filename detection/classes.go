package detection

import "github.com/pkg/errors"

// Class represents one detection label.
type Class struct {
	// The integer index returned by the model.
	Index int `json:"index" yaml:"index"`
	// The human-readable label.
	Name string `json:"name" yaml:"name"`
}

// ClassSet is the ordered list of labels a segmentation model was trained on.
//
// Class ids produced by the model index directly into this list.
type ClassSet struct {
	// Classes that are supported and mappable.
	Classes []Class
}

// NewClassSet builds a ClassSet from names in model index order.
//
// Arguments:
//   - names: The class names, index 0 first.
//
// Returns:
//   - ClassSet: The class set.
func NewClassSet(names ...string) ClassSet {
	s := ClassSet{Classes: make([]Class, len(names))}
	for i, name := range names {
		s.Classes[i] = Class{Index: i, Name: name}
	}
	return s
}

// Len returns the number of classes.
func (s ClassSet) Len() int {
	return len(s.Classes)
}

// Names returns the class names in index order.
func (s ClassSet) Names() []string {
	names := make([]string, len(s.Classes))
	for i, c := range s.Classes {
		names[i] = c.Name
	}
	return names
}

// Name returns the class name for a given index.
//
// Arguments:
//   - idx: The class id reported by the detector.
//
// Returns:
//   - string: The class name.
//   - error: ErrInvalidClassIndex if idx is out of range.
func (s ClassSet) Name(idx int) (string, error) {
	if idx < 0 || idx >= len(s.Classes) {
		return "", errors.Wrapf(ErrInvalidClassIndex, "index %d out of range for %d classes", idx, len(s.Classes))
	}
	return s.Classes[idx].Name, nil
}

// CrossarmClasses is the class table of the crossarm segmentation model: the
// background class at index 0 followed by the single foreground class.
var CrossarmClasses = NewClassSet("BG", "crossarm")
