package detection

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrossarmClasses(t *testing.T) {
	assert.Equal(t, 2, CrossarmClasses.Len())
	assert.Equal(t, []string{"BG", "crossarm"}, CrossarmClasses.Names())

	name, err := CrossarmClasses.Name(1)
	require.NoError(t, err)
	assert.Equal(t, "crossarm", name)
}

func TestClassSetName(t *testing.T) {
	set := NewClassSet("BG", "crossarm", "insulator")

	tests := []struct {
		name     string
		idx      int
		expected string
		wantErr  bool
	}{
		{"Background", 0, "BG", false},
		{"Last class", 2, "insulator", false},
		{"Negative index", -1, "", true},
		{"Past the end", 3, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := set.Name(tt.idx)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidClassIndex))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
