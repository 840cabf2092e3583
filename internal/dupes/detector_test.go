package dupes

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tidy-go/internal/tidy"
)

func TestNew_Defaults(t *testing.T) {
	tests := []struct {
		name    string
		workers int
		want    int
	}{
		{"unset", 0, 4},
		{"negative", -2, 4},
		{"explicit", 9, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(Options{Workers: tt.workers})
			assert.Equal(t, tt.want, d.workers)
			assert.Equal(t, tidy.SHA256, d.hasher)
			assert.NotNil(t, d.metrics)
		})
	}
}
