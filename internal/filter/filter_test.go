package filter_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tidy-go/internal/filter"
	"tidy-go/internal/testutil"
	"tidy-go/internal/tidy"
)

func ptr[T any](v T) *T { return &v }

func TestFilter_Admit(t *testing.T) {
	jan := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	fsmgr := testutil.NewMockFilesystemManager()
	fsmgr.AddFileAt("/d/small.txt", make([]byte, 10), jan)
	fsmgr.AddFileAt("/d/mid.txt", make([]byte, 100), feb)
	fsmgr.AddFileAt("/d/big.txt", make([]byte, 1000), mar)

	tests := []struct {
		name     string
		criteria tidy.FilterCriteria
		want     []string
	}{
		{"no bounds admits all", tidy.FilterCriteria{}, []string{"/d/big.txt", "/d/mid.txt", "/d/small.txt"}},
		{"min inclusive", tidy.FilterCriteria{MinSize: ptr[int64](100)}, []string{"/d/big.txt", "/d/mid.txt"}},
		{"max inclusive", tidy.FilterCriteria{MaxSize: ptr[int64](100)}, []string{"/d/mid.txt", "/d/small.txt"}},
		{"size window", tidy.FilterCriteria{MinSize: ptr[int64](100), MaxSize: ptr[int64](100)}, []string{"/d/mid.txt"}},
		{"after inclusive", tidy.FilterCriteria{After: ptr(feb)}, []string{"/d/big.txt", "/d/mid.txt"}},
		{"before exclusive", tidy.FilterCriteria{Before: ptr(feb)}, []string{"/d/small.txt"}},
		{"size and date compose", tidy.FilterCriteria{MinSize: ptr[int64](50), Before: ptr(mar)}, []string{"/d/mid.txt"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f, err := filter.New(tt.criteria)
			require.NoError(t, err)

			var got []string
			for _, r := range f.Apply(fsmgr.Records()) {
				got = append(got, r.Path)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_RejectsInvertedBounds(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name     string
		criteria tidy.FilterCriteria
		field    string
	}{
		{"min above max", tidy.FilterCriteria{MinSize: ptr[int64](10), MaxSize: ptr[int64](5)}, "min_size"},
		{"negative", tidy.FilterCriteria{MaxSize: ptr[int64](-1)}, "max_size"},
		{"empty date range", tidy.FilterCriteria{After: ptr(now), Before: ptr(now)}, "after"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := filter.New(tt.criteria)
			var verr *tidy.ValidationError
			require.True(t, errors.As(err, &verr), "error = %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestParseSize(t *testing.T) {
	t.Parallel()
	v, err := filter.ParseSize("min_size", "10MB")
	require.NoError(t, err)
	assert.Equal(t, int64(10_000_000), *v)

	v, err = filter.ParseSize("min_size", "1 KiB")
	require.NoError(t, err)
	assert.Equal(t, int64(1024), *v)

	v, err = filter.ParseSize("min_size", "")
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = filter.ParseSize("min_size", "lots")
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	t.Parallel()
	d, err := filter.ParseDate("after", "2024-02")
	require.NoError(t, err)
	assert.Equal(t, time.February, d.Month())
	assert.Equal(t, 1, d.Day())

	_, err = filter.ParseDate("after", "yesterday")
	var verr *tidy.ValidationError
	assert.True(t, errors.As(err, &verr))
}
