package engine

import (
	"context"
	"sort"
)

// SizeRange is one bucket of the size histogram. Max is exclusive; zero
// means unbounded.
type SizeRange struct {
	Name  string
	Max   int64
	Count int
	Bytes int64
}

var sizeRanges = []SizeRange{
	{Name: "tiny", Max: 1 << 10},
	{Name: "small", Max: 1 << 20},
	{Name: "medium", Max: 100 << 20},
	{Name: "large", Max: 1 << 30},
	{Name: "huge"},
}

// CategoryCount is how many files would land in a category.
type CategoryCount struct {
	Category string
	Files    int
	Bytes    int64
}

// Stats summarizes a directory.
type Stats struct {
	Root       string
	TotalFiles int
	TotalSize  int64
	Ranges     []SizeRange
	Categories []CategoryCount // largest first
	Errors     []error
}

// Stats scans req.Root and summarizes the files that pass the filter.
func (s *Service) Stats(ctx context.Context, req Request) (*Stats, error) {
	pr, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	records, scanErrs, err := s.scan(ctx, pr)
	if err != nil {
		return nil, err
	}

	st := &Stats{Root: pr.root, Errors: scanErrs}
	st.Ranges = append([]SizeRange(nil), sizeRanges...)
	byCat := make(map[string]*CategoryCount)
	for _, r := range pr.filter.Apply(records) {
		st.TotalFiles++
		st.TotalSize += r.Size
		i := rangeIndex(r.Size)
		st.Ranges[i].Count++
		st.Ranges[i].Bytes += r.Size

		cat := pr.classifier.Classify(r).Category
		c, ok := byCat[cat]
		if !ok {
			c = &CategoryCount{Category: cat}
			byCat[cat] = c
		}
		c.Files++
		c.Bytes += r.Size
	}

	for _, c := range byCat {
		st.Categories = append(st.Categories, *c)
	}
	sort.Slice(st.Categories, func(i, j int) bool {
		a, b := st.Categories[i], st.Categories[j]
		if a.Files != b.Files {
			return a.Files > b.Files
		}
		return a.Category < b.Category
	})
	return st, nil
}

func rangeIndex(size int64) int {
	for i, r := range sizeRanges {
		if r.Max == 0 || size < r.Max {
			return i
		}
	}
	return len(sizeRanges) - 1
}
