package engine

import (
	"context"
	"fmt"
)

// DuplicateReport is the standalone duplicate scan of a directory.
type DuplicateReport struct {
	Scanned int
	Groups  []DuplicateSet
	Errors  []error
	Wasted  int64
}

// DuplicateSet is one group of identical files; the first path is the one
// a deduplicated plan keeps in place.
type DuplicateSet struct {
	Hash  string
	Size  int64
	Paths []string
}

// FindDuplicates scans req.Root and groups identical files. Only the scan
// and filter fields of req are used.
func (s *Service) FindDuplicates(ctx context.Context, req Request) (*DuplicateReport, error) {
	pr, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	records, scanErrs, err := s.scan(ctx, pr)
	if err != nil {
		return nil, err
	}
	admitted := pr.filter.Apply(records)

	res, err := s.detector().Find(ctx, admitted)
	if err != nil {
		return nil, fmt.Errorf("finding duplicates: %w", err)
	}

	out := &DuplicateReport{Scanned: len(records), Errors: append(scanErrs, res.Errors...)}
	for _, g := range res.Groups {
		set := DuplicateSet{Hash: g.Hash, Size: g.Size}
		for _, r := range g.Records {
			set.Paths = append(set.Paths, r.Path)
		}
		out.Groups = append(out.Groups, set)
		out.Wasted += g.Wasted()
	}
	s.logger.Info("duplicates found", "root", pr.root, "groups", len(out.Groups), "wasted", out.Wasted)
	return out, nil
}
