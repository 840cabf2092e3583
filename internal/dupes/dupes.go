// Package dupes groups file records by content.
//
// Detection is staged so that most files are never read in full:
//
//  1. records are bucketed by size and unique sizes are dropped;
//  2. large files in the surviving buckets are split by an xxhash of their
//     first 64 KiB;
//  3. the remaining candidates are hashed in full with the configured hasher;
//  4. every hash shared by two or more records becomes a group.
//
// Hashing runs in a bounded worker pool. The output is sorted, so it never
// depends on the order records were given in or the order hashes finished.
package dupes

import (
	"context"
	"errors"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"tidy-go/internal/tidy"
)

// PrefixSize is how much of a file the cheap pre-hash reads.
const PrefixSize = 64 * 1024

// Options configures a Detector.
type Options struct {
	Hasher       tidy.Hasher // nil means SHA-256
	Workers      int         // <= 0 means tidy.DefaultWorkers
	IncludeEmpty bool        // report zero-byte files as duplicates of each other
	Metrics      tidy.Metrics
}

// Result holds the groups and the per-file failures that kept some records
// out of them.
type Result struct {
	Groups []tidy.DuplicateGroup
	Errors []error
}

// Detector finds duplicate groups.
type Detector struct {
	hasher       tidy.Hasher
	workers      int
	includeEmpty bool
	metrics      tidy.Metrics
}

// New creates a Detector.
func New(opts Options) *Detector {
	d := &Detector{
		hasher:       opts.Hasher,
		workers:      opts.Workers,
		includeEmpty: opts.IncludeEmpty,
		metrics:      opts.Metrics,
	}
	if d.hasher == nil {
		d.hasher = tidy.SHA256
	}
	if d.workers <= 0 {
		d.workers = tidy.DefaultWorkers
	}
	if d.metrics == nil {
		d.metrics = tidy.NopMetrics{}
	}
	return d
}

// Find groups records by content. Only cancellation makes it return an
// error; unreadable files are reported in Result.Errors.
func (d *Detector) Find(ctx context.Context, records []*tidy.FileRecord) (*Result, error) {
	res := &Result{}

	// Stage 1: size buckets.
	bySize := make(map[int64][]*tidy.FileRecord)
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		if seen[r.Path] {
			continue
		}
		seen[r.Path] = true
		if r.Size == 0 && !d.includeEmpty {
			continue
		}
		bySize[r.Size] = append(bySize[r.Size], r)
	}

	var needPrefix, candidates []*tidy.FileRecord
	for size, bucket := range bySize {
		if len(bucket) < 2 {
			continue
		}
		if size > PrefixSize {
			needPrefix = append(needPrefix, bucket...)
		} else {
			candidates = append(candidates, bucket...)
		}
	}

	// Stage 2: prefix hash for large files.
	if len(needPrefix) > 0 {
		prefixes, errs, err := d.hashAll(ctx, needPrefix, func(r *tidy.FileRecord) (string, error) {
			sum, err := tidy.HashPrefix(tidy.XXH64, r.Path, PrefixSize)
			if err == nil {
				d.metrics.ObserveHash("prefix", PrefixSize)
			}
			return sum, err
		})
		if err != nil {
			return nil, err
		}
		res.Errors = append(res.Errors, errs...)
		candidates = append(candidates, survivors(needPrefix, prefixes)...)
	}

	// Stage 3: full content hash.
	full, errs, err := d.hashAll(ctx, candidates, func(r *tidy.FileRecord) (string, error) {
		if sum, ok := r.CachedHash(d.hasher.Name()); ok {
			return sum, nil
		}
		sum, err := r.ContentHash(d.hasher)
		if err == nil {
			d.metrics.ObserveHash(d.hasher.Name(), r.Size)
		}
		return sum, err
	})
	if err != nil {
		return nil, err
	}
	res.Errors = append(res.Errors, errs...)

	// Stage 4: reduce.
	res.Groups = group(d.hasher.Name(), candidates, full)
	sortErrors(res.Errors)
	return res, nil
}

type groupKey struct {
	size int64
	hash string
}

// survivors keeps records whose (size, hash) is shared with another record.
func survivors(records []*tidy.FileRecord, sums map[*tidy.FileRecord]string) []*tidy.FileRecord {
	counts := make(map[groupKey]int)
	for _, r := range records {
		if sum, ok := sums[r]; ok {
			counts[groupKey{r.Size, sum}]++
		}
	}
	var out []*tidy.FileRecord
	for _, r := range records {
		if sum, ok := sums[r]; ok && counts[groupKey{r.Size, sum}] > 1 {
			out = append(out, r)
		}
	}
	return out
}

func group(algorithm string, records []*tidy.FileRecord, sums map[*tidy.FileRecord]string) []tidy.DuplicateGroup {
	members := make(map[groupKey][]*tidy.FileRecord)
	for _, r := range records {
		sum, ok := sums[r]
		if !ok {
			continue
		}
		k := groupKey{r.Size, sum}
		members[k] = append(members[k], r)
	}

	var groups []tidy.DuplicateGroup
	for k, recs := range members {
		if len(recs) < 2 {
			continue
		}
		sort.Slice(recs, func(i, j int) bool { return recs[i].Path < recs[j].Path })
		groups = append(groups, tidy.DuplicateGroup{
			Algorithm: algorithm,
			Hash:      k.hash,
			Size:      k.size,
			Records:   recs,
		})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Size != groups[j].Size {
			return groups[i].Size > groups[j].Size
		}
		return groups[i].Hash < groups[j].Hash
	})
	return groups
}

// hashAll runs fn over records in the worker pool. Per-record failures are
// collected; only cancellation of ctx is returned as an error.
func (d *Detector) hashAll(ctx context.Context, records []*tidy.FileRecord, fn func(*tidy.FileRecord) (string, error)) (map[*tidy.FileRecord]string, []error, error) {
	sums := make(map[*tidy.FileRecord]string, len(records))
	if len(records) == 0 {
		return sums, nil, ctx.Err()
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for _, r := range records {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sum, err := fn(r)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return nil
			}
			sums[r] = sum
			return nil
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return sums, errs, nil
}

func sortErrors(errs []error) {
	sort.SliceStable(errs, func(i, j int) bool {
		return errs[i].Error() < errs[j].Error()
	})
}
