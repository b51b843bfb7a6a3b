// Package dedupe finds byte-identical files by size and content digest.
package dedupe

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/sourcegraph/conc/pool"

	"github.com/franz/media-janitor/internal/util"
)

// Group is a set of two or more files with identical size and digest.
// Paths keep the order they were passed to FindExactDuplicates.
type Group struct {
	Digest string
	Size   int64
	Paths  []string
}

// Finder hashes candidate files. Hashing within a size bucket runs on up
// to Workers goroutines.
type Finder struct {
	Workers    int
	BufferSize int
	// OnHashed, if set, is called once per hashed file from the caller's
	// goroutine after each bucket completes
	OnHashed func(path string)
}

// HashError reports which file could not be digested
type HashError struct {
	Path string
	Err  error
}

func (e *HashError) Error() string {
	return fmt.Sprintf("hash %s: %v", e.Path, e.Err)
}

func (e *HashError) Unwrap() error {
	return e.Err
}

type candidate struct {
	index int
	path  string
}

// FindExactDuplicates groups paths whose size and full-content digest
// match. Files with a unique size are never read. An unreadable size is
// treated as 0. The first hashing error aborts the search.
func (f *Finder) FindExactDuplicates(ctx context.Context, paths []string) ([]Group, error) {
	buckets := make(map[int64][]candidate)
	for i, p := range paths {
		var size int64
		if info, err := os.Stat(p); err == nil {
			size = info.Size()
		}
		buckets[size] = append(buckets[size], candidate{index: i, path: p})
	}

	sizes := make([]int64, 0, len(buckets))
	for size, members := range buckets {
		if len(members) > 1 {
			sizes = append(sizes, size)
		}
	}
	sort.Slice(sizes, func(i, j int) bool { return sizes[i] < sizes[j] })

	var groups []Group
	for _, size := range sizes {
		members := buckets[size]
		digests, err := f.hashBucket(ctx, members)
		if err != nil {
			return nil, err
		}

		byDigest := make(map[string][]candidate)
		var order []string
		for i, m := range members {
			d := digests[i]
			if _, seen := byDigest[d]; !seen {
				order = append(order, d)
			}
			byDigest[d] = append(byDigest[d], m)
			if f.OnHashed != nil {
				f.OnHashed(m.path)
			}
		}

		for _, d := range order {
			same := byDigest[d]
			if len(same) < 2 {
				continue
			}
			g := Group{Digest: d, Size: size}
			for _, m := range same {
				g.Paths = append(g.Paths, m.path)
			}
			groups = append(groups, g)
		}
	}

	// Members keep input order, so ordering groups by their first member's
	// input position makes the result independent of map iteration.
	first := make(map[string]int, len(paths))
	for i, p := range paths {
		if _, ok := first[p]; !ok {
			first[p] = i
		}
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return first[groups[i].Paths[0]] < first[groups[j].Paths[0]]
	})
	return groups, nil
}

// hashBucket digests every member; each task writes only its own slot
func (f *Finder) hashBucket(ctx context.Context, members []candidate) ([]string, error) {
	workers := f.Workers
	if workers < 1 {
		workers = 1
	}
	digests := make([]string, len(members))

	p := pool.New().
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError().
		WithMaxGoroutines(workers)

	for i, m := range members {
		i, m := i, m
		p.Go(func(ctx context.Context) error {
			d, err := util.HashFile(ctx, m.path, f.BufferSize)
			if err != nil {
				return &HashError{Path: m.path, Err: err}
			}
			digests[i] = d
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return nil, err
	}
	return digests, nil
}
