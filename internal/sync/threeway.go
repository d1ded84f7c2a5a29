package sync

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/templatesync/templatesync/pkg/merge"
)

// Resolvers supplies the three sides of a comparison: base is the template at
// the version the project was created from, ours the working copy and theirs
// the template at the target version.
type Resolvers struct {
	Base   Resolver
	Ours   Resolver
	Theirs Resolver
}

type Triple struct {
	Path   string
	Base   merge.Snapshot
	Ours   merge.Snapshot
	Theirs merge.Snapshot
}

func (t Triple) Decide() merge.Decision {
	return merge.Decide(t.Base, t.Ours, t.Theirs)
}

// ThreeWay resolves the three sides of path concurrently. The first failure
// cancels the remaining lookups.
func ThreeWay(ctx context.Context, r Resolvers, path string) (Triple, error) {
	t := Triple{Path: path}

	g, ctx := errgroup.WithContext(ctx)
	resolve := func(side string, resolver Resolver, dst *merge.Snapshot) {
		g.Go(func() error {
			snap, err := resolver.Resolve(ctx, path)
			if err != nil {
				return fmt.Errorf("failed to resolve %s version of %s: %w", side, path, err)
			}
			*dst = snap
			return nil
		})
	}

	resolve("base", r.Base, &t.Base)
	resolve("local", r.Ours, &t.Ours)
	resolve("target", r.Theirs, &t.Theirs)

	if err := g.Wait(); err != nil {
		return Triple{}, err
	}

	return t, nil
}
