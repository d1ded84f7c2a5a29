package sync

import (
	"context"

	"github.com/hashicorp/go-multierror"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/templatesync/templatesync/pkg/merge"
)

const defaultConcurrency = 8

type FileDecision struct {
	Path     string         `json:"path" yaml:"path"`
	Decision merge.Decision `json:"decision" yaml:"decision"`
	Triple   Triple         `json:"-" yaml:"-"`
}

// Plan holds the decision for every path that resolved. Files are in the
// order the paths were given.
type Plan struct {
	Files []FileDecision `json:"files" yaml:"files"`
}

// Counts tallies the files per action.
func (p *Plan) Counts() map[merge.Action]int {
	return lo.CountValuesBy(p.Files, func(f FileDecision) merge.Action {
		return f.Decision.Action()
	})
}

func (p *Plan) Filter(action merge.Action) []FileDecision {
	return lo.Filter(p.Files, func(f FileDecision, _ int) bool {
		return f.Decision.Action() == action
	})
}

func (p *Plan) HasConflicts() bool {
	return len(p.Filter(merge.ActionConflict)) > 0
}

type planOptions struct {
	concurrency int
}

type PlanOption func(*planOptions)

func WithConcurrency(n int) PlanOption {
	return func(o *planOptions) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// BuildPlan decides every path. A path that fails to resolve is left out of
// the plan and reported in the returned error, which aggregates all failures
// in path order; the other paths are still decided.
func BuildPlan(ctx context.Context, r Resolvers, paths []string, opts ...PlanOption) (*Plan, error) {
	o := planOptions{concurrency: defaultConcurrency}
	for _, opt := range opts {
		opt(&o)
	}

	paths = lo.Uniq(paths)
	decided := make([]*FileDecision, len(paths))
	errs := make([]error, len(paths))

	g := new(errgroup.Group)
	g.SetLimit(o.concurrency)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			t, err := ThreeWay(ctx, r, path)
			if err != nil {
				errs[i] = err
				return nil
			}

			decided[i] = &FileDecision{Path: path, Decision: t.Decide(), Triple: t}
			return nil
		})
	}
	_ = g.Wait()

	var result *multierror.Error
	for _, err := range errs {
		if err != nil {
			result = multierror.Append(result, err)
		}
	}

	plan := &Plan{Files: []FileDecision{}}
	for _, d := range decided {
		if d != nil {
			plan.Files = append(plan.Files, *d)
		}
	}

	return plan, result.ErrorOrNil()
}
