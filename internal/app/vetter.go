package app

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/hylla/vettrack/internal/domain"
	"golang.org/x/sync/errgroup"
)

// DefaultParallelism bounds concurrent passes in RunMany when none is configured.
const DefaultParallelism = 4

// VetterConfig holds tuning values for a Vetter.
type VetterConfig struct {
	Parallelism   int
	PathCacheSize int
}

// PathProblem reports the categories found on one path.
type PathProblem struct {
	Path       string            `json:"path"`
	Categories []domain.Category `json:"categories"`
	Value      string            `json:"value,omitempty"`
	Baseline   string            `json:"baseline,omitempty"`
	Required   string            `json:"required_coverage"`
	Hint       string            `json:"hint,omitempty"`
}

// VettingResult summarizes one completed vetting pass.
type VettingResult struct {
	ID                string                      `json:"id"`
	Locale            domain.LocaleID             `json:"locale"`
	Coverage          domain.CoverageLevel        `json:"coverage"`
	User              domain.UserID               `json:"user,omitempty"`
	Organization      domain.Organization         `json:"organization,omitempty"`
	Categories        []domain.Category           `json:"categories"`
	SinglePath        string                      `json:"single_path,omitempty"`
	VotablePaths      int64                       `json:"votable_paths"`
	VotedPaths        int64                       `json:"voted_paths"`
	VoteTypes         map[domain.VoteType]int64   `json:"vote_types,omitempty"`
	VotePercent       int                         `json:"vote_percent"`
	Completion        domain.LocaleCompletionData `json:"completion"`
	CompletionPercent int                         `json:"completion_percent"`
	Problems          []PathProblem               `json:"problems"`
	Skipped           int                         `json:"skipped"`
	StartedAt         time.Time                   `json:"started_at"`
	FinishedAt        time.Time                   `json:"finished_at"`
}

// Vetter walks a scope's paths and scores progress and problems.
type Vetter struct {
	coverage    CoverageClassifier
	problems    ProblemClassifier
	votes       VoteSource
	hints       HintSource
	parser      *PathParser
	idGen       IDGenerator
	clock       Clock
	observer    Observer
	parallelism int
}

// VetterOption customizes a Vetter.
type VetterOption func(*Vetter)

// WithHints attaches reviewer hints to reported problems.
func WithHints(hints HintSource) VetterOption {
	return func(v *Vetter) { v.hints = hints }
}

// WithIDGenerator sets the result id generator.
func WithIDGenerator(idGen IDGenerator) VetterOption {
	return func(v *Vetter) { v.idGen = idGen }
}

// WithClock sets the clock used for result timestamps.
func WithClock(clock Clock) VetterOption {
	return func(v *Vetter) { v.clock = clock }
}

// WithObserver receives a notification after each pass.
func WithObserver(observer Observer) VetterOption {
	return func(v *Vetter) { v.observer = observer }
}

// NewVetter constructs a Vetter. A nil problem classifier uses DefaultProblemClassifier;
// a nil vote source leaves voted counts at zero.
func NewVetter(coverage CoverageClassifier, problems ProblemClassifier, votes VoteSource, cfg VetterConfig, opts ...VetterOption) (*Vetter, error) {
	if coverage == nil {
		return nil, fmt.Errorf("coverage classifier is required")
	}
	if problems == nil {
		problems = DefaultProblemClassifier{}
	}
	if cfg.Parallelism == 0 {
		cfg.Parallelism = DefaultParallelism
	}
	if cfg.Parallelism < 0 {
		return nil, ErrInvalidParallel
	}
	parser, err := NewPathParser(cfg.PathCacheSize)
	if err != nil {
		return nil, err
	}
	v := &Vetter{
		coverage:    coverage,
		problems:    problems,
		votes:       votes,
		parser:      parser,
		idGen:       func() string { return "" },
		clock:       time.Now,
		observer:    nopObserver{},
		parallelism: cfg.Parallelism,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Parser returns the vetter's shared path parser.
func (v *Vetter) Parser() *PathParser {
	return v.parser
}

// Run executes one vetting pass. Canceling ctx abandons the walk.
func (v *Vetter) Run(ctx context.Context, scope domain.VettingScope) (VettingResult, error) {
	src := scope.Source()
	if src == nil {
		return VettingResult{}, ErrNoSourceData
	}
	if src.Locale() != scope.Locale() {
		return VettingResult{}, fmt.Errorf("%w: source %q, scope %q", ErrLocaleMismatch, src.Locale(), scope.Locale())
	}
	baseline := scope.Baseline()
	if baseline != nil && baseline.Locale() != scope.Locale() {
		return VettingResult{}, fmt.Errorf("%w: baseline %q, scope %q", ErrLocaleMismatch, baseline.Locale(), scope.Locale())
	}

	started := v.clock().UTC()
	paths, skipped, err := v.collectPaths(ctx, scope)
	if err != nil {
		return VettingResult{}, err
	}

	counter := domain.NewProgressCounter(domain.ProgressScope{
		User:     scope.User(),
		Locale:   scope.Locale(),
		Coverage: scope.Coverage(),
	})
	categories := domain.NewCategoryCounter()
	problems := make([]PathProblem, 0)

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return VettingResult{}, fmt.Errorf("vetting %s canceled: %w", scope.Locale(), err)
		}
		required := v.coverage.RequiredLevel(path, scope.Locale())
		if !scope.Coverage().Includes(required) {
			continue
		}
		counter.IncrementVotable()

		outcome, err := v.evaluate(ctx, scope, path, required)
		if err != nil {
			return VettingResult{}, err
		}
		found := v.classify(scope, outcome)
		if len(found) == 0 {
			continue
		}
		for _, c := range found {
			if err := categories.Add(c); err != nil {
				return VettingResult{}, err
			}
		}
		problems = append(problems, v.problemFor(outcome, found))
	}

	if err := v.countVotes(ctx, scope, counter); err != nil {
		return VettingResult{}, err
	}

	completion := categories.Snapshot()
	result := VettingResult{
		ID:                v.idGen(),
		Locale:            scope.Locale(),
		Coverage:          scope.Coverage(),
		User:              scope.User(),
		Organization:      scope.Organization(),
		Categories:        scope.Categories(),
		VotablePaths:      counter.VotablePathCount(),
		VotedPaths:        counter.VotedPathCount(),
		VoteTypes:         counter.VoteTypeCounts(),
		VotePercent:       domain.Percentage(counter.VotedPathCount(), counter.VotablePathCount()),
		Completion:        completion,
		CompletionPercent: completion.CompletionPercent(counter.VotablePathCount()),
		Problems:          problems,
		Skipped:           skipped,
		StartedAt:         started,
		FinishedAt:        v.clock().UTC(),
	}
	if filter, ok := scope.PathFilter(); ok {
		result.SinglePath = filter.String()
	}
	slices.SortFunc(result.Problems, func(a, b PathProblem) int {
		return strings.Compare(a.Path, b.Path)
	})
	v.observer.VettingCompleted(scope.Locale(), result.FinishedAt.Sub(started), result)
	return result, nil
}

// RunMany executes independent passes concurrently, bounded by the configured parallelism.
// Results keep the order of scopes; the first failure cancels the rest.
func (v *Vetter) RunMany(ctx context.Context, scopes []domain.VettingScope) ([]VettingResult, error) {
	results := make([]VettingResult, len(scopes))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(v.parallelism)
	for i, scope := range scopes {
		group.Go(func() error {
			result, err := v.Run(groupCtx, scope)
			if err != nil {
				return fmt.Errorf("vet %s: %w", scope.Locale(), err)
			}
			results[i] = result
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// collectPaths lists, parses, filters and deduplicates the paths to walk.
// A single-path filter is walked even when the source does not list it.
func (v *Vetter) collectPaths(ctx context.Context, scope domain.VettingScope) ([]domain.PathAddress, int, error) {
	if filter, ok := scope.PathFilter(); ok {
		return []domain.PathAddress{filter}, 0, nil
	}
	raw, err := scope.Source().Paths(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list %s paths: %w", scope.Locale(), err)
	}
	seen := make(map[string]struct{}, len(raw))
	out := make([]domain.PathAddress, 0, len(raw))
	skipped := 0
	for _, item := range raw {
		path, err := v.parser.Parse(item)
		if err != nil {
			skipped++
			continue
		}
		key := path.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, path)
	}
	return out, skipped, nil
}

// evaluate resolves one path against source and baseline data.
func (v *Vetter) evaluate(ctx context.Context, scope domain.VettingScope, path domain.PathAddress, required domain.CoverageLevel) (PathOutcome, error) {
	value, err := scope.Source().Resolve(ctx, path)
	if err != nil {
		return PathOutcome{}, fmt.Errorf("resolve %s in %s: %w", path, scope.Locale(), err)
	}
	outcome := PathOutcome{
		Path:     path,
		Locale:   scope.Locale(),
		Required: required,
		Source:   value,
	}
	if baseline := scope.Baseline(); baseline != nil {
		base, err := baseline.Resolve(ctx, path)
		if err != nil {
			return PathOutcome{}, fmt.Errorf("resolve baseline %s in %s: %w", path, scope.Locale(), err)
		}
		outcome.Baseline = base
		outcome.HasBaseline = true
	}
	return outcome, nil
}

// classify keeps only the categories the scope asked for.
func (v *Vetter) classify(scope domain.VettingScope, outcome PathOutcome) []domain.Category {
	found := v.problems.Classify(outcome)
	out := make([]domain.Category, 0, len(found))
	for _, c := range found {
		c = domain.NormalizeCategory(c)
		if scope.HasCategory(c) && !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}

// problemFor builds the reported row for one problem path.
func (v *Vetter) problemFor(outcome PathOutcome, found []domain.Category) PathProblem {
	problem := PathProblem{
		Path:       outcome.Path.String(),
		Categories: found,
		Value:      outcome.Source.Value,
		Required:   outcome.Required.String(),
	}
	if outcome.HasBaseline {
		problem.Baseline = outcome.Baseline.Value
	}
	if v.hints != nil {
		problem.Hint = v.hints.Lookup(outcome.Path)
	}
	return problem
}

// countVotes adds the scope user's votes in this locale to the counter.
func (v *Vetter) countVotes(ctx context.Context, scope domain.VettingScope, counter *domain.ProgressCounter) error {
	if v.votes == nil || scope.User() == "" {
		return nil
	}
	votes, err := v.votes.ListVotes(ctx, scope.User(), scope.Locale())
	if err != nil {
		return fmt.Errorf("list votes for %s in %s: %w", scope.User(), scope.Locale(), err)
	}
	for _, vote := range votes {
		if scope.IsOnlyForSinglePath() {
			path, err := v.parser.Parse(vote.Path)
			if err != nil || !scope.MatchesPath(path) {
				continue
			}
		}
		counter.IncrementVoted()
		if err := counter.RecordVoteType(vote.Type); err != nil {
			return err
		}
	}
	return nil
}
