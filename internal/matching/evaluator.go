package matching

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/spigell/resume-matcher/internal/ai"
	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/resume"
)

const (
	defaultConcurrency = 4
	defaultCallTimeout = 60 * time.Second
)

var errInvalidScore = errors.New("score is not a finite number")

// Evaluator scores every candidate against a job description.
// A failure for one candidate never aborts the others.
type Evaluator struct {
	scorer      ai.Scorer
	logger      *zap.Logger
	concurrency int
	timeout     time.Duration
	limiter     *rate.Limiter
}

type EvaluatorOption func(*Evaluator)

func WithConcurrency(n int) EvaluatorOption {
	return func(e *Evaluator) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithCallTimeout bounds a single scoring call.
func WithCallTimeout(d time.Duration) EvaluatorOption {
	return func(e *Evaluator) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithRateLimit caps scoring calls per second across all workers. Zero disables it.
func WithRateLimit(perSecond float64) EvaluatorOption {
	return func(e *Evaluator) {
		if perSecond > 0 {
			burst := int(math.Ceil(perSecond))
			e.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

func NewEvaluator(scorer ai.Scorer, log *zap.Logger, opts ...EvaluatorOption) *Evaluator {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Evaluator{
		scorer:      scorer,
		logger:      log,
		concurrency: defaultConcurrency,
		timeout:     defaultCallTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate returns one candidate per record, in record order.
// Cancelling ctx abandons outstanding calls and returns ctx.Err().
func (e *Evaluator) Evaluate(ctx context.Context, jobDescription string, records []*resume.Record) ([]Candidate, error) {
	out := make([]Candidate, len(records))
	done := make(chan struct{})

	go func() {
		defer close(done)
		var g errgroup.Group
		g.SetLimit(e.concurrency)
		for i, rec := range records {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				out[i] = e.evaluateOne(ctx, jobDescription, rec)
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-done:
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Evaluator) evaluateOne(ctx context.Context, jobDescription string, rec *resume.Record) Candidate {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return e.failed(rec, err)
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	assessment, err := e.score(callCtx, jobDescription, toScoringCandidate(rec))
	if err != nil {
		return e.failed(rec, err)
	}
	if assessment == nil {
		return e.failed(rec, errors.New("scorer returned no assessment"))
	}

	score, err := normalizeScore(assessment.Score)
	if err != nil {
		return e.failed(rec, err)
	}

	rationale := assessment.Rationale
	if rationale == nil {
		rationale = []string{}
	}

	e.logger.Debug("candidate scored",
		zap.String(logger.FieldCandidateID, rec.ID),
		zap.Float64("score", score),
	)

	c := candidateFromRecord(rec)
	c.Score = score
	c.Rationale = rationale
	c.Status = StatusScored
	return c
}

type scoreReply struct {
	assessment *ai.Assessment
	err        error
}

// score stops waiting once ctx is done, even if the scorer ignores it.
func (e *Evaluator) score(ctx context.Context, jobDescription string, candidate ai.Candidate) (*ai.Assessment, error) {
	reply := make(chan scoreReply, 1)
	go func() {
		assessment, err := e.scorer.Score(ctx, jobDescription, candidate)
		reply <- scoreReply{assessment: assessment, err: err}
	}()

	select {
	case r := <-reply:
		return r.assessment, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *Evaluator) failed(rec *resume.Record, err error) Candidate {
	e.logger.Warn("candidate evaluation failed",
		zap.String(logger.FieldCandidateID, rec.ID),
		zap.Error(err),
	)
	c := candidateFromRecord(rec)
	c.Score = 0
	c.Rationale = []string{FailedRationale}
	c.Status = StatusFailed
	return c
}

// normalizeScore clamps finite scores into [0, 100].
func normalizeScore(score float64) (float64, error) {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, fmt.Errorf("%w: %v", errInvalidScore, score)
	}
	return math.Min(100, math.Max(0, score)), nil
}

func candidateFromRecord(rec *resume.Record) Candidate {
	return Candidate{
		ResumeID:      rec.ID,
		Name:          rec.Name,
		Email:         rec.Email,
		SuggestedRole: rec.SuggestedRole,
	}
}

func toScoringCandidate(rec *resume.Record) ai.Candidate {
	return ai.Candidate{
		ID:            rec.ID,
		Name:          rec.Name,
		Email:         rec.Email,
		SuggestedRole: rec.SuggestedRole,
		Experience:    rec.Experience,
		Skills:        rec.Skills,
		RawText:       rec.Text,
	}
}
