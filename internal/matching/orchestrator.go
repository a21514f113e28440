package matching

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/ai"
	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/resume"
)

// DefaultTopN is used when a request does not set TopN.
const DefaultTopN = 5

// Request describes one match run.
type Request struct {
	UserID         string
	JobDescription string
	Namespace      string
	// TopN is optional; nil means the configured default.
	TopN *int
}

// Outcome is the result of a successful run.
type Outcome struct {
	Result  Result
	Entry   *HistoryEntry
	Steps   []Step
	Skipped []string
}

type Config struct {
	DefaultTopN   int
	Concurrency   int
	CallTimeout   time.Duration
	RatePerSecond float64
	KeepRationale bool
}

type Deps struct {
	Resumes   ResumeSource
	History   HistoryStore
	Scorer    ai.Scorer
	Publisher Publisher
	Logger    *zap.Logger
	// Normalize prepares the job description for scoring. The stored text is never changed.
	Normalize func(string) string
}

// Orchestrator runs the load, evaluate, rank and record pipeline.
type Orchestrator struct {
	resumes     ResumeSource
	evaluator   *Evaluator
	recorder    *Recorder
	publisher   Publisher
	normalize   func(string) string
	defaultTopN int
	logger      *zap.Logger
	newRunID    func() string
}

func New(cfg Config, deps Deps) *Orchestrator {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	topN := cfg.DefaultTopN
	if topN <= 0 {
		topN = DefaultTopN
	}

	normalize := deps.Normalize
	if normalize == nil {
		normalize = strings.TrimSpace
	}

	return &Orchestrator{
		resumes: deps.Resumes,
		evaluator: NewEvaluator(deps.Scorer, log,
			WithConcurrency(cfg.Concurrency),
			WithCallTimeout(cfg.CallTimeout),
			WithRateLimit(cfg.RatePerSecond),
		),
		recorder:    NewRecorder(deps.History, cfg.KeepRationale),
		publisher:   deps.Publisher,
		normalize:   normalize,
		defaultTopN: topN,
		logger:      log,
		newRunID:    uuid.NewString,
	}
}

// RunMatch evaluates every résumé in the request namespace, ranks them and
// records the ranked result for the issuing user.
func (o *Orchestrator) RunMatch(ctx context.Context, req Request) (*Outcome, error) {
	topN, err := o.validate(req)
	if err != nil {
		return nil, err
	}

	log := logger.WithFields(o.logger, logger.RunFields(o.newRunID(), req.Namespace, req.UserID)...)
	log.Info("match run started", zap.Int("top_n", topN))

	records, err := o.resumes.ListResumesByNamespace(ctx, req.Namespace)
	if err != nil {
		return nil, fmt.Errorf("%w: list resumes: %w", ErrPersistence, err)
	}

	loaded := &resume.Records{Items: records}
	initial := loaded.Len()
	skipped := loaded.SplitByNamespace(req.Namespace)
	if len(skipped) > 0 {
		log.Warn("skipping resumes from a foreign namespace", zap.Strings("resume_ids", skipped))
	}

	steps := []Step{newStep("load", initial, loaded.Len())}
	steps[0].log(log)

	if loaded.Len() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoCandidates, req.Namespace)
	}

	candidates, err := o.evaluator.Evaluate(ctx, o.normalize(req.JobDescription), loaded.Items)
	if err != nil {
		log.Warn("match run aborted", zap.Error(err))
		return nil, err
	}

	scored := 0
	for _, c := range candidates {
		if c.Status == StatusScored {
			scored++
		}
	}
	evaluated := newStep("evaluate", len(candidates), scored)
	evaluated.log(log)
	steps = append(steps, evaluated)

	result, err := Rank(candidates, topN)
	if err != nil {
		return nil, err
	}
	ranked := newStep("rank", len(candidates), len(result))
	ranked.log(log)
	steps = append(steps, ranked)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entry, err := o.recorder.Record(ctx, req.UserID, req.Namespace, req.JobDescription, result)
	if err != nil {
		log.Error("recording match history failed", zap.Error(err))
		return nil, err
	}

	log.Info("match run completed",
		zap.String("history_id", entry.ID),
		zap.Strings("ranked", result.IDs()),
	)

	if o.publisher != nil {
		if err := o.publisher.Publish(ctx, entry); err != nil {
			log.Warn("publishing match event failed", zap.String("history_id", entry.ID), zap.Error(err))
		}
	}

	return &Outcome{Result: result, Entry: entry, Steps: steps, Skipped: skipped}, nil
}

// ListHistory returns the user's past runs, newest first.
func (o *Orchestrator) ListHistory(ctx context.Context, userID string) ([]*HistoryEntry, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidRequest)
	}
	return o.recorder.ListByUser(ctx, userID)
}

func (o *Orchestrator) validate(req Request) (int, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return 0, fmt.Errorf("%w: user id is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.JobDescription) == "" {
		return 0, fmt.Errorf("%w: job description is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.Namespace) == "" {
		return 0, fmt.Errorf("%w: college code is required", ErrInvalidRequest)
	}

	topN := o.defaultTopN
	if req.TopN != nil {
		topN = *req.TopN
	}
	if topN <= 0 {
		return 0, fmt.Errorf("%w: topN must be positive, got %d", ErrInvalidRequest, topN)
	}
	return topN, nil
}
