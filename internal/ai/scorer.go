package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/utils"
	"go.uber.org/zap"
)

//go:embed prompts/score.md
var scorePromptTemplate string

const (
	scoringSystemInstruction = "You are an experienced technical recruiter. Answer with JSON only."
	defaultMaxLogLength      = 200
	maxHighlights            = 5
	// job descriptions, experience and résumé text are truncated before prompting
	maxPromptFieldRunes = 8000
)

var errMissingScore = errors.New("response has no numeric score")

// ScoringClient asks a Generator to rate a candidate and parses the reply.
type ScoringClient struct {
	generator Generator
	logger    *zap.Logger
	maxLogLen int
}

func NewScoringClient(generator Generator, maxLogLength int, log *zap.Logger) *ScoringClient {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &ScoringClient{
		generator: generator,
		logger:    log,
		maxLogLen: maxLogLength,
	}
}

func (c *ScoringClient) Score(ctx context.Context, jobDescription string, candidate Candidate) (*Assessment, error) {
	prompt, err := buildScorePrompt(jobDescription, candidate)
	if err != nil {
		return nil, scoringError(candidate.ID, err)
	}

	fields := []zap.Field{
		zap.String(logger.FieldCandidateID, candidate.ID),
		zap.String(logger.FieldModel, c.generator.Model()),
	}

	c.logger.Debug("score request",
		append(fields,
			zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
			zap.String("prompt_preview", utils.TruncateForLog(prompt, c.maxLogLen)),
		)...,
	)

	raw, err := c.generator.GenerateContent(ctx, scoringSystemInstruction, prompt)
	if err != nil {
		return nil, scoringError(candidate.ID, err)
	}

	c.logger.Debug("score response",
		append(fields,
			zap.Int("response_length", utf8.RuneCountInString(raw)),
			zap.String("response_preview", utils.TruncateForLog(raw, c.maxLogLen)),
		)...,
	)

	assessment, err := parseAssessment(raw)
	if err != nil {
		return nil, scoringError(candidate.ID, err)
	}

	return assessment, nil
}

func buildScorePrompt(jobDescription string, candidate Candidate) (string, error) {
	candidate.Experience = utils.TruncateRunes(candidate.Experience, maxPromptFieldRunes)
	if candidate.Skills == nil {
		candidate.Skills = []string{}
	}

	payload, err := json.MarshalIndent(candidate, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal candidate payload: %w", err)
	}

	prompt := strings.ReplaceAll(scorePromptTemplate, "{{JOB_DESCRIPTION}}", utils.TruncateRunes(strings.TrimSpace(jobDescription), maxPromptFieldRunes))
	prompt = strings.ReplaceAll(prompt, "{{CANDIDATE_JSON}}", string(payload))
	prompt = strings.ReplaceAll(prompt, "{{RESUME_TEXT}}", utils.TruncateRunes(strings.TrimSpace(candidate.RawText), maxPromptFieldRunes))
	prompt = strings.ReplaceAll(prompt, "{{MAX_HIGHLIGHTS}}", strconv.Itoa(maxHighlights))
	return prompt, nil
}

func parseAssessment(raw string) (*Assessment, error) {
	data, err := ExtractObject(raw)
	if err != nil {
		return nil, fmt.Errorf("parse score response: %w", err)
	}

	score := coerceFloat(data["score"])
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return nil, fmt.Errorf("%w: %q", errMissingScore, coerceString(data["score"]))
	}

	rationale := coerceStrings(data["highlights"])
	if len(rationale) == 0 {
		rationale = coerceStrings(data["rationale"])
	}
	if len(rationale) > maxHighlights {
		rationale = rationale[:maxHighlights]
	}

	return &Assessment{
		Score:     score,
		Rationale: rationale,
		Raw:       raw,
	}, nil
}
