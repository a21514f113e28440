package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/mitchellh/mapstructure"
	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/resume"
	"github.com/spigell/resume-matcher/internal/utils"
	"go.uber.org/zap"
)

//go:embed prompts/extract.md
var extractPromptTemplate string

const (
	extractionSystemInstruction = "You extract structured data from résumés. Answer with JSON only."
	maxResumeRunes              = 20000

	FallbackName       = "Name not found"
	FallbackEmail      = "Email not found"
	FallbackRole       = "Role not determined"
	FallbackExperience = "Experience not extracted"
)

// Extractor turns raw résumé text into a structured profile.
type Extractor struct {
	generator Generator
	logger    *zap.Logger
	maxLogLen int
}

func NewExtractor(generator Generator, maxLogLength int, log *zap.Logger) *Extractor {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{generator: generator, logger: log, maxLogLen: maxLogLength}
}

// Extract asks the model for a profile. An unusable reply yields the fallback
// profile; only a failing generator is reported as an error.
func (e *Extractor) Extract(ctx context.Context, text string) (resume.Profile, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return resume.Profile{}, errors.New("resume text is required")
	}

	prompt := strings.ReplaceAll(extractPromptTemplate, "{{RESUME_TEXT}}", utils.TruncateRunes(text, maxResumeRunes))

	raw, err := e.generator.GenerateContent(ctx, extractionSystemInstruction, prompt)
	if err != nil {
		return resume.Profile{}, fmt.Errorf("extract resume profile: %w", err)
	}

	e.logger.Debug("extract response",
		zap.String(logger.FieldModel, e.generator.Model()),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, e.maxLogLen)),
	)

	profile, err := decodeProfile(raw)
	if err != nil {
		e.logger.Warn("could not parse extracted profile, using fallback", zap.Error(err))
		return withFallbacks(resume.Profile{}), nil
	}

	return withFallbacks(profile), nil
}

func decodeProfile(raw string) (resume.Profile, error) {
	var profile resume.Profile

	data, err := ExtractObject(raw)
	if err != nil {
		return profile, err
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &profile,
		WeaklyTypedInput: true,
		MatchName: func(mapKey, fieldName string) bool {
			return strings.EqualFold(normalizeKey(mapKey), fieldName)
		},
	})
	if err != nil {
		return profile, fmt.Errorf("create profile decoder: %w", err)
	}

	data["skills"] = coerceStrings(data["skills"])
	if err := decoder.Decode(data); err != nil {
		return profile, fmt.Errorf("decode profile: %w", err)
	}

	return profile, nil
}

// normalizeKey maps snake_case keys such as suggested_role onto field names.
func normalizeKey(key string) string {
	return strings.ReplaceAll(strings.TrimSpace(key), "_", "")
}

func withFallbacks(p resume.Profile) resume.Profile {
	p.Name = orDefault(p.Name, FallbackName)
	p.Email = orDefault(p.Email, FallbackEmail)
	p.SuggestedRole = orDefault(p.SuggestedRole, FallbackRole)
	p.Experience = orDefault(p.Experience, FallbackExperience)

	skills := make([]string, 0, len(p.Skills))
	for _, s := range p.Skills {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				skills = append(skills, part)
			}
		}
	}
	p.Skills = skills
	return p
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
