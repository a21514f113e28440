package ai

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestExtractorExtract(t *testing.T) {
	stub := &stubGenerator{response: `{
		"name": "Jane Doe",
		"email": "jane.doe@example.com",
		"suggested_role": "Full Stack Developer",
		"experience": "Built web apps",
		"skills": ["React", "Node.js", " "]
	}`}
	extractor := NewExtractor(stub, 0, zap.NewNop())

	profile, err := extractor.Extract(context.Background(), "Jane Doe\nFull stack developer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if profile.Name != "Jane Doe" || profile.Email != "jane.doe@example.com" {
		t.Fatalf("unexpected identity: %+v", profile)
	}
	if profile.SuggestedRole != "Full Stack Developer" {
		t.Fatalf("expected snake_case key to map, got %q", profile.SuggestedRole)
	}
	if len(profile.Skills) != 2 {
		t.Fatalf("expected blank skills dropped, got %v", profile.Skills)
	}
}

func TestExtractorFallbacks(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		response string
		skills   int
	}{
		{name: "unparseable", response: "sorry, cannot help", skills: 0},
		{name: "partial", response: `{"skills": "Go, SQL"}`, skills: 2},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			extractor := NewExtractor(&stubGenerator{response: tc.response}, 0, zap.NewNop())
			profile, err := extractor.Extract(context.Background(), "text")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if profile.Name != FallbackName || profile.Email != FallbackEmail ||
				profile.SuggestedRole != FallbackRole || profile.Experience != FallbackExperience {
				t.Fatalf("expected fallbacks, got %+v", profile)
			}
			if profile.Skills == nil || len(profile.Skills) != tc.skills {
				t.Fatalf("expected %d skills, got %v", tc.skills, profile.Skills)
			}
		})
	}
}

func TestExtractorErrors(t *testing.T) {
	extractor := NewExtractor(&stubGenerator{err: errors.New("down")}, 0, zap.NewNop())
	if _, err := extractor.Extract(context.Background(), "text"); err == nil {
		t.Fatal("expected generator error to surface")
	}

	stub := &stubGenerator{response: "{}"}
	extractor = NewExtractor(stub, 0, zap.NewNop())
	if _, err := extractor.Extract(context.Background(), "   "); err == nil {
		t.Fatal("expected empty text to be rejected")
	}
	if stub.calls != 0 {
		t.Fatalf("generator must not be called for empty text")
	}
}
