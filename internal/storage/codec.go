package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spigell/resume-matcher/internal/matching"
)

// timeLayout is fixed width so text columns sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Parse(time.RFC3339Nano, s)
	}
	return t, nil
}

func encodeSkills(skills []string) (string, error) {
	if skills == nil {
		skills = []string{}
	}
	b, err := json.Marshal(skills)
	if err != nil {
		return "", fmt.Errorf("encode skills: %w", err)
	}
	return string(b), nil
}

func decodeSkills(raw []byte) ([]string, error) {
	skills := []string{}
	if len(raw) == 0 {
		return skills, nil
	}
	if err := json.Unmarshal(raw, &skills); err != nil {
		return nil, fmt.Errorf("decode skills: %w", err)
	}
	return skills, nil
}

func encodeMatches(matches []matching.HistoryMatch) (string, error) {
	if matches == nil {
		matches = []matching.HistoryMatch{}
	}
	b, err := json.Marshal(matches)
	if err != nil {
		return "", fmt.Errorf("encode matches: %w", err)
	}
	return string(b), nil
}

func decodeMatches(raw []byte) ([]matching.HistoryMatch, error) {
	matches := []matching.HistoryMatch{}
	if len(raw) == 0 {
		return matches, nil
	}
	if err := json.Unmarshal(raw, &matches); err != nil {
		return nil, fmt.Errorf("decode matches: %w", err)
	}
	return matches, nil
}
