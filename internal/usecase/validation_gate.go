package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"tripmail-service/internal/domain/entity"
	"tripmail-service/internal/domain/repository"
	"tripmail-service/pkg/logger"
)

// DefaultValidationThreshold is the minimum score for a VALID verdict
const DefaultValidationThreshold = 0.6

// ReasonScoringUnavailable marks a verdict produced without a model score
const ReasonScoringUnavailable = "scoring_unavailable"

// maxScoringChars bounds the text sent for scoring
const maxScoringChars = 12000

// truncateUTF8 cuts s to at most n bytes without splitting a rune
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// ValidationGate decides whether a document looks like a travel confirmation
type ValidationGate struct {
	ai        repository.AIRepository
	threshold float64
	logger    logger.Logger
}

// NewValidationGate creates a new validation gate. A threshold outside
// (0, 1] falls back to DefaultValidationThreshold.
func NewValidationGate(ai repository.AIRepository, threshold float64, logger logger.Logger) *ValidationGate {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultValidationThreshold
	}
	return &ValidationGate{
		ai:        ai,
		threshold: threshold,
		logger:    logger,
	}
}

// Validate scores the document. It never fails: a scoring error yields a
// REJECTED verdict with reason scoring_unavailable so the document is
// quarantined and stays replayable.
func (g *ValidationGate) Validate(ctx context.Context, subject, text string) entity.ValidationVerdict {
	text = truncateUTF8(text, maxScoringChars)

	raw, err := g.ai.GenerateJSON(ctx, repository.AIRequest{
		Prompt: scoringPrompt,
		Text:   buildScoringText(subject, text),
	})
	if err != nil {
		g.logger.Warn("Scoring call failed", "subject", subject, "error", err)
		return unavailableVerdict(err)
	}

	verdict, err := parseVerdict(raw)
	if err != nil {
		g.logger.Warn("Scoring response unusable", "subject", subject, "error", err)
		return unavailableVerdict(err)
	}

	if verdict.Score >= g.threshold {
		verdict.Status = entity.VerdictValid
	} else {
		verdict.Status = entity.VerdictRejected
	}
	return verdict
}

func unavailableVerdict(err error) entity.ValidationVerdict {
	return entity.ValidationVerdict{
		Status:      entity.VerdictRejected,
		Score:       0,
		Reason:      ReasonScoringUnavailable,
		Explanation: err.Error(),
	}
}

// parseVerdict reads {score, reason, explanation}, unwrapping a top-level
// array. Scores given as percentages are scaled to [0, 1].
func parseVerdict(raw string) (entity.ValidationVerdict, error) {
	body := stripCodeFence(raw)

	var value interface{}
	if err := json.Unmarshal([]byte(body), &value); err != nil {
		return entity.ValidationVerdict{}, fmt.Errorf("score response is not JSON: %w", err)
	}
	if arr, ok := value.([]interface{}); ok {
		if len(arr) == 0 {
			return entity.ValidationVerdict{}, fmt.Errorf("score response is an empty array")
		}
		value = arr[0]
	}
	obj, ok := value.(map[string]interface{})
	if !ok {
		return entity.ValidationVerdict{}, fmt.Errorf("score response is not an object")
	}

	score, ok := scoreValue(obj["score"])
	if !ok {
		return entity.ValidationVerdict{}, fmt.Errorf("score response has no numeric score")
	}
	if score > 1 && score <= 100 {
		score /= 100
	}
	if score < 0 || score > 1 {
		return entity.ValidationVerdict{}, fmt.Errorf("score %v out of range", score)
	}

	reason, _ := obj["reason"].(string)
	explanation, _ := obj["explanation"].(string)
	return entity.ValidationVerdict{
		Score:       score,
		Reason:      strings.TrimSpace(reason),
		Explanation: strings.TrimSpace(explanation),
	}, nil
}

func scoreValue(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(t), "%"), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
