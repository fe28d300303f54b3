package quality

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var ErrQualityRejected = errors.New("output failed quality checks")

const (
	minContentScore  = 0.50
	maxContentLength = 20000
)

// refusalMarkers catch the model answering about itself instead of the video.
var refusalMarkers = []string{
	"as an ai language model",
	"i cannot access",
	"i'm unable to watch",
	"i am unable to watch",
	"i don't have access to the video",
}

// ContentValidator sanity-checks generated Markdown before it is stored and
// linked to the user. It normalizes whitespace, trims runaway output and
// rejects content that is empty, too thin or a model refusal.
type ContentValidator struct {
	minLength int
}

func NewContentValidator(minLength int) *ContentValidator {
	if minLength <= 0 {
		minLength = 200
	}
	return &ContentValidator{minLength: minLength}
}

// ValidateAnalysis returns the cleaned content and a quality score in [0,1].
func (v *ContentValidator) ValidateAnalysis(content string) (string, float64, error) {
	cleaned := normalizeContent(content)
	if cleaned == "" {
		return "", 0, fmt.Errorf("%w: empty content", ErrQualityRejected)
	}

	lowered := strings.ToLower(cleaned)
	for _, marker := range refusalMarkers {
		if strings.Contains(lowered, marker) {
			return "", 0, fmt.Errorf("%w: model refusal detected", ErrQualityRejected)
		}
	}

	penalty := 0.0
	if len(cleaned) < v.minLength {
		penalty += 0.25
	}
	if !strings.Contains(cleaned, "#") {
		// No Markdown structure at all reads as a half-finished answer.
		penalty += 0.10
	}
	switch ratio := repeatedLineRatio(cleaned); {
	case ratio > 0.5:
		return "", 0, fmt.Errorf("%w: looping output, %.0f%% repeated lines", ErrQualityRejected, ratio*100)
	case ratio > 0.3:
		penalty += 0.20
	}
	if len(cleaned) > maxContentLength {
		cleaned = truncateAtWord(cleaned, maxContentLength)
		penalty += 0.05
	}

	score := clamp01(1.0 - penalty)
	if score < minContentScore {
		return "", 0, fmt.Errorf("%w: low content quality score %.2f", ErrQualityRejected, score)
	}
	return cleaned, round2(score), nil
}

// normalizeContent collapses whitespace per line while preserving the
// Markdown line structure.
func normalizeContent(value string) string {
	value = strings.ReplaceAll(value, "\r\n", "\n")
	lines := strings.Split(value, "\n")
	normalized := make([]string, 0, len(lines))
	blankRun := 0
	for _, line := range lines {
		trimmed := strings.Join(strings.Fields(line), " ")
		if trimmed == "" {
			blankRun++
			if blankRun > 1 {
				continue
			}
		} else {
			blankRun = 0
		}
		normalized = append(normalized, trimmed)
	}
	return strings.TrimSpace(strings.Join(normalized, "\n"))
}

// repeatedLineRatio measures how much of the content is duplicated lines, a
// common failure mode of looping generations.
func repeatedLineRatio(content string) float64 {
	lines := strings.Split(content, "\n")
	seen := make(map[string]struct{}, len(lines))
	nonEmpty := 0
	repeated := 0
	for _, line := range lines {
		key := strings.ToLower(strings.TrimSpace(line))
		if key == "" {
			continue
		}
		nonEmpty++
		if _, exists := seen[key]; exists {
			repeated++
			continue
		}
		seen[key] = struct{}{}
	}
	if nonEmpty == 0 {
		return 0
	}
	return float64(repeated) / float64(nonEmpty)
}

func truncateAtWord(value string, maxLen int) string {
	if len(value) <= maxLen || maxLen <= 0 {
		return value
	}
	cut := value[:maxLen]
	lastSpace := strings.LastIndex(cut, " ")
	if lastSpace > maxLen/2 {
		cut = cut[:lastSpace]
	}
	return strings.TrimSpace(cut)
}

func clamp01(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
