package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampConfidence(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, ClampConfidence(-5))
	assert.Equal(t, 100, ClampConfidence(140))
	assert.Equal(t, 72, ClampConfidence(72))
}

func TestFailedEvaluation(t *testing.T) {
	t.Parallel()

	e := FailedEvaluation("https://example.com")
	assert.False(t, e.IsOfficialSite)
	assert.False(t, e.IsRelevant)
	assert.False(t, e.MeetsThreshold)
	assert.Zero(t, e.ConfidenceScore)
	assert.Equal(t, EvaluationFailedReasoning, e.Reasoning)
}

func TestFallbackSizing(t *testing.T) {
	t.Parallel()

	s := FallbackSizing()
	assert.Equal(t, SizeGrowth, s.CompanySize)
	assert.Equal(t, ConfidenceLow, s.Confidence)
	assert.Equal(t, []string{"fallback"}, s.Sources)
}

func TestConfidenceValid(t *testing.T) {
	t.Parallel()

	assert.True(t, ConfidenceHigh.Valid())
	assert.True(t, ConfidenceLow.Valid())
	assert.False(t, Confidence("certain").Valid())
}
