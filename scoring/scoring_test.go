package scoring

import (
	"strings"
	"testing"
	"time"

	"github.com/pevans/listwatch/record"
	"github.com/stretchr/testify/assert"
)

func testWeights() Weights {
	return Weights{
		Description:  1.1,
		Photo:        0.8,
		Goal:         0.5,
		Day:          0.8,
		ExcludedGoal: "sponsorship",
	}
}

// Test helper: build a record with the given scoring inputs
func createScoredRecord(aboutLen int, photos string, goals []string) record.Record {
	r := record.New(record.Summary{ID: "1", AdditionalPhotos: photos}, time.Now())
	if aboutLen > 0 {
		about := strings.Repeat("a", aboutLen)
		r.About = &about
	}
	r.Goals = goals
	return r
}

// TestScore_Deterministic verifies the reference computation
func TestScore_Deterministic(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	r := createScoredRecord(123, "2", []string{"a", "b", "c"})

	score := Score(r, &now, now, testWeights())

	assert.Equal(t, 5.3, score)
}

// TestScore_NoPriorFirstSeen verifies brand new records earn no age credit
func TestScore_NoPriorFirstSeen(t *testing.T) {
	now := time.Now()
	r := createScoredRecord(0, "", nil)

	assert.Equal(t, 0.0, Score(r, nil, now, testWeights()))
}

// TestScore_AgeTerm verifies fractional day aging
func TestScore_AgeTerm(t *testing.T) {
	now := time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC)
	firstSeen := now.Add(-36 * time.Hour)
	r := createScoredRecord(0, "", nil)

	score := Score(r, &firstSeen, now, testWeights())

	assert.Equal(t, 1.2, score, "1.5 days at 0.8 per day")
}

// TestScore_PartialChunks verifies integer division of description length
func TestScore_PartialChunks(t *testing.T) {
	tests := []struct {
		name     string
		length   int
		expected float64
	}{
		{name: "below one chunk", length: 49, expected: 0},
		{name: "exactly one chunk", length: 50, expected: 1.1},
		{name: "just over two chunks", length: 101, expected: 2.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := createScoredRecord(tt.length, "", nil)
			assert.Equal(t, tt.expected, Score(r, nil, time.Now(), testWeights()))
		})
	}
}

// TestScore_CountsRunes verifies multi-byte descriptions are measured in
// characters
func TestScore_CountsRunes(t *testing.T) {
	r := createScoredRecord(0, "", nil)
	about := strings.Repeat("я", 50)
	r.About = &about

	assert.Equal(t, 1.1, Score(r, nil, time.Now(), testWeights()))
}

// TestScore_ExcludedGoal verifies the excluded tag earns nothing
func TestScore_ExcludedGoal(t *testing.T) {
	r := createScoredRecord(0, "", []string{"friendship", "sponsorship", "travel"})

	assert.Equal(t, 1.0, Score(r, nil, time.Now(), testWeights()))
}

// TestPhotoCount verifies parsing of the additional photos token
func TestPhotoCount(t *testing.T) {
	tests := []struct {
		text     string
		expected int
	}{
		{text: "+3 фото", expected: 3},
		{text: "2", expected: 2},
		{text: "  12 photos ", expected: 12},
		{text: "", expected: 0},
		{text: "фото", expected: 0},
		{text: "-4", expected: 0},
		{text: "+3фото", expected: 3},
		{text: "(+3)", expected: 3},
		{text: "+ 3", expected: 3},
		{text: "+", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.expected, PhotoCount(tt.text))
		})
	}
}

// TestQualifies verifies the threshold is inclusive
func TestQualifies(t *testing.T) {
	assert.True(t, Qualifies(2.0, 2.0))
	assert.True(t, Qualifies(2.01, 2.0))
	assert.False(t, Qualifies(1.99, 2.0))
}

// TestRound2 verifies two decimal rounding
func TestRound2(t *testing.T) {
	assert.Equal(t, 1.23, Round2(1.234))
	assert.Equal(t, 1.24, Round2(1.235000001))
	assert.Equal(t, 0.0, Round2(0.004))
}
