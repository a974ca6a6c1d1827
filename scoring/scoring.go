package scoring

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pevans/listwatch/record"
)

// DescriptionChunk is the number of description characters that earn one
// unit of the description weight. Partial chunks earn nothing.
const DescriptionChunk = 50

// Weights are the configurable coefficients of the relevance score.
type Weights struct {
	Description float64 `yaml:"description"`
	Photo       float64 `yaml:"photo"`
	Goal        float64 `yaml:"goal"`
	Day         float64 `yaml:"day"`

	// ExcludedGoal is a goal tag that never contributes to the score.
	ExcludedGoal string `yaml:"excluded_goal"`
}

// DefaultWeights returns the weights used when the configuration does not
// set any.
func DefaultWeights() Weights {
	return Weights{
		Description:  1.1,
		Photo:        0.8,
		Goal:         0.5,
		Day:          0.8,
		ExcludedGoal: "sponsorship",
	}
}

// Score computes the relevance score of r at time now. priorFirstSeen is the
// first-seen time already on record; nil means the record is brand new and
// earns no age credit. The result is rounded to two decimals.
func Score(r record.Record, priorFirstSeen *time.Time, now time.Time, w Weights) float64 {
	chunks := utf8.RuneCountInString(r.AboutText()) / DescriptionChunk

	score := float64(chunks) * w.Description
	score += float64(PhotoCount(r.AdditionalPhotos)) * w.Photo
	score += float64(countGoals(r.Goals, w.ExcludedGoal)) * w.Goal

	if priorFirstSeen != nil {
		days := now.Sub(*priorFirstSeen).Seconds() / 86400
		score += days * w.Day
	}

	return Round2(score)
}

// Qualifies reports whether score is at or above threshold.
func Qualifies(score, threshold float64) bool {
	return score >= threshold
}

// PhotoCount parses the leading integer token of an additional-photos text
// such as "+3 фото", "+3фото" or "(+3)". Unparseable or empty text counts as
// zero.
func PhotoCount(text string) int {
	text = strings.TrimLeft(text, "(+ \t\n")

	end := strings.IndexFunc(text, func(r rune) bool {
		return r < '0' || r > '9'
	})
	if end < 0 {
		end = len(text)
	}

	n, err := strconv.Atoi(text[:end])
	if err != nil {
		return 0
	}
	return n
}

// Round2 rounds x to two decimal places.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func countGoals(goals []string, excluded string) int {
	n := 0
	for _, g := range goals {
		if excluded != "" && g == excluded {
			continue
		}
		n++
	}
	return n
}
