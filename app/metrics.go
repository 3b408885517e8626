package app

import (
	"math"
	"strings"

	"github.com/SatVerseX/mockmate-api/app/models"
)

// fillerWords are counted against the candidate per 100 spoken words.
// Two-word fillers are matched as adjacent token pairs.
var fillerWords = map[string]bool{
	"uh":        true,
	"um":        true,
	"erm":       true,
	"hmm":       true,
	"like":      true,
	"basically": true,
	"actually":  true,
}

var fillerPairs = [][2]string{
	{"you", "know"},
	{"i", "mean"},
	{"sort", "of"},
	{"kind", "of"},
}

// ComputeInterviewMetrics derives the deterministic numbers from a transcript.
// The same transcript always produces the same metrics, which keeps reports
// reproducible independent of the AI review.
func ComputeInterviewMetrics(lines []models.TranscriptLine, durationSeconds, warningCount int) models.InterviewMetrics {
	m := models.InterviewMetrics{
		DurationSeconds: durationSeconds,
		WarningCount:    warningCount,
		TranscriptLines: len(lines),
	}

	fillerCount := 0
	answerCount := 0
	pendingQuestion := false

	for _, line := range lines {
		words := tokenizeWords(line.Content)
		switch line.Speaker {
		case models.SpeakerCandidate:
			m.CandidateWords += len(words)
			fillerCount += countFillers(words)
			if len(words) > 0 {
				answerCount++
				if pendingQuestion {
					m.QuestionsAnswered++
					pendingQuestion = false
				}
			}
		case models.SpeakerInterviewer:
			m.InterviewerWords += len(words)
			if strings.Contains(line.Content, "?") {
				pendingQuestion = true
			}
		}
	}

	if total := m.CandidateWords + m.InterviewerWords; total > 0 {
		m.TalkRatio = round2(float64(m.CandidateWords) / float64(total))
	}
	if m.CandidateWords > 0 {
		m.FillerPerHundred = round2(float64(fillerCount) * 100 / float64(m.CandidateWords))
	}
	if answerCount > 0 {
		m.AvgAnswerWords = round2(float64(m.CandidateWords) / float64(answerCount))
	}
	if durationSeconds > 0 {
		m.WordsPerMinute = round2(float64(m.CandidateWords) * 60 / float64(durationSeconds))
	}

	return m
}

// tokenizeWords lowercases and splits on whitespace, trimming punctuation so
// "Well," and "well" count as the same token.
func tokenizeWords(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		w := strings.Trim(f, ".,!?;:\"'()[]")
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}

func countFillers(words []string) int {
	count := 0
	for i, w := range words {
		if fillerWords[w] {
			count++
			continue
		}
		for _, pair := range fillerPairs {
			if w == pair[0] && i+1 < len(words) && words[i+1] == pair[1] {
				count++
				break
			}
		}
	}
	return count
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
