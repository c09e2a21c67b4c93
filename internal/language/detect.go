// Package language guesses the natural language of a text sample from
// function-word and diacritic signals. It steers generated content into the
// user's apparent language; it is a heuristic, not a classifier.
package language

import "strings"

const (
	English    = "English"
	Spanish    = "Spanish"
	Portuguese = "Portuguese"
	French     = "French"
	German     = "German"
)

const sampleLen = 500
const diacriticBonus = 3

type candidate struct {
	lang      string
	words     map[string]struct{}
	diacritic string
}

// Candidate order is the tie-break order: the first among equal top scores
// wins.
var candidates = []candidate{
	{Spanish, wordSet("que", "los", "las", "del", "una", "con", "por", "para",
		"como", "más", "esta", "pero", "sobre", "entre", "cuando", "también",
		"puede", "tiene", "desde", "todo", "según", "donde", "después",
		"porque", "cada", "hacer", "sin", "ser", "este", "así"), "áéíóúñ¿¡"},
	{Portuguese, wordSet("não", "uma", "com", "são", "mais", "para", "como",
		"está", "pode", "isso", "pelo", "muito", "também", "onde", "quando",
		"ainda", "então", "sobre", "depois"), "ãõç"},
	{French, wordSet("les", "des", "une", "que", "dans", "pour", "avec", "sur",
		"sont", "pas", "plus", "mais", "comme", "cette", "tout", "être",
		"fait", "aussi", "nous", "même"), "àâêëîïôùûüÿçœæ"},
	{German, wordSet("und", "die", "der", "das", "ist", "ein", "eine", "mit",
		"auf", "für", "nicht", "auch", "sich", "von", "sind", "werden", "hat",
		"wird", "dass", "oder"), "äöüß"},
}

func wordSet(words ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}

// Detect scores the first 500 characters of the lowercased sample against
// each candidate stoplist, adds a fixed bonus when any of the candidate's
// diacritics appear, and returns the best candidate if it reaches minScore.
// Empty or short input (under minLen) and weak signals default to English.
// Call sites pass their own thresholds; generation paths use (20, 3), the
// assistant uses the looser (10, 2).
func Detect(text string, minLen, minScore int) string {
	if len(text) < minLen {
		return English
	}
	sample := strings.ToLower(text)
	if len(sample) > sampleLen {
		sample = sample[:sampleLen]
	}

	tokens := strings.Fields(sample)
	best := English
	bestScore := 0
	for _, c := range candidates {
		score := 0
		for _, tok := range tokens {
			if _, ok := c.words[tok]; ok {
				score++
			}
		}
		if strings.ContainsAny(sample, c.diacritic) {
			score += diacriticBonus
		}
		if score > bestScore {
			best = c.lang
			bestScore = score
		}
	}
	if bestScore < minScore {
		return English
	}
	return best
}
