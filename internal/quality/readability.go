// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package quality

import "strings"

// countSyllables estimates the syllable count of text by counting vowel
// groups per word, with the usual silent-e adjustment. An estimate is
// sufficient: the Flesch formula only needs the syllables-per-word ratio.
func countSyllables(text string) int {
	total := 0
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, `.,!?;:"'()[]#*`)
		if word == "" {
			continue
		}

		groups := 0
		prevVowel := false
		for _, c := range word {
			isVowel := strings.ContainsRune("aeiouy", c)
			if isVowel && !prevVowel {
				groups++
			}
			prevVowel = isVowel
		}
		if strings.HasSuffix(word, "e") && groups > 1 {
			groups--
		}
		if groups < 1 {
			groups = 1
		}
		total += groups
	}
	return total
}

// countSentences counts sentence terminators, treating ! and ? like
// periods.
func countSentences(text string) int {
	replacer := strings.NewReplacer("!", ".", "?", ".")
	n := 0
	for _, s := range strings.Split(replacer.Replace(text), ".") {
		if strings.TrimSpace(s) != "" {
			n++
		}
	}
	return n
}

// fleschScore computes the Flesch Reading Ease score for the text,
// clamped to [0, 100]. Empty or degenerate text scores a neutral 50.
func fleschScore(text string) (score float64, sentences int) {
	words := len(strings.Fields(text))
	sentences = countSentences(text)
	if words == 0 || sentences == 0 {
		return 50, sentences
	}

	avgSentenceLen := float64(words) / float64(sentences)
	avgSyllables := float64(countSyllables(text)) / float64(words)

	score = 206.835 - 1.015*avgSentenceLen - 84.6*avgSyllables
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score, sentences
}

// gradeLevel converts a Flesch Reading Ease score to a reading level
// description.
func gradeLevel(flesch float64) string {
	switch {
	case flesch >= 90:
		return "5th grade"
	case flesch >= 80:
		return "6th grade"
	case flesch >= 70:
		return "7th grade"
	case flesch >= 60:
		return "8th-9th grade"
	case flesch >= 50:
		return "10th-12th grade"
	case flesch >= 30:
		return "College level"
	default:
		return "Graduate level"
	}
}
