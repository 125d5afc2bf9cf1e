package services

import (
	"regexp"

	"vocab-ai/internal/models"
)

// BlankMask replaces the target word in a quiz prompt.
const BlankMask = "_______"

// QuizQuestion is one fill-in-the-blank prompt derived from an entry.
type QuizQuestion struct {
	Number  int    `json:"number"`
	Prompt  string `json:"prompt"`
	Answer  string `json:"answer"`
	Meaning string `json:"meaning"`
}

// Blank masks the first case-insensitive occurrence of the entry word in its
// example sentence. When the word does not occur the sentence is returned as is.
func Blank(entry models.VocabEntry) string {
	if entry.Word == "" {
		return entry.ExampleSentence
	}
	re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(entry.Word))
	loc := re.FindStringIndex(entry.ExampleSentence)
	if loc == nil {
		return entry.ExampleSentence
	}
	return entry.ExampleSentence[:loc[0]] + BlankMask + entry.ExampleSentence[loc[1]:]
}

// BuildQuiz derives one question per entry, keeping entry order.
func BuildQuiz(entries []models.VocabEntry) []QuizQuestion {
	out := make([]QuizQuestion, 0, len(entries))
	for i, e := range entries {
		out = append(out, QuizQuestion{
			Number:  i + 1,
			Prompt:  Blank(e),
			Answer:  e.Word,
			Meaning: e.Meaning,
		})
	}
	return out
}
