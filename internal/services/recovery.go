package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"vocab-ai/internal/models"
)

var (
	// ErrNoJSONArray means the reply holds no '[' ... ']' span at all.
	ErrNoJSONArray = errors.New("reply contains no json array")
	// ErrUnparseable means the bracketed span is not valid JSON.
	ErrUnparseable = errors.New("reply json array is not parseable")
)

// Field aliases seen in model replies for the same entry attribute.
var (
	meaningKeys  = []string{"meaning", "chinese_meaning", "translation", "definition"}
	sentenceKeys = []string{"example_sentence", "fun_sentence", "sentence", "example"}
)

// RecoverEntries pulls the vocabulary list out of a free-text model reply.
//
// Recovery is two-stage: everything from the first '[' to the last ']' is taken
// as the candidate payload regardless of prose or code fences around it, then
// that span is parsed strictly. A reply with two separate arrays therefore
// yields one invalid span and fails. Elements that are not JSON objects are
// dropped; missing fields default to empty values.
func RecoverEntries(raw string) ([]models.VocabEntry, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start == -1 || end == -1 || end < start {
		return nil, ErrNoJSONArray
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw[start:end+1]), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	entries := make([]models.VocabEntry, 0, len(items))
	for _, item := range items {
		var obj map[string]any
		if err := json.Unmarshal(item, &obj); err != nil || obj == nil {
			continue
		}
		entries = append(entries, entryFromObject(obj))
	}
	return entries, nil
}

func entryFromObject(obj map[string]any) models.VocabEntry {
	return models.VocabEntry{
		Word:            asString(obj["word"]),
		Phonetic:        asString(obj["phonetic"]),
		Meaning:         firstString(obj, meaningKeys),
		Phrases:         asStringSlice(obj["phrases"]),
		ExampleSentence: firstString(obj, sentenceKeys),
	}
}

func firstString(obj map[string]any, keys []string) string {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			return asString(v)
		}
	}
	return ""
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func asStringSlice(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, it := range t {
			if s := asString(it); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}
		}
	}
	return []string{}
}
