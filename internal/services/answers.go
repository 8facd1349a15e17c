package services

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/leeqvip/gophp"

	"github.com/coursebridge/migration-backend/internal/domain/migration"
	"github.com/coursebridge/migration-backend/internal/domain/source"
	"github.com/coursebridge/migration-backend/internal/domain/target"
)

// TokenFunc generates opaque answer-option value tokens. Injected so
// conversion tests can run against predictable tokens.
type TokenFunc func() string

// NewValueToken returns a 10 character token derived from a fresh uuid.
func NewValueToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
}

// clozePattern matches one {...} blank in a cloze question body.
var clozePattern = regexp.MustCompile(`\{([^{}]+)\}`)

// AnswerConverter turns legacy questions into the target answer formats.
// One converter is shared per pipeline run; the rng drives the matching
// target shuffle.
type AnswerConverter struct {
	token TokenFunc
	rng   *rand.Rand
}

func NewAnswerConverter(token TokenFunc, rng *rand.Rand) *AnswerConverter {
	if token == nil {
		token = NewValueToken
	}
	return &AnswerConverter{token: token, rng: rng}
}

// Convert maps one legacy question to its target format. The second
// return is false for legacy types with no target equivalent; callers
// skip those questions rather than failing the quiz.
func (c *AnswerConverter) Convert(question *source.Question, answers []*source.AnswerRow) (migration.QuestionFormat, bool) {
	switch question.AnswerType {
	case source.AnswerTypeSingle:
		return migration.SingleChoice{Options: c.optionSpecs(answers, false)}, true
	case source.AnswerTypeMultiple:
		return migration.MultiChoice{Options: c.optionSpecs(answers, false)}, true
	case source.AnswerTypeSortAnswer:
		return migration.Sorting{Options: c.optionSpecs(answers, true)}, true
	case source.AnswerTypeFreeAnswer:
		return c.convertFreeAnswer(question, answers), true
	case source.AnswerTypeCloze:
		return c.convertCloze(answers), true
	case source.AnswerTypeMatrixSort:
		return c.convertMatrix(answers), true
	default:
		return nil, false
	}
}

// optionSpecs builds option rows in stored order. Sorting questions store
// their rows in the correct order and the ordering itself is the answer,
// so every option carries the correct flag.
func (c *AnswerConverter) optionSpecs(answers []*source.AnswerRow, allCorrect bool) []migration.OptionSpec {
	specs := make([]migration.OptionSpec, 0, len(answers))
	for _, row := range answers {
		specs = append(specs, migration.OptionSpec{
			Title:     row.Answer,
			Value:     c.token(),
			IsCorrect: allCorrect || row.IsCorrect,
		})
	}
	return specs
}

// convertFreeAnswer appends one blank to the question body. The legacy
// row holds pipe separated accepted variants; the first non-empty one
// becomes the stored fill.
func (c *AnswerConverter) convertFreeAnswer(question *source.Question, answers []*source.AnswerRow) migration.FillInBlank {
	fill := ""
	if len(answers) > 0 {
		fill = firstVariant(answers[0].Answer)
	}
	id := c.token()
	body := question.Content
	if body != "" {
		body += "\n"
	}
	body += "<p>" + blankMarker(fill, id) + "</p>"
	return migration.FillInBlank{
		Body:   body,
		Blanks: []migration.BlankSpec{{ID: id, Fill: fill}},
	}
}

// convertCloze rewrites each {...} occurrence in the cloze body into an
// inline blank marker and records the accepted fill per generated id.
func (c *AnswerConverter) convertCloze(answers []*source.AnswerRow) migration.FillInBlank {
	body := ""
	if len(answers) > 0 {
		body = answers[0].Answer
	}
	var blanks []migration.BlankSpec
	converted := clozePattern.ReplaceAllStringFunc(body, func(match string) string {
		inner := match[1 : len(match)-1]
		fill := firstVariant(inner)
		id := c.token()
		blanks = append(blanks, migration.BlankSpec{ID: id, Fill: fill})
		return blankMarker(fill, id)
	})
	return migration.FillInBlank{Body: converted, Blanks: blanks}
}

// convertMatrix pairs each row's text with its sort label and computes a
// single shuffled permutation of all targets, attached to every option so
// each renders the same right-hand list.
func (c *AnswerConverter) convertMatrix(answers []*source.AnswerRow) migration.Matching {
	pairs := make([]migration.MatchPair, 0, len(answers))
	for _, row := range answers {
		pairs = append(pairs, migration.MatchPair{
			Left:  row.Answer,
			Right: row.SortString,
			Value: c.token(),
		})
	}

	shuffled := make([]migration.ShuffledTarget, len(pairs))
	order := make([]int, len(pairs))
	for i := range order {
		order[i] = i
	}
	if c.rng != nil {
		c.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	} else {
		rand.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}
	for position, idx := range order {
		shuffled[position] = migration.ShuffledTarget{
			Value:       pairs[idx].Value,
			MatchTarget: pairs[idx].Right,
			Position:    position,
		}
	}
	return migration.Matching{Pairs: pairs, Shuffled: shuffled}
}

func blankMarker(fill, id string) string {
	return `[fib fill="` + fill + `" id="` + id + `" ]`
}

// firstVariant collapses a pipe separated variant list to its first
// non-empty entry.
func firstVariant(raw string) string {
	for _, part := range strings.Split(raw, "|") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			return trimmed
		}
	}
	return strings.TrimSpace(raw)
}

// DecodeAnswerPayload decodes a raw submitted-answer payload. Newer rows
// are JSON; older rows use the legacy serialization format.
func DecodeAnswerPayload(raw string) (any, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	var decoded any
	if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
		return decoded, nil
	}
	decoded, err := gophp.Unserialize([]byte(trimmed))
	if err != nil {
		return nil, fmt.Errorf("decode answer payload: %w", err)
	}
	return normalizePayload(decoded), nil
}

// normalizePayload rewrites legacy-decoded values into the shapes the JSON
// path produces, so the re-encoders only see string-keyed maps.
func normalizePayload(value any) any {
	switch v := value.(type) {
	case map[any]any:
		out := map[string]any{}
		for key, entry := range v {
			out[fmt.Sprintf("%v", key)] = normalizePayload(entry)
		}
		return out
	case map[string]any:
		out := map[string]any{}
		for key, entry := range v {
			out[key] = normalizePayload(entry)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, entry := range v {
			out[i] = normalizePayload(entry)
		}
		return out
	default:
		return v
	}
}

// ReencodeAnswer maps a decoded legacy payload onto target option tokens.
//
// Selection payloads are per-position flag lists; sorting answers come out
// as stored-order tokens per answered position; blank payloads are entered
// strings walked against the question's blank order; matching answers are
// the full token list.
func ReencodeAnswer(questionType string, options []*target.AnswerOption, blanks []migration.BlankSpec, payload any) any {
	switch questionType {
	case target.QuestionTypeSingleChoice:
		for i, flag := range payloadFlags(payload) {
			if flag && i < len(options) {
				return options[i].Value
			}
		}
		return nil
	case target.QuestionTypeMultiChoice:
		var chosen []string
		for i, flag := range payloadFlags(payload) {
			if flag && i < len(options) {
				chosen = append(chosen, options[i].Value)
			}
		}
		if len(chosen) == 0 {
			return nil
		}
		return chosen
	case target.QuestionTypeSortingChoice:
		// Sorting answers are re-encoded as option tokens in stored order,
		// one per answered position, not in the order the user chose.
		answeredCount := len(payloadInts(payload))
		var ordered []string
		for i, option := range options {
			if i < answeredCount {
				ordered = append(ordered, option.Value)
			}
		}
		if len(ordered) == 0 {
			return nil
		}
		return ordered
	case target.QuestionTypeFillInBlanks:
		entered := payloadStrings(payload)
		if len(entered) == 0 {
			return nil
		}
		answered := map[string]string{}
		for i, text := range entered {
			if i < len(blanks) {
				answered[blanks[i].ID] = text
			}
		}
		if len(answered) == 0 {
			return nil
		}
		return answered
	case target.QuestionTypeMatchingSorting:
		// Matching answers carry the full option token list; the pairing
		// itself is rendered from the options' match targets.
		if payload == nil || len(options) == 0 {
			return nil
		}
		answered := make([]string, 0, len(options))
		for _, option := range options {
			answered = append(answered, option.Value)
		}
		return answered
	default:
		return nil
	}
}

// payloadFlags reads a payload as per-position booleans.
func payloadFlags(payload any) []bool {
	switch v := payload.(type) {
	case []any:
		flags := make([]bool, len(v))
		for i, entry := range v {
			flags[i] = truthy(entry)
		}
		return flags
	case map[string]any:
		return mapToSlice(v, truthy)
	default:
		return nil
	}
}

// payloadInts reads a payload as a position list.
func payloadInts(payload any) []int {
	switch v := payload.(type) {
	case []any:
		ints := make([]int, 0, len(v))
		for _, entry := range v {
			if n, ok := toInt(entry); ok {
				ints = append(ints, n)
			}
		}
		return ints
	case map[string]any:
		return mapToSlice(v, func(entry any) int {
			n, _ := toInt(entry)
			return n
		})
	default:
		return nil
	}
}

// payloadStrings reads a payload as entered text per blank.
func payloadStrings(payload any) []string {
	switch v := payload.(type) {
	case []any:
		texts := make([]string, len(v))
		for i, entry := range v {
			texts[i] = fmt.Sprintf("%v", entry)
		}
		return texts
	case map[string]any:
		return mapToSlice(v, func(entry any) string {
			return fmt.Sprintf("%v", entry)
		})
	case string:
		return []string{v}
	default:
		return nil
	}
}

// mapToSlice orders a numerically keyed decoded map back into a slice.
// Legacy serialization decodes lists as maps keyed by stringified index.
func mapToSlice[T any](m map[string]any, convert func(any) T) []T {
	maxIdx := -1
	byIdx := map[int]any{}
	for key, entry := range m {
		idx, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		byIdx[idx] = entry
		if idx > maxIdx {
			maxIdx = idx
		}
	}
	out := make([]T, maxIdx+1)
	for idx, entry := range byIdx {
		out[idx] = convert(entry)
	}
	return out
}

func truthy(entry any) bool {
	switch v := entry.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case int:
		return v != 0
	case int64:
		return v != 0
	case string:
		return v != "" && v != "0"
	default:
		return false
	}
}

func toInt(entry any) (int, bool) {
	switch v := entry.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// FormatTimeSpent renders elapsed seconds as H:i:s.
func FormatTimeSpent(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}

// Round2 rounds to two decimal places, matching the percentage precision
// the target platform stores.
func Round2(value float64) float64 {
	return math.Round(value*100) / 100
}
