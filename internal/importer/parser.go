package importer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/prephub/quiz-service/internal/models"
)

// Record is one normalized question row, ready for the upsert path.
// Pointer metadata fields distinguish "column absent or empty" from an
// explicit value: only explicit values overwrite existing exam/topic rows.
type Record struct {
	Category        string
	Exam            string
	ExamDescription string
	DurationMinutes *int
	TotalQuestions  *int
	PassingScore    *int

	Topic            string
	TopicDescription string
	TopicOrder       *int

	QuestionText string
	Type         models.QuestionType
	Difficulty   models.DifficultyLevel
	Explanation  string
	Points       int
	Order        int
	IsActive     bool

	Choices        []string
	CorrectIndexes []int // 0-based, in choice order
}

// Column aliases accepted in header rows, keyed by canonical name.
// Header matching is case-insensitive with spaces mapped to underscores.
var columnAliases = map[string][]string{
	"category":          {"category", "cat"},
	"exam":              {"exam", "exam_name"},
	"exam_description":  {"exam_description"},
	"duration_minutes":  {"duration_minutes", "duration"},
	"total_questions":   {"total_questions"},
	"passing_score":     {"passing_score"},
	"topic":             {"topic"},
	"topic_description": {"topic_description"},
	"topic_order":       {"topic_order"},
	"question_text":     {"question_text", "question", "questiontext"},
	"question_type":     {"question_type", "type", "qtype"},
	"difficulty":        {"difficulty", "diff"},
	"explanation":       {"explanation", "expl"},
	"points":            {"points", "point"},
	"order":             {"order"},
	"is_active":         {"is_active", "active"},
	"choices":           {"choices"},
	"correct_choices":   {"correct_choices", "correct_answer", "correct", "answer"},
}

const maxChoiceColumns = 6

// normalizeColumnName lowercases, trims and replaces spaces with underscores.
func normalizeColumnName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// columnMap maps canonical column names to header positions.
type columnMap map[string]int

// mapColumns resolves header names to canonical columns. Unknown columns are
// ignored. Returns a RowError (row 1) if a required column is missing.
func mapColumns(header []string) (columnMap, *RowError) {
	normalized := make(map[string]int, len(header))
	for i, name := range header {
		normalized[normalizeColumnName(StripBrackets(name))] = i
	}

	cols := make(columnMap)
	for canonical, aliases := range columnAliases {
		for _, alias := range aliases {
			if idx, ok := normalized[alias]; ok {
				cols[canonical] = idx
				break
			}
		}
	}

	// Separate choice_1..choice_N columns as an alternative to "choices"
	for i := 1; i <= maxChoiceColumns; i++ {
		for _, alias := range []string{
			fmt.Sprintf("choice_%d", i),
			fmt.Sprintf("choice%d", i),
			fmt.Sprintf("option_%d", i),
			fmt.Sprintf("option%d", i),
		} {
			if idx, ok := normalized[alias]; ok {
				cols[fmt.Sprintf("choice_%d", i)] = idx
				break
			}
		}
	}

	for _, required := range []string{"exam", "question_text"} {
		if _, ok := cols[required]; !ok {
			return nil, newRowError(1, MissingRequiredColumn, "column %q not found in header", required)
		}
	}

	if !cols.hasChoiceColumns() {
		return nil, newRowError(1, MissingRequiredColumn,
			"no choices column found; need a pipe-separated %q column or separate choice_1..choice_%d columns",
			"choices", maxChoiceColumns)
	}

	return cols, nil
}

func (c columnMap) hasChoiceColumns() bool {
	if _, ok := c["choices"]; ok {
		return true
	}
	for i := 1; i <= maxChoiceColumns; i++ {
		if _, ok := c[fmt.Sprintf("choice_%d", i)]; ok {
			return true
		}
	}
	return false
}

// field returns the bracket-stripped, trimmed value of a canonical column,
// or "" when the column is absent or the row is short.
func (c columnMap) field(fields []string, name string) string {
	idx, ok := c[name]
	if !ok || idx >= len(fields) {
		return ""
	}
	return StripBrackets(fields[idx])
}

// StripBrackets removes exactly one matching pair of square brackets
// wrapping the whole value. Values with embedded commas are wrapped this way
// in source files; the unwrapped content is what gets persisted. The pair is
// stripped only when the leading bracket closes at the final character, so a
// value like "[A]|[B]" keeps its per-part brackets for later splitting.
func StripBrackets(value string) string {
	v := strings.TrimSpace(value)
	if len(v) < 2 || v[0] != '[' || v[len(v)-1] != ']' {
		return v
	}
	depth := 1
	for i := 1; i < len(v)-1; i++ {
		switch v[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return v
			}
		}
	}
	return strings.TrimSpace(v[1 : len(v)-1])
}

// SplitChoices splits a pipe-separated choices field into ordered option
// texts, dropping empty entries.
func SplitChoices(raw string) []string {
	var choices []string
	for _, part := range strings.Split(raw, "|") {
		if text := StripBrackets(part); text != "" {
			choices = append(choices, text)
		}
	}
	return choices
}

// ResolveCorrectChoices resolves a correct_choices value against the ordered
// choice texts and returns 0-based indexes. Three forms are accepted:
// comma-separated 1-based indices ("1,3"), pipe-separated 1-based indices
// ("1|3"), and pipe-separated literal choice texts ("B|D"). Form detection is
// by token content: all-numeric tokens are indices, anything else is matched
// case-insensitively against the choice texts.
func ResolveCorrectChoices(raw string, choices []string, qType models.QuestionType) ([]int, error) {
	value := StripBrackets(raw)
	if value == "" {
		return nil, fmt.Errorf("correct_choices is empty")
	}

	var tokens []string
	switch {
	case strings.Contains(value, "|"):
		tokens = splitTokens(value, "|")
	case strings.Contains(value, ","):
		tokens = splitTokens(value, ",")
		// Comma form only carries indices; a non-numeric value with commas
		// is a single literal text (commas allowed inside brackets).
		if !allNumeric(tokens) {
			tokens = []string{value}
		}
	default:
		tokens = []string{value}
	}

	var indexes []int
	if allNumeric(tokens) {
		for _, tok := range tokens {
			n, _ := strconv.Atoi(tok)
			if n < 1 || n > len(choices) {
				return nil, fmt.Errorf("choice index %d out of range 1..%d", n, len(choices))
			}
			indexes = appendUnique(indexes, n-1)
		}
	} else {
		for _, tok := range tokens {
			idx := matchChoiceText(tok, choices)
			if idx < 0 {
				return nil, fmt.Errorf("%q does not match any choice", tok)
			}
			indexes = appendUnique(indexes, idx)
		}
	}

	switch qType {
	case models.QuestionSingle, models.QuestionTrueFalse:
		if len(indexes) != 1 {
			return nil, fmt.Errorf("%s question must have exactly one correct choice, got %d", qType, len(indexes))
		}
	case models.QuestionMultiple:
		if len(indexes) == 0 {
			return nil, fmt.Errorf("multiple question must have at least one correct choice")
		}
	}

	return indexes, nil
}

func splitTokens(value, sep string) []string {
	var tokens []string
	for _, part := range strings.Split(value, sep) {
		if tok := strings.TrimSpace(part); tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

func allNumeric(tokens []string) bool {
	if len(tokens) == 0 {
		return false
	}
	for _, tok := range tokens {
		if _, err := strconv.Atoi(tok); err != nil {
			return false
		}
	}
	return true
}

func matchChoiceText(token string, choices []string) int {
	want := strings.ToLower(strings.TrimSpace(token))
	for i, choice := range choices {
		if strings.ToLower(strings.TrimSpace(choice)) == want {
			return i
		}
	}
	return -1
}

func appendUnique(indexes []int, idx int) []int {
	for _, existing := range indexes {
		if existing == idx {
			return indexes
		}
	}
	return append(indexes, idx)
}

// parseRow converts one data row into a Record. A nil, nil return means the
// row was blank and should be skipped. rowNum is 1-based including the header.
func parseRow(cols columnMap, fields []string, rowNum int) (*Record, *RowError) {
	if isBlankRow(fields) {
		return nil, nil
	}

	rec := &Record{
		Category:         cols.field(fields, "category"),
		Exam:             cols.field(fields, "exam"),
		ExamDescription:  cols.field(fields, "exam_description"),
		Topic:            cols.field(fields, "topic"),
		TopicDescription: cols.field(fields, "topic_description"),
		QuestionText:     cols.field(fields, "question_text"),
		Explanation:      cols.field(fields, "explanation"),
	}

	if rec.Category == "" {
		rec.Category = "General"
	}
	if rec.Exam == "" {
		return nil, newRowError(rowNum, MissingRequiredColumn, "exam name is empty")
	}
	if rec.QuestionText == "" {
		return nil, newRowError(rowNum, MissingRequiredColumn, "question_text is empty")
	}

	// Enums: empty means default, anything else must be in the recognized set.
	qType := strings.ToLower(cols.field(fields, "question_type"))
	if qType == "" {
		rec.Type = models.QuestionSingle
	} else if models.ValidQuestionType(models.QuestionType(qType)) {
		rec.Type = models.QuestionType(qType)
	} else {
		return nil, newRowError(rowNum, InvalidEnumValue, "question_type %q not in [single multiple true_false]", qType)
	}

	difficulty := strings.ToLower(cols.field(fields, "difficulty"))
	if difficulty == "" {
		rec.Difficulty = models.DifficultyMedium
	} else if models.ValidDifficulty(models.DifficultyLevel(difficulty)) {
		rec.Difficulty = models.DifficultyLevel(difficulty)
	} else {
		return nil, newRowError(rowNum, InvalidEnumValue, "difficulty %q not in [easy medium hard]", difficulty)
	}

	switch strings.ToLower(cols.field(fields, "is_active")) {
	case "", "true", "1", "yes", "y":
		rec.IsActive = true
	case "false", "0", "no", "n":
		rec.IsActive = false
	default:
		return nil, newRowError(rowNum, InvalidEnumValue, "is_active %q is not a recognized boolean", cols.field(fields, "is_active"))
	}

	rec.Points = parseIntOrDefault(cols.field(fields, "points"), 1)
	rec.Order = parseIntOrDefault(cols.field(fields, "order"), 0)

	rec.DurationMinutes = parseOptionalInt(cols.field(fields, "duration_minutes"))
	rec.TotalQuestions = parseOptionalInt(cols.field(fields, "total_questions"))
	rec.PassingScore = parseOptionalInt(cols.field(fields, "passing_score"))
	rec.TopicOrder = parseOptionalInt(cols.field(fields, "topic_order"))

	rec.Choices = collectChoices(cols, fields)
	if len(rec.Choices) < 2 {
		return nil, newRowError(rowNum, MalformedChoiceList, "need at least 2 choices, got %d", len(rec.Choices))
	}

	indexes, err := ResolveCorrectChoices(cols.field(fields, "correct_choices"), rec.Choices, rec.Type)
	if err != nil {
		return nil, newRowError(rowNum, UnresolvableCorrectChoice, "%v", err)
	}
	rec.CorrectIndexes = indexes

	return rec, nil
}

func collectChoices(cols columnMap, fields []string) []string {
	if raw := cols.field(fields, "choices"); raw != "" {
		return SplitChoices(raw)
	}

	var choices []string
	for i := 1; i <= maxChoiceColumns; i++ {
		if text := cols.field(fields, fmt.Sprintf("choice_%d", i)); text != "" {
			choices = append(choices, text)
		}
	}
	return choices
}

func isBlankRow(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func parseIntOrDefault(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

func parseOptionalInt(value string) *int {
	if value == "" {
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return nil
	}
	return &n
}
