package importer

import (
	"reflect"
	"strings"
	"testing"

	"github.com/prephub/quiz-service/internal/models"
)

func TestStripBrackets(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain value", "hello", "hello"},
		{"wrapped value", "[hello]", "hello"},
		{"wrapped with comma", "[loops, conditions and functions]", "loops, conditions and functions"},
		{"only one pair stripped", "[[nested]]", "[nested]"},
		{"per-part wrapping preserved", "[A]|[B]", "[A]|[B]"},
		{"whole list wrapping stripped", "[A|B|C]", "A|B|C"},
		{"surrounding whitespace", "  [padded]  ", "padded"},
		{"inner whitespace trimmed", "[ padded ]", "padded"},
		{"unmatched open", "[open", "[open"},
		{"unmatched close", "close]", "close]"},
		{"empty", "", ""},
		{"bare pair", "[]", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripBrackets(tt.input); got != tt.want {
				t.Errorf("StripBrackets(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSplitChoices(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"four options", "A|B|C|D", []string{"A", "B", "C", "D"}},
		{"numbers", "2|3|4|5", []string{"2", "3", "4", "5"}},
		{"bracketed options", "[first, option]|[second]", []string{"first, option", "second"}},
		{"trailing pipe", "A|B|", []string{"A", "B"}},
		{"whitespace options", " A | B ", []string{"A", "B"}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SplitChoices(tt.input); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitChoices(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestResolveCorrectChoices(t *testing.T) {
	choices := []string{"A", "B", "C", "D"}

	tests := []struct {
		name    string
		raw     string
		qType   models.QuestionType
		want    []int
		wantErr bool
	}{
		{"comma separated indices", "1,3", models.QuestionMultiple, []int{0, 2}, false},
		{"pipe separated indices", "1|3", models.QuestionMultiple, []int{0, 2}, false},
		{"pipe separated texts", "B|D", models.QuestionMultiple, []int{1, 3}, false},
		{"single index", "3", models.QuestionSingle, []int{2}, false},
		{"single text", "C", models.QuestionSingle, []int{2}, false},
		{"text case insensitive", "c", models.QuestionSingle, []int{2}, false},
		{"bracketed value", "[2]", models.QuestionSingle, []int{1}, false},
		{"duplicate indices collapse", "2,2", models.QuestionMultiple, []int{1}, false},
		{"index zero out of range", "0", models.QuestionSingle, nil, true},
		{"index past end", "5", models.QuestionSingle, nil, true},
		{"unknown text", "E", models.QuestionSingle, nil, true},
		{"empty value", "", models.QuestionSingle, nil, true},
		{"single with two answers", "1,2", models.QuestionSingle, nil, true},
		{"true_false with two answers", "1|2", models.QuestionTrueFalse, nil, true},
		{"multiple with several answers", "1,2,4", models.QuestionMultiple, []int{0, 1, 3}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveCorrectChoices(tt.raw, choices, tt.qType)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got indexes %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ResolveCorrectChoices(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestResolveCorrectChoices_TextWithComma(t *testing.T) {
	choices := []string{"red, green and blue", "cyan and magenta"}

	got, err := ResolveCorrectChoices("red, green and blue", choices, models.QuestionSingle)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []int{0}) {
		t.Errorf("got %v, want [0]", got)
	}
}

func TestMapColumns(t *testing.T) {
	t.Run("canonical names", func(t *testing.T) {
		cols, err := mapColumns([]string{"category", "exam", "question_text", "choices", "correct_choices"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"category", "exam", "question_text", "choices", "correct_choices"} {
			if _, ok := cols[want]; !ok {
				t.Errorf("column %q not mapped", want)
			}
		}
	})

	t.Run("aliases and casing", func(t *testing.T) {
		cols, err := mapColumns([]string{"Cat", "Exam Name", "Question", "Choices", "Answer"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := cols["category"]; !ok {
			t.Error("Cat should map to category")
		}
		if _, ok := cols["exam"]; !ok {
			t.Error("Exam Name should map to exam")
		}
		if _, ok := cols["question_text"]; !ok {
			t.Error("Question should map to question_text")
		}
		if _, ok := cols["correct_choices"]; !ok {
			t.Error("Answer should map to correct_choices")
		}
	})

	t.Run("separate choice columns", func(t *testing.T) {
		cols, err := mapColumns([]string{"exam", "question_text", "Choice 1", "Choice 2", "correct_choices"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !cols.hasChoiceColumns() {
			t.Error("Choice 1/Choice 2 should satisfy the choices requirement")
		}
	})

	t.Run("missing exam column", func(t *testing.T) {
		_, err := mapColumns([]string{"question_text", "choices"})
		if err == nil || err.Kind != MissingRequiredColumn {
			t.Fatalf("expected MissingRequiredColumn, got %v", err)
		}
	})

	t.Run("missing choices column", func(t *testing.T) {
		_, err := mapColumns([]string{"exam", "question_text", "correct_choices"})
		if err == nil || err.Kind != MissingRequiredColumn {
			t.Fatalf("expected MissingRequiredColumn, got %v", err)
		}
	})
}

func parseTestRow(t *testing.T, header []string, fields []string) (*Record, *RowError) {
	t.Helper()
	cols, err := mapColumns(header)
	if err != nil {
		t.Fatalf("mapColumns failed: %v", err)
	}
	return parseRow(cols, fields, 2)
}

func TestParseRow_Defaults(t *testing.T) {
	header := []string{"exam", "question_text", "choices", "correct_choices"}
	rec, rowErr := parseTestRow(t, header, []string{"SAT", "What is 2+2?", "2|3|4|5", "3"})
	if rowErr != nil {
		t.Fatalf("unexpected error: %v", rowErr)
	}

	if rec.Category != "General" {
		t.Errorf("category default = %q, want General", rec.Category)
	}
	if rec.Type != models.QuestionSingle {
		t.Errorf("type default = %q, want single", rec.Type)
	}
	if rec.Difficulty != models.DifficultyMedium {
		t.Errorf("difficulty default = %q, want medium", rec.Difficulty)
	}
	if rec.Points != 1 || rec.Order != 0 || !rec.IsActive {
		t.Errorf("scalar defaults wrong: points=%d order=%d active=%v", rec.Points, rec.Order, rec.IsActive)
	}
	if !reflect.DeepEqual(rec.CorrectIndexes, []int{2}) {
		t.Errorf("correct indexes = %v, want [2]", rec.CorrectIndexes)
	}
}

func TestParseRow_Errors(t *testing.T) {
	header := []string{"exam", "question_text", "question_type", "difficulty", "is_active", "choices", "correct_choices"}

	tests := []struct {
		name   string
		fields []string
		kind   ErrorKind
	}{
		{"empty exam", []string{"", "Q?", "", "", "", "A|B", "1"}, MissingRequiredColumn},
		{"empty question text", []string{"SAT", "", "", "", "", "A|B", "1"}, MissingRequiredColumn},
		{"bad question type", []string{"SAT", "Q?", "essay", "", "", "A|B", "1"}, InvalidEnumValue},
		{"bad difficulty", []string{"SAT", "Q?", "", "extreme", "", "A|B", "1"}, InvalidEnumValue},
		{"bad is_active", []string{"SAT", "Q?", "", "", "maybe", "A|B", "1"}, InvalidEnumValue},
		{"one choice only", []string{"SAT", "Q?", "", "", "", "A", "1"}, MalformedChoiceList},
		{"empty choices", []string{"SAT", "Q?", "", "", "", "", "1"}, MalformedChoiceList},
		{"correct index out of range", []string{"SAT", "Q?", "", "", "", "A|B", "9"}, UnresolvableCorrectChoice},
		{"correct text unknown", []string{"SAT", "Q?", "", "", "", "A|B", "Z"}, UnresolvableCorrectChoice},
		{"single with two correct", []string{"SAT", "Q?", "single", "", "", "A|B|C", "1,2"}, UnresolvableCorrectChoice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, rowErr := parseTestRow(t, header, tt.fields)
			if rowErr == nil {
				t.Fatal("expected a row error")
			}
			if rowErr.Kind != tt.kind {
				t.Errorf("kind = %s, want %s (message: %s)", rowErr.Kind, tt.kind, rowErr.Message)
			}
			if rowErr.Row != 2 {
				t.Errorf("row = %d, want 2", rowErr.Row)
			}
		})
	}
}

func TestParseRow_BlankRowSkipped(t *testing.T) {
	header := []string{"exam", "question_text", "choices", "correct_choices"}
	rec, rowErr := parseTestRow(t, header, []string{"", "", "", ""})
	if rec != nil || rowErr != nil {
		t.Errorf("blank row should be skipped, got rec=%v err=%v", rec, rowErr)
	}
}

func TestParseRow_BracketWrappedFields(t *testing.T) {
	header := []string{"exam", "question_text", "explanation", "choices", "correct_choices"}
	rec, rowErr := parseTestRow(t, header, []string{
		"[AWS SAA]",
		"[Which services are serverless, managed, and regional?]",
		"[Lambda, DynamoDB and S3 are managed services]",
		"[Lambda, EC2]|[DynamoDB]|[EBS]",
		"1,2",
	})
	if rowErr != nil {
		t.Fatalf("unexpected error: %v", rowErr)
	}

	for name, got := range map[string]string{
		"exam":          rec.Exam,
		"question_text": rec.QuestionText,
		"explanation":   rec.Explanation,
	} {
		if strings.ContainsAny(got, "[]") {
			t.Errorf("%s still contains brackets: %q", name, got)
		}
	}
	if rec.Type != models.QuestionSingle {
		t.Fatalf("unexpected type %q", rec.Type)
	}
	want := []string{"Lambda, EC2", "DynamoDB", "EBS"}
	if !reflect.DeepEqual(rec.Choices, want) {
		t.Errorf("choices = %v, want %v", rec.Choices, want)
	}
}

func TestDecodeCSV_BracketProtectedCommas(t *testing.T) {
	input := "category,exam,question_text,choices,correct_choices\n" +
		"[Math, Advanced],SAT,[What is 2+2, assuming base 10?],2|3|4|5,3\n"

	header, rows, err := decodeCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("decodeCSV failed: %v", err)
	}
	if len(header) != 5 {
		t.Fatalf("header has %d fields, want 5", len(header))
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}

	cols, rowErr := mapColumns(header)
	if rowErr != nil {
		t.Fatalf("mapColumns failed: %v", rowErr)
	}
	rec, rowErr := parseRow(cols, rows[0], 2)
	if rowErr != nil {
		t.Fatalf("parseRow failed: %v", rowErr)
	}

	if rec.Category != "Math, Advanced" {
		t.Errorf("category = %q, want %q", rec.Category, "Math, Advanced")
	}
	if rec.QuestionText != "What is 2+2, assuming base 10?" {
		t.Errorf("question_text = %q", rec.QuestionText)
	}
}

func TestDecodeCSV_UnevenRows(t *testing.T) {
	input := "exam,question_text,choices,correct_choices,explanation\n" +
		"SAT,Q1,A|B,1\n"

	header, rows, err := decodeCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("decodeCSV failed: %v", err)
	}

	cols, rowErr := mapColumns(header)
	if rowErr != nil {
		t.Fatalf("mapColumns failed: %v", rowErr)
	}
	rec, rowErr := parseRow(cols, rows[0], 2)
	if rowErr != nil {
		t.Fatalf("parseRow failed: %v", rowErr)
	}
	if rec.Explanation != "" {
		t.Errorf("missing trailing field should be empty, got %q", rec.Explanation)
	}
}
