package toolbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/pretty"
)

const (
	// DefaultIndent is the indent width used when none is given.
	DefaultIndent = 2
	maxIndent     = 10
)

// ErrEmptyInput is returned when the JSON input is blank.
var ErrEmptyInput = errors.New("input is empty")

// SyntaxError locates a JSON syntax error. Line and Column are 1-based.
type SyntaxError struct {
	Line   int
	Column int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Msg)
}

// ValidateJSON reports whether input is a single valid JSON value.
func ValidateJSON(input string) error {
	if strings.TrimSpace(input) == "" {
		return ErrEmptyInput
	}
	var v any
	if err := json.Unmarshal([]byte(input), &v); err != nil {
		var se *json.SyntaxError
		if errors.As(err, &se) {
			return locate(input, se)
		}
		return err
	}
	return nil
}

// FormatJSON pretty-prints input with indent spaces per level. Key order and
// number text are preserved. An indent of zero compresses.
func FormatJSON(input string, indent int) (string, error) {
	if err := ValidateJSON(input); err != nil {
		return "", err
	}
	return format([]byte(input), clampIndent(indent)), nil
}

// CompressJSON removes all insignificant whitespace.
func CompressJSON(input string) (string, error) {
	if err := ValidateJSON(input); err != nil {
		return "", err
	}
	return string(pretty.Ugly([]byte(input))), nil
}

// UnescapeJSON turns an escaped JSON document back into formatted JSON. It
// accepts either a quoted JSON string literal or text with backslash escapes.
func UnescapeJSON(input string, indent int) (string, error) {
	indent = clampIndent(indent)

	candidate := input
	if trimmed := strings.TrimSpace(input); len(trimmed) >= 2 && strings.HasPrefix(trimmed, `"`) && strings.HasSuffix(trimmed, `"`) {
		var inner string
		if err := json.Unmarshal([]byte(trimmed), &inner); err == nil {
			candidate = inner
		}
	}
	if ValidateJSON(candidate) == nil {
		return format([]byte(candidate), indent), nil
	}

	replaced := strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\r`, "\r").Replace(input)
	replaced = strings.ReplaceAll(replaced, `\"`, `"`)
	replaced = strings.ReplaceAll(replaced, `\'`, `'`)
	replaced = strings.ReplaceAll(replaced, `\\`, `\`)
	if err := ValidateJSON(replaced); err != nil {
		return "", fmt.Errorf("still not valid JSON after unescaping: %w", err)
	}
	return format([]byte(replaced), indent), nil
}

func format(src []byte, indent int) string {
	if indent == 0 {
		return string(pretty.Ugly(src))
	}
	out := pretty.PrettyOptions(src, &pretty.Options{
		Width:  -1,
		Indent: strings.Repeat(" ", indent),
	})
	return strings.TrimRight(string(out), "\n")
}

func clampIndent(indent int) int {
	switch {
	case indent < 0:
		return DefaultIndent
	case indent > maxIndent:
		return maxIndent
	default:
		return indent
	}
}

func locate(input string, se *json.SyntaxError) *SyntaxError {
	offset := int(se.Offset)
	if offset > 0 {
		offset--
	}
	if offset > len(input) {
		offset = len(input)
	}
	before := input[:offset]
	line := strings.Count(before, "\n") + 1
	lastLine := before[strings.LastIndex(before, "\n")+1:]
	return &SyntaxError{
		Line:   line,
		Column: utf8.RuneCountInString(lastLine) + 1,
		Msg:    se.Error(),
	}
}
