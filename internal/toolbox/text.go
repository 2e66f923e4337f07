// Package toolbox holds the stateless text and JSON helpers behind /api/toolbox.
package toolbox

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxTextLength is the largest input, in characters, accepted by ConvertText.
const MaxTextLength = 5000

var (
	// ErrUnknownOperation is returned for an operation name that is not registered.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrInputTooLong is returned when text exceeds MaxTextLength characters.
	ErrInputTooLong = fmt.Errorf("input exceeds %d characters", MaxTextLength)
)

var (
	reWordStart   = regexp.MustCompile(`\b\w`)
	reSentence    = regexp.MustCompile(`[.!?:]\s*[a-z]`)
	reSpaces      = regexp.MustCompile(`\s+`)
	reCamelJoin   = regexp.MustCompile(`[_\s]+.`)
	reUpper       = regexp.MustCompile(`([A-Z])`)
	reLineBreaks  = regexp.MustCompile(`\n+`)
	reSymbols     = regexp.MustCompile(`[^\w\s]`)
	titleMinorSet = map[string]bool{
		"a": true, "an": true, "and": true, "as": true, "at": true, "but": true,
		"by": true, "for": true, "from": true, "in": true, "nor": true, "of": true,
		"on": true, "or": true, "the": true, "to": true, "with": true,
	}
)

var textOps = map[string]func(string) string{
	"upper":                strings.ToUpper,
	"lower":                strings.ToLower,
	"capitalize-words":     func(s string) string { return reWordStart.ReplaceAllStringFunc(s, strings.ToUpper) },
	"lowercase-words":      func(s string) string { return reWordStart.ReplaceAllStringFunc(s, strings.ToLower) },
	"sentence":             sentenceCase,
	"title":                titleCase,
	"space-to-underscore":  func(s string) string { return reSpaces.ReplaceAllString(s, "_") },
	"underscore-to-camel":  underscoreToCamel,
	"camel-to-underscore":  camelToUnderscore,
	"camel-to-space":       func(s string) string { return strings.TrimSpace(reUpper.ReplaceAllString(s, " ${1}")) },
	"space-to-hyphen":      func(s string) string { return reSpaces.ReplaceAllString(s, "-") },
	"underscore-to-hyphen": func(s string) string { return strings.ReplaceAll(s, "_", "-") },
	"hyphen-to-underscore": func(s string) string { return strings.ReplaceAll(s, "-", "_") },
	"underscore-to-space":  func(s string) string { return strings.ReplaceAll(s, "_", " ") },
	"underscore-to-dot":    func(s string) string { return strings.ReplaceAll(s, "_", ".") },
	"dot-to-underscore":    func(s string) string { return strings.ReplaceAll(s, ".", "_") },
	"space-to-linebreak":   func(s string) string { return reSpaces.ReplaceAllString(s, "\n") },
	"linebreak-to-space":   func(s string) string { return reLineBreaks.ReplaceAllString(s, " ") },
	"clear-symbols":        func(s string) string { return reSymbols.ReplaceAllString(s, "") },
	"clear-spaces":         func(s string) string { return reSpaces.ReplaceAllString(s, "") },
	"clear-linebreaks":     func(s string) string { return reLineBreaks.ReplaceAllString(s, "") },
}

// TextOperations lists the registered operation names in sorted order.
func TextOperations() []string {
	names := make([]string, 0, len(textOps))
	for name := range textOps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ConvertText applies the named operation to text.
func ConvertText(op, text string) (string, error) {
	fn, ok := textOps[op]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownOperation, op)
	}
	if utf8.RuneCountInString(text) > MaxTextLength {
		return "", ErrInputTooLong
	}
	return fn(text), nil
}

// sentenceCase upper-cases a lowercase letter that follows sentence punctuation.
func sentenceCase(s string) string {
	return reSentence.ReplaceAllStringFunc(s, func(m string) string {
		return m[:len(m)-1] + strings.ToUpper(m[len(m)-1:])
	})
}

// titleCase lower-cases the text and capitalizes every word except minor
// words in the middle.
func titleCase(s string) string {
	words := reSpaces.Split(strings.ToLower(s), -1)
	for i, w := range words {
		if i != 0 && i != len(words)-1 && titleMinorSet[w] {
			continue
		}
		words[i] = upperFirst(w)
	}
	return strings.Join(words, " ")
}

func underscoreToCamel(s string) string {
	s = reCamelJoin.ReplaceAllStringFunc(s, func(m string) string {
		r, _ := utf8.DecodeLastRuneInString(m)
		return string(unicode.ToUpper(r))
	})
	return lowerFirst(s)
}

func camelToUnderscore(s string) string {
	s = strings.ToLower(reUpper.ReplaceAllString(s, "_${1}"))
	return strings.TrimPrefix(s, "_")
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || r == '\n' {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
