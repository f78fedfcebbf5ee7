package service

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/samber/lo"
)

var (
	// [маркер] [(]буква|цифра ) . : текст
	// После "." и ":" нужен пробел, иначе "3.14" превратится в вариант ответа.
	optionLinePattern = regexp.MustCompile(`^(?:(\*+|✓|✔|✅|☑)\s*|([xX])\s+)?\(?([A-Ja-j1-9])\s*(?:\)|[.:](?:\s|$))\s*(.*)$`)

	leadingMarkerPattern  = regexp.MustCompile(`^(?:\*+|✓|✔|✅|☑)\s*`)
	// "- correct" требует пробела перед тире, иначе "half-correct" потеряет хвост
	trailingMarkerPattern = regexp.MustCompile(`(?i)(?:\s*(?:\*+|✓|✔|✅|☑|\(correct\)|\[correct\])|\s+[-–—]\s*correct)$`)

	answerDeclPattern = regexp.MustCompile(`(?i)^(?:correct\s+answer|correct|answer|ans)\s*[:=\-–]?\s*\(?([a-j1-9])\)?\.?$`)

	questionPrefixPattern = regexp.MustCompile(`(?i)^q(?:uestion)?\s*\d*\s*[.:)]\s*`)
)

// WarningKind - вид некритичного замечания разбора
type WarningKind int

const (
	WarnIgnoredLine WarningKind = iota + 1
	WarnNoQuestionLine
	WarnMarkerOnQuestion
	WarnEmptyOption
	WarnUnknownAnswer
	WarnDuplicateOption
	WarnMultipleMarkers
)

// Warning - замечание разбора. Detail - строка, метка или текст варианта, к которому оно относится.
// Формулировку для пользователя выбирает вызывающий код.
type Warning struct {
	Kind   WarningKind
	Detail string
}

// ParseResult - результат разбора. Черновик возвращается всегда, даже при Err != nil.
type ParseResult struct {
	Draft    QuizDraft
	Warnings []Warning
	Err      error
}

type optionLine struct {
	label   string
	text    string
	correct bool
}

// ParseQuiz разбирает распознанный или набранный текст в черновик вопроса.
//
// Вопрос - все строки до первой строки-варианта, склеенные через пробел.
// Если таких строк нет, вопросом становится текст первой строки-варианта.
// Строки после первого варианта, не похожие на вариант или объявление ответа,
// считаются шумом OCR и попадают в Warnings.
func ParseQuiz(raw string, source Source) ParseResult {
	res := ParseResult{Draft: QuizDraft{Source: source}}

	var (
		questionParts []string
		options       []string
		labels        []string
		declared      []string
		seenOption    bool
	)
	marked := make(map[int]bool)

	for _, line := range splitLines(raw) {
		if seenOption {
			if m := answerDeclPattern.FindStringSubmatch(line); m != nil {
				declared = append(declared, strings.ToLower(m[1]))
				continue
			}
		}

		opt, ok := parseOptionLine(line)
		if !ok {
			if seenOption {
				res.Warnings = append(res.Warnings, Warning{Kind: WarnIgnoredLine, Detail: line})
				continue
			}
			questionParts = append(questionParts, line)
			continue
		}

		if !seenOption && len(questionParts) == 0 {
			seenOption = true
			questionParts = append(questionParts, opt.text)
			res.Warnings = append(res.Warnings, Warning{Kind: WarnNoQuestionLine, Detail: opt.text})
			if opt.correct {
				res.Warnings = append(res.Warnings, Warning{Kind: WarnMarkerOnQuestion})
			}
			continue
		}
		seenOption = true

		if opt.text == "" {
			res.Warnings = append(res.Warnings, Warning{Kind: WarnEmptyOption, Detail: strings.ToUpper(opt.label)})
			continue
		}
		if opt.correct {
			marked[len(options)] = true
		}
		options = append(options, opt.text)
		labels = append(labels, opt.label)
	}

	for _, label := range declared {
		idx, ok := resolveLabel(label, labels)
		if !ok {
			res.Warnings = append(res.Warnings, Warning{Kind: WarnUnknownAnswer, Detail: strings.ToUpper(label)})
			continue
		}
		marked[idx] = true
	}

	res.Draft.Question = cleanQuestion(strings.Join(questionParts, " "))
	res.Draft.Options = options
	res.Warnings = append(res.Warnings, duplicateWarnings(options)...)

	switch {
	case len(options) < 2:
		res.Err = ErrInsufficientOptions
	case len(marked) > 1:
		res.Err = ErrAmbiguousAnswer
	case len(marked) == 1:
		for idx := range marked {
			res.Draft.CorrectIndex = IntPtr(idx)
		}
	}

	return res
}

// ParseOptions разбирает список вариантов, по одному на строку.
// Нумерация и маркер правильного ответа необязательны.
func ParseOptions(raw string) ([]string, *int, []Warning) {
	var (
		options  []string
		warnings []Warning
		correct  *int
	)
	markedCount := 0

	for _, line := range splitLines(raw) {
		text, isCorrect := line, false
		if opt, ok := parseOptionLine(line); ok {
			text, isCorrect = opt.text, opt.correct
		} else {
			text, isCorrect = stripMarkers(line)
		}
		if text == "" {
			continue
		}
		if isCorrect {
			markedCount++
			correct = IntPtr(len(options))
		}
		options = append(options, text)
	}

	if markedCount > 1 {
		correct = nil
		warnings = append(warnings, Warning{Kind: WarnMultipleMarkers})
	}
	warnings = append(warnings, duplicateWarnings(options)...)
	return options, correct, warnings
}

// FormatOptions выводит варианты в виде "A) ...", который ParseOptions читает обратно
func FormatOptions(options []string) string {
	var sb strings.Builder
	for i, opt := range options {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(OptionLabel(i))
		sb.WriteString(") ")
		sb.WriteString(opt)
	}
	return sb.String()
}

// OptionLabel возвращает букву варианта: A, B, C...
func OptionLabel(i int) string {
	if i < 0 || i >= 26 {
		return fmt.Sprintf("%d", i+1)
	}
	return string(rune('A' + i))
}

// ParseAnswerLabel понимает "B", "b)", "2" и возвращает индекс варианта
func ParseAnswerLabel(s string, count int) (int, bool) {
	s = strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "().:"))
	if len([]rune(s)) != 1 {
		return 0, false
	}
	r := unicode.ToLower([]rune(s)[0])
	var idx int
	switch {
	case r >= 'a' && r <= 'z':
		idx = int(r - 'a')
	case r >= '1' && r <= '9':
		idx = int(r - '1')
	default:
		return 0, false
	}
	if idx >= count {
		return 0, false
	}
	return idx, true
}

func parseOptionLine(line string) (optionLine, bool) {
	m := optionLinePattern.FindStringSubmatch(line)
	if m == nil {
		return optionLine{}, false
	}
	text, correct := stripMarkers(m[4])
	return optionLine{
		label:   strings.ToLower(m[3]),
		text:    text,
		correct: correct || m[1] != "" || m[2] != "",
	}, true
}

func stripMarkers(text string) (string, bool) {
	correct := false
	if loc := leadingMarkerPattern.FindStringIndex(text); loc != nil {
		text = text[loc[1]:]
		correct = true
	}
	if loc := trailingMarkerPattern.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
		correct = true
	}
	return strings.TrimSpace(text), correct
}

func resolveLabel(label string, labels []string) (int, bool) {
	if idx := lo.IndexOf(labels, label); idx >= 0 {
		return idx, true
	}
	return ParseAnswerLabel(label, len(labels))
}

func cleanQuestion(q string) string {
	q = questionPrefixPattern.ReplaceAllString(q, "")
	return strings.TrimSpace(q)
}

func duplicateWarnings(options []string) []Warning {
	dups := lo.FindDuplicatesBy(options, strings.ToLower)
	return lo.Map(dups, func(d string, _ int) Warning {
		return Warning{Kind: WarnDuplicateOption, Detail: d}
	})
}

// splitLines нормализует пробелы и отбрасывает пустые строки и строки без букв и цифр
func splitLines(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")

	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" || !hasLetterOrDigit(line) {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func hasLetterOrDigit(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) >= 0
}
