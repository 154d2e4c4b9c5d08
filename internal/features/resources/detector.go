// Package resources — detector.go определяет, содержит ли сообщение благодарность.
package resources

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultTriggers — слова благодарности по умолчанию.
var DefaultTriggers = []string{"thanks", "ty", "tysm", "thank you", "appreciated", "thx", "helpful"}

// Detector ищет слова-триггеры в тексте.
type Detector struct {
	triggers []string
}

// NewDetector создаёт детектор. Пустой список = DefaultTriggers.
func NewDetector(triggers []string) *Detector {
	if len(triggers) == 0 {
		triggers = DefaultTriggers
	}
	lowered := make([]string, 0, len(triggers))
	for _, t := range triggers {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			lowered = append(lowered, t)
		}
	}
	return &Detector{triggers: lowered}
}

// ContainsTrigger проверяет, есть ли в тексте слово-триггер целиком.
// Регистр не важен. Слева и справа от совпадения должен быть край строки
// или не буквенно-цифровой символ: "thx!" — да, "ethxyz" — нет.
func (d *Detector) ContainsTrigger(text string) bool {
	lower := strings.ToLower(text)
	for _, trigger := range d.triggers {
		start := 0
		for start <= len(lower) {
			idx := strings.Index(lower[start:], trigger)
			if idx < 0 {
				break
			}
			pos := start + idx
			end := pos + len(trigger)
			if boundaryBefore(lower, pos) && boundaryAfter(lower, end) {
				return true
			}
			// сдвигаемся на один символ, а не на длину триггера
			_, size := utf8.DecodeRuneInString(lower[pos:])
			start = pos + size
		}
	}
	return false
}

func boundaryBefore(s string, pos int) bool {
	if pos == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:pos])
	return !isAlnum(r)
}

func boundaryAfter(s string, end int) bool {
	if end >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[end:])
	return !isAlnum(r)
}

func isAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
