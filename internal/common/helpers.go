// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: форматирование длительностей и дат, разбор списков из окружения,
// работа с ключами документов.
package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatCooldown форматирует оставшиеся секунды кулдауна.
//
// Правила:
//   - нулевые компоненты опускаются
//   - секунды не показываются, если есть часы
//
// Примеры:
//
//	FormatCooldown(3600) → "1h"
//	FormatCooldown(3725) → "1h 2m"
//	FormatCooldown(125)  → "2m 5s"
//	FormatCooldown(0)    → ""
func FormatCooldown(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	minutes, secs := seconds/60, seconds%60
	hours, minutes := minutes/60, minutes%60

	var parts []string
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if secs > 0 && hours == 0 {
		parts = append(parts, fmt.Sprintf("%ds", secs))
	}
	return strings.Join(parts, " ")
}

// FormatDateTime форматирует время в формат "2006-01-02 15:04" (UTC).
// Используется в футерах embed'ов.
func FormatDateTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04")
}

// DocKey собирает составной ключ документа: {guildId}_{userId}, {guildId}_{channelId} и т.д.
func DocKey(parts ...string) string {
	return strings.Join(parts, "_")
}

// TruncateRunes обрезает строку до max символов (не байт).
func TruncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

// SplitCSV разбирает строку "a, b ,c" в []string{"a","b","c"}, пустые элементы пропускаются.
func SplitCSV(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SplitIDs разбирает CSV из snowflake-ID. Каждый элемент обязан быть числом.
func SplitIDs(s string) ([]string, error) {
	ids := SplitCSV(s)
	for _, id := range ids {
		if err := ValidateSnowflake(id); err != nil {
			return nil, fmt.Errorf("bad id %q: %w", id, err)
		}
	}
	return ids, nil
}

// ValidateSnowflake проверяет, что строка — положительное 64-битное число.
func ValidateSnowflake(id string) error {
	v, err := strconv.ParseUint(strings.TrimSpace(id), 10, 64)
	if err != nil || v == 0 {
		return ErrInvalidUserID
	}
	return nil
}
