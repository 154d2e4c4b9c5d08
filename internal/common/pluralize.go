// Package common — pluralize.go содержит вспомогательные функции
// для склонения английских существительных по числу.
package common

import "fmt"

// Pluralize возвращает singular для n == 1 (и -1), иначе singular + "s".
//
// Примеры:
//
//	Pluralize(1, "contribution") → "contribution"
//	Pluralize(0, "contribution") → "contributions"
func Pluralize(n int64, singular string) string {
	if n == 1 || n == -1 {
		return singular
	}
	return singular + "s"
}

// FormatCount создаёт строку вида "**3** contributions".
func FormatCount(n int64, singular string) string {
	return fmt.Sprintf("**%d** %s", n, Pluralize(n, singular))
}
