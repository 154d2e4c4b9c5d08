// Package leaderboard — render.go готовит текст страницы для embed'а.
package leaderboard

import (
	"fmt"

	"serotonyl.ru/resource-bot/internal/common"
)

// Title — заголовок embed'а рейтинга.
const Title = "📚 Resource Repository Leaderboard"

// Field — строка embed'а.
type Field struct {
	Name  string
	Value string
}

// Medal возвращает медаль для первых трёх мест и "N." для остальных.
func Medal(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return fmt.Sprintf("%d.", rank)
	}
}

// Fields превращает страницу в строки embed'а. displayName возвращает
// имя участника или "" — тогда выводится "User <id>".
func Fields(page Page, displayName func(userID string) string) []Field {
	if len(page.Entries) == 0 {
		return []Field{{Name: "No entries found", Value: "Be the first to contribute!"}}
	}

	out := make([]Field, 0, len(page.Entries))
	for i, e := range page.Entries {
		name := ""
		if displayName != nil {
			name = displayName(e.UserID)
		}
		if name == "" {
			name = "User " + e.UserID
		}
		out = append(out, Field{
			Name:  Medal(page.Offset+i+1) + " " + name,
			Value: common.FormatCount(e.Count, "contribution"),
		})
	}
	return out
}

// Footer — "Page N • Updated YYYY-MM-DD HH:MM".
func Footer(page Page) string {
	return fmt.Sprintf("Page %d • Updated %s", page.Number, common.FormatDateTime(page.RenderedAt))
}
