package telegram

import (
	"fmt"
	"strings"

	"BunOfTheDayBot/internal/game"
	"BunOfTheDayBot/internal/models/domain"
)

// pluralizeRu picks the Russian plural form for n (очко, очка, очков).
func pluralizeRu(n int, one, few, many string) string {
	if n < 0 {
		n = -n
	}
	switch {
	case n%100 >= 11 && n%100 <= 14:
		return many
	case n%10 == 1:
		return one
	case n%10 >= 2 && n%10 <= 4:
		return few
	default:
		return many
	}
}

// pointsWord returns n with the matching form of "очко".
func pointsWord(n int) string {
	return fmt.Sprintf("%d %s", n, pluralizeRu(n, "очко", "очка", "очков"))
}

// drawAnnouncement builds the group-chat message for a daily draw result.
func drawAnnouncement(res *game.DrawResult) string {
	var b strings.Builder

	if res.AlreadyDrawn {
		fmt.Fprintf(&b, "🥐 Булочка дня уже разыграна!\n\n")
		fmt.Fprintf(&b, "Сегодня её получает %s — «%s».\n",
			res.User.DisplayName(), res.Bun.Name)
		fmt.Fprintf(&b, "Всего очков: %s.", pointsWord(res.Total))
		return b.String()
	}

	fmt.Fprintf(&b, "🥐 Булочка дня!\n\n")
	fmt.Fprintf(&b, "Сегодня %s получает «%s» и %s!\n",
		res.User.DisplayName(), res.Bun.Name, pointsWord(res.Bun.Points))
	if res.NewHolding {
		fmt.Fprintf(&b, "Это первая булочка такого вида в коллекции! 🎉\n")
	}
	fmt.Fprintf(&b, "Всего очков: %s.", pointsWord(res.Total))
	return b.String()
}

// awardAnnouncement builds the message for an admin point adjustment.
func awardAnnouncement(name string, delta, total int) string {
	if delta < 0 {
		return fmt.Sprintf("😱 У %s конфисковано %s! Теперь всего: %s.",
			name, pointsWord(-delta), pointsWord(total))
	}
	if delta == 0 {
		return fmt.Sprintf("У %s ничего не изменилось: всего %s.",
			name, pointsWord(total))
	}
	return fmt.Sprintf("🎁 %s получает %s! Теперь всего: %s.",
		name, pointsWord(delta), pointsWord(total))
}

// leaderboardText renders a chat leaderboard.
func leaderboardText(scores []domain.ChatScore) string {
	if len(scores) == 0 {
		return "В этом чате пока никто не играет. Жми /play!"
	}

	var b strings.Builder
	b.WriteString("🏆 Таблица лидеров:\n\n")
	for i, s := range scores {
		medal := fmt.Sprintf("%d.", i+1)
		switch i {
		case 0:
			medal = "🥇"
		case 1:
			medal = "🥈"
		case 2:
			medal = "🥉"
		}
		name := s.FullName
		if name == "" {
			name = "@" + s.Username
		}
		fmt.Fprintf(&b, "%s %s — %s\n", medal, name, pointsWord(s.Total))
	}
	return b.String()
}

// holdingsText renders a user's personal bun collection.
func holdingsText(name string, stats []domain.HoldingStat, total int) string {
	if len(stats) == 0 {
		return fmt.Sprintf("У %s пока нет булочек. Всё впереди! 🥐", name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🥐 Коллекция %s:\n\n", name)
	for _, s := range stats {
		fmt.Fprintf(&b, "• %s — %s\n", s.BunName, pointsWord(s.Points))
	}
	fmt.Fprintf(&b, "\nИтого: %s.", pointsWord(total))
	return b.String()
}

// bunCatalogText renders the bun catalog.
func bunCatalogText(buns []domain.Bun) string {
	if len(buns) == 0 {
		return "Каталог булочек пуст."
	}

	var b strings.Builder
	b.WriteString("📜 Каталог булочек:\n\n")
	for _, bun := range buns {
		fmt.Fprintf(&b, "• %s — %s\n", bun.Name, pointsWord(bun.Points))
	}
	return b.String()
}

// userListText renders all registered users grouped by chat.
func userListText(users []domain.User) string {
	if len(users) == 0 {
		return "Пока нет ни одного игрока."
	}

	var b strings.Builder
	b.WriteString("👥 Игроки по чатам:\n")
	var lastChat int64
	first := true
	for _, u := range users {
		if first || u.ChatID != lastChat {
			fmt.Fprintf(&b, "\nЧат %d:\n", u.ChatID)
			lastChat = u.ChatID
			first = false
		}
		status := "в игре"
		if !u.InGame {
			status = "вышел"
		}
		fmt.Fprintf(&b, "• %s (%s)\n", u.DisplayName(), status)
	}
	return b.String()
}
