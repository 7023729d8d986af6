// Package report renders the daily update messages as Telegram HTML.
//
// Every function is pure: data in, message text out. User-provided values are
// escaped; markup comes only from this package.
package report

import (
	"fmt"
	"strings"
	"time"

	"listingbot/internal/listing"
)

// Labels are the configurable strings around the generated data.
type Labels struct {
	Title      string
	RunLabel   string
	Sources    []string
	NextUpdate string
}

func DefaultLabels() Labels {
	return Labels{
		Title:      "경기도 전세 매물 알림",
		RunLabel:   "GitHub Actions",
		Sources:    []string{"네이버부동산", "직방", "다방", "부동산114", "원룸원"},
		NextUpdate: "내일 오전 9시",
	}
}

const (
	summaryRule = "━━━━━━━━━━━━━━━━━━━━"
	listingRule = "      ─────────────────────"
)

// Header opens the daily update.
func Header(now time.Time, l Labels) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏠 %s\n", B(l.Title))
	fmt.Fprintf(&b, "📅 %s (%s)\n", now.Format("2006년 01월 02일"), now.Weekday())
	fmt.Fprintf(&b, "⏰ %s 업데이트\n", now.Format("15:04"))
	fmt.Fprintf(&b, "☁️ %s", I(l.RunLabel+" 자동 실행"))
	return b.String()
}

// RegionBlock renders a region with its numbered listings. Callers send
// EmptyRegion instead when there are no listings.
func RegionBlock(r listing.Region, ls []listing.Listing) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s\n", Esc(r.Emoji), B(r.Name), Code(fmt.Sprintf("(%d건)", len(ls))))
	for i, l := range ls {
		fmt.Fprintf(&b, "\n   %d. %s | %s\n", i+1, B(l.Price), Esc(l.Area))
		fmt.Fprintf(&b, "      🏠 %s | %s\n", Esc(l.Type), Esc(l.Rooms))
		fmt.Fprintf(&b, "      📍 %s | %s\n", Esc(l.Location), Esc(l.Floor))
		fmt.Fprintf(&b, "      📱 출처: %s\n", Esc(l.Source))
		if i < len(ls)-1 {
			b.WriteString(listingRule + "\n")
		}
	}
	return b.String()
}

// EmptyRegion is the "no new listings" notice.
func EmptyRegion(r listing.Region) string {
	return fmt.Sprintf("%s %s: %s", Esc(r.Emoji), Esc(r.Name), I("신규 매물 없음"))
}

// Summary closes the daily update with the aggregate count.
func Summary(total int, l Labels) string {
	var b strings.Builder
	b.WriteString(summaryRule + "\n")
	fmt.Fprintf(&b, "📊 %s\n\n", B(fmt.Sprintf("총 %d건의 신규 매물", total)))
	fmt.Fprintf(&b, "📱 <b>정보 출처:</b> %s\n", Esc(strings.Join(l.Sources, ", ")))
	fmt.Fprintf(&b, "💡 %s\n", I("정확한 정보는 해당 사이트에서 직접 확인하세요!"))
	fmt.Fprintf(&b, "🔄 %s\n", I("다음 업데이트: "+l.NextUpdate))
	fmt.Fprintf(&b, "☁️ %s", I("Powered by "+l.RunLabel))
	return b.String()
}

// Failure reports a failed run back to the chat.
func Failure(err error, now time.Time, l Labels) string {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return fmt.Sprintf("❌ %s\n\n%s\n\n⏰ %s", B(l.RunLabel+" 오류"), Esc(msg), now.Format("15:04:05"))
}

// NextUpdateText formats a concrete next-run time for the summary.
func NextUpdateText(next, now time.Time) string {
	now = now.In(next.Location())
	clock := next.Format("15:04")
	switch {
	case sameDay(next, now):
		return "오늘 " + clock
	case sameDay(next, now.AddDate(0, 0, 1)):
		return "내일 " + clock
	default:
		return next.Format("01월 02일 ") + clock
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
