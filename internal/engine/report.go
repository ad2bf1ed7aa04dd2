package engine

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var yenPrinter = message.NewPrinter(language.Japanese)

// RenderReportText formats the settlement for pasting into a chat, dated today.
func RenderReportText(s Settlement, sessionName string) string {
	return RenderReport(s, sessionName, time.Now())
}

// RenderReport formats the settlement: balances by total descending, then
// the transfer list when there is one.
func RenderReport(s Settlement, sessionName string, date time.Time) string {
	var b strings.Builder
	line := func(parts ...string) {
		for _, p := range parts {
			b.WriteString(p)
		}
		b.WriteByte('\n')
	}

	line("[Mahjong settlement] ", sessionName)
	line(date.Format("2006/01/02"))
	if s.HasUnconfirmed {
		line("! Some rounds are unconfirmed and were left out")
	}

	line("---")
	line("Balances")
	sorted := slices.Clone(s.Balances)
	slices.SortStableFunc(sorted, func(a, b PlayerBalance) int { return cmp.Compare(b.TotalYen, a.TotalYen) })
	for _, pb := range sorted {
		line("  ", pb.DisplayName, ": ", signedPoints(pb.MahjongPoints), "pt / ", signedYen(pb.TotalYen), " yen")
	}

	if len(s.Transfers) > 0 {
		line("---")
		line("Transfers")
		for _, t := range s.Transfers {
			line("  ", t.FromName, " -> ", t.ToName, ": ", yenPrinter.Sprintf("%d", t.Amount), " yen")
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

func signedPoints(d decimal.Decimal) string {
	if d.Sign() >= 0 {
		return "+" + d.StringFixed(1)
	}
	return d.StringFixed(1)
}

func signedYen(n int64) string {
	if n >= 0 {
		return "+" + yenPrinter.Sprintf("%d", n)
	}
	return yenPrinter.Sprintf("%d", n)
}
