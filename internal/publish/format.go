// Package publish delivers launch and news records to configured
// destinations, tracking a publication fact per (item, destination class)
// so nothing is ever announced twice.
package publish

import (
	"fmt"
	"html"
	"strings"
	"time"

	"launch-radar/internal/domain"
)

const descriptionLimit = 280

// FormatLaunch renders a launch announcement in Telegram HTML.
func FormatLaunch(a *domain.Asset) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "🚀 <b>New launch on %s</b>\n\n", strings.ToUpper(a.Chain.String()))
	if a.Name != "" && !strings.EqualFold(a.Name, a.Symbol) {
		fmt.Fprintf(&sb, "<b>%s</b> (%s)\n", html.EscapeString(a.Symbol), html.EscapeString(a.Name))
	} else {
		fmt.Fprintf(&sb, "<b>%s</b>\n", html.EscapeString(a.Symbol))
	}
	fmt.Fprintf(&sb, "<code>%s</code>\n", html.EscapeString(a.Address))

	var stats []string
	if a.MarketCap > 0 {
		stats = append(stats, "💰 MC "+formatUSD(a.MarketCap))
	}
	if a.Volume24h > 0 {
		stats = append(stats, "📈 Vol "+formatUSD(a.Volume24h))
	}
	if a.LiquidityUSD != nil && *a.LiquidityUSD > 0 {
		stats = append(stats, "💧 Liq "+formatUSD(*a.LiquidityUSD))
	}
	if len(stats) > 0 {
		sb.WriteString("\n" + strings.Join(stats, " | ") + "\n")
	}

	if a.LaunchedAt > 0 {
		fmt.Fprintf(&sb, "\n🕒 %s\n", time.UnixMilli(a.LaunchedAt).UTC().Format("2006-01-02 15:04 UTC"))
	}
	if a.Source != "" {
		fmt.Fprintf(&sb, "🔎 via %s\n", html.EscapeString(a.Source))
	}

	if link := firstURL(a.URLs); link != "" {
		fmt.Fprintf(&sb, "\n<a href=\"%s\">Chart</a>", html.EscapeString(link))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatNews renders a headline in Telegram HTML.
func FormatNews(n *domain.NewsItem) string {
	var sb strings.Builder

	sb.WriteString(sentimentBadge(n.Sentiment) + " <b>" + html.EscapeString(n.Title) + "</b>\n")

	if n.Description != "" {
		desc := n.Description
		if r := []rune(desc); len(r) > descriptionLimit {
			desc = string(r[:descriptionLimit]) + "…"
		}
		sb.WriteString("\n" + html.EscapeString(desc) + "\n")
	}

	var tail []string
	if n.Source != "" {
		tail = append(tail, html.EscapeString(n.Source))
	}
	if n.PublishedAt > 0 {
		tail = append(tail, time.UnixMilli(n.PublishedAt).UTC().Format("15:04 UTC"))
	}
	if len(tail) > 0 {
		sb.WriteString("\n<i>" + strings.Join(tail, " · ") + "</i>")
	}

	if n.URL != "" {
		fmt.Fprintf(&sb, "\n🔗 <a href=\"%s\">Read more</a>", html.EscapeString(n.URL))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func sentimentBadge(sentiment string) string {
	switch sentiment {
	case "bullish":
		return "🟢"
	case "bearish":
		return "🔴"
	default:
		return "📰"
	}
}

// formatUSD renders dollar figures the way traders skim them.
func formatUSD(v float64) string {
	switch {
	case v >= 1e9:
		return fmt.Sprintf("$%.2fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("$%.2fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("$%.1fK", v/1e3)
	default:
		return fmt.Sprintf("$%.2f", v)
	}
}

func firstURL(urls []string) string {
	for _, u := range urls {
		if u != "" {
			return u
		}
	}
	return ""
}
