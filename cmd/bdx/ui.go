package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"berrydex/internal/market"

	"github.com/fatih/color"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func promptOptional(label string) (string, error) {
	fmt.Printf("%s: ", label)
	text, err := stdinReader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func promptInt64(label string, min int64) (int64, error) {
	for {
		text, err := promptRequired(label)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			printWarn("Enter a whole number.")
			continue
		}
		if v < min {
			printWarn(fmt.Sprintf("Value must be >= %d", min))
			continue
		}
		return v, nil
	}
}

func renderAccount(p market.Profile) {
	accent.Println("\n== ACCOUNT ==")
	fmt.Printf("ID:       %s\n", p.ID)
	if strings.TrimSpace(p.Username) != "" {
		fmt.Printf("Username: %s\n", p.Username)
	}
	fmt.Printf("Balance:  %s berries\n", formatCents(p.BerriesCents))
	fmt.Println()
}

func renderCharacters(chars []market.CharacterView) {
	accent.Println("\n== CHARACTER MARKET ==")
	if len(chars) == 0 {
		printInfo("No characters listed.")
		return
	}
	fmt.Printf("%-22s %-22s %12s %12s %9s\n", "NAME", "SLUG", "PRICE", "CHANGE", "CHANGE%")
	for _, ch := range chars {
		fmt.Printf("%-22s %-22s %12s %12s %9s\n",
			truncate(ch.Name, 22),
			truncate(ch.Slug, 22),
			formatCents(ch.LastPriceCents),
			colorizeCents(ch.LastChangeCents),
			colorizePercent(ch.LastChangePct),
		)
	}
	fmt.Println()
}

func renderCharacterDetail(d market.CharacterDetail) {
	accent.Printf("\n== %s (%s) ==\n", d.Name, d.Slug)
	if strings.TrimSpace(d.Description) != "" {
		fmt.Println(d.Description)
	}
	fmt.Printf("Price:       %s berries\n", formatCents(d.LastPriceCents))
	fmt.Printf("Change:      %s (%s)\n", colorizeCents(d.LastChangeCents), colorizePercent(d.LastChangePct))
	fmt.Printf("Volatility:  %.2f\n", d.Volatility)
	fmt.Printf("Shares:      %s\n", comma(d.TotalShares))

	if len(d.History) > 0 {
		fmt.Println()
		accent.Println("Recent Prices")
		fmt.Printf("%-20s %12s\n", "TIME", "PRICE")
		// History is chronological; show the newest samples last-first.
		limit := 8
		if len(d.History) < limit {
			limit = len(d.History)
		}
		for i := len(d.History) - 1; i >= len(d.History)-limit; i-- {
			point := d.History[i]
			fmt.Printf("%-20s %12s\n", point.At.Local().Format("2006-01-02 15:04"), formatCents(point.PriceCents))
		}
	}
	fmt.Println()
}

func renderOrderResult(out market.TradeResult, slug string) {
	accent.Printf("\n== ORDER %s ==\n", out.Side)
	fmt.Printf("Character: %s\n", slug)
	fmt.Printf("Shares:    %d\n", out.Shares)
	fmt.Printf("Price:     %s berries\n", formatCents(out.PriceBeforeCents))
	fmt.Printf("New Price: %s berries\n", formatCents(out.PriceAfterCents))
	fmt.Printf("Held Now:  %d\n", out.NewShareCount)
	fmt.Printf("Balance:   %s berries\n", formatCents(out.BalanceAfterCents))
	fmt.Println()
}

func renderPortfolio(view market.PortfolioView) {
	accent.Println("\n== PORTFOLIO ==")
	fmt.Printf("Balance:    %s berries\n", formatCents(view.Account.BerriesCents))
	fmt.Printf("Holdings:   %s berries\n", formatCents(view.Summary.TotalCurrentValueCents))
	fmt.Printf("Invested:   %s berries\n", formatCents(view.Summary.TotalInvestedCents))
	fmt.Printf("P/L:        %s berries (%s)\n", colorizeCents(view.Summary.TotalProfitLossCents), colorizePercent(view.Summary.TotalProfitLossPct))
	fmt.Printf("Net Worth:  %s berries\n", formatCents(view.Summary.NetWorthCents))

	fmt.Println()
	accent.Println("Positions")
	if len(view.Positions) == 0 {
		printInfo("No positions yet.")
		fmt.Println()
		return
	}
	fmt.Printf("%-22s %8s %12s %12s %14s %14s %9s\n", "CHARACTER", "QTY", "AVG BUY", "NOW", "VALUE", "P/L", "P/L%")
	for _, p := range view.Positions {
		fmt.Printf("%-22s %8d %12s %12s %14s %14s %9s\n",
			truncate(p.Character.Name, 22),
			p.Shares,
			formatCents(p.AvgBuyPriceCents),
			formatCents(p.Character.LastPriceCents),
			formatCents(p.CurrentValueCents),
			colorizeCents(p.ProfitLossCents),
			colorizePercent(p.ProfitLossPct),
		)
	}
	fmt.Println()
}

func renderTransactions(txs []market.Transaction) {
	accent.Println("\n== TRANSACTIONS ==")
	if len(txs) == 0 {
		printInfo("No transactions yet.")
		return
	}
	fmt.Printf("%-20s %-5s %-36s %8s %12s\n", "TIME", "SIDE", "CHARACTER", "QTY", "PRICE")
	for _, tx := range txs {
		fmt.Printf("%-20s %-5s %-36s %8d %12s\n",
			tx.At.Local().Format("2006-01-02 15:04"),
			tx.Side,
			tx.CharacterID,
			tx.Shares,
			formatCents(tx.PriceCents),
		)
	}
	fmt.Println()
}

func colorizeCents(v int64) string {
	text := signedCents(v)
	switch {
	case v > 0:
		return success.Sprint(text)
	case v < 0:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func colorizePercent(v float64) string {
	text := fmt.Sprintf("%+.2f%%", v)
	switch {
	case v > 0:
		return success.Sprint(text)
	case v < 0:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func formatCents(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	whole := v / market.CentsPerBerry
	frac := v % market.CentsPerBerry
	return fmt.Sprintf("%s%s.%02d", sign, comma(whole), frac)
}

func signedCents(v int64) string {
	if v > 0 {
		return "+" + formatCents(v)
	}
	return formatCents(v)
}

func comma(v int64) string {
	s := strconv.FormatInt(v, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
		if len(s) > pre {
			b.WriteByte(',')
		}
	}
	for i := pre; i < len(s); i += 3 {
		b.WriteString(s[i : i+3])
		if i+3 < len(s) {
			b.WriteByte(',')
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
