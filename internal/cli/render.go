package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/bastiangx/marketserve/internal/utils"
	"github.com/bastiangx/marketserve/pkg/catalog"
	"github.com/bastiangx/marketserve/pkg/lookup"
	"github.com/bastiangx/marketserve/pkg/market"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("75"))
	nameStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	priceStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	footerStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("245"))
)

// Messages
const (
	msgNoData      = "No market data for this item."
	msgNoListings  = "No listings on this server."
	msgUnavailable = "Price data unavailable."
	msgOtherItems  = "Were you looking for another item?"
)

// Render writes a lookup result as a short report.
func Render(w io.Writer, result *lookup.Result, iconDir string) {
	if result.Item == nil {
		fmt.Fprintln(w, titleStyle.Render(result.Query))
		fmt.Fprintln(w, mutedStyle.Render(msgNoData))
		return
	}

	header := titleStyle.Render(result.Item.Name) + " " + mutedStyle.Render(fmt.Sprintf("#%d", result.Item.ID))
	if iconDir != "" && result.Summary.Found {
		header += " " + mutedStyle.Render(catalog.IconPath(iconDir, result.Item.Icon))
	}
	fmt.Fprintln(w, header)

	if result.NoData {
		fmt.Fprintln(w, mutedStyle.Render(msgNoData))
	}

	width := nameWidth(result.Summary.Servers)
	for _, s := range result.Summary.Servers {
		fmt.Fprintf(w, "  %s  %s\n", runewidth.FillRight(s.Name, width), priceLine(s))
	}

	if len(result.Alternatives) > 0 {
		fmt.Fprintln(w, footerStyle.Render(msgOtherItems+lookup.Footer(result.Alternatives)))
	}
}

func priceLine(s market.ServerSummary) string {
	switch s.State {
	case market.StateUnavailable:
		return errorStyle.Render(msgUnavailable)
	case market.StateNoListings:
		return mutedStyle.Render(msgNoListings)
	}

	var parts []string
	if s.HQPrice > 0 {
		parts = append(parts, "HQ "+priceStyle.Render(formatGil(s.HQPrice)))
	}
	if s.NQPrice > 0 {
		parts = append(parts, "NQ "+priceStyle.Render(formatGil(s.NQPrice)))
	}
	return strings.Join(parts, "  ")
}

func formatGil(price int64) string {
	return utils.FormatWithCommas(price) + " gil"
}

// nameWidth is the display width of the widest server name.
func nameWidth(servers []market.ServerSummary) int {
	width := 0
	for _, s := range servers {
		width = max(width, runewidth.StringWidth(s.Name))
	}
	return width
}
