package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/term"
)

const (
	boxTopLeft     = "╒"
	boxBottomLeft  = "└"
	boxTopRight    = "╕"
	boxBottomRight = "┘"
	boxSide        = "│"
	boxTop         = "═"
	boxBottom      = "─"
	dividerLeft    = "┠"
	dividerMiddle  = "─"
	dividerRight   = "┨"
	ellipsis       = "…"
)

const (
	AlignLeft = iota
	AlignCenter
	AlignRight

	bannerPadding   = 2
	dividerPadding  = 2
	truncateReserve = 1
	halfDivisor     = 2
)

// suppressBanner reports whether banners are disabled with SIMULATION_NO_BANNER.
func suppressBanner() bool {
	v, ok := os.LookupEnv("SIMULATION_NO_BANNER")
	if !ok {
		return false
	}

	b, err := strconv.ParseBool(v)

	return err == nil && b
}

const DefaultTerminalWidth = 80

func DividerAutoWidth() string {
	_, w, e := TerminalDimensions()
	if e != nil || w == 0 {
		w = DefaultTerminalWidth
	}

	return Divider(int(w)) //nolint:gosec // Terminal width is bounded by screen size, no overflow risk
}

func BannerAutoWidth(s string, a int) string {
	if suppressBanner() {
		return s + "\n"
	}

	_, w, e := TerminalDimensions()
	if e != nil || w == 0 {
		w = DefaultTerminalWidth
	}

	return Banner(s, int(w), a) //nolint:gosec // Terminal width is bounded by screen size, no overflow risk
}

func Divider(width int) string {
	return fmt.Sprintf("%s%s%s\n", dividerLeft, strings.Repeat(dividerMiddle, width-dividerPadding), dividerRight)
}

// Banner draws s in a box of the given width, one box row per line of s.
func Banner(s string, width int, alignment int) string {
	if suppressBanner() {
		return s + "\n"
	}

	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	if width <= bannerPadding {
		return ""
	}

	inner := width - bannerPadding
	parts := []string{boxTopLeft + strings.Repeat(boxTop, inner) + boxTopRight}

	for _, l := range lines {
		line, ok := pad(l, inner, alignment)
		if !ok {
			return ""
		}

		parts = append(parts, boxSide+line+boxSide)
	}

	parts = append(parts, boxBottomLeft+strings.Repeat(boxBottom, inner)+boxBottomRight)

	return strings.Join(parts, "\n")
}

func countGraphic(s string) int {
	count := 0

	for _, r := range s {
		if unicode.IsGraphic(r) {
			count++
		}
	}

	return count
}

// truncateGraphic keeps the first n-1 graphic runes of s.
func truncateGraphic(s string, n int) (string, int) {
	var sb strings.Builder

	count := 0

	for _, r := range s {
		if unicode.IsGraphic(r) {
			count++
		}

		if count >= n {
			break
		}

		sb.WriteRune(r)
	}

	return sb.String(), count
}

// pad fits text into width graphic columns, truncating with an ellipsis.
func pad(text string, width int, alignment int) (string, bool) {
	length := countGraphic(text)

	if length > width {
		text, length = truncateGraphic(text, width-truncateReserve)
		text += ellipsis
	}

	diff := max(width-length, 0)

	switch alignment {
	case AlignLeft:
		return text + strings.Repeat(" ", diff), true
	case AlignRight:
		return strings.Repeat(" ", diff) + text, true
	case AlignCenter:
		left := diff / halfDivisor

		return strings.Repeat(" ", left) + text + strings.Repeat(" ", diff-left), true
	default:
		return "", false
	}
}

// TerminalDimensions returns (rows, cols, err) of the terminal attached to stdout.
func TerminalDimensions() (uint, uint, error) {
	cols, rows, err := term.GetSize(int(os.Stdout.Fd())) //nolint:gosec
	if err != nil {
		return 0, 0, err
	}

	return uint(rows), uint(cols), nil //nolint:gosec // Terminal dimensions are small positive integers
}
