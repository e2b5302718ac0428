package color

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// ANSI color codes
const (
	Reset  = "\033[0m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
	Bold   = "\033[1m"
)

// Color represents a colorizer that can be enabled or disabled
type Color struct {
	enabled bool
}

// New creates a new Color instance. Color is only emitted when requested and
// stdout is a color-capable terminal.
func New(enabled bool) *Color {
	return &Color{enabled: enabled && shouldEnableColor(os.Stdout.Fd())}
}

// shouldEnableColor determines if color should be enabled based on environment
func shouldEnableColor(fd uintptr) bool {
	// https://no-color.org/
	if os.Getenv("NO_COLOR") != "" {
		return false
	}

	term := os.Getenv("TERM")
	if term == "dumb" || term == "" {
		return false
	}

	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (c *Color) wrap(code, text string) string {
	if !c.enabled {
		return text
	}
	return code + text + Reset
}

// Add colors a string to indicate additions (green, like Terraform)
func (c *Color) Add(text string) string { return c.wrap(Green, text) }

// Change colors a string to indicate modifications (yellow, like Terraform)
func (c *Color) Change(text string) string { return c.wrap(Yellow, text) }

// Destroy colors a string to indicate deletions (red, like Terraform)
func (c *Color) Destroy(text string) string { return c.wrap(Red, text) }

// Bold makes text bold
func (c *Color) Bold(text string) string { return c.wrap(Bold, text) }

// Cyan colors text cyan (for headers and labels)
func (c *Color) Cyan(text string) string { return c.wrap(Cyan, text) }

// PlanSymbol returns the appropriate symbol for plan actions
func (c *Color) PlanSymbol(action string) string {
	switch action {
	case "add", "create":
		return c.Add("+")
	case "change", "modify", "update", "retype":
		return c.Change("~")
	case "destroy", "drop", "delete":
		return c.Destroy("-")
	default:
		return " "
	}
}

// FormatSummaryLine formats summary counts with colors
func (c *Color) FormatSummaryLine(objectType string, added, modified, dropped int) string {
	return fmt.Sprintf("  %s: %s", objectType, c.counts(added, modified, dropped))
}

// FormatPlanHeader formats the main plan header
func (c *Color) FormatPlanHeader(added, modified, dropped int) string {
	return fmt.Sprintf("Plan: %s.", c.counts(added, modified, dropped))
}

// counts always shows all three categories, even if zero.
func (c *Color) counts(added, modified, dropped int) string {
	return strings.Join([]string{
		c.Add(fmt.Sprintf("%d to add", added)),
		c.Change(fmt.Sprintf("%d to modify", modified)),
		c.Destroy(fmt.Sprintf("%d to drop", dropped)),
	}, ", ")
}
