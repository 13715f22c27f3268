// Package output provides styled terminal output helpers (success, error,
// warning, workout formatting) using lipgloss.
package output

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/avery/liftd/internal/models"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	syncedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	phaseStyles  = map[models.NutritionPhase]lipgloss.Style{
		models.PhaseBulk:        lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		models.PhaseCut:         lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		models.PhaseMaintenance: lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
	}
)

// Success prints a success message
func Success(format string, args ...any) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message
func Error(format string, args ...any) {
	fmt.Println(errorStyle.Render("ERROR: " + fmt.Sprintf(format, args...)))
}

// Warning prints a warning message
func Warning(format string, args ...any) {
	fmt.Println(warningStyle.Render("Warning: " + fmt.Sprintf(format, args...)))
}

// Info prints an info message
func Info(format string, args ...any) {
	fmt.Println(fmt.Sprintf(format, args...))
}

// JSON outputs data as JSON
func JSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// Title renders a bold heading.
func Title(s string) string {
	return titleStyle.Render(s)
}

// Subtle renders de-emphasized text.
func Subtle(s string) string {
	return subtleStyle.Render(s)
}

// FormatPhase formats a nutrition phase with color
func FormatPhase(p models.NutritionPhase) string {
	style, ok := phaseStyles[p]
	if !ok {
		return string(p)
	}
	return style.Render(fmt.Sprintf("[%s]", p))
}

// FormatSyncBadge renders a pending count as a badge, empty when clean.
func FormatSyncBadge(pending int) string {
	if pending == 0 {
		return syncedStyle.Render("synced")
	}
	return pendingStyle.Render(fmt.Sprintf("%d pending", pending))
}

// FormatWeight renders a set's load, "-" for bodyweight sets.
func FormatWeight(set models.ExerciseSet) string {
	if set.Weight == nil {
		return "-"
	}
	unit := set.WeightUnit
	if unit == "" {
		unit = models.UnitKg
	}
	return fmt.Sprintf("%g %s", *set.Weight, unit)
}

// FormatDuration renders seconds as h/m/s, compactly.
func FormatDuration(seconds int64) string {
	d := time.Duration(seconds) * time.Second
	if d >= time.Hour {
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
	if d >= time.Minute {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%ds", int(d.Seconds()))
}

// FormatTime renders an epoch-ms timestamp in local time.
func FormatTime(millis int64) string {
	if millis == 0 {
		return "-"
	}
	return time.UnixMilli(millis).Local().Format("2006-01-02 15:04")
}

// FormatWorkoutLine renders a single workout for list output.
func FormatWorkoutLine(w models.Workout) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(shortID(w.ID)))
	b.WriteString("  ")
	b.WriteString(FormatTime(w.StartedAt))
	if w.Title != "" {
		b.WriteString("  " + w.Title)
	}
	b.WriteString("  " + FormatPhase(w.NutritionPhase))
	if w.CompletedAt != nil {
		if w.DurationSeconds != nil {
			b.WriteString(subtleStyle.Render("  done in " + FormatDuration(*w.DurationSeconds)))
		} else {
			b.WriteString(subtleStyle.Render("  done"))
		}
	} else {
		b.WriteString(warningStyle.Render("  in progress"))
	}
	return b.String()
}

// FormatSetLine renders a single set for list output.
func FormatSetLine(set models.ExerciseSet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d  %s", set.SetNumber, FormatWeight(set))
	if set.Reps != nil {
		fmt.Fprintf(&b, " x %d", *set.Reps)
	}
	if set.DurationSeconds != nil {
		fmt.Fprintf(&b, "  %s", FormatDuration(*set.DurationSeconds))
	}
	if set.DistanceMeters != nil {
		fmt.Fprintf(&b, "  %gm", *set.DistanceMeters)
	}
	if set.RPE != nil {
		b.WriteString(subtleStyle.Render(fmt.Sprintf("  @%g RPE", *set.RPE)))
	}
	if set.RIR != nil {
		b.WriteString(subtleStyle.Render(fmt.Sprintf("  %d RIR", *set.RIR)))
	}
	if set.IsWarmup {
		b.WriteString(subtleStyle.Render("  [warmup]"))
	}
	if set.IsFailure {
		b.WriteString(errorStyle.Render("  [failure]"))
	}
	return b.String()
}

// shortID returns the first 8 characters of a UUID for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// ShortID is the exported form used by commands when echoing ids.
func ShortID(id string) string {
	return shortID(id)
}
