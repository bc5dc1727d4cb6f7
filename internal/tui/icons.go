// Package tui holds the terminal presentation helpers: icons, styles and
// terminal detection.
package tui

const (
	successIcon = "✅"
	errorIcon   = "❌"
)

func SuccessIcon(colorize bool) string {
	if colorize {
		return SuccessStyle.Render(successIcon)
	}
	return successIcon
}

func ErrorIcon(colorize bool) string {
	if colorize {
		return ErrorStyle.Render(errorIcon)
	}
	return errorIcon
}
