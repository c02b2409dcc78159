package display

import (
	"fmt"
	"io"
	"strings"
	"unicode"
)

// RenderBoard prints a text board with red pieces in red, black pieces in
// blue and edge labels in cyan.
func RenderBoard(w io.Writer, textBoard string) {
	for _, line := range strings.Split(textBoard, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		// File label lines start with padding, rank lines with a digit
		isLabelLine := strings.HasPrefix(line, "  ") && !strings.Contains(line, "~")

		var sb strings.Builder
		for i, char := range line {
			switch {
			case isLabelLine && unicode.IsLower(char):
				sb.WriteString(Cyan + string(char) + Reset)
			case unicode.IsDigit(char) && (i < 2 || i >= len(line)-2):
				sb.WriteString(Cyan + string(char) + Reset)
			case unicode.IsUpper(char):
				sb.WriteString(Red + string(char) + Reset)
			case unicode.IsLower(char):
				sb.WriteString(Blue + string(char) + Reset)
			case char == '~':
				sb.WriteString(Cyan + string(char) + Reset)
			default:
				sb.WriteRune(char)
			}
		}
		fmt.Fprintln(w, sb.String())
	}
}

// ColorForSide returns a colored side name
func ColorForSide(side string) string {
	if side == "red" {
		return Red + "Red" + Reset
	}
	return Blue + "Black" + Reset
}
