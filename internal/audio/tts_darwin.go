//go:build darwin

package audio

import "strconv"

func speakArgs(rate int, text string) (string, []string) {
	return "say", []string{"-r", strconv.Itoa(rate), text}
}

func saveArgs(rate int, text, path string) (string, []string) {
	return "say", []string{"-r", strconv.Itoa(rate), "-o", path, text}
}
