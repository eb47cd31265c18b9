//go:build !darwin

package audio

import "strconv"

func speakArgs(rate int, text string) (string, []string) {
	return "espeak", []string{"-s", strconv.Itoa(rate), text}
}

func saveArgs(rate int, text, path string) (string, []string) {
	return "espeak", []string{"-s", strconv.Itoa(rate), "-w", path, text}
}
