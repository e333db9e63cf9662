package pitch

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

var (
	// ErrInvalidReference is returned for note names that are not valid
	// scientific pitch notation.
	ErrInvalidReference = errors.New("invalid reference note")

	// ErrAlignmentFailure is returned when no DTW path can be computed.
	ErrAlignmentFailure = errors.New("alignment failure")
)

var pitchClass = map[rune]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// NoteNumber parses scientific pitch notation ("C4", "F#3", "Bb5", "Eb-1")
// into a MIDI note number (A4 = 69).
func NoteNumber(name string) (int, error) {
	s := strings.TrimSpace(name)
	if s == "" {
		return 0, fmt.Errorf("%w: empty name", ErrInvalidReference)
	}
	r := []rune(s)
	pc, ok := pitchClass[unicode.ToUpper(r[0])]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidReference, name)
	}
	i := 1
	for ; i < len(r); i++ {
		switch r[i] {
		case '#', '♯':
			pc++
			continue
		case 'b', '♭':
			pc--
			continue
		}
		break
	}
	octave, err := strconv.Atoi(string(r[i:]))
	if err != nil {
		return 0, fmt.Errorf("%w: %q has no octave", ErrInvalidReference, name)
	}
	return 12*(octave+1) + pc, nil
}

// NoteFrequency converts a note name to Hz in equal temperament with
// A4 = 440 Hz.
func NoteFrequency(name string) (float64, error) {
	n, err := NoteNumber(name)
	if err != nil {
		return 0, err
	}
	return 440 * math.Pow(2, float64(n-69)/12), nil
}

// ParseNoteList splits a comma separated note list, trimming blanks and
// dropping empty entries.
func ParseNoteList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
