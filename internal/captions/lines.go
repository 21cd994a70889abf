package captions

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/cdaprod/captioner/internal/types"
)

// DefaultMaxChars is the line width used when a request does not set one.
const DefaultMaxChars = 72

// BuildLines groups timed words into display lines of at most maxChars
// characters. A word longer than maxChars is never split; it gets a line of
// its own. Words whose trimmed text is empty are dropped. Timestamps are
// passed through untouched.
func BuildLines(words []types.Word, maxChars int) []types.Line {
	var (
		lines   []types.Line
		current []types.Word
		width   int
	)

	flush := func() {
		if len(current) == 0 {
			return
		}
		texts := make([]string, len(current))
		for i, w := range current {
			texts[i] = w.Text
		}
		lines = append(lines, types.Line{
			Text:  strings.Join(texts, " "),
			Start: current[0].Start,
			End:   current[len(current)-1].End,
		})
		current = current[:0]
		width = 0
	}

	for _, word := range words {
		text := strings.TrimSpace(word.Text)
		if text == "" {
			continue
		}
		candidate := utf8.RuneCountInString(text)
		if len(current) > 0 {
			candidate += width + 1
		}
		if len(current) > 0 && candidate > maxChars {
			flush()
			candidate = utf8.RuneCountInString(text)
		}
		current = append(current, types.Word{Text: text, Start: word.Start, End: word.End})
		width = candidate
	}
	flush()

	return lines
}

// WriteLines writes one trimmed line text per line, each newline-terminated.
func WriteLines(w io.Writer, lines []types.Line) error {
	bw := bufio.NewWriter(w)
	for _, line := range lines {
		if _, err := fmt.Fprintln(bw, strings.TrimSpace(line.Text)); err != nil {
			return err
		}
	}
	return bw.Flush()
}
