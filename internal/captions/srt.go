package captions

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cdaprod/captioner/internal/types"
)

var (
	blockSeparator = regexp.MustCompile(`\n{2,}`)
	timingPattern  = regexp.MustCompile(`^(\d{2,}):(\d{2}):(\d{2}),(\d{3})\s*-->\s*(\d{2,}):(\d{2}):(\d{2}),(\d{3})`)
)

// FormatTimestamp renders seconds as HH:MM:SS,mmm, rounding half-up to the
// nearest millisecond. Hours grow past two digits instead of wrapping.
// Negative values render as zero.
func FormatTimestamp(seconds float64) string {
	return FormatMillis(int64(math.Floor(seconds*1000 + 0.5)))
}

// FormatMillis renders a millisecond offset as HH:MM:SS,mmm.
func FormatMillis(totalMs int64) string {
	if totalMs < 0 {
		totalMs = 0
	}
	hours := totalMs / 3_600_000
	rem := totalMs % 3_600_000
	minutes := rem / 60_000
	rem %= 60_000
	secs := rem / 1000
	ms := rem % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, ms)
}

// WriteSRT serializes lines as numbered SRT blocks in input order.
func WriteSRT(w io.Writer, lines []types.Line) error {
	bw := bufio.NewWriter(w)
	for i, line := range lines {
		_, err := fmt.Fprintf(bw, "%d\n%s --> %s\n%s\n\n",
			i+1,
			FormatTimestamp(line.Start),
			FormatTimestamp(line.End),
			strings.TrimSpace(line.Text),
		)
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}

// EncodeSRT returns the SRT document for lines. Callers wanting strictly
// chronological output must sort lines by Start first.
func EncodeSRT(lines []types.Line) string {
	var sb strings.Builder
	_ = WriteSRT(&sb, lines)
	return sb.String()
}

// DecodeSRT parses SRT text into cues sorted by start time. Blocks without a
// valid timing line are skipped; empty input yields no cues.
func DecodeSRT(text string) []types.Cue {
	text = strings.TrimLeft(text, "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.TrimSpace(text)
	if text == "" {
		return []types.Cue{}
	}

	cues := make([]types.Cue, 0)
	for _, block := range blockSeparator.Split(text, -1) {
		if strings.TrimSpace(block) == "" {
			continue
		}
		if cue, ok := decodeBlock(strings.Trim(block, "\n")); ok {
			cues = append(cues, cue)
		}
	}

	sort.SliceStable(cues, func(i, j int) bool {
		return cues[i].StartMs < cues[j].StartMs
	})
	return cues
}

func decodeBlock(block string) (types.Cue, bool) {
	lines := strings.Split(block, "\n")

	timingIdx := 0
	if isIndexLine(lines[0]) && len(lines) > 1 {
		timingIdx = 1
	}
	match := timingPattern.FindStringSubmatch(strings.TrimSpace(lines[timingIdx]))
	if match == nil {
		return types.Cue{}, false
	}

	var text []string
	for _, line := range lines[timingIdx+1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		text = append(text, strings.TrimRight(line, " \t\v\f"))
	}

	return types.Cue{
		StartMs: toMillis(match[1:5]),
		EndMs:   toMillis(match[5:9]),
		Text:    strings.Join(text, "\n"),
	}, true
}

func isIndexLine(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	for _, r := range line {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// toMillis converts [hh mm ss mmm] fields already validated by timingPattern.
func toMillis(fields []string) int64 {
	var v [4]int64
	for i, f := range fields {
		n, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return 0
		}
		v[i] = n
	}
	return (((v[0]*60)+v[1])*60+v[2])*1000 + v[3]
}
