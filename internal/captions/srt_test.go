package captions_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/cdaprod/captioner/internal/captions"
	"github.com/cdaprod/captioner/internal/types"
)

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00,000"},
		{1.5, "00:00:01,500"},
		{1.0625, "00:00:01,063"},
		{3599.9994, "00:59:59,999"},
		{3599.9996, "01:00:00,000"},
		{3723.042, "01:02:03,042"},
		{360000, "100:00:00,000"},
		{-2, "00:00:00,000"},
	}
	for _, tc := range tests {
		if got := captions.FormatTimestamp(tc.seconds); got != tc.want {
			t.Errorf("FormatTimestamp(%v) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}

func TestEncodeSRT(t *testing.T) {
	got := captions.EncodeSRT([]types.Line{
		{Text: "Hello world", Start: 0, End: 1.5},
		{Text: " Second line ", Start: 2, End: 3},
	})
	want := "1\n00:00:00,000 --> 00:00:01,500\nHello world\n\n" +
		"2\n00:00:02,000 --> 00:00:03,000\nSecond line\n\n"
	if got != want {
		t.Fatalf("unexpected SRT:\n%s", got)
	}
}

func TestEncodeSRTKeepsInputOrder(t *testing.T) {
	got := captions.EncodeSRT([]types.Line{
		{Text: "later", Start: 5, End: 6},
		{Text: "earlier", Start: 1, End: 2},
	})
	if strings.Index(got, "later") > strings.Index(got, "earlier") {
		t.Fatalf("encoder must not reorder lines:\n%s", got)
	}
}

func TestDecodeSRTBasic(t *testing.T) {
	cues := captions.DecodeSRT("1\n00:00:00,000 --> 00:00:01,000\nHello\n")
	want := []types.Cue{{StartMs: 0, EndMs: 1000, Text: "Hello"}}
	if !reflect.DeepEqual(cues, want) {
		t.Fatalf("got %+v want %+v", cues, want)
	}
}

func TestDecodeSRTTolerance(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []types.Cue
	}{
		{name: "empty", input: "", want: []types.Cue{}},
		{name: "whitespace", input: " \n\r\n\t ", want: []types.Cue{}},
		{
			name:  "bom and crlf",
			input: "\ufeff1\r\n00:00:01,000 --> 00:00:02,500\r\nHi there\r\n\r\n",
			want:  []types.Cue{{StartMs: 1000, EndMs: 2500, Text: "Hi there"}},
		},
		{
			name:  "old mac line endings",
			input: "1\r00:00:01,000 --> 00:00:02,000\rA\r\r2\r00:00:03,000 --> 00:00:04,000\rB",
			want: []types.Cue{
				{StartMs: 1000, EndMs: 2000, Text: "A"},
				{StartMs: 3000, EndMs: 4000, Text: "B"},
			},
		},
		{
			name:  "missing index",
			input: "00:00:01,000 --> 00:00:02,000\nNo index",
			want:  []types.Cue{{StartMs: 1000, EndMs: 2000, Text: "No index"}},
		},
		{
			name: "garbage blocks dropped",
			input: "1\n00:00:01,000 --> 00:00:02,000\nKeep\n\n" +
				"2\nnot a timing line\nDrop\n\n" +
				"trailing noise",
			want: []types.Cue{{StartMs: 1000, EndMs: 2000, Text: "Keep"}},
		},
		{
			name:  "multi-line text with blank padding",
			input: "7\n01:02:03,004 --> 01:02:05,000\nfirst line   \n  \nsecond line\n",
			want:  []types.Cue{{StartMs: 3723004, EndMs: 3725000, Text: "first line\nsecond line"}},
		},
		{
			name:  "lone index block",
			input: "12",
			want:  []types.Cue{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := captions.DecodeSRT(tc.input)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %+v want %+v", got, tc.want)
			}
		})
	}
}

func TestDecodeSRTSortsByStart(t *testing.T) {
	input := "3\n00:00:05,000 --> 00:00:06,000\nThird\n\n" +
		"2\n00:00:03,000 --> 00:00:04,000\nSecond\n\n" +
		"1\n00:00:01,000 --> 00:00:02,000\nFirst\n"
	cues := captions.DecodeSRT(input)
	if len(cues) != 3 {
		t.Fatalf("expected 3 cues, got %+v", cues)
	}
	for i := 1; i < len(cues); i++ {
		if cues[i-1].StartMs > cues[i].StartMs {
			t.Fatalf("cues not ascending: %+v", cues)
		}
	}
	if cues[0].Text != "First" || cues[2].Text != "Third" {
		t.Fatalf("unexpected order: %+v", cues)
	}
}

func TestDecodeSRTStableForEqualStarts(t *testing.T) {
	input := "1\n00:00:02,000 --> 00:00:03,000\nB1\n\n" +
		"2\n00:00:01,000 --> 00:00:02,000\nA\n\n" +
		"3\n00:00:02,000 --> 00:00:04,000\nB2\n"
	cues := captions.DecodeSRT(input)
	got := []string{cues[0].Text, cues[1].Text, cues[2].Text}
	if !reflect.DeepEqual(got, []string{"A", "B1", "B2"}) {
		t.Fatalf("ties must keep input order, got %v", got)
	}
}

func TestSRTRoundTrip(t *testing.T) {
	lines := []types.Line{
		{Text: "Hello world", Start: 0, End: 1.5},
		{Text: "Second line", Start: 2, End: 3.25},
		{Text: "Late", Start: 3661.007, End: 3662.5},
		{Text: "Beyond a hundred hours", Start: 360000.001, End: 360001},
	}
	cues := captions.DecodeSRT(captions.EncodeSRT(lines))
	want := []types.Cue{
		{StartMs: 0, EndMs: 1500, Text: "Hello world"},
		{StartMs: 2000, EndMs: 3250, Text: "Second line"},
		{StartMs: 3661007, EndMs: 3662500, Text: "Late"},
		{StartMs: 360000001, EndMs: 360001000, Text: "Beyond a hundred hours"},
	}
	if !reflect.DeepEqual(cues, want) {
		t.Fatalf("round trip mismatch:\ngot  %+v\nwant %+v", cues, want)
	}
}
