package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func tokens(line string) []string {
	var out []string
	for span := range ExtractAddresses(line) {
		out = append(out, span.Token(line))
	}
	return out
}

func TestExtractAddresses(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{name: "single", line: "crash at 0x1A2B", want: []string{"0x1A2B"}},
		{name: "repeated token", line: "addr 0xDEAD 0xDEAD", want: []string{"0xDEAD", "0xDEAD"}},
		{name: "punctuation boundaries", line: "(0xdead,0xBEEF)", want: []string{"0xdead", "0xBEEF"}},
		{name: "line start and end", line: "0x1", want: []string{"0x1"}},
		{name: "trailing word char", line: "0x12g", want: nil},
		{name: "underscore is word char", line: "0x12_ 0x34", want: []string{"0x34"}},
		{name: "leading word char", line: "a0x12 x0x1", want: nil},
		{name: "prefix only", line: "0x and 0x", want: nil},
		{name: "uppercase X", line: "0X12", want: nil},
		{name: "nested prefix", line: "0x0x1", want: nil},
		{name: "no addresses", line: "nothing here", want: nil},
		{name: "empty", line: "", want: nil},
		{name: "long run", line: "pc=0x1ffffffffffffffff", want: []string{"0x1ffffffffffffffff"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tokens(tt.line)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ExtractAddresses(%q) mismatch (-want +got):\n%s", tt.line, diff)
			}
		})
	}
}

func TestExtractAddresses_Spans(t *testing.T) {
	line := "at 0x10 and 0xff"
	var spans []Span
	for s := range ExtractAddresses(line) {
		spans = append(spans, s)
	}

	want := []Span{{Start: 3, End: 7}, {Start: 12, End: 16}}
	if diff := cmp.Diff(want, spans); diff != "" {
		t.Errorf("spans mismatch (-want +got):\n%s", diff)
	}
	if got := spans[1].Digits(line); got != "ff" {
		t.Errorf("Digits = %q, want %q", got, "ff")
	}
}

func TestExtractAddresses_StopsEarly(t *testing.T) {
	seq := ExtractAddresses("0x1 0x2 0x3")

	count := 0
	for range seq {
		count++
		if count == 2 {
			break
		}
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}

	// The sequence can be ranged again from the start.
	if got := len(tokens("0x1 0x2 0x3")); got != 3 {
		t.Errorf("second pass found %d tokens, want 3", got)
	}
}
