package core

import "iter"

// Span is the byte range [Start, End) of one address token within a line.
type Span struct {
	Start int
	End   int
}

// Token returns the text covered by the span.
func (s Span) Token(line string) string {
	return line[s.Start:s.End]
}

// Digits returns the hex digits of the token, without the 0x prefix.
func (s Span) Digits(line string) string {
	return line[s.Start+2 : s.End]
}

// ExtractAddresses returns the address tokens of line, left to right.
//
// A token is "0x" followed by one or more hex digits, with a word boundary on
// both sides: the character before the 0 and the character after the last
// digit must not be [A-Za-z0-9_]. A maximal hex run followed by a word
// character (0x12g) is not a token. Every occurrence is yielded separately,
// including repeats of the same text.
//
// The sequence is lazy and can be ranged over any number of times.
func ExtractAddresses(line string) iter.Seq[Span] {
	return func(yield func(Span) bool) {
		i := 0
		for i+2 < len(line) {
			if line[i] != '0' || line[i+1] != 'x' || (i > 0 && isWordByte(line[i-1])) {
				i++
				continue
			}

			end := i + 2
			for end < len(line) && isHexByte(line[end]) {
				end++
			}

			if end == i+2 || (end < len(line) && isWordByte(line[end])) {
				// Not a token; skip the whole word so its tail is not rescanned.
				for end < len(line) && isWordByte(line[end]) {
					end++
				}
				i = end
				continue
			}

			if !yield(Span{Start: i, End: end}) {
				return
			}
			i = end
		}
	}
}

func isHexByte(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func isWordByte(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || c == '_'
}
