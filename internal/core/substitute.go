package core

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
)

// Resolution is the result of annotating a block of text with locations.
type Resolution struct {
	Text       string    `json:"text"`
	Resolved   int       `json:"resolved"`
	Unresolved int       `json:"unresolved"`
	Warnings   []Warning `json:"warnings,omitempty"`
}

// Warning is a non-fatal problem with one token. The token is left as is.
type Warning struct {
	Line    int    `json:"line"` // 1-based
	Token   string `json:"token"`
	Message string `json:"message"`
}

// SubstituteLines annotates every address token in text with the location r
// reports for it, inserting " (<location>)" right after the token.
//
// Lines are processed independently and joined back with their original
// terminators, so the output differs from the input only by the inserted
// annotations. Tokens that do not fit in 64 bits, that r cannot resolve, or
// for which r returns an error are left unannotated; the first and last
// produce a Warning.
//
// ctx is checked before each line; once it is done the partial result is
// dropped and ctx.Err() is returned.
func SubstituteLines(ctx context.Context, text string, r AddressResolver) (*Resolution, error) {
	res := &Resolution{}

	var out strings.Builder
	out.Grow(len(text))

	lineNo := 0
	for rest := text; len(rest) > 0; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lineNo++

		line := rest
		terminator := ""
		if i := strings.IndexByte(rest, '\n'); i >= 0 {
			line = rest[:i]
			terminator = "\n"
			rest = rest[i+1:]
		} else {
			rest = ""
		}

		substituteLine(ctx, &out, line, lineNo, r, res)
		out.WriteString(terminator)
	}

	res.Text = out.String()
	return res, nil
}

// substituteLine writes line to out with annotations inserted by position.
func substituteLine(ctx context.Context, out *strings.Builder, line string, lineNo int, r AddressResolver, res *Resolution) {
	last := 0
	for span := range ExtractAddresses(line) {
		out.WriteString(line[last:span.End])
		last = span.End

		token := span.Token(line)
		addr, err := strconv.ParseUint(span.Digits(line), 16, 64)
		if err != nil {
			perr := &AddressParseError{Token: token, Err: err}
			res.Warnings = append(res.Warnings, Warning{Line: lineNo, Token: token, Message: perr.Error()})
			slog.Debug("skipping address token", "line", lineNo, "token", token, "error", err)
			continue
		}

		location, ok, err := r.Resolve(ctx, addr)
		if err != nil {
			res.Unresolved++
			res.Warnings = append(res.Warnings, Warning{Line: lineNo, Token: token, Message: err.Error()})
			slog.Debug("address lookup failed", "line", lineNo, "token", token, "error", err)
			continue
		}
		if !ok || location == "" {
			res.Unresolved++
			continue
		}

		res.Resolved++
		out.WriteString(" (")
		out.WriteString(location)
		out.WriteString(")")
	}
	out.WriteString(line[last:])
}
