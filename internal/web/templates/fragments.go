// Package templates holds the HTML fragments returned to HTMX requests.
package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/addr2line-web/addr2line/internal/core"
)

// ErrorAlert renders a dismissable error box with the user message, the
// suggested action and the support code.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<div class="alert alert-error" role="alert"><p class="alert-message">%s</p>`,
			templ.EscapeString(message))
		if err != nil {
			return err
		}
		if action != "" {
			if _, err := fmt.Fprintf(w, `<p class="alert-action">%s</p>`, templ.EscapeString(action)); err != nil {
				return err
			}
		}
		_, err = fmt.Fprintf(w, `<p class="alert-code">Code: %s</p></div>`, templ.EscapeString(code))
		return err
	})
}

// Output renders the output panel for a conversion. The diagnostic, when
// present, is shown above the text.
func Output(conv core.Conversion) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<section id="output" class="output">`); err != nil {
			return err
		}
		if conv.Diagnostic != "" {
			if _, err := fmt.Fprintf(w, `<p class="output-diagnostic">%s</p>`, templ.EscapeString(conv.Diagnostic)); err != nil {
				return err
			}
		}
		if conv.Addresses > 0 {
			_, err := fmt.Fprintf(w, `<p class="output-stats">%d addresses, %d unresolved</p>`, conv.Addresses, conv.Unresolved)
			if err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(w, `<pre class="output-text">%s</pre></section>`, templ.EscapeString(conv.Output))
		return err
	})
}
