// Package render evaluates the handlebars templates embedded in event
// definitions: next-event templates, publish payload templates and
// listener response templates.
//
// Templates see the flow context assembled by the dispatcher, typically
// {data, metadata, state} plus per-source extras such as the request of
// an api_listen hit.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/aymerick/raymond"

	"github.com/eventloom/eventloom/internal/timeparse"
)

// nowFunc is swapped in tests.
var nowFunc = time.Now

func init() {
	// {{date-time-format expr fmt}} runs expr through the schedule time
	// parser and formats the instant with an strftime-style layout. On a
	// parse failure the raw expression renders, keeping the problem
	// visible in the output.
	raymond.RegisterHelper("date-time-format", func(expr interface{}, format string) string {
		src := raymond.Str(expr)
		now := nowFunc()
		r, err := timeparse.Parse(src, now)
		if err != nil {
			return src
		}
		return r.At(now).Format(strftimeLayout(format))
	})
	raymond.RegisterHelper("eq", func(a, b interface{}, options *raymond.Options) interface{} {
		if raymond.Str(a) == raymond.Str(b) {
			return options.Fn()
		}
		return options.Inverse()
	})
}

// Render evaluates tpl against ctx.
func Render(tpl string, ctx any) (string, error) {
	out, err := raymond.Render(tpl, ctx)
	if err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return out, nil
}

// RenderName evaluates a next-event template and normalizes the result
// into an event name.
func RenderName(tpl string, ctx any) (string, error) {
	out, err := Render(tpl, ctx)
	if err != nil {
		return "", err
	}
	name := strings.TrimSpace(out)
	if name == "" {
		return "", fmt.Errorf("next event template produced an empty name")
	}
	return name, nil
}

// strftime directives and their Go layout equivalents.
var strftimeTable = map[byte]string{
	'Y': "2006",
	'y': "06",
	'm': "01",
	'd': "02",
	'e': "_2",
	'H': "15",
	'I': "03",
	'M': "04",
	'S': "05",
	'p': "PM",
	'a': "Mon",
	'A': "Monday",
	'b': "Jan",
	'B': "January",
	'j': "002",
	'Z': "MST",
	'z': "-0700",
}

// strftimeLayout converts an strftime-style format into a Go time layout.
// Unknown directives pass through literally.
func strftimeLayout(format string) string {
	var b strings.Builder
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i+1 >= len(format) {
			b.WriteByte(c)
			continue
		}
		i++
		d := format[i]
		if d == '%' {
			b.WriteByte('%')
			continue
		}
		if layout, ok := strftimeTable[d]; ok {
			b.WriteString(layout)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(d)
	}
	return b.String()
}
