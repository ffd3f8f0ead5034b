// Package status renders looper.State snapshots as text for terminals and
// logs. Templates are text/template with the sprig functions and a few
// looper specific ones.
package status

import (
	"fmt"
	"io"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/vsariola/looper"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultTemplate prints one line per looper, the active one marked with >.
const DefaultTemplate = `{{ range .Loops -}}
{{ if .Active }}>{{ else }} {{ end }} {{ printf "%2d" .ID }} {{ title .PlayMode | printf "%-7s" }} {{ title .RecordMode | printf "%-7s" }} {{ seconds .Time }}/{{ seconds .Length }} {{ bar .Time .Length 20 }}
{{ end -}}`

// Formatter renders states with a template. A Formatter is not safe for
// concurrent use.
type Formatter struct {
	tmpl  *template.Template
	caser cases.Caser
}

func New(text string) (*Formatter, error) {
	f := &Formatter{caser: cases.Title(language.English)}
	funcs := template.FuncMap{
		"title":   f.title,
		"seconds": seconds,
		"bar":     bar,
	}
	tmpl, err := template.New("status").Funcs(sprig.TxtFuncMap()).Funcs(funcs).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("could not parse status template: %w", err)
	}
	f.tmpl = tmpl
	return f, nil
}

func (f *Formatter) Format(w io.Writer, state looper.State) error {
	if err := f.tmpl.Execute(w, state); err != nil {
		return fmt.Errorf("could not render status: %w", err)
	}
	return nil
}

func (f *Formatter) title(v fmt.Stringer) string {
	return f.caser.String(v.String())
}

// seconds formats milliseconds as seconds with one decimal.
func seconds(ms int64) string {
	return fmt.Sprintf("%d.%ds", ms/1000, ms%1000/100)
}

// bar draws the position within a loop as a bar of the given width.
func bar(time, length int64, width int) string {
	if width <= 0 {
		return ""
	}
	filled := 0
	if length > 0 {
		filled = int(time * int64(width) / length)
	}
	filled = min(max(filled, 0), width)
	ret := make([]byte, width+2)
	ret[0], ret[width+1] = '[', ']'
	for i := range width {
		ret[i+1] = '-'
		if i < filled {
			ret[i+1] = '#'
		}
	}
	return string(ret)
}
