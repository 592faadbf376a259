package funcs

import (
	"text/template"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var TemplateFuncs = template.FuncMap{
	"now": time.Now,
	"titlecase": func(s string) string {
		return cases.Title(language.English).String(s)
	},
	"formatTime": func(format string, t time.Time) string {
		return t.Format(format)
	},
}
