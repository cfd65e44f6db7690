package view

import (
	"html/template"
	"strings"

	"github.com/rebano/rebano-go/internal/listcache"
)

var htmlTemplates = template.Must(template.New("view").Parse(`
{{- define "item" -}}
<tr data-id="{{.ID}}"{{with .Class}} class="{{.}}"{{end}}>
{{- range .Cells}}<td>{{if .Variant}}<span class="badge badge-{{.Variant}}" data-variant="{{.Variant}}">{{.Text}}</span>{{else}}{{.Text}}{{end}}</td>{{end -}}
{{- if .Actions}}<td>{{range .Actions}}<button type="button" data-action="{{.Name}}" data-id="{{$.ID}}">{{.Label}}</button>{{end}}</td>{{end -}}
</tr>
{{- end -}}

{{- define "empty" -}}
<tr class="empty" data-id="empty"><td colspan="{{.Span}}">{{.Text}}</td></tr>
{{- end -}}

{{- define "stats" -}}
<dl class="stats">{{range .}}<div data-stat="{{.Name}}"><dt>{{.Label}}</dt><dd>{{.Value}}</dd></div>{{end}}</dl>
{{- end -}}
`))

// HTML renders table rows for the browser shell. Every value is escaped by
// html/template; buttons carry data-action and data-id for delegated events.
type HTML struct{}

func (HTML) Item(l Layout, r listcache.Record) (Fragment, error) {
	data := struct {
		ID      string
		Class   string
		Cells   []cell
		Actions []Action
	}{
		ID:      r.ID(),
		Cells:   cells(l, r),
		Actions: l.Actions,
	}
	if l.RowClass != nil {
		data.Class = l.RowClass(r)
	}

	content, err := execute("item", data)
	if err != nil {
		return Fragment{}, err
	}
	return Fragment{ID: data.ID, Content: content}, nil
}

func (HTML) Empty(l Layout) (Fragment, error) {
	span := len(l.Columns)
	if len(l.Actions) > 0 {
		span++
	}
	content, err := execute("empty", struct {
		Span int
		Text string
	}{Span: max(span, 1), Text: l.EmptyText})
	if err != nil {
		return Fragment{}, err
	}
	return Fragment{ID: EmptyID, Content: content}, nil
}

func (HTML) Stats(stats []Stat) (Fragment, error) {
	content, err := execute("stats", stats)
	if err != nil {
		return Fragment{}, err
	}
	return Fragment{ID: StatsID, Content: content}, nil
}

func execute(name string, data any) (string, error) {
	var b strings.Builder
	if err := htmlTemplates.ExecuteTemplate(&b, name, data); err != nil {
		return "", err
	}
	return b.String(), nil
}
