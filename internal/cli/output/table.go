package output

import (
	"fmt"
	"io"
	"reflect"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/yndnr/trayctl/internal/core/domain"
	"github.com/yndnr/trayctl/internal/core/service"
)

// TableFormatter renders results for a human reader.
type TableFormatter struct {
	Style     Style
	NoHeaders bool
}

// Format renders known result types with their dedicated layout, a Table
// as is, and any other struct or slice of structs as a table.
func (f *TableFormatter) Format(w io.Writer, data any) error {
	switch d := data.(type) {
	case nil:
		return nil
	case *domain.ActionResult:
		return RenderResult(w, d, f.Style)
	case *service.StatusReport:
		return RenderStatus(w, d, f.Style)
	case *service.DiffReport:
		return RenderDiff(w, d, f.Style)
	case *Table:
		return d.RenderWithOptions(w, f.NoHeaders)
	case Table:
		return d.RenderWithOptions(w, f.NoHeaders)
	}

	table, err := toTable(data)
	if err != nil {
		return (&JSONFormatter{}).Format(w, data)
	}
	return table.RenderWithOptions(w, f.NoHeaders)
}

// toTable converts a struct to FIELD/VALUE rows and a slice of structs to
// one row per element.
func toTable(data any) (*Table, error) {
	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Struct:
		t := &Table{Headers: []string{"FIELD", "VALUE"}}
		for _, f := range fields(v.Type()) {
			t.AddRow(f.name, formatValue(v.Field(f.index)))
		}
		return t, nil

	case reflect.Slice, reflect.Array:
		elem := v.Type().Elem()
		if elem.Kind() == reflect.Ptr {
			elem = elem.Elem()
		}
		if elem.Kind() != reflect.Struct {
			return nil, fmt.Errorf("unsupported element type: %s", elem.Kind())
		}
		fs := fields(elem)
		t := &Table{}
		for _, f := range fs {
			t.Headers = append(t.Headers, strings.ToUpper(f.name))
		}
		for i := 0; i < v.Len(); i++ {
			row := reflect.Indirect(v.Index(i))
			cells := make([]string, 0, len(fs))
			for _, f := range fs {
				if row.IsValid() {
					cells = append(cells, formatValue(row.Field(f.index)))
				} else {
					cells = append(cells, "-")
				}
			}
			t.AddRow(cells...)
		}
		return t, nil

	default:
		return nil, fmt.Errorf("unsupported type: %s", v.Kind())
	}
}

type field struct {
	name  string
	index int
}

// fields lists exported fields named by their json tag. `table:"-"` hides
// a field.
func fields(t reflect.Type) []field {
	var out []field
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() || sf.Tag.Get("table") == "-" {
			continue
		}
		name := sf.Name
		if tag, _, _ := strings.Cut(sf.Tag.Get("json"), ","); tag != "" && tag != "-" {
			name = tag
		}
		out = append(out, field{name: name, index: i})
	}
	return out
}

// formatValue formats a reflect.Value for display.
func formatValue(v reflect.Value) string {
	if !v.IsValid() {
		return "-"
	}
	if v.Kind() == reflect.Interface || v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return "-"
		}
		v = v.Elem()
	}

	if t, ok := v.Interface().(time.Time); ok {
		return formatTime(t)
	}
	if s, ok := v.Interface().(fmt.Stringer); ok {
		return dash(s.String())
	}

	switch v.Kind() {
	case reflect.String:
		return dash(v.String())
	case reflect.Bool:
		if v.Bool() {
			return "yes"
		}
		return "no"
	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return "-"
		}
		return fmt.Sprintf("[%d items]", v.Len())
	default:
		return fmt.Sprintf("%v", v.Interface())
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Table represents tabular data.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Render renders the table to the writer.
func (t *Table) Render(w io.Writer) error {
	return t.RenderWithOptions(w, false)
}

// RenderWithOptions renders the table with options.
func (t *Table) RenderWithOptions(w io.Writer, noHeaders bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if !noHeaders && len(t.Headers) > 0 {
		fmt.Fprintln(tw, strings.Join(t.Headers, "\t"))
	}
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// AddRow adds a row to the table.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}
