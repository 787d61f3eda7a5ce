package coverage

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"covgen/internal/bins"
)

//go:embed templates/module.sv.tmpl
var templateFS embed.FS

var tmpl = template.Must(template.New("coverage").Funcs(template.FuncMap{
	"binLine": BinLine,
	"join":    strings.Join,
}).ParseFS(templateFS, "templates/module.sv.tmpl"))

var ErrEmptyCoverpoint = errors.New("coverpoint has no bins")

// BinLine renders one bin declaration:
//
//	bins len_v1_25 = {[1:25]};
//	bins mcs[] = {0,1,2};
//	bins len_v1_100[4] = {[1:100]};
func BinLine(b bins.Bin) string {
	name := b.Name
	switch {
	case b.Count > 1:
		name += "[" + strconv.Itoa(b.Count) + "]"
	case b.AutoArray:
		name += "[]"
	}
	return "bins " + name + " = {" + binSet(b) + "};"
}

func binSet(b bins.Bin) string {
	if b.IsInterval() {
		return "[" + b.Low.String() + ":" + b.High.String() + "]"
	}
	vs := make([]string, len(b.Values))
	for i, v := range b.Values {
		vs[i] = strconv.FormatInt(v, 10)
	}
	return strings.Join(vs, ",")
}

// EmitCoverpoint renders a single coverpoint block.
func EmitCoverpoint(cp Coverpoint) (string, error) {
	if len(cp.Bins) == 0 {
		return "", fmt.Errorf("%w: %s", ErrEmptyCoverpoint, cp.Name)
	}
	return execute("coverpoint", cp)
}

// EmitCross renders a single cross declaration.
func EmitCross(c Cross) (string, error) {
	return execute("cross", c)
}

// Render produces the full module text.
func Render(doc *Document) (string, error) {
	if doc == nil {
		return "", errors.New("nil document")
	}
	for _, g := range doc.Groups {
		for _, cp := range g.Coverpoints {
			if len(cp.Bins) == 0 {
				return "", fmt.Errorf("%w: %s in %s", ErrEmptyCoverpoint, cp.Name, g.Name)
			}
		}
	}
	return execute("module", doc)
}

func execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
