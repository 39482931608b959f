package generator

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/format"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"go.uber.org/zap"
)

// ImportPath is the import path of the runtime package generated code uses.
const ImportPath = "github.com/pthm/hxhal"

// generateFile writes the generated file for the resources of one source
// file.
func (g *Generator) generateFile(sourceFile, pkgName string, file *ast.File, resources []*ResourceInfo) error {
	baseName := strings.TrimSuffix(filepath.Base(sourceFile), ".go")
	outputFile := filepath.Join(filepath.Dir(sourceFile), baseName+g.opts.Suffix)

	g.log.Info("generating",
		zap.String("file", outputFile),
		zap.Int("resources", len(resources)),
		zap.Bool("dryRun", g.opts.DryRun),
	)

	if g.opts.DryRun {
		return nil
	}

	code, err := g.render(filepath.Base(sourceFile), pkgName, file, resources)
	if err != nil {
		return err
	}
	return os.WriteFile(outputFile, code, 0644)
}

// render produces the formatted source of a generated file.
func (g *Generator) render(sourceName, pkgName string, file *ast.File, resources []*ResourceInfo) ([]byte, error) {
	tmpl, err := template.New("hal").Funcs(template.FuncMap{
		"tag":         tagCode,
		"signature":   signature,
		"arguments":   arguments,
		"proxyType":   proxyType,
		"constructor": constructor,
		"register":    registerFunc,
	}).Parse(halTemplate)
	if err != nil {
		return nil, err
	}

	data := struct {
		Source    string
		Package   string
		Imports   []importSpec
		Resources []*ResourceInfo
	}{
		Source:    sourceName,
		Package:   pkgName,
		Imports:   imports(file, resources),
		Resources: resources,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	formatted, err := format.Source(buf.Bytes())
	if err != nil {
		g.log.Debug("unformatted output", zap.String("source", sourceName), zap.ByteString("code", buf.Bytes()))
		return nil, fmt.Errorf("format source: %w", err)
	}
	return formatted, nil
}

type importSpec struct {
	Name string
	Path string
}

var versionElem = regexp.MustCompile(`^v[0-9]+$`)

// imports picks the imports of file that the resource signatures use.
func imports(file *ast.File, resources []*ResourceInfo) []importSpec {
	used := make(map[string]bool)
	for _, r := range resources {
		for q := range r.qualifiers(file) {
			used[q] = true
		}
	}

	var out []importSpec
	for _, spec := range file.Imports {
		p, err := strconv.Unquote(spec.Path.Value)
		if err != nil || p == ImportPath {
			continue
		}
		name := importName(p)
		explicit := ""
		if spec.Name != nil {
			name = spec.Name.Name
			explicit = name
		}
		if used[name] {
			out = append(out, importSpec{Name: explicit, Path: p})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// importName guesses the package name of an import path the way goimports
// does for unresolved paths.
func importName(p string) string {
	elem := path.Base(p)
	if versionElem.MatchString(elem) {
		elem = path.Base(path.Dir(p))
	}
	elem = strings.TrimPrefix(elem, "go-")
	if i := strings.IndexAny(elem, ".-"); i >= 0 {
		elem = elem[:i]
	}
	return elem
}

func tagCode(m MethodInfo) string {
	switch m.Role {
	case "state":
		return fmt.Sprintf("hxhal.State(%q)", m.Name)
	case "property":
		return fmt.Sprintf("hxhal.Property(%q, %q)", m.Name, m.Property)
	case "link":
		return fmt.Sprintf("hxhal.Link(%q)", m.Name)
	case "representation":
		return fmt.Sprintf("hxhal.Representation(%q)", m.Name)
	}
	args := []string{strconv.Quote(m.Name), strconv.Quote(m.Relation)}
	if !m.StructArg {
		for _, p := range m.Params {
			if p.LinkName {
				args = append(args, fmt.Sprintf("hxhal.LinkName(%q)", p.Name))
			} else {
				args = append(args, fmt.Sprintf("hxhal.Var(%q)", p.Name))
			}
		}
	}
	return "hxhal.Related(" + strings.Join(args, ", ") + ")"
}

func signature(m MethodInfo) string {
	parts := make([]string, len(m.Params))
	for i, p := range m.Params {
		parts[i] = p.Name + " " + p.Type
	}
	return strings.Join(parts, ", ")
}

func arguments(m MethodInfo) string {
	var sb strings.Builder
	for _, p := range m.Params {
		sb.WriteString(", ")
		sb.WriteString(p.Name)
	}
	return sb.String()
}

func proxyType(r *ResourceInfo) string { return lowerFirst(r.Name) + "Proxy" }

func constructor(r *ResourceInfo) string { return "new" + upperFirst(r.Name) + "Proxy" }

func registerFunc(r *ResourceInfo) string {
	if ast.IsExported(r.Name) {
		return "Register" + r.Name
	}
	return "register" + upperFirst(r.Name)
}

const halTemplate = `// Code generated by hxhal. DO NOT EDIT.
// Source: {{.Source}}

package {{.Package}}

import (
	"github.com/pthm/hxhal"
{{- range .Imports}}
	{{if .Name}}{{.Name}} {{end}}"{{.Path}}"
{{- end}}
)
{{range $r := .Resources}}
// {{register $r}} registers {{$r.Name}} and its proxy adapter with reg.
func {{register $r}}(reg *hxhal.Registry) error {
	return hxhal.Register[{{$r.Name}}](reg, {{constructor $r}}
	{{- range $r.Methods}},
		{{tag .}}
	{{- end}},
	)
}

type {{proxyType $r}} struct {
	p *hxhal.Proxy
}

var _ {{$r.Name}} = (*{{proxyType $r}})(nil)

func {{constructor $r}}(p *hxhal.Proxy) {{$r.Name}} {
	return &{{proxyType $r}}{p: p}
}
{{range $m := $r.Methods}}
func (x *{{proxyType $r}}) {{$m.Name}}({{signature $m}}) {{$m.Results}} {
	return hxhal.Call[{{$m.Results}}](x.p, "{{$m.Name}}"{{arguments $m}})
}
{{end}}
func (x *{{proxyType $r}}) String() string {
	return x.p.String()
}
{{end}}`
