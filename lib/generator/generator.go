package generator

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"go.uber.org/zap"
)

// DefaultSuffix is appended to the source file name of generated files.
const DefaultSuffix = "_hal.go"

const directivePrefix = "//hxhal:"

// Options configures the generator.
type Options struct {
	DryRun bool
	// Suffix of generated files; DefaultSuffix when empty.
	Suffix string
	Logger *zap.Logger
}

// Generator generates adapters and registration functions for resource
// interfaces.
type Generator struct {
	opts Options
	fset *token.FileSet
	log  *zap.Logger
}

// New creates a new generator.
func New(opts Options) *Generator {
	if opts.Suffix == "" {
		opts.Suffix = DefaultSuffix
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{
		opts: opts,
		fset: token.NewFileSet(),
		log:  log,
	}
}

// Generate generates code for the given package patterns.
func (g *Generator) Generate(patterns ...string) error {
	packages, err := g.findPackages(patterns)
	if err != nil {
		return err
	}

	for _, pkg := range packages {
		if err := g.generatePackage(pkg); err != nil {
			return fmt.Errorf("package %s: %w", pkg, err)
		}
	}

	return nil
}

// Clean removes generated files for the given package patterns.
func (g *Generator) Clean(patterns ...string) error {
	packages, err := g.findPackages(patterns)
	if err != nil {
		return err
	}

	for _, pkg := range packages {
		if err := g.cleanPackage(pkg); err != nil {
			return fmt.Errorf("package %s: %w", pkg, err)
		}
	}

	return nil
}

// findPackages resolves package patterns to directory paths.
func (g *Generator) findPackages(patterns []string) ([]string, error) {
	var packages []string

	for _, pattern := range patterns {
		if !strings.HasSuffix(pattern, "/...") {
			packages = append(packages, pattern)
			continue
		}
		root := strings.TrimSuffix(pattern, "/...")
		if root == "" {
			root = "."
		}

		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() {
				return nil
			}
			base := filepath.Base(path)
			if path != root && (strings.HasPrefix(base, ".") || strings.HasPrefix(base, "_") || base == "vendor" || base == "testdata") {
				return filepath.SkipDir
			}

			entries, err := os.ReadDir(path)
			if err != nil {
				return nil
			}
			for _, entry := range entries {
				if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".go") && !strings.HasSuffix(entry.Name(), "_test.go") {
					packages = append(packages, path)
					break
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return packages, nil
}

func (g *Generator) generatePackage(pkgPath string) error {
	pkgs, err := parser.ParseDir(g.fset, pkgPath, func(info os.FileInfo) bool {
		name := info.Name()
		return !strings.HasSuffix(name, "_test.go") && !strings.HasSuffix(name, g.opts.Suffix)
	}, parser.ParseComments)
	if err != nil {
		return err
	}

	for pkgName, pkg := range pkgs {
		structs := structTypes(pkg)

		filenames := make([]string, 0, len(pkg.Files))
		for filename := range pkg.Files {
			filenames = append(filenames, filename)
		}
		sort.Strings(filenames)

		for _, filename := range filenames {
			file := pkg.Files[filename]
			resources, err := g.findResources(file, structs)
			if err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(filename), err)
			}
			if len(resources) == 0 {
				continue
			}
			if err := g.generateFile(filename, pkgName, file, resources); err != nil {
				return err
			}
		}
	}

	return nil
}

func (g *Generator) cleanPackage(pkgPath string) error {
	entries, err := os.ReadDir(pkgPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), g.opts.Suffix) {
			continue
		}
		path := filepath.Join(pkgPath, entry.Name())
		g.log.Info("removing", zap.String("file", path), zap.Bool("dryRun", g.opts.DryRun))
		if g.opts.DryRun {
			continue
		}
		if err := os.Remove(path); err != nil {
			return err
		}
	}

	return nil
}

// ResourceInfo describes one interface marked with //hxhal:resource.
type ResourceInfo struct {
	Name    string
	Methods []MethodInfo
}

// MethodInfo is one directive-tagged method of a resource interface.
type MethodInfo struct {
	Name     string
	Role     string // state, property, related, link or representation
	Relation string
	Property string
	Params   []ParamInfo
	Results  string
	// StructArg is set when the only parameter is a struct of the same
	// package whose fields name the template variables.
	StructArg bool
}

// ParamInfo is a parameter of a generated method.
type ParamInfo struct {
	Name     string
	Type     string
	LinkName bool
}

// findResources finds the resource interfaces declared in file.
func (g *Generator) findResources(file *ast.File, structs map[string]bool) ([]*ResourceInfo, error) {
	var resources []*ResourceInfo

	for _, decl := range file.Decls {
		genDecl, ok := decl.(*ast.GenDecl)
		if !ok || genDecl.Tok != token.TYPE {
			continue
		}

		for _, spec := range genDecl.Specs {
			typeSpec, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			doc := typeSpec.Doc
			if doc == nil && len(genDecl.Specs) == 1 {
				doc = genDecl.Doc
			}
			if _, ok := directive(doc, "resource"); !ok {
				continue
			}

			ifaceType, ok := typeSpec.Type.(*ast.InterfaceType)
			if !ok {
				return nil, fmt.Errorf("%s: //hxhal:resource only applies to interfaces", typeSpec.Name.Name)
			}
			if typeSpec.TypeParams != nil {
				return nil, fmt.Errorf("%s: generic resource interfaces are not supported", typeSpec.Name.Name)
			}

			res := &ResourceInfo{Name: typeSpec.Name.Name}
			for _, field := range ifaceType.Methods.List {
				m, ok, err := parseMethod(field, structs)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", res.Name, err)
				}
				if ok {
					res.Methods = append(res.Methods, m)
				}
			}
			resources = append(resources, res)
		}
	}

	return resources, nil
}

// parseMethod reads one interface method. ok is false for the debug
// String method, which gets a fixed implementation.
func parseMethod(field *ast.Field, structs map[string]bool) (m MethodInfo, ok bool, err error) {
	if len(field.Names) == 0 {
		return m, false, fmt.Errorf("embedded interface %s is not supported", types.ExprString(field.Type))
	}
	fn, isFunc := field.Type.(*ast.FuncType)
	if !isFunc {
		return m, false, fmt.Errorf("%s is not a method", field.Names[0].Name)
	}
	m.Name = field.Names[0].Name

	var directives []string
	if field.Doc != nil {
		for _, c := range field.Doc.List {
			if rest, found := strings.CutPrefix(c.Text, directivePrefix); found {
				directives = append(directives, rest)
			}
		}
	}
	switch len(directives) {
	case 0:
		if m.Name == "String" && len(fn.Params.List) == 0 && fn.Results != nil &&
			len(fn.Results.List) == 1 && types.ExprString(fn.Results.List[0].Type) == "string" {
			return m, false, nil
		}
		return m, false, fmt.Errorf("method %s has no //hxhal: directive", m.Name)
	case 1:
	default:
		return m, false, fmt.Errorf("method %s has %d //hxhal: directives", m.Name, len(directives))
	}

	words := strings.Fields(directives[0])
	if len(words) == 0 {
		return m, false, fmt.Errorf("method %s: empty directive", m.Name)
	}
	m.Role, words = words[0], words[1:]

	var named bool
	if m.Params, named, err = params(fn.Params); err != nil {
		return m, false, fmt.Errorf("method %s: %w", m.Name, err)
	}
	if fn.Results == nil || len(fn.Results.List) != 1 || len(fn.Results.List[0].Names) > 1 {
		return m, false, fmt.Errorf("method %s must have exactly one result", m.Name)
	}
	m.Results = types.ExprString(fn.Results.List[0].Type)

	switch m.Role {
	case "state", "link", "representation":
		if len(words) > 0 {
			return m, false, fmt.Errorf("method %s: //hxhal:%s takes no arguments", m.Name, m.Role)
		}
	case "property":
		if len(words) > 1 {
			return m, false, fmt.Errorf("method %s: //hxhal:property takes at most a name", m.Name)
		}
		if len(words) == 1 {
			m.Property = words[0]
		}
	case "related":
		if len(words) == 0 {
			return m, false, fmt.Errorf("method %s: //hxhal:related needs a relation", m.Name)
		}
		m.Relation = words[0]
		for _, opt := range words[1:] {
			name, found := strings.CutPrefix(opt, "linkname=")
			if !found {
				return m, false, fmt.Errorf("method %s: unknown option %q", m.Name, opt)
			}
			if !markLinkName(m.Params, name) {
				return m, false, fmt.Errorf("method %s: no parameter %q", m.Name, name)
			}
		}
		if len(m.Params) == 1 && structs[strings.TrimPrefix(m.Params[0].Type, "*")] {
			m.StructArg = true
		}
		if !named && !m.StructArg {
			return m, false, fmt.Errorf("method %s: parameters name the template variables and cannot be blank", m.Name)
		}
	default:
		return m, false, fmt.Errorf("method %s: unknown directive //hxhal:%s", m.Name, m.Role)
	}

	if m.Role != "related" && len(m.Params) > 0 {
		return m, false, fmt.Errorf("method %s: only related methods take parameters", m.Name)
	}
	return m, true, nil
}

// params lists the parameters of a method; named is false when any of
// them is unnamed or blank.
func params(list *ast.FieldList) (out []ParamInfo, named bool, err error) {
	named = true
	for _, field := range list.List {
		if _, ok := field.Type.(*ast.Ellipsis); ok {
			return nil, false, fmt.Errorf("variadic parameters are not supported")
		}
		typ := types.ExprString(field.Type)
		if len(field.Names) == 0 {
			out = append(out, ParamInfo{Name: "p" + strconv.Itoa(len(out)), Type: typ})
			named = false
			continue
		}
		for _, name := range field.Names {
			if name.Name == "_" {
				out = append(out, ParamInfo{Name: "p" + strconv.Itoa(len(out)), Type: typ})
				named = false
				continue
			}
			out = append(out, ParamInfo{Name: name.Name, Type: typ})
		}
	}
	return out, named, nil
}

func markLinkName(ps []ParamInfo, name string) bool {
	for i := range ps {
		if ps[i].Name == name {
			ps[i].LinkName = true
			return true
		}
	}
	return false
}

// directive reports whether doc carries //hxhal:<name> and returns the
// rest of that line.
func directive(doc *ast.CommentGroup, name string) (string, bool) {
	if doc == nil {
		return "", false
	}
	for _, c := range doc.List {
		rest, ok := strings.CutPrefix(c.Text, directivePrefix+name)
		if ok && (rest == "" || rest[0] == ' ') {
			return strings.TrimSpace(rest), true
		}
	}
	return "", false
}

// structTypes collects the struct types declared in pkg.
func structTypes(pkg *ast.Package) map[string]bool {
	structs := make(map[string]bool)
	for _, file := range pkg.Files {
		for _, decl := range file.Decls {
			genDecl, ok := decl.(*ast.GenDecl)
			if !ok || genDecl.Tok != token.TYPE {
				continue
			}
			for _, spec := range genDecl.Specs {
				if ts, ok := spec.(*ast.TypeSpec); ok {
					if _, ok := ts.Type.(*ast.StructType); ok {
						structs[ts.Name.Name] = true
					}
				}
			}
		}
	}
	return structs
}

// qualifiers returns the package qualifiers used by the method signatures.
func (r *ResourceInfo) qualifiers(file *ast.File) map[string]bool {
	used := make(map[string]bool)
	for _, decl := range file.Decls {
		genDecl, ok := decl.(*ast.GenDecl)
		if !ok || genDecl.Tok != token.TYPE {
			continue
		}
		for _, spec := range genDecl.Specs {
			ts, ok := spec.(*ast.TypeSpec)
			if !ok || ts.Name.Name != r.Name {
				continue
			}
			ast.Inspect(ts.Type, func(n ast.Node) bool {
				if sel, ok := n.(*ast.SelectorExpr); ok {
					if id, ok := sel.X.(*ast.Ident); ok {
						used[id.Name] = true
					}
				}
				return true
			})
		}
	}
	return used
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
