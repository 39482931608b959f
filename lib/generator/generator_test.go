package generator

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogSource = `package catalog

import (
	"time"

	"github.com/pthm/hxhal"
	"github.com/pthm/hxhal/lib/hal"
)

type ProductState struct {
	Name string
}

type Filter struct {
	Page *int ` + "`hal:\"page\"`" + `
}

// Product is a catalog entry.
//
//hxhal:resource
type Product interface {
	//hxhal:state
	State() *hxhal.Single[ProductState]
	//hxhal:property price
	Price() *hxhal.Single[float64]
	//hxhal:related reviews
	Reviews(page, size *int) *hxhal.Many[Review]
	//hxhal:related variant linkname=name
	Variant(name *string) *hxhal.Optional[Product]
	//hxhal:related reviews
	Filtered(f Filter) *hxhal.Many[Review]
	//hxhal:link
	Self() hal.Link
	String() string
}

//hxhal:resource
type Review interface {
	//hxhal:property
	Posted() *hxhal.Single[time.Time]
	//hxhal:representation
	Raw() *hxhal.Single[*hal.Document]
}

type notAResource interface {
	Other() string
}
`

func parse(t *testing.T, code string) (*Generator, []*ResourceInfo) {
	t.Helper()
	g := New(Options{})
	file, err := parser.ParseFile(token.NewFileSet(), "catalog.go", code, parser.ParseComments)
	require.NoError(t, err)
	resources, err := g.findResources(file, map[string]bool{"Filter": true, "ProductState": true})
	require.NoError(t, err)
	return g, resources
}

func TestFindResources(t *testing.T) {
	_, resources := parse(t, catalogSource)
	require.Len(t, resources, 2)

	product := resources[0]
	assert.Equal(t, "Product", product.Name)
	require.Len(t, product.Methods, 6, "String is not a tagged method")

	state := product.Methods[0]
	assert.Equal(t, "state", state.Role)
	assert.Equal(t, "*hxhal.Single[ProductState]", state.Results)

	price := product.Methods[1]
	assert.Equal(t, "property", price.Role)
	assert.Equal(t, "price", price.Property)

	reviews := product.Methods[2]
	assert.Equal(t, "reviews", reviews.Relation)
	assert.Equal(t, []ParamInfo{{Name: "page", Type: "*int"}, {Name: "size", Type: "*int"}}, reviews.Params)

	variant := product.Methods[3]
	require.Len(t, variant.Params, 1)
	assert.True(t, variant.Params[0].LinkName)

	assert.True(t, product.Methods[4].StructArg)
	assert.Equal(t, "link", product.Methods[5].Role)

	review := resources[1]
	assert.Equal(t, "Review", review.Name)
	assert.Equal(t, "", review.Methods[0].Property)
	assert.Equal(t, "representation", review.Methods[1].Role)
}

func TestFindResources_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"untagged", "Title() *hxhal.Single[string]", "has no //hxhal: directive"},
		{"unknown directive", "//hxhal:embedded\nTitle() *hxhal.Single[string]", "unknown directive"},
		{"two directives", "//hxhal:state\n//hxhal:link\nTitle() string", "2 //hxhal: directives"},
		{"related without rel", "//hxhal:related\nItems() *hxhal.Many[X]", "needs a relation"},
		{"bad option", "//hxhal:related item sort=a\nItems(a *int) *hxhal.Many[X]", `unknown option "sort=a"`},
		{"missing linkname param", "//hxhal:related item linkname=b\nItems(a *int) *hxhal.Many[X]", `no parameter "b"`},
		{"params on state", "//hxhal:state\nState(a int) *hxhal.Single[S]", "only related methods take parameters"},
		{"unnamed params", "//hxhal:related item\nItems(*int) *hxhal.Many[X]", "cannot be blank"},
		{"variadic", "//hxhal:related item\nItems(a ...int) *hxhal.Many[X]", "variadic"},
		{"two results", "//hxhal:link\nSelf() (hal.Link, error)", "exactly one result"},
		{"embedded", "fmt.Stringer", "embedded interface fmt.Stringer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := "package x\n\n//hxhal:resource\ntype X interface {\n" + tt.body + "\n}\n"
			file, err := parser.ParseFile(token.NewFileSet(), "x.go", code, parser.ParseComments)
			require.NoError(t, err)
			_, err = New(Options{}).findResources(file, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestFindResources_NotAnInterface(t *testing.T) {
	file, err := parser.ParseFile(token.NewFileSet(), "x.go", "package x\n\n//hxhal:resource\ntype X struct{}\n", parser.ParseComments)
	require.NoError(t, err)
	_, err = New(Options{}).findResources(file, nil)
	assert.ErrorContains(t, err, "only applies to interfaces")
}

func TestRender(t *testing.T) {
	g, resources := parse(t, catalogSource)
	file, err := parser.ParseFile(token.NewFileSet(), "catalog.go", catalogSource, parser.ParseComments)
	require.NoError(t, err)

	code, err := g.render("catalog.go", "catalog", file, resources)
	require.NoError(t, err)
	out := string(code)

	for _, want := range []string{
		"// Code generated by hxhal. DO NOT EDIT.",
		`"github.com/pthm/hxhal/lib/hal"`,
		`"time"`,
		"func RegisterProduct(reg *hxhal.Registry) error {",
		"return hxhal.Register[Product](reg, newProductProxy,",
		`hxhal.State("State"),`,
		`hxhal.Property("Price", "price"),`,
		`hxhal.Related("Reviews", "reviews", hxhal.Var("page"), hxhal.Var("size")),`,
		`hxhal.Related("Variant", "variant", hxhal.LinkName("name")),`,
		`hxhal.Related("Filtered", "reviews"),`,
		`hxhal.Link("Self"),`,
		"var _ Product = (*productProxy)(nil)",
		"func (x *productProxy) Reviews(page *int, size *int) *hxhal.Many[Review] {",
		`return hxhal.Call[*hxhal.Many[Review]](x.p, "Reviews", page, size)`,
		"func (x *reviewProxy) String() string {",
		`hxhal.Representation("Raw"),`,
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "notAResource")
}

func TestImportName(t *testing.T) {
	tests := map[string]string{
		"time":                          "time",
		"github.com/pthm/hxhal/lib/hal": "hal",
		"gopkg.in/yaml.v3":              "yaml",
		"github.com/labstack/echo/v4":   "echo",
		"github.com/go-chi/chi":         "chi",
	}
	for in, want := range tests {
		assert.Equal(t, want, importName(in), in)
	}
}

func TestGenerateAndClean(t *testing.T) {
	dir := t.TempDir()
	pkg := filepath.Join(dir, "catalog")
	require.NoError(t, os.MkdirAll(pkg, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pkg, "catalog.go"), []byte(catalogSource), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(pkg, "plain.go"), []byte("package catalog\n\nconst n = 1\n"), 0o644))

	hidden := filepath.Join(dir, "_skip")
	require.NoError(t, os.MkdirAll(hidden, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(hidden, "x.go"), []byte("package skip\n\n//hxhal:resource\ntype X interface{ Y() }\n"), 0o644))

	dry := New(Options{DryRun: true})
	require.NoError(t, dry.Generate(dir+"/..."))
	_, err := os.Stat(filepath.Join(pkg, "catalog_hal.go"))
	assert.True(t, os.IsNotExist(err), "dry run writes nothing")

	g := New(Options{})
	require.NoError(t, g.Generate(dir+"/..."))

	out, err := os.ReadFile(filepath.Join(pkg, "catalog_hal.go"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "// Code generated by hxhal. DO NOT EDIT."))
	_, err = os.Stat(filepath.Join(pkg, "plain_hal.go"))
	assert.True(t, os.IsNotExist(err), "files without resources get no output")

	// Regenerating ignores the generated file.
	require.NoError(t, g.Generate(pkg))

	require.NoError(t, g.Clean(dir+"/..."))
	_, err = os.Stat(filepath.Join(pkg, "catalog_hal.go"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(pkg, "catalog.go"))
	assert.NoError(t, err)
}

func TestGenerate_CustomSuffix(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.go"), []byte(catalogSource), 0o644))

	g := New(Options{Suffix: ".gen.go"})
	require.NoError(t, g.Generate(dir))
	_, err := os.Stat(filepath.Join(dir, "catalog.gen.go"))
	require.NoError(t, err)
}
