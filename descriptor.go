package hxhal

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pthm/hxhal/lib/hal"
)

// Role is the purpose of a resource interface method.
type Role int

const (
	// RoleLink returns the proxy's own link.
	RoleLink Role = iota + 1
	// RoleState returns the document state as a plain data type.
	RoleState
	// RoleProperty returns a single named state field.
	RoleProperty
	// RoleRelated returns resources reachable through a relation.
	RoleRelated
	// RoleRepresentation returns the raw representation.
	RoleRepresentation
)

func (r Role) String() string {
	switch r {
	case RoleLink:
		return "link"
	case RoleState:
		return "state"
	case RoleProperty:
		return "property"
	case RoleRelated:
		return "related"
	case RoleRepresentation:
		return "representation"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// Cardinality is the number of values a method result can hold.
type Cardinality int

const (
	ExactlyOne Cardinality = iota + 1
	ZeroOrOne
	ZeroOrMany
)

func (c Cardinality) String() string {
	switch c {
	case ExactlyOne:
		return "exactly-one"
	case ZeroOrOne:
		return "zero-or-one"
	case ZeroOrMany:
		return "zero-or-many"
	default:
		return fmt.Sprintf("Cardinality(%d)", int(c))
	}
}

// RepresentationShape is the form a representation method returns.
type RepresentationShape int

const (
	// ShapeDocument is a *hal.Document.
	ShapeDocument RepresentationShape = iota + 1
	// ShapeTree is a generic map[string]any.
	ShapeTree
	// ShapeRaw is the serialized JSON as json.RawMessage.
	ShapeRaw
	// ShapeString is the serialized JSON as a string.
	ShapeString
)

// TemplateVar names one parameter of a related method. When LinkName is
// set, the argument selects links by name instead of expanding a template.
type TemplateVar struct {
	Name     string
	LinkName bool
}

// Var names a URI template variable.
func Var(name string) TemplateVar {
	return TemplateVar{Name: name}
}

// LinkName names a parameter that filters links by their name.
func LinkName(name string) TemplateVar {
	return TemplateVar{Name: name, LinkName: true}
}

// MethodTag assigns a role to an interface method at registration.
type MethodTag struct {
	method   string
	role     Role
	relation string
	property string
	vars     []TemplateVar
}

// State tags method as returning the document state.
func State(method string) MethodTag {
	return MethodTag{method: method, role: RoleState}
}

// Property tags method as returning the state field name. An empty name is
// derived from the method name: "GetTitle" and "Title" read "title",
// "IsActive" reads "active".
func Property(method, name string) MethodTag {
	return MethodTag{method: method, role: RoleProperty, property: name}
}

// Related tags method as returning the resources under relation. vars name
// the method's parameters in order.
func Related(method, relation string, vars ...TemplateVar) MethodTag {
	return MethodTag{method: method, role: RoleRelated, relation: relation, vars: vars}
}

// Link tags method as returning the proxy's own link.
func Link(method string) MethodTag {
	return MethodTag{method: method, role: RoleLink}
}

// Representation tags method as returning the raw representation.
func Representation(method string) MethodTag {
	return MethodTag{method: method, role: RoleRepresentation}
}

// MethodDescriptor is the classified form of one interface method.
type MethodDescriptor struct {
	Interface   string
	Name        string
	Role        Role
	Cardinality Cardinality
	// Sync is set for methods returning plain values instead of an
	// asynchronous container. Proxies block on them.
	Sync bool
	// Relation is the link relation of a related method.
	Relation string
	// Property is the state field of a property method.
	Property string
	// Vars name the parameters of a related method.
	Vars []TemplateVar
	// StructArg is set when Vars come from the fields of a single struct
	// parameter.
	StructArg bool
	// Elem is the element type held by the result.
	Elem reflect.Type
	// Return is the declared result type.
	Return reflect.Type
	// Shape is set for representation methods.
	Shape RepresentationShape

	conv   Conversion
	params []reflect.Type
	fields []int
}

func (m *MethodDescriptor) String() string {
	return m.Interface + "#" + m.Name
}

// InterfaceDescriptor is the classified form of a resource interface.
type InterfaceDescriptor struct {
	Type    reflect.Type
	Name    string
	Methods []*MethodDescriptor

	byName map[string]*MethodDescriptor
}

// Method returns the descriptor of the named method.
func (d *InterfaceDescriptor) Method(name string) (*MethodDescriptor, bool) {
	m, ok := d.byName[name]
	return m, ok
}

// Exported reports whether the interface type is exported.
func (d *InterfaceDescriptor) Exported() bool {
	r, _ := utf8.DecodeRuneInString(d.Type.Name())
	return unicode.IsUpper(r)
}

var (
	linkType     = reflect.TypeOf(hal.Link{})
	documentType = reflect.TypeOf((*hal.Document)(nil))
	treeType     = reflect.TypeOf(map[string]any(nil))
	rawType      = reflect.TypeOf(json.RawMessage(nil))
	stringType   = reflect.TypeOf("")
)

// describe classifies every method of iface. Any violation is reported as
// a ContractError naming the offending method.
func describe(iface reflect.Type, tags []MethodTag, convs conversions) (*InterfaceDescriptor, error) {
	if iface.Kind() != reflect.Interface {
		return nil, contractErrorf(iface.String(), "resource types must be interfaces")
	}
	name := iface.Name()
	if name == "" {
		name = iface.String()
	}
	desc := &InterfaceDescriptor{
		Type:   iface,
		Name:   name,
		byName: make(map[string]*MethodDescriptor),
	}

	byMethod := make(map[string][]MethodTag)
	for _, tag := range tags {
		if _, ok := iface.MethodByName(tag.method); !ok {
			return nil, contractErrorf(name+"#"+tag.method, "tagged method does not exist")
		}
		byMethod[tag.method] = append(byMethod[tag.method], tag)
	}

	for i := 0; i < iface.NumMethod(); i++ {
		m := iface.Method(i)
		if isDebugMethod(m) {
			continue
		}
		md, err := classify(name, m, byMethod[m.Name], convs)
		if err != nil {
			return nil, err
		}
		desc.Methods = append(desc.Methods, md)
		desc.byName[md.Name] = md
	}
	return desc, nil
}

// isDebugMethod matches String() string, which proxies implement themselves.
func isDebugMethod(m reflect.Method) bool {
	return m.Name == "String" && m.Type.NumIn() == 0 && m.Type.NumOut() == 1 && m.Type.Out(0) == stringType
}

func classify(iface string, m reflect.Method, tags []MethodTag, convs conversions) (*MethodDescriptor, error) {
	subject := iface + "#" + m.Name
	if !m.IsExported() {
		return nil, contractErrorf(subject, "unexported methods cannot be bound")
	}
	if len(tags) == 0 {
		return nil, contractErrorf(subject, "method has no role; tag it as state, property, related, link or representation")
	}
	if len(tags) > 1 {
		roles := make([]string, len(tags))
		for i, t := range tags {
			roles[i] = t.role.String()
		}
		return nil, contractErrorf(subject, "method has more than one role (%s)", strings.Join(roles, ", "))
	}
	tag := tags[0]

	mt := m.Type
	if mt.NumOut() != 1 {
		return nil, contractErrorf(subject, "method must return exactly one value")
	}
	md := &MethodDescriptor{
		Interface: iface,
		Name:      m.Name,
		Role:      tag.role,
		Return:    mt.Out(0),
	}
	for i := 0; i < mt.NumIn(); i++ {
		md.params = append(md.params, mt.In(i))
	}
	if md.Role != RoleRelated && len(md.params) > 0 {
		return nil, contractErrorf(subject, "only related methods take parameters")
	}

	if md.Role == RoleLink {
		if md.Return != linkType && md.Return.Kind() != reflect.String {
			return nil, contractErrorf(subject, "link methods must return hal.Link or string, not %s", md.Return)
		}
		md.Elem = md.Return
		md.Cardinality = ExactlyOne
		md.Sync = true
		md.conv = syncConversion{}
		return md, nil
	}

	conv, shape, ok := convs.match(md.Return)
	if !ok {
		return nil, contractErrorf(subject, "unsupported return type %s", md.Return)
	}
	md.conv = conv
	md.Elem = shape.Elem
	md.Cardinality = shape.Cardinality
	md.Sync = shape.Sync

	switch md.Role {
	case RoleState:
		if isResourceInterface(md.Elem) {
			return nil, contractErrorf(subject, "state must be a plain data type, not the resource interface %s", md.Elem)
		}
		if md.Cardinality == ZeroOrMany {
			return nil, contractErrorf(subject, "state must hold a single value")
		}
	case RoleProperty:
		if md.Cardinality == ZeroOrMany || md.Elem.Kind() == reflect.Slice || md.Elem.Kind() == reflect.Array {
			return nil, contractErrorf(subject, "arrays are not supported for single property extraction")
		}
		if isResourceInterface(md.Elem) {
			return nil, contractErrorf(subject, "property must be a plain data type, not the resource interface %s", md.Elem)
		}
		md.Property = tag.property
		if md.Property == "" {
			md.Property = propertyName(m.Name)
		}
	case RoleRelated:
		if tag.relation == "" {
			return nil, contractErrorf(subject, "related methods need a relation")
		}
		md.Relation = tag.relation
		if md.Sync || md.Cardinality == ExactlyOne {
			return nil, contractErrorf(subject, "related methods must return a zero-or-one or zero-or-many container, not %s", md.Return)
		}
		if !isResourceInterface(md.Elem) && md.Elem != linkType {
			return nil, contractErrorf(subject, "related methods must hold a resource interface or hal.Link, not %s", md.Elem)
		}
		if err := bindVars(subject, md, tag.vars); err != nil {
			return nil, err
		}
	case RoleRepresentation:
		if md.Sync || md.Cardinality != ExactlyOne {
			return nil, contractErrorf(subject, "representation methods must return a single-value container")
		}
		switch md.Elem {
		case documentType:
			md.Shape = ShapeDocument
		case treeType:
			md.Shape = ShapeTree
		case rawType:
			md.Shape = ShapeRaw
		case stringType:
			md.Shape = ShapeString
		default:
			return nil, contractErrorf(subject, "unsupported representation type %s", md.Elem)
		}
	default:
		return nil, contractErrorf(subject, "unknown role %s", md.Role)
	}
	return md, nil
}

// bindVars names the parameters of a related method, either from the tag
// or from the fields of a single struct parameter.
func bindVars(subject string, md *MethodDescriptor, vars []TemplateVar) error {
	switch {
	case len(md.params) == 0:
		if len(vars) > 0 {
			return contractErrorf(subject, "%d template variables named but the method takes no parameters", len(vars))
		}
		return nil
	case len(vars) > 0:
		if len(vars) != len(md.params) {
			return contractErrorf(subject, "%d template variables named for %d parameters", len(vars), len(md.params))
		}
		for _, v := range vars {
			if v.Name == "" {
				return contractErrorf(subject, "template variables need a name")
			}
		}
		md.Vars = append([]TemplateVar(nil), vars...)
		return nil
	case len(md.params) == 1 && structType(md.params[0]) != nil:
		st := structType(md.params[0])
		for i := 0; i < st.NumField(); i++ {
			f := st.Field(i)
			if !f.IsExported() {
				continue
			}
			v, ok := fieldVar(f)
			if !ok {
				continue
			}
			md.Vars = append(md.Vars, v)
			md.fields = append(md.fields, i)
		}
		if len(md.Vars) == 0 {
			return contractErrorf(subject, "struct parameter %s has no exported fields", st)
		}
		md.StructArg = true
		return nil
	default:
		return contractErrorf(subject, "parameters need template variable names; use Var tags, a single struct parameter or the generator")
	}
}

// fieldVar reads the `hal:"name[,linkname]"` tag of a struct field.
func fieldVar(f reflect.StructField) (TemplateVar, bool) {
	tag := f.Tag.Get("hal")
	if tag == "-" {
		return TemplateVar{}, false
	}
	name, opts, _ := strings.Cut(tag, ",")
	if name == "" {
		name = lowerFirst(f.Name)
	}
	return TemplateVar{Name: name, LinkName: opts == "linkname"}, true
}

func structType(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	return t
}

// isResourceInterface reports whether t is a non-empty interface.
func isResourceInterface(t reflect.Type) bool {
	return t.Kind() == reflect.Interface && t.NumMethod() > 0
}

func propertyName(method string) string {
	for _, prefix := range []string{"Get", "Is"} {
		rest, ok := strings.CutPrefix(method, prefix)
		if !ok || rest == "" {
			continue
		}
		if r, _ := utf8.DecodeRuneInString(rest); unicode.IsUpper(r) {
			return lowerFirst(rest)
		}
	}
	return lowerFirst(method)
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
