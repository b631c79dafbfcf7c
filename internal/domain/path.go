package domain

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// PathElement stores one named element of a parsed path with its attributes.
type PathElement struct {
	Name       string
	Attributes map[string]string
}

// Attribute returns one attribute value and whether it is present.
func (e PathElement) Attribute(name string) (string, bool) {
	value, ok := e.Attributes[name]
	return value, ok
}

// AttributeNames returns attribute names in canonical (sorted) order.
func (e PathElement) AttributeNames() []string {
	return slices.Sorted(maps.Keys(e.Attributes))
}

// String renders the element in canonical form with sorted attributes.
func (e PathElement) String() string {
	var b strings.Builder
	b.WriteString(e.Name)
	for _, name := range e.AttributeNames() {
		value := e.Attributes[name]
		quote := `"`
		if strings.Contains(value, `"`) {
			quote = `'`
		}
		b.WriteString(`[@`)
		b.WriteString(name)
		b.WriteString(`=`)
		b.WriteString(quote)
		b.WriteString(value)
		b.WriteString(quote)
		b.WriteString(`]`)
	}
	return b.String()
}

// clone returns a deep copy so callers cannot mutate parsed paths.
func (e PathElement) clone() PathElement {
	return PathElement{
		Name:       e.Name,
		Attributes: maps.Clone(e.Attributes),
	}
}

// PathAddress stores one immutable, structurally parsed data path.
type PathAddress struct {
	elements []PathElement
}

// ParsePath parses a hierarchical path string without consulting any schema.
func ParsePath(raw string) (PathAddress, error) {
	p := pathParser{src: raw}
	elements, err := p.parse()
	if err != nil {
		return PathAddress{}, err
	}
	return PathAddress{elements: elements}, nil
}

// MustParsePath parses a path and panics on malformed input. Intended for literals.
func MustParsePath(raw string) PathAddress {
	p, err := ParsePath(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// Size returns the number of elements in the path.
func (p PathAddress) Size() int {
	return len(p.elements)
}

// IsZero reports whether the value was never produced by ParsePath.
func (p PathAddress) IsZero() bool {
	return len(p.elements) == 0
}

// Element returns a copy of the element at index i; negative i counts from the end.
func (p PathAddress) Element(i int) (PathElement, error) {
	idx, err := p.resolveIndex(i)
	if err != nil {
		return PathElement{}, err
	}
	return p.elements[idx].clone(), nil
}

// ElementName returns the element name at index i; negative i counts from the end.
func (p PathAddress) ElementName(i int) (string, error) {
	idx, err := p.resolveIndex(i)
	if err != nil {
		return "", err
	}
	return p.elements[idx].Name, nil
}

// AttributeValue returns one attribute of the element at index i, or "" when it is absent.
func (p PathAddress) AttributeValue(i int, name string) (string, error) {
	idx, err := p.resolveIndex(i)
	if err != nil {
		return "", err
	}
	return p.elements[idx].Attributes[name], nil
}

// ContainsElement reports whether any element carries the given name.
func (p PathAddress) ContainsElement(name string) bool {
	return p.FindElement(name) >= 0
}

// FindElement returns the index of the first element with the given name, or -1.
func (p PathAddress) FindElement(name string) int {
	for i, el := range p.elements {
		if el.Name == name {
			return i
		}
	}
	return -1
}

// ContainsAttribute reports whether any element carries the named attribute.
func (p PathAddress) ContainsAttribute(name string) bool {
	for _, el := range p.elements {
		if _, ok := el.Attributes[name]; ok {
			return true
		}
	}
	return false
}

// ContainsAttributeValue reports whether any element carries attr with exactly value.
func (p PathAddress) ContainsAttributeValue(attr, value string) bool {
	for _, el := range p.elements {
		if v, ok := el.Attributes[attr]; ok && v == value {
			return true
		}
	}
	return false
}

// Elements returns a deep copy of all elements in order.
func (p PathAddress) Elements() []PathElement {
	out := make([]PathElement, 0, len(p.elements))
	for _, el := range p.elements {
		out = append(out, el.clone())
	}
	return out
}

// String renders the canonical `//a/b[@k="v"]` form.
func (p PathAddress) String() string {
	if len(p.elements) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("/")
	for _, el := range p.elements {
		b.WriteString("/")
		b.WriteString(el.String())
	}
	return b.String()
}

// Equal reports whether two paths have the same canonical form.
func (p PathAddress) Equal(other PathAddress) bool {
	if len(p.elements) != len(other.elements) {
		return false
	}
	for i := range p.elements {
		if p.elements[i].Name != other.elements[i].Name {
			return false
		}
		if !maps.Equal(p.elements[i].Attributes, other.elements[i].Attributes) {
			return false
		}
	}
	return true
}

// resolveIndex adjusts negative indices and bounds-checks the result.
func (p PathAddress) resolveIndex(i int) (int, error) {
	idx := i
	if idx < 0 {
		idx += len(p.elements)
	}
	if idx < 0 || idx >= len(p.elements) {
		return 0, &PathIndexError{Index: i, Size: len(p.elements)}
	}
	return idx, nil
}

// pathParser holds scan state for one ParsePath call.
type pathParser struct {
	src string
	pos int
}

// parse scans the source left to right, opening an element on every `/`.
func (p *pathParser) parse() ([]PathElement, error) {
	if strings.TrimSpace(p.src) == "" {
		return nil, p.fail("empty path")
	}
	// Accept "/", "//" or no leading separator.
	if strings.HasPrefix(p.src, "//") {
		p.pos = 2
	} else if strings.HasPrefix(p.src, "/") {
		p.pos = 1
	}

	elements := make([]PathElement, 0, 8)
	for {
		el, err := p.parseElement()
		if err != nil {
			return nil, err
		}
		elements = append(elements, el)
		if p.pos >= len(p.src) {
			return elements, nil
		}
		// parseElement stops only at '/' or end of input.
		p.pos++
		if p.pos >= len(p.src) {
			return nil, p.fail("empty element name")
		}
	}
}

// parseElement reads one element name followed by zero or more attribute blocks.
func (p *pathParser) parseElement() (PathElement, error) {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '/' || c == '[' {
			break
		}
		if c == ']' {
			return PathElement{}, p.fail("unbalanced ']'")
		}
		p.pos++
	}
	name := p.src[start:p.pos]
	if name == "" {
		return PathElement{}, p.fail("empty element name")
	}

	el := PathElement{Name: name, Attributes: map[string]string{}}
	for p.pos < len(p.src) && p.src[p.pos] == '[' {
		attr, value, err := p.parseAttribute()
		if err != nil {
			return PathElement{}, err
		}
		if _, dup := el.Attributes[attr]; dup {
			return PathElement{}, p.fail(fmt.Sprintf("duplicate attribute %q on element %q", attr, name))
		}
		el.Attributes[attr] = value
	}
	if p.pos < len(p.src) && p.src[p.pos] != '/' {
		return PathElement{}, p.fail(fmt.Sprintf("unexpected %q after attributes", p.src[p.pos]))
	}
	return el, nil
}

// parseAttribute reads one `[@name="value"]` block; single quotes are accepted too.
func (p *pathParser) parseAttribute() (string, string, error) {
	p.pos++ // '['
	if p.pos >= len(p.src) {
		return "", "", p.fail("unbalanced '['")
	}
	if p.src[p.pos] != '@' {
		return "", "", p.fail("expected '@' after '['")
	}
	p.pos++

	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] != '=' {
		switch p.src[p.pos] {
		case ']', '[', '/', '"', '\'':
			return "", "", p.fail("malformed attribute name")
		}
		p.pos++
	}
	if p.pos >= len(p.src) {
		return "", "", p.fail("unbalanced '['")
	}
	name := p.src[start:p.pos]
	if name == "" {
		return "", "", p.fail("empty attribute name")
	}
	p.pos++ // '='

	if p.pos >= len(p.src) {
		return "", "", p.fail("missing attribute value")
	}
	quote := p.src[p.pos]
	if quote != '"' && quote != '\'' {
		return "", "", p.fail("attribute value must be quoted")
	}
	p.pos++
	end := strings.IndexByte(p.src[p.pos:], quote)
	if end < 0 {
		return "", "", p.fail("unterminated attribute value")
	}
	value := p.src[p.pos : p.pos+end]
	p.pos += end + 1

	if p.pos >= len(p.src) || p.src[p.pos] != ']' {
		return "", "", p.fail("unbalanced '['")
	}
	p.pos++
	return name, value, nil
}

// fail builds a syntax error at the current scan offset.
func (p *pathParser) fail(reason string) error {
	return &PathSyntaxError{Path: p.src, Offset: p.pos, Reason: reason}
}
