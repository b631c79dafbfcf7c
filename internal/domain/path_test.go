package domain

import (
	"errors"
	"testing"
)

// TestParsePathTimeZoneExample verifies element and attribute access on a nested zone path.
func TestParsePathTimeZoneExample(t *testing.T) {
	p, err := ParsePath(`//ldml/dates/timeZoneNames/zone[@type="America/Guadeloupe"]/short/daylight`)
	if err != nil {
		t.Fatalf("ParsePath() error = %v", err)
	}
	if p.Size() != 6 {
		t.Fatalf("Size() = %d, want 6", p.Size())
	}
	zone := p.FindElement("zone")
	if zone != 3 {
		t.Fatalf("FindElement(zone) = %d, want 3", zone)
	}
	got, err := p.AttributeValue(zone, "type")
	if err != nil {
		t.Fatalf("AttributeValue() error = %v", err)
	}
	if got != "America/Guadeloupe" {
		t.Fatalf("zone type = %q, want America/Guadeloupe", got)
	}
	name, err := p.ElementName(-2)
	if err != nil {
		t.Fatalf("ElementName(-2) error = %v", err)
	}
	if name != "short" {
		t.Fatalf("ElementName(-2) = %q, want short", name)
	}
	if !p.ContainsElement("timeZoneNames") || p.ContainsElement("metazone") {
		t.Fatal("unexpected ContainsElement result")
	}
	if !p.ContainsAttribute("type") || p.ContainsAttribute("alt") {
		t.Fatal("unexpected ContainsAttribute result")
	}
	if !p.ContainsAttributeValue("type", "America/Guadeloupe") {
		t.Fatal("expected ContainsAttributeValue to match zone type")
	}
}

// TestParsePathNegativeIndexMatchesLast verifies -1 addresses the final element for several shapes.
func TestParsePathNegativeIndexMatchesLast(t *testing.T) {
	cases := []string{
		"//ldml",
		"/ldml/identity/version",
		"ldml/localeDisplayNames/languages/language[@type=\"fr\"]",
		`//ldml/numbers/symbols[@numberSystem="latn"]/decimal`,
		`//ldml/units/unitLength[@type='long']/unit[@type="length-meter"]/unitPattern[@count="one"][@case="genitive"]`,
	}
	for _, raw := range cases {
		p, err := ParsePath(raw)
		if err != nil {
			t.Fatalf("ParsePath(%q) error = %v", raw, err)
		}
		last, err := p.ElementName(-1)
		if err != nil {
			t.Fatalf("ElementName(-1) error = %v", err)
		}
		want, err := p.ElementName(p.Size() - 1)
		if err != nil {
			t.Fatalf("ElementName(size-1) error = %v", err)
		}
		if last != want {
			t.Fatalf("ElementName(-1) = %q, want %q for %q", last, want, raw)
		}
	}
}

// TestParsePathQuotedValuesKeepSeparators verifies quoting shields '/' and ']' inside values.
func TestParsePathQuotedValuesKeepSeparators(t *testing.T) {
	p, err := ParsePath(`//ldml/a[@x="b/c]d"]/e[@y='it"s']`)
	if err != nil {
		t.Fatalf("ParsePath() error = %v", err)
	}
	if p.Size() != 3 {
		t.Fatalf("Size() = %d, want 3", p.Size())
	}
	if v, _ := p.AttributeValue(1, "x"); v != "b/c]d" {
		t.Fatalf("x = %q, want b/c]d", v)
	}
	if v, _ := p.AttributeValue(-1, "y"); v != `it"s` {
		t.Fatalf("y = %q, want it\"s", v)
	}
}

// TestParsePathCanonicalString verifies attribute sort order and round-tripping.
func TestParsePathCanonicalString(t *testing.T) {
	p, err := ParsePath(`ldml/unit[@type="mass-gram"][@alt="short"]`)
	if err != nil {
		t.Fatalf("ParsePath() error = %v", err)
	}
	want := `//ldml/unit[@alt="short"][@type="mass-gram"]`
	if p.String() != want {
		t.Fatalf("String() = %q, want %q", p.String(), want)
	}
	again, err := ParsePath(p.String())
	if err != nil {
		t.Fatalf("ParsePath(String()) error = %v", err)
	}
	if !again.Equal(p) {
		t.Fatalf("round trip mismatch: %q vs %q", again, p)
	}
}

// TestParsePathRejectsMalformedInput verifies every syntax failure reports ErrPathSyntax.
func TestParsePathRejectsMalformedInput(t *testing.T) {
	cases := map[string]string{
		"empty":                "",
		"only separator":       "//",
		"trailing separator":   "//ldml/",
		"double separator":     "//ldml//dates",
		"unterminated quote":   `//ldml/a[@x="b]`,
		"unclosed bracket":     `//ldml/a[@x="b"`,
		"stray close":          `//ldml/a]`,
		"missing at":           `//ldml/a[x="b"]`,
		"empty attr name":      `//ldml/a[@="b"]`,
		"unquoted value":       `//ldml/a[@x=b]`,
		"missing equals":       `//ldml/a[@x]`,
		"garbage after attr":   `//ldml/a[@x="b"]c`,
		"duplicate attribute":  `//ldml/a[@x="b"][@x="c"]`,
		"empty name with attr": `//ldml/[@x="b"]`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePath(raw)
			if !errors.Is(err, ErrPathSyntax) {
				t.Fatalf("ParsePath(%q) error = %v, want ErrPathSyntax", raw, err)
			}
			var syntaxErr *PathSyntaxError
			if !errors.As(err, &syntaxErr) {
				t.Fatalf("expected *PathSyntaxError, got %T", err)
			}
		})
	}
}

// TestPathIndexOutOfRange verifies index errors after negative adjustment.
func TestPathIndexOutOfRange(t *testing.T) {
	p := MustParsePath("//ldml/dates")
	for _, idx := range []int{2, 3, -3, -10} {
		if _, err := p.ElementName(idx); !errors.Is(err, ErrPathIndex) {
			t.Fatalf("ElementName(%d) error = %v, want ErrPathIndex", idx, err)
		}
		if _, err := p.AttributeValue(idx, "type"); !errors.Is(err, ErrPathIndex) {
			t.Fatalf("AttributeValue(%d) error = %v, want ErrPathIndex", idx, err)
		}
	}
	if v, err := p.AttributeValue(-2, "type"); err != nil || v != "" {
		t.Fatalf("AttributeValue(absent) = %q, %v; want empty, nil", v, err)
	}
}

// TestPathElementCopiesAreDetached verifies callers cannot mutate a parsed path.
func TestPathElementCopiesAreDetached(t *testing.T) {
	p := MustParsePath(`//ldml/a[@x="1"]`)
	el, err := p.Element(1)
	if err != nil {
		t.Fatalf("Element() error = %v", err)
	}
	el.Attributes["x"] = "2"
	if v, _ := p.AttributeValue(1, "x"); v != "1" {
		t.Fatalf("parsed path mutated through Element copy, x = %q", v)
	}
	els := p.Elements()
	els[1].Attributes["x"] = "3"
	if v, _ := p.AttributeValue(1, "x"); v != "1" {
		t.Fatalf("parsed path mutated through Elements copy, x = %q", v)
	}
}
