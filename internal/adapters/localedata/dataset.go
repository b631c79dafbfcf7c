// Package localedata reads locale values and coverage rules from YAML files.
//
// A data directory holds one "<locale>.yaml" file per locale:
//
//	locale: fr_CA
//	parent: fr            # optional; derived by truncation, then root
//	values:
//	  //ldml/numbers/symbols/decimal: ","
//
// Lookups fall back through the parent chain, so a value found in an ancestor
// resolves as inherited from that ancestor.
package localedata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hylla/vettrack/internal/domain"
	"gopkg.in/yaml.v3"
)

// ErrUnknownLocale and related errors describe dataset failures.
var (
	ErrUnknownLocale = errors.New("unknown locale")
	ErrInvalidFile   = errors.New("invalid locale data file")
)

// localeFile is the on-disk layout of one locale.
type localeFile struct {
	Locale string            `yaml:"locale"`
	Parent string            `yaml:"parent,omitempty"`
	Values map[string]string `yaml:"values"`
}

// localeData is one loaded locale keyed by canonical path.
type localeData struct {
	id     domain.LocaleID
	parent domain.LocaleID
	values map[string]string
}

// Dataset is an immutable set of loaded locales.
type Dataset struct {
	locales map[domain.LocaleID]*localeData
}

// LoadDir loads every *.yaml and *.yml file in dir.
func LoadDir(dir string) (*Dataset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read locale data dir: %w", err)
	}
	ds := &Dataset{locales: map[domain.LocaleID]*localeData{}}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		if err := ds.addFile(filepath.Join(dir, entry.Name())); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// Load builds a dataset from readers, one locale document each.
func Load(readers ...io.Reader) (*Dataset, error) {
	ds := &Dataset{locales: map[domain.LocaleID]*localeData{}}
	for i, r := range readers {
		if err := ds.add(r, fmt.Sprintf("document %d", i)); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// addFile loads one locale file.
func (d *Dataset) addFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open locale data: %w", err)
	}
	defer f.Close()
	return d.add(f, filepath.Base(path))
}

// add decodes, canonicalizes and registers one locale document.
func (d *Dataset) add(r io.Reader, name string) error {
	var doc localeFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidFile, name, err)
	}
	id, err := domain.ParseLocaleID(doc.Locale)
	if err != nil {
		return fmt.Errorf("%w: %s: locale %q: %v", ErrInvalidFile, name, doc.Locale, err)
	}
	if _, dup := d.locales[id]; dup {
		return fmt.Errorf("%w: %s: duplicate locale %q", ErrInvalidFile, name, id)
	}
	data := &localeData{id: id, values: make(map[string]string, len(doc.Values))}
	if strings.TrimSpace(doc.Parent) != "" {
		parent, err := domain.ParseLocaleID(doc.Parent)
		if err != nil {
			return fmt.Errorf("%w: %s: parent %q: %v", ErrInvalidFile, name, doc.Parent, err)
		}
		data.parent = parent
	} else {
		data.parent = derivedParent(id)
	}
	for raw, value := range doc.Values {
		path, err := domain.ParsePath(raw)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidFile, name, err)
		}
		data.values[path.String()] = value
	}
	d.locales[id] = data
	return nil
}

// derivedParent truncates the last subtag, falling back to root.
func derivedParent(id domain.LocaleID) domain.LocaleID {
	if id == domain.RootLocale {
		return ""
	}
	if i := strings.LastIndex(string(id), "_"); i > 0 {
		return id[:i]
	}
	return domain.RootLocale
}

// Locales returns the loaded locale ids in sorted order.
func (d *Dataset) Locales() []domain.LocaleID {
	return slices.Sorted(maps.Keys(d.locales))
}

// Reader returns a path-addressable reader bound to one locale.
func (d *Dataset) Reader(locale domain.LocaleID) (*Reader, error) {
	locale, err := domain.ParseLocaleID(string(locale))
	if err != nil {
		return nil, err
	}
	if _, ok := d.locales[locale]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLocale, locale)
	}
	return &Reader{dataset: d, locale: locale}, nil
}

// chain returns the locale followed by its loaded ancestors, stopping on cycles.
func (d *Dataset) chain(locale domain.LocaleID) []*localeData {
	out := []*localeData{}
	seen := map[domain.LocaleID]bool{}
	for id := locale; id != "" && !seen[id]; {
		seen[id] = true
		data, ok := d.locales[id]
		if !ok {
			id = derivedParent(id)
			continue
		}
		out = append(out, data)
		id = data.parent
	}
	return out
}

// Reader resolves values for one locale through its parent chain.
type Reader struct {
	dataset *Dataset
	locale  domain.LocaleID
}

// Locale returns the bound locale.
func (r *Reader) Locale() domain.LocaleID {
	return r.locale
}

// Paths returns every path defined in the locale or an ancestor, sorted.
func (r *Reader) Paths(ctx context.Context) ([]string, error) {
	set := map[string]struct{}{}
	for _, data := range r.dataset.chain(r.locale) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for path := range data.values {
			set[path] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(set)), nil
}

// Resolve finds the nearest value for path.
func (r *Reader) Resolve(ctx context.Context, path domain.PathAddress) (domain.ResolvedValue, error) {
	if err := ctx.Err(); err != nil {
		return domain.ResolvedValue{}, err
	}
	key := path.String()
	for _, data := range r.dataset.chain(r.locale) {
		value, ok := data.values[key]
		if !ok {
			continue
		}
		status := domain.ValueStatusInherited
		if data.id == r.locale {
			status = domain.ValueStatusPresent
		}
		return domain.ResolvedValue{Value: value, SourceLocale: data.id, Status: status}, nil
	}
	return domain.ResolvedValue{Status: domain.ValueStatusAbsent}, nil
}
