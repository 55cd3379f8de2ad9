package crud

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/journal/core"
)

// IDField is the primary key every entity has. It is never part of a payload.
const IDField = "id"

type FieldType string

const (
	TypeString FieldType = "string"
	TypeInt    FieldType = "int"
	TypeFloat  FieldType = "float"
	TypeBool   FieldType = "bool"
	TypeTime   FieldType = "time"
)

// FilterMode is how a list query value is compared to a column.
type FilterMode string

const (
	FilterExact      FilterMode = "exact"
	FilterStartsWith FilterMode = "startsWith"
	FilterContains   FilterMode = "contains"
)

// Field describes one writable attribute of an entity.
type Field struct {
	Name      string     `yaml:"name" validate:"required,ident,ne=id"`
	Column    string     `yaml:"column" validate:"omitempty,ident"`
	Label     string     `yaml:"label" validate:"required"`
	Type      FieldType  `yaml:"type" validate:"required,oneof=string int float bool time"`
	Required  bool       `yaml:"required"`
	MinLength *int       `yaml:"minLength" validate:"omitempty,gte=0"`
	MaxLength *int       `yaml:"maxLength" validate:"omitempty,gt=0"`
	Min       *float64   `yaml:"min"`
	Max       *float64   `yaml:"max"`
	Format    string     `yaml:"format"`
	Filter    FilterMode `yaml:"filter" validate:"omitempty,oneof=exact startsWith contains"`
	Hidden    bool       `yaml:"hidden"`
	Ref       string     `yaml:"ref" validate:"omitempty,ident"` // entity whose id the field holds
}

// Relation is the key a referenced row is embedded under: the field name without its _id suffix.
func (f Field) Relation() string {
	return strings.TrimSuffix(f.Name, "_id")
}

// ColumnName is the store column of the field.
func (f Field) ColumnName() string {
	if f.Column != "" {
		return f.Column
	}
	return f.Name
}

// Hook transforms the sanitized values of a write right before they reach the store.
// current is the stored row on update and nil on create.
type Hook func(sc Scope, vals Values, current Row) error

// Descriptor is the metadata of one manageable entity.
type Descriptor struct {
	Name        string  `yaml:"name" validate:"required,ident"`
	Label       string  `yaml:"label" validate:"required"`
	Table       string  `yaml:"table" validate:"required,ident"`
	DefaultSort string  `yaml:"defaultSort" validate:"required"`
	Fields      []Field `yaml:"fields" validate:"required,min=1,dive"`

	BeforeWrite Hook `yaml:"-"`

	index map[string]int
	refs  map[string]*Descriptor
}

// Field returns the field called name.
func (d *Descriptor) Field(name string) (Field, bool) {
	if i, ok := d.index[name]; ok {
		return d.Fields[i], true
	}
	return Field{}, false
}

// Ref returns the entity the field called name points to.
func (d *Descriptor) Ref(name string) (*Descriptor, bool) {
	target, ok := d.refs[name]
	return target, ok
}

// Filterable returns the fields list queries can filter on.
func (d *Descriptor) Filterable() []Field {
	var flds []Field
	for _, f := range d.Fields {
		if f.Filter != "" {
			flds = append(flds, f)
		}
	}
	return flds
}

// Project returns the whitelisted view of row: the id and every non hidden field.
func (d *Descriptor) Project(row Row) map[string]interface{} {
	obj := make(map[string]interface{}, len(d.Fields)+1)
	obj[IDField] = row[IDField]
	for _, f := range d.Fields {
		if !f.Hidden {
			obj[f.Name] = row[f.Name]
		}
	}
	return obj
}

func (d *Descriptor) init(validate *validator.Validate) error {
	if err := core.StructError(validate.Struct(d), fmt.Sprintf("invalid entity %q", d.Name)); err != nil {
		return err
	}

	d.index = make(map[string]int, len(d.Fields))
	for i, f := range d.Fields {
		if _, dup := d.index[f.Name]; dup {
			return errors.Errorf("entity %q: duplicate field %q", d.Name, f.Name)
		}
		if f.Format != "" {
			if err := checkTag(validate, f.Format); err != nil {
				return errors.Wrapf(err, "entity %q: field %q", d.Name, f.Name)
			}
		}
		if f.MinLength != nil && f.MaxLength != nil && *f.MinLength > *f.MaxLength {
			return errors.Errorf("entity %q: field %q: minLength > maxLength", d.Name, f.Name)
		}
		if f.Filter != "" && f.Filter != FilterExact && f.Type != TypeString {
			return errors.Errorf("entity %q: field %q: %s filter needs a string field", d.Name, f.Name, f.Filter)
		}
		if f.Ref != "" && (f.Type != TypeInt || !strings.HasSuffix(f.Name, "_id")) {
			return errors.Errorf("entity %q: field %q: a reference must be an int field named <relation>_id", d.Name, f.Name)
		}
		if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
			return errors.Errorf("entity %q: field %q: min > max", d.Name, f.Name)
		}
		d.index[f.Name] = i
	}
	if _, ok := d.index[d.DefaultSort]; !ok && d.DefaultSort != IDField {
		return errors.Errorf("entity %q: unknown default sort field %q", d.Name, d.DefaultSort)
	}
	return nil
}

// checkTag makes sure validator knows tag; it panics on undefined ones.
func checkTag(validate *validator.Validate, tag string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("invalid format %q: %v", tag, r)
		}
	}()
	_ = validate.Var("", tag)
	return nil
}

// Registry holds the descriptors of the application. It is read-only once built.
type Registry struct {
	byName map[string]*Descriptor
	names  []string
}

// NewRegistry checks and indexes descriptors.
func NewRegistry(validate *validator.Validate, descs ...*Descriptor) (*Registry, error) {
	reg := &Registry{byName: make(map[string]*Descriptor, len(descs))}
	for _, d := range descs {
		if err := d.init(validate); err != nil {
			return nil, err
		}
		if _, dup := reg.byName[d.Name]; dup {
			return nil, errors.Errorf("duplicate entity %q", d.Name)
		}
		reg.byName[d.Name] = d
		reg.names = append(reg.names, d.Name)
	}
	sort.Strings(reg.names)

	for _, name := range reg.names {
		d := reg.byName[name]
		for _, f := range d.Fields {
			if f.Ref == "" {
				continue
			}
			target, ok := reg.byName[f.Ref]
			if !ok {
				return nil, errors.Errorf("entity %q: field %q: unknown entity %q", d.Name, f.Name, f.Ref)
			}
			if d.refs == nil {
				d.refs = make(map[string]*Descriptor)
			}
			d.refs[f.Name] = target
		}
	}
	return reg, nil
}

func (reg *Registry) Get(name string) (*Descriptor, bool) {
	d, ok := reg.byName[name]
	return d, ok
}

// Names returns the sorted entity names.
func (reg *Registry) Names() []string {
	return append([]string(nil), reg.names...)
}

// All returns the descriptors sorted by name.
func (reg *Registry) All() []*Descriptor {
	all := make([]*Descriptor, 0, len(reg.names))
	for _, name := range reg.names {
		all = append(all, reg.byName[name])
	}
	return all
}

// DecodeDescriptors reads a YAML document of the form `entities: [...]`.
func DecodeDescriptors(r io.Reader) ([]*Descriptor, error) {
	var doc struct {
		Entities []*Descriptor `yaml:"entities"`
	}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "decoding entity descriptors")
	}
	return doc.Entities, nil
}
