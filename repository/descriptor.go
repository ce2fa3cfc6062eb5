/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package repository

import (
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/uptrace/bun"
)

// Well-known column names every entity table is expected to use.
const (
	IdColumn          = "Id"
	CreatedTimeColumn = "CreatedTime"
	OwnerColumn       = "UserId"
)

var (
	descriptors   sync.Map // reflect.Type -> *descriptorEntry
	baseModelType = reflect.TypeOf(bun.BaseModel{})
	identPattern  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

type descriptorEntry struct {
	desc *Descriptor
	err  error
}

// Column is a persisted struct field and the column it is stored in.
type Column struct {
	Field string
	Name  string
	Index []int
}

// Descriptor is the persisted shape of an entity type. It is built once per
// type and never modified afterwards, so it is safe to share between goroutines.
type Descriptor struct {
	Type     reflect.Type
	Table    string
	Columns  []Column
	Excluded []string

	updateColumns []Column
	byName        map[string]int
	byLowerName   map[string]int
	hasOwner      bool
}

// Describe returns the cached descriptor of T.
func Describe[T any]() (*Descriptor, error) {
	return DescriptorOf(reflect.TypeOf((*T)(nil)).Elem())
}

// DescriptorOf returns the cached descriptor of typ. Pointer types are
// dereferenced. Every call for the same type returns the same instance.
func DescriptorOf(typ reflect.Type) (*Descriptor, error) {
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if v, ok := descriptors.Load(typ); ok {
		e := v.(*descriptorEntry)
		return e.desc, e.err
	}
	desc, err := buildDescriptor(typ)
	v, _ := descriptors.LoadOrStore(typ, &descriptorEntry{desc: desc, err: err})
	e := v.(*descriptorEntry)
	return e.desc, e.err
}

// InsertColumns returns every persisted column in declaration order.
func (d *Descriptor) InsertColumns() []Column { return d.Columns }

// UpdateColumns returns the persisted columns minus Id and CreatedTime.
func (d *Descriptor) UpdateColumns() []Column { return d.updateColumns }

// HasOwner reports whether the entity carries a UserId column.
func (d *Descriptor) HasOwner() bool { return d.hasOwner }

// Lookup finds a column by name, falling back to a case-insensitive match
// for drivers that fold identifier case in result sets.
func (d *Descriptor) Lookup(name string) (Column, bool) {
	if i, ok := d.byName[name]; ok {
		return d.Columns[i], true
	}
	if i, ok := d.byLowerName[strings.ToLower(name)]; ok {
		return d.Columns[i], true
	}
	return Column{}, false
}

// Values reads the persisted column values of entity, keyed by column name.
// Times are bound in UTC so text-stored timestamps sort by instant.
func (d *Descriptor) Values(entity any) map[string]any {
	v := reflect.Indirect(reflect.ValueOf(entity))
	values := make(map[string]any, len(d.Columns))
	for _, c := range d.Columns {
		values[c.Name] = utcValue(v.FieldByIndex(c.Index).Interface())
	}
	return values
}

func utcValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case *time.Time:
		if t == nil {
			return t
		}
		utc := t.UTC()
		return &utc
	}
	return v
}

func buildDescriptor(typ reflect.Type) (*Descriptor, error) {
	if typ.Kind() != reflect.Struct {
		return nil, newConfigurationError(typ, "entity must be a struct, got %s", typ.Kind())
	}
	d := &Descriptor{
		Type:        typ,
		Table:       typ.Name(),
		byName:      make(map[string]int),
		byLowerName: make(map[string]int),
	}
	if err := d.collect(typ, nil); err != nil {
		return nil, err
	}
	if len(d.Columns) == 0 {
		return nil, newConfigurationError(typ, "no persistable columns")
	}
	if !identPattern.MatchString(d.Table) {
		return nil, newConfigurationError(typ, "invalid table name %q", d.Table)
	}
	for _, required := range []string{IdColumn, CreatedTimeColumn} {
		if _, ok := d.byName[required]; !ok {
			return nil, newConfigurationError(typ, "missing %s column", required)
		}
	}
	for _, c := range d.Columns {
		if c.Name != IdColumn && c.Name != CreatedTimeColumn {
			d.updateColumns = append(d.updateColumns, c)
		}
	}
	_, d.hasOwner = d.byName[OwnerColumn]
	return d, nil
}

func (d *Descriptor) collect(typ reflect.Type, parent []int) error {
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		index := append(append([]int(nil), parent...), i)
		tag, hasTag := f.Tag.Lookup("bun")

		if f.Type == baseModelType {
			if name := tableOption(tag); name != "" {
				d.Table = name
			}
			continue
		}
		if tag == "-" {
			if f.IsExported() {
				d.Excluded = append(d.Excluded, f.Name)
			}
			continue
		}
		// Exported fields of embedded structs are promoted, even when the
		// embedded type itself is unexported.
		if f.Anonymous && f.Type.Kind() == reflect.Struct && !hasTag {
			if err := d.collect(f.Type, index); err != nil {
				return err
			}
			continue
		}
		if !f.IsExported() {
			continue
		}

		name := f.Name
		if head, _, _ := strings.Cut(tag, ","); head != "" {
			name = head
		}
		if !identPattern.MatchString(name) {
			return newConfigurationError(d.Type, "invalid column name %q on field %s", name, f.Name)
		}
		if _, dup := d.byName[name]; dup {
			return newConfigurationError(d.Type, "duplicate column %q", name)
		}
		d.byName[name] = len(d.Columns)
		d.byLowerName[strings.ToLower(name)] = len(d.Columns)
		d.Columns = append(d.Columns, Column{Field: f.Name, Name: name, Index: index})
	}
	return nil
}

// tableOption extracts the "table:" option of a bun.BaseModel tag.
func tableOption(tag string) string {
	for _, opt := range strings.Split(tag, ",") {
		if name, ok := strings.CutPrefix(strings.TrimSpace(opt), "table:"); ok {
			return strings.Trim(name, `"'`)
		}
	}
	return ""
}
