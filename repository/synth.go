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
	"database/sql"
	"fmt"
	"strings"
)

// Bind parameter names used outside of column bindings.
const (
	idParam    = "id"
	skipParam  = "skip"
	takeParam  = "take"
	totalAlias = "__total"
)

// Statement is synthesized SQL text plus the names of its bind parameters in
// placeholder order. Values are supplied separately through Bind.
type Statement struct {
	SQL    string
	Params []string
	named  bool
}

// Bind orders values for the driver: sql.Named arguments for dialects that
// bind by name, plain positional values otherwise.
func (s Statement) Bind(values map[string]any) ([]any, error) {
	args := make([]any, 0, len(s.Params))
	seen := make(map[string]struct{}, len(s.Params))
	for _, name := range s.Params {
		v, ok := values[name]
		if !ok {
			return nil, fmt.Errorf("repository: no value for parameter %q", name)
		}
		if !s.named {
			args = append(args, v)
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		args = append(args, sql.Named(name, v))
	}
	return args, nil
}

// PagedQuery holds the statements of one paged listing. Count is always
// synthesized: two-query dialects run it for every page, single round trip
// dialects only when the requested page lies past the last row.
type PagedQuery struct {
	Page            Statement
	Count           Statement
	SingleRoundTrip bool
}

type builder struct {
	d      Dialect
	sb     strings.Builder
	params []string
}

func newBuilder(d Dialect) *builder { return &builder{d: d} }

func (b *builder) raw(s string) *builder {
	b.sb.WriteString(s)
	return b
}

func (b *builder) ident(name string) *builder {
	b.sb.WriteString(b.d.Quote(name))
	return b
}

func (b *builder) param(name string) *builder {
	b.params = append(b.params, name)
	b.sb.WriteString(b.d.placeholder(name, len(b.params)))
	return b
}

func (b *builder) build() Statement {
	return Statement{SQL: b.sb.String(), Params: b.params, named: b.d.Named()}
}

// InsertStatement builds INSERT INTO t (c1, ...) VALUES (@c1, ...). Column and
// parameter names are identical and in descriptor order.
func InsertStatement(d Dialect, desc *Descriptor) Statement {
	b := newBuilder(d).raw("INSERT INTO ").ident(desc.Table).raw(" (")
	for i, c := range desc.InsertColumns() {
		if i > 0 {
			b.raw(", ")
		}
		b.ident(c.Name)
	}
	b.raw(") VALUES (")
	for i, c := range desc.InsertColumns() {
		if i > 0 {
			b.raw(", ")
		}
		b.param(c.Name)
	}
	return b.raw(")").build()
}

// UpdateStatement builds UPDATE t SET c1=@c1, ... WHERE Id=@Id over every
// column except Id and CreatedTime.
func UpdateStatement(d Dialect, desc *Descriptor) (Statement, error) {
	cols := desc.UpdateColumns()
	if len(cols) == 0 {
		return Statement{}, newConfigurationError(desc.Type, "no updatable columns")
	}
	b := newBuilder(d).raw("UPDATE ").ident(desc.Table).raw(" SET ")
	for i, c := range cols {
		if i > 0 {
			b.raw(", ")
		}
		b.ident(c.Name).raw("=").param(c.Name)
	}
	return b.raw(" WHERE ").ident(IdColumn).raw("=").param(IdColumn).build(), nil
}

// GetStatement builds SELECT * FROM t WHERE Id=@id.
func GetStatement(d Dialect, desc *Descriptor) Statement {
	return selectFrom(d, desc).raw(" WHERE ").ident(IdColumn).raw("=").param(idParam).build()
}

// GetByOwnerStatement builds SELECT * FROM t WHERE UserId=@id.
func GetByOwnerStatement(d Dialect, desc *Descriptor) (Statement, error) {
	if err := requireOwner(desc); err != nil {
		return Statement{}, err
	}
	return ownerFilter(selectFrom(d, desc)).build(), nil
}

// ListStatement builds SELECT * FROM t.
func ListStatement(d Dialect, desc *Descriptor) Statement {
	return selectFrom(d, desc).build()
}

// ListByOwnerStatement is the owner-filtered list. It shares its text with
// GetByOwnerStatement; only the number of rows read differs.
func ListByOwnerStatement(d Dialect, desc *Descriptor) (Statement, error) {
	return GetByOwnerStatement(d, desc)
}

// DeleteStatement builds DELETE FROM t WHERE Id=@id.
func DeleteStatement(d Dialect, desc *Descriptor) Statement {
	return newBuilder(d).raw("DELETE FROM ").ident(desc.Table).
		raw(" WHERE ").ident(IdColumn).raw("=").param(idParam).build()
}

// CountStatement counts the rows of t, optionally filtered by owner.
func CountStatement(d Dialect, desc *Descriptor, byOwner bool) (Statement, error) {
	b := newBuilder(d).raw("SELECT COUNT(*) FROM ").ident(desc.Table)
	if byOwner {
		if err := requireOwner(desc); err != nil {
			return Statement{}, err
		}
		ownerFilter(b)
	}
	return b.build(), nil
}

// PagedStatement builds the paged listing of t, newest CreatedTime first.
// Rows sharing a CreatedTime come back in whatever order the engine picks,
// which may differ between pages.
//
// On single round trip dialects the filtered set is computed once in a common
// table expression and its count is cross joined onto every row as __total:
//
//	WITH lst AS (SELECT * FROM t [WHERE UserId=@id])
//	SELECT lst.*, cnt.__total FROM lst
//	CROSS JOIN (SELECT COUNT(*) AS __total FROM lst) AS cnt
//	ORDER BY lst.CreatedTime DESC <window>
func PagedStatement(d Dialect, desc *Descriptor, byOwner bool) (PagedQuery, error) {
	count, err := CountStatement(d, desc, byOwner)
	if err != nil {
		return PagedQuery{}, err
	}

	b := newBuilder(d)
	if d.SingleRoundTrip() {
		writeSelect(b.raw("WITH lst AS ("), desc)
		if byOwner {
			ownerFilter(b)
		}
		b.raw(") SELECT lst.*, cnt.").ident(totalAlias).
			raw(" FROM lst CROSS JOIN (SELECT COUNT(*) AS ").ident(totalAlias).raw(" FROM lst) AS cnt").
			raw(" ORDER BY lst.").ident(CreatedTimeColumn).raw(" DESC")
	} else {
		writeSelect(b, desc)
		if byOwner {
			ownerFilter(b)
		}
		b.raw(" ORDER BY ").ident(CreatedTimeColumn).raw(" DESC")
	}
	d.window(b)

	return PagedQuery{Page: b.build(), Count: count, SingleRoundTrip: d.SingleRoundTrip()}, nil
}

func selectFrom(d Dialect, desc *Descriptor) *builder {
	return writeSelect(newBuilder(d), desc)
}

func writeSelect(b *builder, desc *Descriptor) *builder {
	return b.raw("SELECT * FROM ").ident(desc.Table)
}

func ownerFilter(b *builder) *builder {
	return b.raw(" WHERE ").ident(OwnerColumn).raw("=").param(idParam)
}

func requireOwner(desc *Descriptor) error {
	if !desc.HasOwner() {
		return newConfigurationError(desc.Type, "no %s column for owner filtering", OwnerColumn)
	}
	return nil
}
