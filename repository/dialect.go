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
	"fmt"
	"strconv"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

type placeholderStyle int

const (
	namedAt placeholderStyle = iota
	dollarPositional
	questionPositional
)

// Dialect adapts synthesized statements to one relational engine: identifier
// quoting, bind placeholder syntax and the paging clause.
//
// Paging normally runs as a single statement that windows the filtered set and
// carries its total count on every row, so count and rows come from the same
// snapshot. Dialects created with TwoQueryPaging run a COUNT statement followed
// by the page statement instead. Both run on one connection, but without a
// transaction a concurrent write between them can make the count disagree with
// the rows.
//
// A single statement page past the last row returns no rows and so no count.
// The repository then runs the COUNT statement as a second query, so callers
// always get the real Total.
type Dialect struct {
	name       string
	openQuote  string
	closeQuote string
	style      placeholderStyle
	fetchNext  bool
	singleTrip bool
}

var (
	SQLServer = Dialect{name: "sqlserver", openQuote: "[", closeQuote: "]", style: namedAt, fetchNext: true, singleTrip: true}
	SQLite    = Dialect{name: "sqlite", openQuote: `"`, closeQuote: `"`, style: namedAt, singleTrip: true}
	Postgres  = Dialect{name: "postgres", openQuote: `"`, closeQuote: `"`, style: dollarPositional, singleTrip: true}
	MySQL     = Dialect{name: "mysql", openQuote: "`", closeQuote: "`", style: questionPositional, singleTrip: true}
)

// DialectFor picks the dialect matching the bun database.
func DialectFor(db *bun.DB) (Dialect, error) {
	switch name := db.Dialect().Name(); name {
	case dialect.SQLite:
		return SQLite, nil
	case dialect.PG:
		return Postgres, nil
	case dialect.MySQL:
		return MySQL, nil
	case dialect.MSSQL:
		return SQLServer, nil
	default:
		return Dialect{}, fmt.Errorf("repository: unsupported dialect %s", name)
	}
}

func (d Dialect) Name() string { return d.name }

// SingleRoundTrip reports whether paged queries return rows and total together.
func (d Dialect) SingleRoundTrip() bool { return d.singleTrip }

// TwoQueryPaging returns a copy of d that pages with a separate count query,
// for engines without common table expressions.
func (d Dialect) TwoQueryPaging() Dialect {
	d.singleTrip = false
	return d
}

// Quote wraps an identifier. Callers only pass names validated by the
// descriptor, never user input.
func (d Dialect) Quote(ident string) string {
	return d.openQuote + ident + d.closeQuote
}

// Named reports whether statements bind parameters by name.
func (d Dialect) Named() bool { return d.style == namedAt }

func (d Dialect) placeholder(name string, position int) string {
	switch d.style {
	case dollarPositional:
		return "$" + strconv.Itoa(position)
	case questionPositional:
		return "?"
	default:
		return "@" + name
	}
}

// window appends the skip/take clause.
func (d Dialect) window(b *builder) {
	if d.fetchNext {
		b.raw(" OFFSET ").param(skipParam).raw(" ROWS FETCH NEXT ").param(takeParam).raw(" ROWS ONLY")
		return
	}
	b.raw(" LIMIT ").param(takeParam).raw(" OFFSET ").param(skipParam)
}
