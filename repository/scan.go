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
	"reflect"
	"time"
)

var timeType = reflect.TypeOf(time.Time{})

// timeLayouts are the text forms SQLite drivers and MySQL without parseTime
// hand back for timestamp columns.
var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC3339Nano,
}

// timeScanner fills a time.Time field from either a native time value or its
// text form.
type timeScanner struct {
	dst *time.Time
}

func (s timeScanner) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s.dst = time.Time{}
		return nil
	case time.Time:
		*s.dst = v
		return nil
	case []byte:
		return s.parse(string(v))
	case string:
		return s.parse(v)
	default:
		return fmt.Errorf("cannot scan %T into time.Time", src)
	}
}

func (s timeScanner) parse(text string) error {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			*s.dst = t
			return nil
		}
	}
	return fmt.Errorf("cannot parse %q as time", text)
}

// scanResult is the entities read from a result set, plus the __total column
// when the statement carried one.
type scanResult[T any] struct {
	items    []*T
	total    int64
	hasTotal bool
}

// scanRows maps rows onto T by column name, reading at most limit rows when
// limit > 0. Columns that match no field are read and dropped.
func scanRows[T any](desc *Descriptor, rows *sql.Rows, limit int) (*scanResult[T], error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	res := &scanResult[T]{items: make([]*T, 0)}
	fields := make([][]int, len(columns))
	for i, name := range columns {
		if name == totalAlias {
			res.hasTotal = true
			continue
		}
		if c, ok := desc.Lookup(name); ok {
			fields[i] = c.Index
		}
	}

	dest := make([]any, len(columns))
	for rows.Next() {
		entity := new(T)
		v := reflect.ValueOf(entity).Elem()
		for i, index := range fields {
			switch {
			case columns[i] == totalAlias:
				dest[i] = &res.total
			case index != nil:
				field := v.FieldByIndex(index)
				if field.Type() == timeType {
					dest[i] = timeScanner{dst: field.Addr().Interface().(*time.Time)}
				} else {
					dest[i] = field.Addr().Interface()
				}
			default:
				dest[i] = new(any)
			}
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		res.items = append(res.items, entity)
		if limit > 0 && len(res.items) >= limit {
			break
		}
	}
	return res, rows.Err()
}
