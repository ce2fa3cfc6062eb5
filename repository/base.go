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
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/tomoncle/cmskit/types"
	"github.com/uptrace/bun"
)

type baseRepositoryImpl[T Entity] struct {
	factory ConnFactory
	dialect Dialect
}

// NewRepository returns a generic repository that takes one connection from
// factory per operation and synthesizes statements for dialect.
func NewRepository[T Entity](factory ConnFactory, dialect Dialect) Repository[T] {
	return &baseRepositoryImpl[T]{factory: factory, dialect: dialect}
}

// NewRepositoryFromDB returns a generic repository backed by the connection
// pool of the provided Bun DB, in the dialect of that DB.
func NewRepositoryFromDB[T Entity](db *bun.DB) (Repository[T], error) {
	d, err := DialectFor(db)
	if err != nil {
		return nil, err
	}
	return NewRepository[T](FactoryFromDB(db.DB), d), nil
}

func (r *baseRepositoryImpl[T]) Dialect() Dialect { return r.dialect }

func (r *baseRepositoryImpl[T]) Descriptor() (*Descriptor, error) { return Describe[T]() }

func (r *baseRepositoryImpl[T]) Get(ctx context.Context, id uuid.UUID) (*T, bool, error) {
	desc, err := Describe[T]()
	if err != nil {
		return nil, false, err
	}
	return r.queryOne(ctx, desc, "get", GetStatement(r.dialect, desc), map[string]any{idParam: id})
}

func (r *baseRepositoryImpl[T]) GetByOwner(ctx context.Context, ownerId uuid.UUID) (*T, bool, error) {
	desc, err := Describe[T]()
	if err != nil {
		return nil, false, err
	}
	stmt, err := GetByOwnerStatement(r.dialect, desc)
	if err != nil {
		return nil, false, err
	}
	return r.queryOne(ctx, desc, "get by owner", stmt, map[string]any{idParam: ownerId})
}

func (r *baseRepositoryImpl[T]) GetAll(ctx context.Context) ([]*T, error) {
	desc, err := Describe[T]()
	if err != nil {
		return nil, err
	}
	res, err := r.query(ctx, desc, "list", ListStatement(r.dialect, desc), nil, 0)
	if err != nil {
		return nil, err
	}
	return res.items, nil
}

func (r *baseRepositoryImpl[T]) GetAllByOwner(ctx context.Context, ownerId uuid.UUID) ([]*T, error) {
	desc, err := Describe[T]()
	if err != nil {
		return nil, err
	}
	stmt, err := ListByOwnerStatement(r.dialect, desc)
	if err != nil {
		return nil, err
	}
	res, err := r.query(ctx, desc, "list by owner", stmt, map[string]any{idParam: ownerId}, 0)
	if err != nil {
		return nil, err
	}
	return res.items, nil
}

func (r *baseRepositoryImpl[T]) GetAllPaged(ctx context.Context, page, pageSize int) (*types.Pagination[T], error) {
	return r.paged(ctx, false, uuid.Nil, types.NewPageRequest(page, pageSize))
}

func (r *baseRepositoryImpl[T]) GetAllByOwnerPaged(ctx context.Context, ownerId uuid.UUID, page, pageSize int) (*types.Pagination[T], error) {
	return r.paged(ctx, true, ownerId, types.NewPageRequest(page, pageSize))
}

func (r *baseRepositoryImpl[T]) Insert(ctx context.Context, entity *T) error {
	desc, err := Describe[T]()
	if err != nil {
		return err
	}
	if err := checkEntity(desc, "insert", entity); err != nil {
		return err
	}
	return r.exec(ctx, desc, "insert", InsertStatement(r.dialect, desc), desc.Values(entity))
}

func (r *baseRepositoryImpl[T]) Update(ctx context.Context, entity *T) error {
	desc, err := Describe[T]()
	if err != nil {
		return err
	}
	if entity == nil {
		return nilEntityError("update", desc)
	}
	stmt, err := UpdateStatement(r.dialect, desc)
	if err != nil {
		return err
	}
	return r.exec(ctx, desc, "update", stmt, desc.Values(entity))
}

func (r *baseRepositoryImpl[T]) SaveRange(ctx context.Context, entities []*T) (int, error) {
	desc, err := Describe[T]()
	if err != nil {
		return 0, err
	}
	if len(entities) == 0 {
		return 0, nil
	}
	for _, entity := range entities {
		if err := checkEntity(desc, "save range", entity); err != nil {
			return 0, err
		}
	}

	stmt := InsertStatement(r.dialect, desc)
	inserted := 0
	err = withConn(ctx, r.factory, func(conn Conn) error {
		prepared, err := conn.PrepareContext(ctx, stmt.SQL)
		if err != nil {
			return newStatementError("save range", desc.Table, err)
		}
		defer prepared.Close()

		for _, entity := range entities {
			args, err := stmt.Bind(desc.Values(entity))
			if err != nil {
				return newStatementError("save range", desc.Table, err)
			}
			res, err := prepared.ExecContext(ctx, args...)
			if err != nil {
				return newStatementError("save range", desc.Table, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return newStatementError("save range", desc.Table, err)
			}
			inserted += int(n)
		}
		return nil
	})
	return inserted, err
}

func (r *baseRepositoryImpl[T]) Delete(ctx context.Context, id uuid.UUID) error {
	desc, err := Describe[T]()
	if err != nil {
		return err
	}
	return r.exec(ctx, desc, "delete", DeleteStatement(r.dialect, desc), map[string]any{idParam: id})
}

func (r *baseRepositoryImpl[T]) paged(ctx context.Context, byOwner bool, ownerId uuid.UUID, req *types.PageRequest) (*types.Pagination[T], error) {
	desc, err := Describe[T]()
	if err != nil {
		return nil, err
	}
	q, err := PagedStatement(r.dialect, desc, byOwner)
	if err != nil {
		return nil, err
	}

	values := map[string]any{
		skipParam: req.GetOffset(),
		takeParam: req.GetPageSize(),
	}
	if byOwner {
		values[idParam] = ownerId
	}
	pageArgs, err := q.Page.Bind(values)
	if err != nil {
		return nil, newStatementError("page", desc.Table, err)
	}
	countArgs, err := q.Count.Bind(values)
	if err != nil {
		return nil, newStatementError("count", desc.Table, err)
	}

	pagination := types.NewDefaultPagination[T](req.GetPage(), req.GetPageSize())
	err = withConn(ctx, r.factory, func(conn Conn) error {
		var total int64
		if !q.SingleRoundTrip {
			if err := conn.QueryRowContext(ctx, q.Count.SQL, countArgs...).Scan(&total); err != nil {
				return newStatementError("count", desc.Table, err)
			}
			if total == 0 {
				return nil
			}
		}

		if req.GetOffset() == math.MaxInt {
			// No engine holds that many rows; only the total is needed.
			if err := conn.QueryRowContext(ctx, q.Count.SQL, countArgs...).Scan(&total); err != nil {
				return newStatementError("count", desc.Table, err)
			}
			pagination.Total = int(total)
			return nil
		}

		res, err := queryRows[T](ctx, conn, desc, q.Page.SQL, pageArgs, 0)
		if err != nil {
			return newStatementError("page", desc.Table, err)
		}
		pagination.Items = res.items
		switch {
		case res.hasTotal && len(res.items) > 0:
			total = res.total
		case q.SingleRoundTrip && req.GetOffset() > 0:
			// Past the last page no row carries the total.
			if err := conn.QueryRowContext(ctx, q.Count.SQL, countArgs...).Scan(&total); err != nil {
				return newStatementError("count", desc.Table, err)
			}
		}
		pagination.Total = int(total)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pagination, nil
}

func (r *baseRepositoryImpl[T]) queryOne(ctx context.Context, desc *Descriptor, op string, stmt Statement, values map[string]any) (*T, bool, error) {
	res, err := r.query(ctx, desc, op, stmt, values, 1)
	if err != nil {
		return nil, false, err
	}
	if len(res.items) == 0 {
		return nil, false, nil
	}
	return res.items[0], true, nil
}

func (r *baseRepositoryImpl[T]) query(ctx context.Context, desc *Descriptor, op string, stmt Statement, values map[string]any, limit int) (*scanResult[T], error) {
	args, err := stmt.Bind(values)
	if err != nil {
		return nil, newStatementError(op, desc.Table, err)
	}
	var res *scanResult[T]
	err = withConn(ctx, r.factory, func(conn Conn) error {
		var err error
		res, err = queryRows[T](ctx, conn, desc, stmt.SQL, args, limit)
		if err != nil {
			return newStatementError(op, desc.Table, err)
		}
		return nil
	})
	return res, err
}

func (r *baseRepositoryImpl[T]) exec(ctx context.Context, desc *Descriptor, op string, stmt Statement, values map[string]any) error {
	args, err := stmt.Bind(values)
	if err != nil {
		return newStatementError(op, desc.Table, err)
	}
	return withConn(ctx, r.factory, func(conn Conn) error {
		if _, err := conn.ExecContext(ctx, stmt.SQL, args...); err != nil {
			return newStatementError(op, desc.Table, err)
		}
		return nil
	})
}

func queryRows[T any](ctx context.Context, conn Conn, desc *Descriptor, query string, args []any, limit int) (*scanResult[T], error) {
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows[T](desc, rows, limit)
}

// checkEntity rejects nil entities and entities without an Id, which the
// caller must assign before inserting.
func checkEntity[T Entity](desc *Descriptor, op string, entity *T) error {
	if entity == nil {
		return nilEntityError(op, desc)
	}
	if (*entity).GetId() == uuid.Nil {
		return newConfigurationError(desc.Type, "entity has no Id assigned")
	}
	return nil
}

func nilEntityError(op string, desc *Descriptor) error {
	return fmt.Errorf("repository: %s %s: %w", op, desc.Table, ErrNilEntity)
}
