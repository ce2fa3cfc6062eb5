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
	"time"

	"github.com/google/uuid"
	"github.com/tomoncle/cmskit/types"
)

// Entity is the capability every persisted type provides: a caller-assigned
// identifier and the creation time paged listings are ordered by.
type Entity interface {
	GetId() uuid.UUID
	GetCreatedTime() time.Time
}

// CrudRepository defines whole-row CRUD operations for an entity type.
type CrudRepository[T Entity] interface {
	// Get looks up one entity by Id. found is false when no row matches.
	Get(ctx context.Context, id uuid.UUID) (entity *T, found bool, err error)

	GetAll(ctx context.Context) ([]*T, error)

	Insert(ctx context.Context, entity *T) error

	// Update rewrites every updatable column of the row with entity's Id.
	// An Id with no row is a no-op, not an error.
	Update(ctx context.Context, entity *T) error

	// SaveRange inserts entities with one prepared insert and returns the
	// number of rows inserted.
	SaveRange(ctx context.Context, entities []*T) (int, error)

	// Delete removes the row with id. An unknown id is a no-op.
	Delete(ctx context.Context, id uuid.UUID) error
}

// OwnerRepository defines lookups filtered by the UserId column.
type OwnerRepository[T Entity] interface {
	GetByOwner(ctx context.Context, ownerId uuid.UUID) (entity *T, found bool, err error)
	GetAllByOwner(ctx context.Context, ownerId uuid.UUID) ([]*T, error)
}

// PageQueryRepository defines paged listings ordered by CreatedTime, newest
// first. Page sizes outside (0, 100] are replaced by 100.
type PageQueryRepository[T Entity] interface {
	GetAllPaged(ctx context.Context, page, pageSize int) (*types.Pagination[T], error)
	GetAllByOwnerPaged(ctx context.Context, ownerId uuid.UUID, page, pageSize int) (*types.Pagination[T], error)
}

// Repository combines CRUD, owner and paging operations and exposes the
// descriptor and dialect it synthesizes statements from.
type Repository[T Entity] interface {
	CrudRepository[T]
	OwnerRepository[T]
	PageQueryRepository[T]
	Dialect() Dialect
	Descriptor() (*Descriptor, error)
}
