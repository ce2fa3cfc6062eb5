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

package cmskit

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/tomoncle/cmskit/database"
	"github.com/tomoncle/cmskit/repository"
	"github.com/tomoncle/cmskit/types"
)

// ErrNotFound is returned by Service lookups that match no row.
var ErrNotFound = repository.ErrNotFound

type Service[T repository.Entity] interface {
	// Get returns the entity with id, or ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*T, error)

	// GetByOwner returns the first entity owned by ownerId, or ErrNotFound.
	GetByOwner(ctx context.Context, ownerId uuid.UUID) (*T, error)

	// All returns all entities.
	All(ctx context.Context) ([]*T, error)

	// AllByOwner returns the entities owned by ownerId.
	AllByOwner(ctx context.Context, ownerId uuid.UUID) ([]*T, error)

	// Page returns one page of entities, newest first.
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)

	// PageByOwner returns one page of the entities owned by ownerId.
	PageByOwner(ctx context.Context, ownerId uuid.UUID, page *types.PageRequest) (*types.Pagination[T], error)

	// Save inserts one or more new entities.
	Save(ctx context.Context, model ...*T) error

	// Update modifies an existing entity.
	Update(ctx context.Context, model *T) error

	// Delete removes an entity by its identifier.
	Delete(ctx context.Context, id uuid.UUID) error
}

type baseServiceImpl[T repository.Entity] struct {
	repo repository.Repository[T]
	mu   sync.Mutex
}

// NewService returns a default Service implementation using the generic
// repository backed by the global database connection. The repository is
// bound on first use, so the service may be created before InitDB.
func NewService[T repository.Entity]() Service[T] {
	return &baseServiceImpl[T]{}
}

// NewServiceWithRepository returns a Service over repo.
func NewServiceWithRepository[T repository.Entity](repo repository.Repository[T]) Service[T] {
	return &baseServiceImpl[T]{repo: repo}
}

func (s *baseServiceImpl[T]) baseRepo() (repository.Repository[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.repo != nil {
		return s.repo, nil
	}
	db := database.GetDB()
	if db == nil {
		return nil, &repository.ConnectionError{Err: fmt.Errorf("database not initialized")}
	}
	repo, err := repository.NewRepositoryFromDB[T](db)
	if err != nil {
		return nil, err
	}
	s.repo = repo
	return repo, nil
}

func (s *baseServiceImpl[T]) Get(ctx context.Context, id uuid.UUID) (*T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return found(repo.Get(ctx, id))
}

func (s *baseServiceImpl[T]) GetByOwner(ctx context.Context, ownerId uuid.UUID) (*T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return found(repo.GetByOwner(ctx, ownerId))
}

func (s *baseServiceImpl[T]) All(ctx context.Context) ([]*T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.GetAll(ctx)
}

func (s *baseServiceImpl[T]) AllByOwner(ctx context.Context, ownerId uuid.UUID) ([]*T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.GetAllByOwner(ctx, ownerId)
}

func (s *baseServiceImpl[T]) Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.GetAllPaged(ctx, page.GetPage(), page.GetPageSize())
}

func (s *baseServiceImpl[T]) PageByOwner(ctx context.Context, ownerId uuid.UUID, page *types.PageRequest) (*types.Pagination[T], error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.GetAllByOwnerPaged(ctx, ownerId, page.GetPage(), page.GetPageSize())
}

func (s *baseServiceImpl[T]) Save(ctx context.Context, model ...*T) error {
	repo, err := s.baseRepo()
	if err != nil {
		return err
	}
	if len(model) == 1 {
		return repo.Insert(ctx, model[0])
	}
	_, err = repo.SaveRange(ctx, model)
	return err
}

func (s *baseServiceImpl[T]) Update(ctx context.Context, model *T) error {
	repo, err := s.baseRepo()
	if err != nil {
		return err
	}
	return repo.Update(ctx, model)
}

func (s *baseServiceImpl[T]) Delete(ctx context.Context, id uuid.UUID) error {
	repo, err := s.baseRepo()
	if err != nil {
		return err
	}
	return repo.Delete(ctx, id)
}

func found[T any](entity *T, ok bool, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return entity, nil
}
