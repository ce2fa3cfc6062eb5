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

package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/tomoncle/cmskit/repository"
	"github.com/uptrace/bun"
)

const emptyDescription = "<p></p>"

// PageStore is the page repository plus the site-scoped queries the admin
// screens need.
type PageStore struct {
	repository.Repository[Page]
	db *bun.DB
}

func NewPageStore(db *bun.DB) (*PageStore, error) {
	repo, err := repository.NewRepositoryFromDB[Page](db)
	if err != nil {
		return nil, err
	}
	return &PageStore{Repository: repo, db: db}, nil
}

// GetBySite returns the page with id if it belongs to siteId.
func (s *PageStore) GetBySite(ctx context.Context, id, siteId uuid.UUID) (*Page, bool, error) {
	page := new(Page)
	err := s.db.NewSelect().
		Model(page).
		Where("? = ?", bun.Ident("Id"), id).
		Where("? = ?", bun.Ident("SiteId"), siteId).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	page.Link = page.PublicPath()
	return page, true, nil
}

// ResetShowInHome clears the home page flag on every page of siteId.
func (s *PageStore) ResetShowInHome(ctx context.Context, siteId uuid.UUID) error {
	_, err := s.db.NewUpdate().
		Model((*Page)(nil)).
		Set("? = ?", bun.Ident("ShowInHome"), false).
		Where("? = ?", bun.Ident("SiteId"), siteId).
		Where("? = ?", bun.Ident("ShowInHome"), true).
		Exec(ctx)
	return err
}

// Save creates page when it has no Id and updates it otherwise, on behalf of
// userId. The Url is regenerated from the title and an empty description
// becomes an empty paragraph. Saving a page with ShowInHome set first clears
// the flag on the other pages of its site. Updating a page that does not
// belong to its site returns repository.ErrNotFound.
func (s *PageStore) Save(ctx context.Context, page *Page, userId uuid.UUID) error {
	if page == nil {
		return fmt.Errorf("content: nil page")
	}
	now := time.Now().UTC()

	creating := page.Id == uuid.Nil
	if !creating {
		existing, found, err := s.GetBySite(ctx, page.Id, page.SiteId)
		if err != nil {
			return err
		}
		if !found {
			return repository.ErrNotFound
		}
		page.UserId = existing.UserId
		page.PageNo = existing.PageNo
		page.CreatedTime = existing.CreatedTime
	}

	page.Url = Slugify(page.Title)
	if page.Description == "" {
		page.Description = emptyDescription
	}
	if page.ThumbnailId != nil && *page.ThumbnailId == uuid.Nil {
		page.ThumbnailId = nil
	}
	page.UpdatedUserId = userId
	page.UpdatedTime = now

	if page.ShowInHome {
		if err := s.ResetShowInHome(ctx, page.SiteId); err != nil {
			return err
		}
	}

	if creating {
		next, err := s.nextPageNo(ctx, page.SiteId)
		if err != nil {
			return err
		}
		page.Id = uuid.New()
		page.UserId = userId
		page.PageNo = next
		page.CreatedTime = now
		err = s.Insert(ctx, page)
		if err == nil {
			page.Link = page.PublicPath()
		}
		return err
	}
	if err := s.Update(ctx, page); err != nil {
		return err
	}
	page.Link = page.PublicPath()
	return nil
}

// Remove deletes the page with id if it belongs to siteId. It reports whether
// a page was deleted.
func (s *PageStore) Remove(ctx context.Context, id, siteId uuid.UUID) (bool, error) {
	res, err := s.db.NewDelete().
		Model((*Page)(nil)).
		Where("? = ?", bun.Ident("Id"), id).
		Where("? = ?", bun.Ident("SiteId"), siteId).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *PageStore) nextPageNo(ctx context.Context, siteId uuid.UUID) (int, error) {
	var last int
	err := s.db.NewSelect().
		Model((*Page)(nil)).
		ColumnExpr("COALESCE(MAX(?), 0)", bun.Ident("PageNo")).
		Where("? = ?", bun.Ident("SiteId"), siteId).
		Scan(ctx, &last)
	if err != nil {
		return 0, err
	}
	return last + 1, nil
}

// FileStore is the file repository plus lookups by storage path.
type FileStore struct {
	repository.Repository[File]
	db *bun.DB
}

func NewFileStore(db *bun.DB) (*FileStore, error) {
	repo, err := repository.NewRepositoryFromDB[File](db)
	if err != nil {
		return nil, err
	}
	return &FileStore{Repository: repo, db: db}, nil
}

// GetByLocation finds the file stored at location, the concatenation of its
// FileLocation directory and FileName.
func (s *FileStore) GetByLocation(ctx context.Context, location string) (*File, bool, error) {
	dir, name := path.Split(location)
	if name == "" {
		return nil, false, nil
	}
	file := new(File)
	err := s.db.NewSelect().
		Model(file).
		Where("? = ?", bun.Ident("FileLocation"), dir).
		Where("? = ?", bun.Ident("FileName"), name).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return file, true, nil
}

// IncrementDownload bumps the download counter of the file with id.
func (s *FileStore) IncrementDownload(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.NewUpdate().
		Model((*File)(nil)).
		Set("? = ? + 1", bun.Ident("Download"), bun.Ident("Download")).
		Where("? = ?", bun.Ident("Id"), id).
		Exec(ctx)
	return err
}
