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
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/tomoncle/cmskit/database"
	"github.com/tomoncle/cmskit/types"
	"github.com/uptrace/bun"
)

// Page is a site page. UserId is the author.
type Page struct {
	bun.BaseModel `bun:"table:Page"`

	Id            uuid.UUID        `bun:"Id,pk,type:varchar(36)" json:"id"`
	SiteId        uuid.UUID        `bun:"SiteId,type:varchar(36)" json:"site_id"`
	UserId        uuid.UUID        `bun:"UserId,type:varchar(36)" json:"user_id"`
	UpdatedUserId uuid.UUID        `bun:"UpdatedUserId,type:varchar(36)" json:"updated_user_id"`
	ThumbnailId   *uuid.UUID       `bun:"ThumbnailId,type:varchar(36)" json:"thumbnail_id,omitempty"`
	PageNo        int              `bun:"PageNo,notnull" json:"page_no"`
	Title         string           `bun:"Title,notnull" json:"title"`
	Url           string           `bun:"Url" json:"url"`
	Description   string           `bun:"Description,type:text" json:"description"`
	ShowInHome    bool             `bun:"ShowInHome,notnull" json:"show_in_home"`
	Meta          types.JsonObject `bun:"Meta,type:text" json:"meta,omitempty"`
	CreatedTime   time.Time        `bun:"CreatedTime,notnull" json:"created_time"`
	UpdatedTime   time.Time        `bun:"UpdatedTime" json:"updated_time"`

	// Link is the public path, rebuilt from PageNo and Url.
	Link string `bun:"-" json:"link"`
}

func (p Page) GetId() uuid.UUID { return p.Id }

func (p Page) GetCreatedTime() time.Time { return p.CreatedTime }

// PublicPath returns /<PageNo>/<Url>.
func (p Page) PublicPath() string {
	return "/" + strconv.Itoa(p.PageNo) + "/" + p.Url
}

// Menu is a named navigation menu of a site.
type Menu struct {
	bun.BaseModel `bun:"table:Menu"`

	Id          uuid.UUID `bun:"Id,pk,type:varchar(36)" json:"id"`
	SiteId      uuid.UUID `bun:"SiteId,type:varchar(36)" json:"site_id"`
	Name        string    `bun:"Name,notnull" json:"name"`
	Description string    `bun:"Description" json:"description"`
	CreatedTime time.Time `bun:"CreatedTime,notnull" json:"created_time"`
}

func (m Menu) GetId() uuid.UUID { return m.Id }

func (m Menu) GetCreatedTime() time.Time { return m.CreatedTime }

// File is the record of an uploaded file. UserId is the uploader.
type File struct {
	bun.BaseModel `bun:"table:File"`

	Id              uuid.UUID `bun:"Id,pk,type:varchar(36)" json:"id"`
	UserId          uuid.UUID `bun:"UserId,type:varchar(36)" json:"user_id"`
	Location        string    `bun:"Location" json:"location"`
	FileLocation    string    `bun:"FileLocation" json:"file_location"`
	FileName        string    `bun:"FileName,notnull" json:"file_name"`
	DefaultFileName string    `bun:"DefaultFileName" json:"default_file_name"`
	Extension       string    `bun:"Extension" json:"extension"`
	ContentType     string    `bun:"ContentType" json:"content_type"`
	ContentLength   int64     `bun:"ContentLength" json:"content_length"`
	Download        int       `bun:"Download,notnull" json:"download"`
	CreatedTime     time.Time `bun:"CreatedTime,notnull" json:"created_time"`
}

func (f File) GetId() uuid.UUID { return f.Id }

func (f File) GetCreatedTime() time.Time { return f.CreatedTime }

// Path returns the site-relative path the file is looked up by.
func (f File) Path() string { return f.FileLocation + f.FileName }

// Register adds the content models, and the indexes paged listings rely
// on, to the database model registry. It is safe to call more than once.
func Register() {
	database.RegisteredModel(database.NewModelAdapter((*Page)(nil), 10,
		database.Index{Name: "IX_Page_CreatedTime", Columns: []string{"CreatedTime"}},
		database.Index{Name: "IX_Page_UserId", Columns: []string{"UserId"}},
		database.Index{Name: "IX_Page_SiteId", Columns: []string{"SiteId"}},
	))
	database.RegisteredModel(database.NewModelAdapter((*Menu)(nil), 20,
		database.Index{Name: "IX_Menu_CreatedTime", Columns: []string{"CreatedTime"}},
	))
	database.RegisteredModel(database.NewModelAdapter((*File)(nil), 30,
		database.Index{Name: "IX_File_CreatedTime", Columns: []string{"CreatedTime"}},
		database.Index{Name: "IX_File_UserId", Columns: []string{"UserId"}},
		database.Index{Name: "IX_File_Location", Columns: []string{"FileLocation", "FileName"}},
	))
}
