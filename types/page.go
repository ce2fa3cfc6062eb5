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

package types

import "math"

// MaxPageSize is the largest page a listing returns. It is also the size used
// when a request asks for none or for more.
const MaxPageSize = 100

// PageRequest describes a 1-based page and its size.
type PageRequest struct {
	page     int
	pageSize int
}

// GetPageSize returns the requested size, or MaxPageSize when it is outside (0, MaxPageSize].
// A nil request is the first page of MaxPageSize rows.
func (p *PageRequest) GetPageSize() int {
	if p == nil || p.pageSize <= 0 || p.pageSize > MaxPageSize {
		return MaxPageSize
	}
	return p.pageSize
}

func (p *PageRequest) GetPage() int {
	if p == nil || p.page < 1 {
		return 1
	}
	return p.page
}

// GetOffset returns the number of rows before the page, saturating at
// math.MaxInt for pages too far out to address.
func (p *PageRequest) GetOffset() int {
	page, size := p.GetPage(), p.GetPageSize()
	if page-1 > math.MaxInt/size {
		return math.MaxInt
	}
	return (page - 1) * size
}

// NewPageRequest constructs a PageRequest.
func NewPageRequest(page int, pageSize int) *PageRequest {
	return &PageRequest{page, pageSize}
}

// Pagination holds paged result items along with pagination metadata.
type Pagination[T any] struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	Total    int  `json:"total"`
	Items    []*T `json:"items"`
}

// TotalPages returns ceil(Total / PageSize).
func (p *Pagination[T]) TotalPages() int {
	if p.PageSize <= 0 {
		return 0
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

// NewDefaultPagination constructs an empty pagination container.
func NewDefaultPagination[T any](page int, pageSize int) *Pagination[T] {
	return &Pagination[T]{page, pageSize, 0, make([]*T, 0)}
}
