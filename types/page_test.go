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

import (
	"encoding/json"
	"math"
	"testing"
)

func TestPageRequest(t *testing.T) {
	tests := []struct {
		page, size             int
		wantPage, wantSize, at int
	}{
		{1, 10, 1, 10, 0},
		{3, 20, 3, 20, 40},
		{0, 10, 1, 10, 0},
		{-2, 10, 1, 10, 0},
		{1, 0, 1, MaxPageSize, 0},
		{2, -1, 2, MaxPageSize, MaxPageSize},
		{1, MaxPageSize, 1, MaxPageSize, 0},
		{1, MaxPageSize + 1, 1, MaxPageSize, 0},
		{math.MaxInt / 50, 100, math.MaxInt / 50, 100, math.MaxInt},
		{math.MaxInt, 1, math.MaxInt, 1, math.MaxInt - 1},
	}
	for _, tt := range tests {
		req := NewPageRequest(tt.page, tt.size)
		if req.GetPage() != tt.wantPage || req.GetPageSize() != tt.wantSize || req.GetOffset() != tt.at {
			t.Errorf("NewPageRequest(%d, %d) = page %d size %d offset %d", tt.page, tt.size,
				req.GetPage(), req.GetPageSize(), req.GetOffset())
		}
	}
}

func TestNilPageRequest(t *testing.T) {
	var req *PageRequest
	if req.GetPage() != 1 || req.GetPageSize() != MaxPageSize || req.GetOffset() != 0 {
		t.Errorf("nil request = page %d size %d offset %d", req.GetPage(), req.GetPageSize(), req.GetOffset())
	}
}

func TestPaginationTotalPages(t *testing.T) {
	tests := []struct {
		total, size, want int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{5, 2, 3},
		{5, 0, 0},
	}
	for _, tt := range tests {
		p := &Pagination[int]{PageSize: tt.size, Total: tt.total}
		if got := p.TotalPages(); got != tt.want {
			t.Errorf("TotalPages(total=%d, size=%d) = %d, want %d", tt.total, tt.size, got, tt.want)
		}
	}
}

func TestDefaultPaginationEncodesEmptyItems(t *testing.T) {
	b, err := json.Marshal(NewDefaultPagination[int](1, 10))
	if err != nil {
		t.Fatal(err)
	}
	if want := `{"page":1,"page_size":10,"total":0,"items":[]}`; string(b) != want {
		t.Errorf("got %s, want %s", b, want)
	}
}
