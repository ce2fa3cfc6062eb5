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
	"testing"
)

func TestJsonObjectValue(t *testing.T) {
	v, err := JsonObject{"theme": "dark"}.Value()
	if err != nil {
		t.Fatal(err)
	}
	if v != `{"theme":"dark"}` {
		t.Errorf("value = %v", v)
	}
	if v, _ := JsonObject(nil).Value(); v != nil {
		t.Errorf("nil object stored as %v", v)
	}
}

func TestJsonObjectScan(t *testing.T) {
	for _, src := range []interface{}{`{"n":1}`, []byte(`{"n":1}`)} {
		var j JsonObject
		if err := j.Scan(src); err != nil {
			t.Fatalf("scan %T: %v", src, err)
		}
		if j["n"] != float64(1) {
			t.Errorf("scan %T: got %v", src, j)
		}
	}

	j := JsonObject{"stale": true}
	if err := j.Scan(nil); err != nil || j != nil {
		t.Errorf("scan nil: %v %v", j, err)
	}
	if err := j.Scan(42); err == nil {
		t.Error("expected an error for an int source")
	}
}
