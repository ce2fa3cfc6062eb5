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

package database

import (
	"reflect"
	"sort"
	"sync"
)

// Index is a named, non-unique index over columns of a model's table.
type Index struct {
	Name    string
	Columns []string
}

// SQLModel is a table the migrations create. Instance returns a Bun model
// pointer; tables with a lower Priority are created first.
type SQLModel interface {
	Instance() interface{}
	Priority() int
	Indexes() []Index
}

type ModelRegistry interface {
	Register(model SQLModel)
	Models() []SQLModel
}

// modelRegistry keeps one model per Go type, in registration order.
type modelRegistry struct {
	mu     sync.RWMutex
	byType map[reflect.Type]int
	models []SQLModel
}

var defaultRegistry = newModelRegistry()

func newModelRegistry() ModelRegistry {
	return &modelRegistry{byType: make(map[reflect.Type]int)}
}

// Register ignores a model whose type is already registered.
func (r *modelRegistry) Register(model SQLModel) {
	typ := reflect.TypeOf(model.Instance())
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byType[typ]; dup {
		return
	}
	r.byType[typ] = len(r.models)
	r.models = append(r.models, model)
}

// Models returns the registered models by ascending priority. Models of
// equal priority keep their registration order.
func (r *modelRegistry) Models() []SQLModel {
	r.mu.RLock()
	models := append([]SQLModel(nil), r.models...)
	r.mu.RUnlock()
	sort.SliceStable(models, func(i, j int) bool {
		return models[i].Priority() < models[j].Priority()
	})
	return models
}

type ModelAdapter struct {
	instance interface{}
	priority int
	indexes  []Index
}

// NewModelAdapter describes the table of instance with the given creation
// priority and indexes.
func NewModelAdapter(instance interface{}, priority int, indexes ...Index) SQLModel {
	return &ModelAdapter{instance: instance, priority: priority, indexes: indexes}
}

func (a *ModelAdapter) Instance() interface{} { return a.instance }

func (a *ModelAdapter) Priority() int { return a.priority }

func (a *ModelAdapter) Indexes() []Index { return a.indexes }

// RegisteredModel adds model to the registry the migrations read.
func RegisteredModel(model SQLModel) {
	defaultRegistry.Register(model)
}

func GetRegisteredModels() []SQLModel {
	return defaultRegistry.Models()
}

// RegisteredModelInstances returns the Bun model of every registered table,
// in creation order.
func RegisteredModelInstances() []interface{} {
	models := GetRegisteredModels()
	instances := make([]interface{}, len(models))
	for i, m := range models {
		instances[i] = m.Instance()
	}
	return instances
}
