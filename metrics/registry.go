// Copyright 2023 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package metrics

import (
	"fmt"
	"sync"
)

// Registry holds references to a set of named metrics so a stats exporter
// can walk them without every gap component knowing about the exporter.
type Registry interface {
	Each(func(string, interface{}))
	Get(string) interface{}
	GetOrRegister(string, interface{}) interface{}
	Register(string, interface{}) error
	Unregister(string)
}

// StandardRegistry is the default in-memory Registry implementation.
type StandardRegistry struct {
	mu sync.Mutex
	m  map[string]interface{}
}

func NewRegistry() Registry {
	return &StandardRegistry{m: make(map[string]interface{})}
}

func (r *StandardRegistry) Each(f func(string, interface{})) {
	r.mu.Lock()
	snapshot := make(map[string]interface{}, len(r.m))
	for k, v := range r.m {
		snapshot[k] = v
	}
	r.mu.Unlock()
	for k, v := range snapshot {
		f(k, v)
	}
}

func (r *StandardRegistry) Get(name string) interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.m[name]
}

func (r *StandardRegistry) GetOrRegister(name string, i interface{}) interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.m[name]; ok {
		return existing
	}
	i = instantiate(i)
	r.m[name] = i
	return i
}

func (r *StandardRegistry) Register(name string, i interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.m[name]; ok {
		return fmt.Errorf("metric %q already registered", name)
	}
	r.m[name] = instantiate(i)
	return nil
}

// instantiate calls i if it is one of the lazy metric-constructor function
// types (as passed by GetOrRegisterCounter and friends), otherwise returns
// i unchanged.
func instantiate(i interface{}) interface{} {
	switch f := i.(type) {
	case func() Counter:
		return f()
	case func() Gauge:
		return f()
	case func() Meter:
		return f()
	default:
		return i
	}
}

func (r *StandardRegistry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, name)
}

// DefaultRegistry is the registry used by the package-level Register/Get
// helpers, mirroring a process-wide stats surface for a standalone daemon.
var DefaultRegistry = NewRegistry()

func Register(name string, i interface{}) error {
	return DefaultRegistry.Register(name, i)
}

func Get(name string) interface{} {
	return DefaultRegistry.Get(name)
}

func GetOrRegisterCounter(name string, r Registry) Counter {
	if r == nil {
		r = DefaultRegistry
	}
	return r.GetOrRegister(name, NewCounter).(Counter)
}

func NewRegisteredCounter(name string, r Registry) Counter {
	c := NewCounter()
	if r == nil {
		r = DefaultRegistry
	}
	r.Register(name, c)
	return c
}

func GetOrRegisterGauge(name string, r Registry) Gauge {
	if r == nil {
		r = DefaultRegistry
	}
	return r.GetOrRegister(name, NewGauge).(Gauge)
}

func NewRegisteredGauge(name string, r Registry) Gauge {
	g := NewGauge()
	if r == nil {
		r = DefaultRegistry
	}
	r.Register(name, g)
	return g
}

func NewRegisteredFunctionalGauge(name string, r Registry, f func() int64) Gauge {
	g := NewFunctionalGauge(f)
	if r == nil {
		r = DefaultRegistry
	}
	r.Register(name, g)
	return g
}

func GetOrRegisterMeter(name string, r Registry) Meter {
	if r == nil {
		r = DefaultRegistry
	}
	return r.GetOrRegister(name, NewMeter).(Meter)
}

func NewRegisteredMeter(name string, r Registry) Meter {
	m := NewMeter()
	if r == nil {
		r = DefaultRegistry
	}
	r.Register(name, m)
	return m
}
