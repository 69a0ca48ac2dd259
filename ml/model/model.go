// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package model implements the probabilistic model context: a registry tying each random
// variable of an expression graph to its value variable (the graph Parameter holding the
// value the log-density is evaluated at) and, when the distribution has constrained support,
// to the transform mapping that support to the unconstrained space.
//
// A Model owns one expression graph. Random variables are registered in insertion order with
// Register or the per-distribution convenience methods:
//
//	m := model.New("example")
//	mu := m.Normal("mu", 0.0, 10.0)
//	sigma := m.HalfNormal("sigma", 1.0)
//	m.Normal("y", mu, sigma, model.WithObserved(data))
//
// Model mutation is single-threaded by contract, like graph building.
package model

import (
	"github.com/gomlx/bayes/graph"
	"github.com/gomlx/bayes/ml/distributions"
	"github.com/gomlx/bayes/types/shapes"
	"github.com/gomlx/bayes/types/tensors"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"k8s.io/klog/v2"
)

// Model holds an expression graph plus the registry of its random variables: value
// variables, transforms and names.
type Model struct {
	name string
	g    *graph.Graph

	rvs           []*graph.Node
	rvToValue     map[*graph.Node]*graph.Node
	rvToTransform map[*graph.Node]distributions.Transform
	observed      map[*graph.Node]bool
	byName        map[string]*graph.Node
}

// New creates an empty Model with the given name, owning a fresh graph.
func New(name string) *Model {
	return &Model{
		name:          name,
		g:             graph.NewGraph(name),
		rvToValue:     make(map[*graph.Node]*graph.Node),
		rvToTransform: make(map[*graph.Node]distributions.Transform),
		observed:      make(map[*graph.Node]bool),
		byName:        make(map[string]*graph.Node),
	}
}

// Name of the model.
func (m *Model) Name() string { return m.name }

// Graph owned by the model, on which all its random variables live.
func (m *Model) Graph() *graph.Graph { return m.g }

// rvConfig collects the options of a Register call.
type rvConfig struct {
	dims        []int
	dtype       dtypes.DType
	observed    *tensors.Tensor
	noTransform bool
}

// Option configures the registration of a random variable.
type Option func(*rvConfig)

// WithShape sets the dimensions of the random variable. The default is scalar.
func WithShape(dims ...int) Option {
	return func(cfg *rvConfig) { cfg.dims = dims }
}

// WithDType sets the dtype of the random variable. The default is Float64, or the dtype of
// the first node parameter.
func WithDType(dtype dtypes.DType) Option {
	return func(cfg *rvConfig) { cfg.dtype = dtype }
}

// WithObserved marks the random variable as observed at the given data -- a tensor or
// anything accepted by tensors.FromAnyValue. The data becomes the variable's value (as a
// constant), no value variable is allocated and no transform applies. Its shape must match
// the variable's.
func WithObserved(data any) Option {
	return func(cfg *rvConfig) {
		if t, ok := data.(*tensors.Tensor); ok {
			cfg.observed = t
			return
		}
		cfg.observed = tensors.FromAnyValue(data)
	}
}

// WithoutTransform registers the random variable with its value variable in the original
// constrained support, skipping the distribution's default transform.
func WithoutTransform() Option {
	return func(cfg *rvConfig) { cfg.noTransform = true }
}

// Register creates a random variable with the given name and distribution, allocates its
// value variable and records both in the model registry. The returned node is the random
// variable, usable in downstream expressions (including as parameter of later variables).
//
// Parameters can be graph nodes or Go values (converted to constants of the variable's
// dtype). For a free variable whose distribution has a default transform (and unless
// WithoutTransform is given), the value variable lives in the unconstrained space and is
// named "<name>_<transform>__"; otherwise it is named after the variable.
func (m *Model) Register(name string, dist distributions.Distribution, params []any, options ...Option) *graph.Node {
	if _, found := m.byName[name]; found {
		exceptions.Panicf("model %q already has a random variable named %q", m.name, name)
	}
	cfg := &rvConfig{dtype: dtypes.InvalidDType}
	for _, option := range options {
		option(cfg)
	}
	if cfg.dtype == dtypes.InvalidDType {
		cfg.dtype = dtypes.Float64
		if cfg.observed != nil {
			cfg.dtype = cfg.observed.DType()
		} else {
			for _, param := range params {
				if node, ok := param.(*graph.Node); ok {
					cfg.dtype = node.DType()
					break
				}
			}
		}
	}
	if cfg.observed != nil && cfg.dims == nil {
		cfg.dims = cfg.observed.Shape().Dimensions
	}
	shape := shapes.Make(cfg.dtype, cfg.dims...)

	paramNodes := make([]*graph.Node, len(params))
	for ii, param := range params {
		paramNodes[ii] = graph.ConstAsDType(m.g, cfg.dtype, param)
	}
	rv := graph.RandomVariable(m.g, name, dist, shape, paramNodes...)

	var value *graph.Node
	var transform distributions.Transform
	if cfg.observed != nil {
		if !cfg.observed.Shape().Equal(shape) {
			exceptions.Panicf("observed data for %q shaped %s, want %s", name, cfg.observed.Shape(), shape)
		}
		value = graph.ConstTensor(m.g, cfg.observed)
	} else {
		valueName := name
		if !cfg.noTransform {
			transform = dist.DefaultTransform(paramNodes)
			if transform != nil {
				valueName = name + "_" + transform.Name() + "__"
			}
		}
		value = graph.Parameter(m.g, valueName, shape)
	}

	m.rvs = append(m.rvs, rv)
	m.rvToValue[rv] = value
	m.observed[rv] = cfg.observed != nil
	if transform != nil {
		m.rvToTransform[rv] = transform
	}
	m.byName[name] = rv
	if klog.V(1).Enabled() {
		suffix := ""
		if cfg.observed != nil {
			suffix = " (observed)"
		}
		klog.Infof("model %q: registered %s ~ %s%s", m.name, name, dist.Name(), suffix)
	}
	return rv
}

// ValueVar returns the value variable of rv: the graph Parameter (or observed-data
// constant) holding the value the log-density of rv is evaluated at. It panics if rv is not
// registered: "<name> has no value variable".
func (m *Model) ValueVar(rv *graph.Node) *graph.Node {
	value, found := m.rvToValue[rv]
	if !found {
		name := "node"
		if rv.IsRandomVariable() {
			name = graph.RandomVariableName(rv)
		}
		exceptions.Panicf("%s has no value variable in model %q", name, m.name)
	}
	return value
}

// TransformOf returns the transform registered for rv, or nil if it has none (untransformed
// or observed).
func (m *Model) TransformOf(rv *graph.Node) distributions.Transform {
	return m.rvToTransform[rv]
}

// IsObserved returns whether rv was registered with observed data.
func (m *Model) IsObserved(rv *graph.Node) bool {
	return m.observed[rv]
}

// RandomVariables returns the model's random variables in registration order.
// The returned slice is owned by the model and shouldn't be changed.
func (m *Model) RandomVariables() []*graph.Node {
	return m.rvs
}

// ByName returns the random variable registered under name, or nil if there is none.
func (m *Model) ByName(name string) *graph.Node {
	return m.byName[name]
}

// Distribution returns the distribution rv was registered with.
func (m *Model) Distribution(rv *graph.Node) distributions.Distribution {
	dist, ok := graph.RandomVariableSampler(rv).(distributions.Distribution)
	if !ok {
		exceptions.Panicf("random variable %q was not created by a distribution",
			graph.RandomVariableName(rv))
	}
	return dist
}

// Normal registers a Gaussian random variable with the given location and scale.
func (m *Model) Normal(name string, mu, sigma any, options ...Option) *graph.Node {
	return m.Register(name, distributions.Normal, []any{mu, sigma}, options...)
}

// Uniform registers a uniform random variable on [low, high].
func (m *Model) Uniform(name string, low, high any, options ...Option) *graph.Node {
	return m.Register(name, distributions.Uniform, []any{low, high}, options...)
}

// HalfNormal registers a half-normal random variable with the given scale.
func (m *Model) HalfNormal(name string, sigma any, options ...Option) *graph.Node {
	return m.Register(name, distributions.HalfNormal, []any{sigma}, options...)
}

// Exponential registers an exponential random variable with the given rate.
func (m *Model) Exponential(name string, rate any, options ...Option) *graph.Node {
	return m.Register(name, distributions.Exponential, []any{rate}, options...)
}

// LogNormal registers a log-normal random variable with the given location and scale of the
// underlying normal.
func (m *Model) LogNormal(name string, mu, sigma any, options ...Option) *graph.Node {
	return m.Register(name, distributions.LogNormal, []any{mu, sigma}, options...)
}
