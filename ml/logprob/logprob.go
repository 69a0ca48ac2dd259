// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package logprob derives log-density expressions from the random variables of a
// probabilistic model (see ml/model).
//
// Logp turns a random variable into the elementwise log-density of a given value under the
// variable's distribution: random variables appearing inside the distribution parameters are
// substituted by their (back-transformed) value variables, and transformed variables get the
// change-of-variables Jacobian correction. The derivation is purely functional -- it only
// adds nodes to the graph and never touches the model registry, so deriving twice yields the
// same density.
//
// Index-assigned variables (an IndexSet node overwriting part of a random variable's draw
// with fixed data) are decomposed per coordinate: the assigned coordinates are scored at the
// assigned data, the remaining ones at the base variable's own draw.
package logprob

import (
	"github.com/gomlx/bayes/graph"
	"github.com/gomlx/bayes/ml/distributions"
	"github.com/gomlx/bayes/ml/model"
	"github.com/gomlx/exceptions"
)

// maxSubstitutionRounds caps the value-variable substitution fixpoint: each round can expose
// new random variables (transform bounds may be expressions of other variables), but a model
// registry is acyclic, so the chain is at most as deep as the registry.
const maxSubstitutionRounds = 100

type config struct {
	jacobian bool
}

// Option configures a Logp derivation.
type Option func(*config)

// WithJacobian sets whether the log-det-Jacobian correction of transformed variables is
// added to the density. The default is true; disable it to get the density in the original
// constrained space.
func WithJacobian(enabled bool) Option {
	return func(cfg *config) { cfg.jacobian = enabled }
}

// Logp returns the elementwise log-density expression of value under the distribution of rv,
// with every other random variable inside the distribution parameters substituted by its
// (back-transformed) value variable.
//
// rv can be:
//   - A random variable registered in m: the density is evaluated at value -- back-transformed
//     first when the variable has a transform, with the Jacobian correction added (see
//     WithJacobian). value is typically m.ValueVar(rv), but any node of the same shape works.
//   - An IndexSet node whose operand is a registered random variable: the density of the
//     index-assigned variable. The assigned coordinates are scored at the assigned data, the
//     rest at the base variable's own draw; value is ignored. The base variable remains the
//     single random-variable ancestor of the result, directly consumed by an IndexSet node.
//
// The result is left unsummed: callers choose the reduction (see Joint).
func Logp(m *model.Model, rv, value *graph.Node, options ...Option) *graph.Node {
	cfg := &config{jacobian: true}
	for _, option := range options {
		option(cfg)
	}

	switch {
	case rv.IsRandomVariable():
		return logpRandomVariable(m, rv, value, cfg)
	case rv.Type() == graph.NodeTypeIndexSet:
		return logpIndexSet(m, rv, cfg)
	}
	exceptions.Panicf("logprob.Logp: cannot derive the log-density of a %s node", rv.Type())
	return nil
}

// logpRandomVariable derives the density of a directly registered random variable.
func logpRandomVariable(m *model.Model, rv, value *graph.Node, cfg *config) *graph.Node {
	if value == nil {
		exceptions.Panicf("logprob.Logp(%q) requires a value node", graph.RandomVariableName(rv))
	}
	dist := m.Distribution(rv)
	params := substituteValueVars(m, rv.Inputs(), rv)

	transform := m.TransformOf(rv)
	scoredValue := value
	if transform != nil {
		transform = retargetTransform(m, rv, transform, params)
		scoredValue = transform.Backward(value)
	}
	logp := dist.LogProbGraph(scoredValue, params)
	if transform != nil && cfg.jacobian {
		logp = graph.Add(logp, transform.LogDetJacobian(value))
	}
	return logp
}

// logpIndexSet derives the density of an index-assigned random variable: the per-coordinate
// decomposition of logp(IndexSet(base, data, spec)).
func logpIndexSet(m *model.Model, target *graph.Node, cfg *config) *graph.Node {
	base := target.Inputs()[0]
	if base.Type() == graph.NodeTypeIndexSet {
		exceptions.Panicf("logprob.Logp: nested index assignments are not supported")
	}
	if !base.IsRandomVariable() {
		exceptions.Panicf("logprob.Logp: index assignment over a %s node, want a random variable",
			base.Type())
	}
	m.ValueVar(base) // Panics if base is not registered.
	if m.TransformOf(base) != nil {
		exceptions.Panicf("logprob.Logp: index assignment over the transformed variable %q is not supported",
			graph.RandomVariableName(base))
	}

	// Substitute value variables everywhere except in the base variable itself: the hybrid
	// value keeps the base's own draw on the unassigned coordinates.
	hybrid := substituteValueVars(m, []*graph.Node{target}, base)[0]
	newBase := hybrid.Inputs()[0]
	dist := distributionOf(newBase)
	return dist.LogProbGraph(hybrid, newBase.Inputs())
}

// Joint returns the joint log-density of the model: the sum of the log-densities of every
// registered random variable (free and observed) evaluated at its value variable, reduced to
// a scalar.
func Joint(m *model.Model, options ...Option) *graph.Node {
	rvs := m.RandomVariables()
	if len(rvs) == 0 {
		exceptions.Panicf("logprob.Joint: model %q has no random variables", m.Name())
	}
	var joint *graph.Node
	for _, rv := range rvs {
		term := graph.ReduceAllSum(Logp(m, rv, m.ValueVar(rv), options...))
		if joint == nil {
			joint = term
			continue
		}
		joint = graph.Add(joint, term)
	}
	return joint
}

// substituteValueVars replaces, in the expressions of outputs, every random variable of the
// model except exclude by its back-transformed value variable. Substitution runs to a
// fixpoint: back-transforms may reference further random variables (e.g. interval bounds that
// are expressions of upstream variables), which are substituted in turn.
func substituteValueVars(m *model.Model, outputs []*graph.Node, exclude *graph.Node) []*graph.Node {
	replacements := make(map[*graph.Node]*graph.Node)
	for _, rv := range m.RandomVariables() {
		if rv == exclude {
			continue
		}
		replacements[rv] = backTransformedValue(m, rv)
	}
	for round := 0; ; round++ {
		pending := false
		for _, ancestor := range graph.RandomVariableAncestors(outputs) {
			if _, found := replacements[ancestor]; found {
				pending = true
				continue
			}
			if exclude != nil && graph.RandomVariableName(ancestor) == graph.RandomVariableName(exclude) {
				// The excluded variable (or a substitution clone of it, which shares its
				// name) stays in the expression.
				continue
			}
			exceptions.Panicf("%s has no value variable in model %q",
				graph.RandomVariableName(ancestor), m.Name())
		}
		if !pending {
			return outputs
		}
		if round >= maxSubstitutionRounds {
			exceptions.Panicf("logprob: value-variable substitution did not converge after %d rounds "+
				"-- the model registry has a dependency cycle", maxSubstitutionRounds)
		}
		outputs = graph.ReplaceAll(outputs, replacements)
	}
}

// backTransformedValue returns the expression of rv in its original support, in terms of its
// value variable: the value variable itself, or its back-transform when rv is transformed.
func backTransformedValue(m *model.Model, rv *graph.Node) *graph.Node {
	value := m.ValueVar(rv)
	if transform := m.TransformOf(rv); transform != nil {
		return transform.Backward(value)
	}
	return value
}

// distributionOf returns the Distribution that created a random-variable node, registered or
// not (substitution may clone random variables, the sampler payload survives the clone).
func distributionOf(rv *graph.Node) distributions.Distribution {
	dist, ok := graph.RandomVariableSampler(rv).(distributions.Distribution)
	if !ok {
		exceptions.Panicf("random variable %q was not created by a distribution",
			graph.RandomVariableName(rv))
	}
	return dist
}

// retargetTransform is a hook for transforms whose parameters are themselves expressions of
// other random variables: the transform registered in the model references the original
// parameter nodes, the derived density must use the substituted ones. Interval bounds are
// rebuilt from the substituted distribution parameters; parameterless transforms are
// returned unchanged.
func retargetTransform(m *model.Model, rv *graph.Node, transform distributions.Transform,
	substitutedParams []*graph.Node) distributions.Transform {
	retargeted := m.Distribution(rv).DefaultTransform(substitutedParams)
	if retargeted == nil || retargeted.Name() != transform.Name() {
		// A custom transform was registered; keep it.
		return transform
	}
	return retargeted
}
