// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package graph implements a symbolic expression graph for probabilistic models, and a pure Go
// interpreter to evaluate it.
//
// The main elements in the package are:
//
//   - Graph: an append-only registry of expression nodes. To construct a computation one puts
//     together nodes or "ops" defining the operations.
//
//   - Node: represents a symbolic value in the computation. This can be an input parameter
//     (a placeholder fed at evaluation time), a constant, a random variable, or the result of
//     an operation ("op" for short, e.g.: Add, Sub, Mul, Log, IndexSet, etc.).
//     Each node has a fixed shape that is known in "graph building time".
//
//   - Exec: evaluates output nodes of a Graph given values for its parameters, sampling any
//     random variable nodes reached by the computation.
//
// On top of this package, the ml/model package organizes random variables into a model
// context, and ml/logprob derives log-density expressions from model graphs.
//
// # Error Handling
//
// Graph (and its Node's) methods "throw" errors with panic(). This prevents having to manage
// error returning for every operation (Add, Sub, Mul, etc.) and makes the code much more
// readable. It always throws meaningful error messages, with the full stacktrace, to ease
// tracking bugs and solving issues.
//
// # Delayed Execution
//
// Graph building is purely symbolic: no data is manipulated, only shapes are checked and
// propagated. The actual numbers only show up when a (sub-)expression is evaluated with Exec.
// Building is cheap, so the recommended way to develop is to write tests that just build the
// graph and check shapes, and only then evaluate.
package graph

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gomlx/bayes/types/tensors"
	"github.com/gomlx/bayes/types/xslices"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// Graph holds the nodes of a symbolic computation.
//
// It is append-only: nodes are created by the various ops (Add, Const, Parameter,
// RandomVariable, IndexSet, ...) and registered in order of creation. Nodes are never
// mutated -- graph-to-graph transformations (see ReplaceAll) create new nodes instead.
//
// A Graph is not safe for concurrent building.
type Graph struct {
	id   GraphId
	name string

	// nodes include all nodes known to the Graph, in order of creation.
	nodes []*Node

	// parameters keeps track of parameter nodes, with a mapping of name to handle.
	parameters            []*Node
	parameterNameToHandle map[string]ParameterHandle

	traced bool

	// scalars maintains a cache of scalar values already created in the current Graph for re-use.
	scalars scalarCache
}

// GraphId is globally unique.
var (
	muGraphCount sync.Mutex
	graphCount   GraphId
)

// GraphId is a unique id of a Graph. It's a counter that starts with 0.
type GraphId int

// NodeId is a unique NodeId within a Graph.
type NodeId int

// InvalidNodeId indicates a node that failed to be created.
const InvalidNodeId = NodeId(-1)

// ParameterHandle is a key to refer to an input parameter of a Graph.
type ParameterHandle int

// InvalidParameterHandle represents an invalid (or non-existent) parameter.
const InvalidParameterHandle = ParameterHandle(-1)

// ParamsMap is a shortcut for the map of parameters and their values passed to a graph
// evaluation. The values can be anything accepted by tensors.FromAnyValue().
type ParamsMap map[*Node]any

// NewGraph constructs an empty Graph with the given name. If name is empty, a unique one
// is generated.
func NewGraph(name string) *Graph {
	muGraphCount.Lock()
	defer muGraphCount.Unlock()
	if name == "" {
		name = fmt.Sprintf("graph_#%d", graphCount)
	}
	g := &Graph{
		id:                    graphCount,
		name:                  name,
		parameterNameToHandle: make(map[string]ParameterHandle),
		scalars:               make(scalarCache),
	}
	graphCount += 1
	return g
}

// Name of the computation this Graph defines, set during its construction.
func (g *Graph) Name() string { return g.name }

// GraphId is a globally unique id of the graph.
func (g *Graph) GraphId() GraphId { return g.id }

// AssertValid panics if the graph is nil.
func (g *Graph) AssertValid() {
	if g == nil {
		panic(errors.New("the Graph is nil"))
	}
}

// SetTraced defines whether each node creation is traced.
// If true, every node will save a stack-trace of where it was created, which is helpful
// for debugging. See Node.Trace().
//
// This is expensive, but can be handy for debugging.
func (g *Graph) SetTraced(traced bool) {
	g.AssertValid()
	g.traced = traced
}

// registerNode in the graph, returning a new unique id within the Graph.
// If Graph.traced is set, it also sets Node.trace to an error with a stack-trace.
func (g *Graph) registerNode(node *Node) (id NodeId) {
	g.AssertValid()
	if node.Shape().DType == dtypes.InvalidDType {
		exceptions.Panicf("trying to add node with invalid DType to graph %q: %s", g.name, node)
	}
	id = NodeId(len(g.nodes))
	g.nodes = append(g.nodes, node)
	node.id = id
	if g.traced {
		node.trace = errors.New("stack-trace")
	}
	return
}

// NodeById returns the node for the given id.
func (g *Graph) NodeById(id NodeId) *Node {
	g.AssertValid()
	if id == InvalidNodeId || int(id) >= len(g.nodes) {
		exceptions.Panicf("invalid request Graph.NodeById(id=%d): there are only %d nodes", id, len(g.nodes))
	}
	return g.nodes[id]
}

// LastNode returns the last node created.
// It returns nil if no node has been created for this graph yet.
func (g *Graph) LastNode() *Node {
	if len(g.nodes) == 0 {
		return nil
	}
	return xslices.Last(g.nodes)
}

// Nodes return a slice of all nodes, in order of creation.
// The slice is owned by Graph and shouldn't be changed.
func (g *Graph) Nodes() []*Node {
	return g.nodes
}

// NumParameters returns the number of parameters created for this graph.
func (g *Graph) NumParameters() int {
	return len(g.parameters)
}

// ParameterByIndex returns the ii-th parameter, in order of creation, registered for this graph.
func (g *Graph) ParameterByIndex(ii int) *Node {
	return g.parameters[ii]
}

// ParameterByName returns the parameter registered with the given name.
// It returns nil if no parameter with the given name was registered (see Parameter method).
func (g *Graph) ParameterByName(name string) (node *Node) {
	g.AssertValid()
	if name == "" {
		return
	}
	handle, ok := g.parameterNameToHandle[name]
	if !ok {
		return
	}
	return g.parameters[handle]
}

// String converts the Graph to a multi-line string with one node per line.
func (g *Graph) String() string {
	if g == nil {
		return "Graph(nil)"
	}
	parts := []string{fmt.Sprintf("Graph %q: %d nodes, %d parameters", g.name, len(g.nodes), g.NumParameters())}
	for ii, node := range g.nodes {
		parts = append(parts, fmt.Sprintf("#%d\t%s", ii, node))
	}
	return strings.Join(parts, "\n")
}

// scalarCache provides a cache of a scalar value -- the key always uses a float64 -- to
// its pre-created *Node. It helps avoid creating duplicate nodes for common values.
//
// It keeps a cache for each dtype of the scalar.
type scalarCache map[dtypes.DType]map[float64]*Node

// getScalarConst either creates a scalar constant or returns a previously created one
// from the cache. It shouldn't be called directly by users, rather Scalar and Const use it.
func (g *Graph) getScalarConst(dtype dtypes.DType, value float64) (output *Node) {
	dtypeMap, found := g.scalars[dtype]
	if !found {
		dtypeMap = make(map[float64]*Node)
		g.scalars[dtype] = dtypeMap
	}
	output, found = dtypeMap[value]
	if found {
		return
	}
	output = ConstTensor(g, tensors.CastAsDType(value, dtype))
	dtypeMap[value] = output
	return
}
