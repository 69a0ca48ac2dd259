// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package graphdisplay pretty-prints expression graphs as indented trees on the terminal.
// Useful to inspect derived log-density expressions: node types are styled, random
// variables and parameters highlighted, and shared sub-expressions printed once.
package graphdisplay

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/gomlx/bayes/graph"
	"github.com/gomlx/bayes/types/sets"
)

var (
	opStyle        = lipgloss.NewStyle().Bold(true)
	randomStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5"))
	parameterStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4"))
	shapeStyle     = lipgloss.NewStyle().Faint(true)
	refStyle       = lipgloss.NewStyle().Faint(true).Italic(true)
)

// maxDepth at which the tree printer gives up and prints an ellipsis. Derived densities are
// shallow; this only guards against degenerate graphs.
const maxDepth = 50

// FPrintExpression writes the expression tree of node to w, children indented under their
// consumer. Sub-expressions appearing more than once are printed in full on first sight and
// as a "(see #id)" reference afterwards.
func FPrintExpression(w io.Writer, node *graph.Node) {
	printed := sets.Make[*graph.Node]()
	printNode(w, node, 0, printed)
}

// PrintExpression is FPrintExpression to stdout.
func PrintExpression(node *graph.Node) {
	FPrintExpression(os.Stdout, node)
}

// Sprint returns the expression tree of node as a string.
func Sprint(node *graph.Node) string {
	var sb strings.Builder
	FPrintExpression(&sb, node)
	return sb.String()
}

func printNode(w io.Writer, node *graph.Node, depth int, printed sets.Set[*graph.Node]) {
	indent := strings.Repeat("  ", depth)
	if depth >= maxDepth {
		fmt.Fprintf(w, "%s…\n", indent)
		return
	}
	if printed.Has(node) {
		fmt.Fprintf(w, "%s%s\n", indent, refStyle.Render(fmt.Sprintf("(see #%d)", node.Id())))
		return
	}
	printed.Insert(node)
	fmt.Fprintf(w, "%s#%d %s %s\n", indent, node.Id(), renderOp(node),
		shapeStyle.Render(node.Shape().String()))
	for _, input := range node.Inputs() {
		printNode(w, input, depth+1, printed)
	}
}

// renderOp formats the operation of node with the style of its class.
func renderOp(node *graph.Node) string {
	description := node.Type().String()
	switch node.Type() {
	case graph.NodeTypeRandomVariable:
		return randomStyle.Render(fmt.Sprintf("%s(%q, %s)", description,
			graph.RandomVariableName(node), graph.RandomVariableSampler(node).Name()))
	case graph.NodeTypeParameter:
		return parameterStyle.Render(fmt.Sprintf("%s(%q)", description, graph.ParameterName(node)))
	case graph.NodeTypeConstant:
		value := node.ConstantValue()
		if value.Size() <= graph.MaxSizeToPrint {
			return opStyle.Render(fmt.Sprintf("%s(%v)", description, value.Value()))
		}
		return opStyle.Render(description)
	case graph.NodeTypeIndexSet:
		return opStyle.Render(fmt.Sprintf("%s[%s]", description, graph.IndexSetSpec(node)))
	case graph.NodeTypeTake:
		return opStyle.Render(fmt.Sprintf("%s[%s]", description, graph.TakeSpec(node)))
	}
	return opStyle.Render(description)
}
