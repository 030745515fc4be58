// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package passes defines the Pass interface, a registry of passes and the Manager that runs
// passes over an ir.Graph until they stop changing it.
//
// Passes register themselves during package initialization, so to make a pass available by
// name, import its package, e.g.:
//
//	import _ "github.com/gomlx/graphopt/pkg/passes/transposenet"
package passes

import (
	"slices"
	"strings"

	"github.com/gomlx/graphopt/pkg/ir"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Pass transforms a graph in place.
type Pass interface {
	// Name of the pass, used for logging and in the registry.
	Name() string

	// Run makes a single sweep over the graph and returns whether it changed anything.
	// Running to a fixpoint is the Manager's job.
	Run(g *ir.Graph) bool
}

// Constructor of a registered pass.
type Constructor func() Pass

var registeredConstructors = make(map[string]Constructor)

// Register a pass with the given name.
//
// To be safe, call Register during initialization of a package.
func Register(name string, constructor Constructor) {
	registeredConstructors[name] = constructor
}

// New returns a new instance of the registered pass with the given name.
func New(name string) (Pass, error) {
	constructor, found := registeredConstructors[name]
	if !found {
		return nil, errors.Errorf("unknown pass %q, registered passes: %s", name, strings.Join(Registered(), ", "))
	}
	return constructor(), nil
}

// NewList parses a comma-separated list of pass names and returns the corresponding passes.
func NewList(names string) ([]Pass, error) {
	var list []Pass
	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		p, err := New(name)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, nil
}

// Registered returns the sorted names of the registered passes.
func Registered() []string {
	names := make([]string, 0, len(registeredConstructors))
	for name := range registeredConstructors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DefaultMaxIterations is the default limit of iterations of the Manager.
const DefaultMaxIterations = 100

// Manager runs a sequence of passes over a graph until none of them changes it.
type Manager struct {
	passes        []Pass
	maxIterations int
	sweep         bool
}

// NewManager creates a Manager for the given passes, run in the given order on each iteration.
func NewManager(passes ...Pass) *Manager {
	return &Manager{
		passes:        slices.Clone(passes),
		maxIterations: DefaultMaxIterations,
		sweep:         true,
	}
}

// WithMaxIterations sets the maximum number of iterations before Run gives up.
// It returns the Manager itself, so configuration calls can be chained.
func (m *Manager) WithMaxIterations(n int) *Manager {
	m.maxIterations = n
	return m
}

// WithSweep configures whether Run sweeps dead nodes from the graph at the end. Default is true.
func (m *Manager) WithSweep(sweep bool) *Manager {
	m.sweep = sweep
	return m
}

// Stats of a Manager run.
type Stats struct {
	// Iterations is the number of times all passes were run, including the final one that changed nothing.
	Iterations int

	// Changes counts, per pass name, the number of iterations in which the pass changed the graph.
	Changes map[string]int

	// Swept is the number of nodes removed by the final sweep.
	Swept int
}

// Run runs the passes until an iteration changes nothing.
// It returns an error if that doesn't happen within the maximum number of iterations.
func (m *Manager) Run(g *ir.Graph) (stats Stats, err error) {
	stats.Changes = make(map[string]int)
	for {
		if stats.Iterations >= m.maxIterations {
			err = errors.Errorf("passes didn't converge on graph %q after %d iterations", g.Name(), m.maxIterations)
			return
		}
		stats.Iterations++
		var changed bool
		for _, p := range m.passes {
			if p.Run(g) {
				klog.V(1).Infof("graph %q: pass %s changed the graph in iteration %d", g.Name(), p.Name(), stats.Iterations)
				stats.Changes[p.Name()]++
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	if m.sweep {
		stats.Swept = g.Sweep()
	}
	return
}
