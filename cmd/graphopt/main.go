// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// graphopt loads graphs from YAML or JSON files, runs optimization passes over them and prints
// each graph before and after.
//
// Usage:
//
//	graphopt [-passes=dedup,transposenet] [-max_iterations=100] [-output_dir=dir] [-no_color] graph.yaml...
//
// Graphs are optimized in parallel, and reported in the order given.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/graphopt/pkg/ir"
	"github.com/gomlx/graphopt/pkg/ir/irtext"
	"github.com/gomlx/graphopt/pkg/passes"
	"github.com/gomlx/graphopt/pkg/support/fsutil"
	"github.com/gomlx/graphopt/pkg/support/xslices"
	"github.com/janpfeifer/must"
	"github.com/muesli/termenv"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	// Passes available by name.
	_ "github.com/gomlx/graphopt/pkg/passes/dedup"
	_ "github.com/gomlx/graphopt/pkg/passes/transposenet"
)

var (
	flagPasses = xslices.Flag("passes", []string{"dedup", "transposenet"},
		fmt.Sprintf("Comma-separated list of passes to run, in order, until the graph no longer changes. "+
			"Registered passes: %s", strings.Join(passes.Registered(), ", ")),
		func(name string) (string, error) {
			_, err := passes.New(name)
			return name, err
		})
	flagMaxIterations = flag.Int("max_iterations", passes.DefaultMaxIterations,
		"Maximum number of times the passes are run before giving up.")
	flagOutputDir = flag.String("output_dir", "",
		"If set, the optimized graphs are saved in this directory, with the same file name and format.")
	flagOverwrite   = flag.Bool("overwrite", false, "Overwrite existing files in --output_dir.")
	flagParallelism = flag.Int("parallelism", runtime.NumCPU(), "Maximum number of graphs optimized in parallel.")
	flagNoColor     = flag.Bool("no_color", false, "Disable colors in the output.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	paths := flag.Args()
	if len(paths) == 0 {
		klog.Errorf("Missing graph files (.yaml or .json) to optimize. See 'graphopt -help'.")
		os.Exit(1)
	}
	if *flagNoColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	outputDir := must.M1(fsutil.ReplaceTildeInDir(*flagOutputDir))

	results := make([]*result, len(paths))
	var group errgroup.Group
	group.SetLimit(max(*flagParallelism, 1))
	for ii, path := range paths {
		group.Go(func() error {
			r, err := optimize(path, outputDir)
			if err != nil {
				return errors.WithMessagef(err, "graph file %q", path)
			}
			results[ii] = r
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		klog.Errorf("%+v", err)
		os.Exit(1)
	}
	for _, r := range results {
		r.report()
	}
}

// result of optimizing one graph.
type result struct {
	path          string
	before, after [][]string
	liveBefore    int
	liveAfter     int
	stats         passes.Stats
}

// optimize loads the graph in path, runs the passes and, if outputDir is set, saves the result.
// The nodes are listed before and after the passes, since the graph is modified in place.
func optimize(path, outputDir string) (*result, error) {
	g, err := irtext.LoadFile(path)
	if err != nil {
		return nil, err
	}
	r := &result{path: path, before: nodesRows(g), liveBefore: g.NumLive()}

	list, err := passes.NewList(strings.Join(*flagPasses, ","))
	if err != nil {
		return nil, err
	}
	r.stats, err = passes.NewManager(list...).WithMaxIterations(*flagMaxIterations).Run(g)
	if err != nil {
		return nil, err
	}
	r.after = nodesRows(g)
	r.liveAfter = g.NumLive()
	klog.V(1).Infof("%s: %d -> %d nodes in %d iterations", path, r.liveBefore, r.liveAfter, r.stats.Iterations)

	if outputDir != "" {
		outputPath := filepath.Join(outputDir, filepath.Base(path))
		if err := irtext.SaveFile(g, outputPath, *flagOverwrite); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *result) report() {
	fmt.Println(titleStyle.Render(fmt.Sprintf("%s: before", r.path)))
	fmt.Println(nodesTable(r.before).Render())
	fmt.Println(titleStyle.Render(fmt.Sprintf("%s: after", r.path)))
	fmt.Println(nodesTable(r.after).Render())

	table := newPlainTable(false)
	table.Row("iterations", humanize.Comma(int64(r.stats.Iterations)))
	for _, name := range xslices.SortedKeys(r.stats.Changes) {
		table.Row("changes by "+name, humanize.Comma(int64(r.stats.Changes[name])))
	}
	table.Row("nodes before", humanize.Comma(int64(r.liveBefore)))
	table.Row("nodes after", humanize.Comma(int64(r.liveAfter)))
	table.Row("nodes swept", humanize.Comma(int64(r.stats.Swept)))
	fmt.Println(table.Render())
}

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)

	oddRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFF")).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#999")).
			PaddingLeft(1).PaddingRight(1)

	titleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 4, 1, 4)
)

func newPlainTable(withHeader bool) *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(plainTableStyle(withHeader))
}

// plainTableStyle alternates the colors of the data rows and right-aligns the first column.
func plainTableStyle(withHeader bool) lgtable.StyleFunc {
	return func(row, col int) (s lipgloss.Style) {
		if withHeader && row == lgtable.HeaderRow {
			s = headerRowStyle
			return
		}
		if row%2 == 0 {
			s = oddRowStyle
		} else {
			s = evenRowStyle
		}
		if col == 0 {
			s = s.Align(lipgloss.Right)
		} else {
			s = s.Align(lipgloss.Left)
		}
		return
	}
}

func nodesTable(rows [][]string) *lgtable.Table {
	table := newPlainTable(true).Headers("#", "Name", "Op", "Inputs", "Shape", "Size", "Origin")
	for _, row := range rows {
		table.Row(row...)
	}
	return table
}

// nodesRows describes the active nodes of the graph, one row per node.
func nodesRows(g *ir.Graph) [][]string {
	var rows [][]string
	for _, n := range g.ActiveNodes() {
		inputs := xslices.Map(n.Inputs(), func(input *ir.Node) string { return fmt.Sprintf("#%d", input.ID()) })
		size := "?"
		if n.Shape().IsFullyKnown() {
			size = humanize.Comma(int64(n.Shape().Size()))
		}
		rows = append(rows, []string{fmt.Sprintf("%d", n.ID()), n.Name(), n.OpType().String(),
			strings.Join(inputs, ", "), n.Shape().String(), size, n.Origin().String()})
	}
	return rows
}
