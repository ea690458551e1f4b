// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Command chartgen turns the output of
//
//	go test -bench=PushPop -benchmem -count=10 > bench.txt
//
// into bar charts comparing the reclamation schemes with a mutex-guarded stack
// across goroutine counts. Charts are written to the charts directory and a
// summary table to standard output.
package main

import (
	"fmt"
	"image/color"
	"log"
	"math"
	"os"
	"slices"
	"strconv"

	"golang.org/x/perf/benchfmt"
	"golang.org/x/perf/benchmath"
	"golang.org/x/perf/benchproc"
	"golang.org/x/perf/benchunit"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/brewer"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

type MethodKey struct{ benchproc.Key }
type GoroutinesKey struct{ benchproc.Key }

type Data struct {
	Sample     benchmath.Sample
	Summary    benchmath.Summary
	Reference  *Data
	Comparison benchmath.Comparison
}

// The method every other method is compared against.
const referenceMethod = "mutex"

type chart struct {
	Title        string
	YAxisLabel   string
	XAxisLabel   string
	XTickLabels  []string
	SeriesLabels []string
	SeriesValues []plotter.Values
	FileBasename string
}

func plotBars(c *chart) error {
	p := plot.New()
	p.Title.Text = c.Title
	p.X.Label.Text = c.XAxisLabel
	p.Y.Label.Text = c.YAxisLabel

	gray := color.Gray{128}
	p.Title.TextStyle.Color = gray
	p.X.Color = gray
	p.Y.Color = gray
	p.X.Label.TextStyle.Color = gray
	p.Y.Label.TextStyle.Color = gray
	p.X.Tick.Color = gray
	p.Y.Tick.Color = gray
	p.X.Tick.Label.Color = gray
	p.Y.Tick.Label.Color = gray
	p.Legend.TextStyle.Color = gray
	p.Legend.Top = true
	p.Legend.Left = true
	p.Legend.Padding = 1 * vg.Millimeter
	p.BackgroundColor = color.Transparent

	palette, err := brewer.GetPalette(brewer.TypeQualitative, "Paired", max(3, len(c.SeriesLabels)))
	if err != nil {
		return err
	}
	colors := palette.Colors()

	barSpacing := vg.Points(3)
	barWidth := vg.Points(24)
	groupWidth := (barWidth + barSpacing) * vg.Length(len(c.SeriesValues)-1)

	for i, label := range c.SeriesLabels {
		bc, err := plotter.NewBarChart(c.SeriesValues[i], barWidth)
		if err != nil {
			return err
		}
		bc.Offset = (barWidth+barSpacing)*vg.Length(i) - groupWidth/2
		bc.Color = colors[i]
		bc.LineStyle.Width = 0
		p.Add(bc)
		p.Legend.Add(label, bc)
	}
	p.NominalX(c.XTickLabels...)
	p.Y.Max *= 1.2

	if err := os.MkdirAll("charts", 0755); err != nil {
		return err
	}
	return p.Save(9*vg.Inch, 6*vg.Inch, "charts/"+c.FileBasename+".svg")
}

func main() {
	var pp benchproc.ProjectionParser
	methodP, err := pp.Parse("/method", nil)
	if err != nil {
		log.Fatal(err)
	}
	goroutinesP, err := pp.Parse("/goroutines", nil)
	if err != nil {
		log.Fatal(err)
	}
	residueP := pp.Residue()

	dataByMethodGoroutinesUnit := make(map[MethodKey]map[GoroutinesKey]map[string]*Data)
	methodKeySet := make(map[MethodKey]struct{})
	goroutinesKeySet := make(map[GoroutinesKey]struct{})
	var residues []benchproc.Key

	benchFiles := &benchfmt.Files{
		Paths:       os.Args[1:],
		AllowStdin:  true,
		AllowLabels: true,
	}
	for benchFiles.Scan() {
		var res *benchfmt.Result
		switch rec := benchFiles.Result(); rec := rec.(type) {
		case *benchfmt.Result:
			res = rec
		case *benchfmt.SyntaxError:
			// Report a non-fatal parse error.
			log.Print(rec)
			continue
		default:
			// Unknown record type. Ignore.
			continue
		}

		methodKey := MethodKey{methodP.Project(res)}
		dataByGoroutinesUnit, ok := dataByMethodGoroutinesUnit[methodKey]
		if !ok {
			dataByGoroutinesUnit = make(map[GoroutinesKey]map[string]*Data)
			dataByMethodGoroutinesUnit[methodKey] = dataByGoroutinesUnit
			methodKeySet[methodKey] = struct{}{}
		}

		goroutinesKey := GoroutinesKey{goroutinesP.Project(res)}
		dataByUnit, ok := dataByGoroutinesUnit[goroutinesKey]
		if !ok {
			dataByUnit = make(map[string]*Data)
			dataByGoroutinesUnit[goroutinesKey] = dataByUnit
			goroutinesKeySet[goroutinesKey] = struct{}{}
		}

		for _, v := range res.Values {
			data := dataByUnit[v.Unit]
			if data == nil {
				data = &Data{}
				dataByUnit[v.Unit] = data
			}
			data.Sample.Values = append(data.Sample.Values, v.Value)
		}
		residues = append(residues, residueP.Project(res))
	}
	if err := benchFiles.Err(); err != nil {
		log.Fatalf("Error reading benchmark files: %v", err)
	}

	nonsingular := benchproc.NonSingularFields(residues)
	if len(nonsingular) > 0 {
		fmt.Printf("warning: results vary in %s\n", nonsingular)
	}

	// The reference method sorts first, the rest alphabetically.
	methodKeys := make([]MethodKey, 0, len(methodKeySet))
	var referenceKey MethodKey
	for methodKey := range methodKeySet {
		methodKeys = append(methodKeys, methodKey)
		if methodName(methodP, methodKey) == referenceMethod {
			referenceKey = methodKey
		}
	}
	if _, ok := dataByMethodGoroutinesUnit[referenceKey]; !ok {
		log.Fatalf("no results for method=%s", referenceMethod)
	}
	slices.SortFunc(methodKeys, func(a, b MethodKey) int {
		switch an, bn := methodName(methodP, a), methodName(methodP, b); {
		case an == bn:
			return 0
		case an == referenceMethod:
			return -1
		case bn == referenceMethod:
			return 1
		case an < bn:
			return -1
		default:
			return 1
		}
	})

	goroutineCounts := make(map[GoroutinesKey]int)
	goroutinesKeys := make([]GoroutinesKey, 0, len(goroutinesKeySet))
	for goroutinesKey := range goroutinesKeySet {
		goroutinesKeys = append(goroutinesKeys, goroutinesKey)
		s := goroutinesKey.Get(goroutinesP.Fields()[0])
		n, err := strconv.Atoi(s)
		if err != nil {
			log.Fatalf("Error parsing goroutine count %q: %v\n", s, err)
		}
		goroutineCounts[goroutinesKey] = n
	}
	slices.SortFunc(goroutinesKeys, func(a, b GoroutinesKey) int {
		return goroutineCounts[a] - goroutineCounts[b]
	})

	// Summarize every sample, references first so that comparisons can use
	// them.
	confidence := 0.95
	thresholds := benchmath.DefaultThresholds
	summarize := func(data *Data) {
		data.Sample = *benchmath.NewSample(data.Sample.Values, &thresholds)
		for _, w := range data.Sample.Warnings {
			log.Printf("sample warning: %v", w)
		}
		data.Summary = benchmath.AssumeNothing.Summary(&data.Sample, confidence)
	}
	for _, dataByUnit := range dataByMethodGoroutinesUnit[referenceKey] {
		for _, data := range dataByUnit {
			summarize(data)
		}
	}
	for methodKey, dataByGoroutinesUnit := range dataByMethodGoroutinesUnit {
		if methodKey == referenceKey {
			continue
		}
		for goroutinesKey, dataByUnit := range dataByGoroutinesUnit {
			for unit, data := range dataByUnit {
				summarize(data)
				data.Reference = dataByMethodGoroutinesUnit[referenceKey][goroutinesKey][unit]
				if data.Reference == nil {
					log.Fatalf("can't find reference for PushPop/method=%s/goroutines=%s %s",
						referenceMethod, goroutinesKey.Get(goroutinesP.Fields()[0]), unit)
				}
				data.Comparison = benchmath.AssumeNothing.Compare(&data.Reference.Sample, &data.Sample)
			}
		}
	}

	xTickLabels := make([]string, len(goroutinesKeys))
	for i, goroutinesKey := range goroutinesKeys {
		xTickLabels[i] = goroutinesKey.Get(goroutinesP.Fields()[0])
	}
	newChart := func(title, yAxisLabel, basename string) *chart {
		return &chart{
			Title:        title,
			XAxisLabel:   "Goroutines",
			YAxisLabel:   yAxisLabel,
			XTickLabels:  xTickLabels,
			SeriesLabels: make([]string, len(methodKeys)),
			SeriesValues: make([]plotter.Values, len(methodKeys)),
			FileBasename: basename,
		}
	}
	throughputChart := newChart("Push/Pop Throughput", "Pairs / Second", "pushpop_throughput")
	speedupChart := newChart("Push/Pop Speedup", "Throughput vs. Mutex", "pushpop_speedup")
	allocationsChart := newChart("Allocations Per Push/Pop Pair", "Allocations / Pair", "pushpop_allocations")
	haveAllocations := false

	fmt.Printf("%-8s %10s %16s %12s\n", "method", "goroutines", "sec/op", "vs "+referenceMethod)
	for seriesIndex, methodKey := range methodKeys {
		name := methodName(methodP, methodKey)
		throughputChart.SeriesLabels[seriesIndex] = name
		speedupChart.SeriesLabels[seriesIndex] = name
		allocationsChart.SeriesLabels[seriesIndex] = name
		throughput := make(plotter.Values, len(goroutinesKeys))
		speedup := make(plotter.Values, len(goroutinesKeys))
		allocations := make(plotter.Values, len(goroutinesKeys))

		for pointIndex, goroutinesKey := range goroutinesKeys {
			dataByUnit := dataByMethodGoroutinesUnit[methodKey][goroutinesKey]
			data := dataByUnit["ns/op"]
			if data == nil {
				log.Fatalf("missing ns/op for method=%s/goroutines=%s", name, xTickLabels[pointIndex])
			}
			throughput[pointIndex] = 1e9 / data.Summary.Center
			speedup[pointIndex] = 1
			comparison := "-"
			if data.Reference != nil {
				speedup[pointIndex] = data.Reference.Summary.Center / data.Summary.Center
				comparison = data.Comparison.FormatDelta(data.Reference.Summary.Center, data.Summary.Center)
			}
			if allocs := dataByUnit["allocs/op"]; allocs != nil {
				allocations[pointIndex] = allocs.Summary.Center
				haveAllocations = true
			}
			fmt.Printf("%-8s %10s %16s %12s\n", name, xTickLabels[pointIndex],
				formatSummary(&benchmath.Summary{
					Center: data.Summary.Center / 1e9,
					Lo:     data.Summary.Lo / 1e9,
					Hi:     data.Summary.Hi / 1e9,
				}, benchunit.Decimal),
				comparison)
		}
		throughputChart.SeriesValues[seriesIndex] = throughput
		speedupChart.SeriesValues[seriesIndex] = speedup
		allocationsChart.SeriesValues[seriesIndex] = allocations
	}

	charts := []*chart{throughputChart, speedupChart}
	if haveAllocations {
		charts = append(charts, allocationsChart)
	}
	for _, c := range charts {
		if err := plotBars(c); err != nil {
			log.Fatalf("Error creating chart: %v", err)
		}
	}
	fmt.Println("Charts generated successfully in the 'charts' directory.")
}

func methodName(methodP *benchproc.Projection, k MethodKey) string {
	return k.Get(methodP.Fields()[0])
}

func formatRatio(n, d float64) string {
	switch {
	case d == 0:
		if n == 0 {
			return "0%"
		}
		return fmt.Sprintf("%.2g", n)
	case math.Abs(n/d) < 1:
		return fmt.Sprintf("%.2g%%", math.Round(100*n/d))
	default:
		return fmt.Sprintf("%.2gx", n/d)
	}
}

func formatSummary(s *benchmath.Summary, class benchunit.Class) string {
	center := benchunit.Scale(s.Center, class)
	plus := formatRatio(s.Hi-s.Center, s.Center)
	minus := formatRatio(s.Center-s.Lo, s.Center)
	if plus == minus {
		return fmt.Sprintf("%s ±%s", center, plus)
	}
	return fmt.Sprintf("%s +%s -%s", center, plus, minus)
}
