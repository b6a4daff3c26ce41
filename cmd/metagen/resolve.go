package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"

	"github.com/jhump/metatype"
)

func newResolveCommand(opts *globalOptions) *cobra.Command {
	var stats bool
	cmd := &cobra.Command{
		Use:   "resolve [element...]",
		Short: "Print the effective annotations of elements",
		Long: `Print the effective annotations of the given elements, or of every declared
element if none are given. Elements are written as kind:[Owner.]Name, with a
parameter index in brackets for parameters, for example:

  type:Square
  constructor:Square.NewSquare
  parameter:Store.Paint[1]`,
		RunE: func(cmd *cobra.Command, args []string) error {
			elements := make([]metatype.Element, len(args))
			for i, arg := range args {
				el, err := parseElement(arg)
				if err != nil {
					return err
				}
				elements[i] = el
			}

			res, err := opts.load()
			if err != nil {
				return err
			}
			if len(elements) == 0 {
				elements = res.Elements()
			}

			reg := prometheus.NewRegistry()
			x := res.NewExtractors(
				metatype.WithLogger(opts.log),
				metatype.WithMetrics(metatype.NewMetrics(reg)),
			)
			cache := metatype.NewCache(metatype.NewResolver(x))

			w := cmd.OutOrStdout()
			for i, el := range elements {
				if i > 0 {
					fmt.Fprintln(w)
				}
				printView(w, el, cache.View(el))
			}
			if stats {
				fmt.Fprintln(w)
				return printStats(w, reg)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&stats, "stats", false, "print resolution counters after the results")
	return cmd
}

// parseElement parses an element of the form kind:[Owner.]Name[index].
func parseElement(s string) (metatype.Element, error) {
	kindName, rest, ok := strings.Cut(s, ":")
	if !ok || rest == "" {
		return metatype.Element{}, fmt.Errorf("element %q must have the form kind:[Owner.]Name", s)
	}
	kind, err := metatype.ParseElementType(kindName)
	if err != nil {
		return metatype.Element{}, fmt.Errorf("element %q: %w", s, err)
	}
	el := metatype.Element{Kind: kind}
	if kind == metatype.Parameters {
		open := strings.LastIndexByte(rest, '[')
		if open < 0 || !strings.HasSuffix(rest, "]") {
			return metatype.Element{}, fmt.Errorf("parameter %q must end with an index, like [0]", s)
		}
		idx, err := strconv.Atoi(rest[open+1 : len(rest)-1])
		if err != nil || idx < 0 {
			return metatype.Element{}, fmt.Errorf("parameter %q has an invalid index", s)
		}
		el.Index = idx
		rest = rest[:open]
	}
	if dot := strings.LastIndexByte(rest, '.'); dot >= 0 {
		el.Owner, el.Name = rest[:dot], rest[dot+1:]
	} else {
		el.Name = rest
	}
	return el, nil
}

var (
	elementColor  = color.New(color.FgCyan, color.Bold)
	depthColor    = color.New(color.Faint)
	conflictColor = color.New(color.FgYellow)
)

func printView(w io.Writer, el metatype.Element, v *metatype.View) {
	fmt.Fprintf(w, "%s\n", elementColor.Sprintf("%s:%s", el.Kind.Name(), el))
	if v.Len() == 0 {
		fmt.Fprintf(w, "  %s\n", depthColor.Sprint("(no annotations)"))
		return
	}
	metas := v.MetaAnnotations()
	sort.SliceStable(metas, func(i, j int) bool {
		return metas[i].Depth() < metas[j].Depth()
	})
	for _, m := range metas {
		fmt.Fprintf(w, "  %s %v\n", depthColor.Sprintf("%d", m.Depth()), m.Get())
		for _, c := range m.Conflicts() {
			fmt.Fprintf(w, "    %s %v\n", conflictColor.Sprint("conflict:"), c.Get())
		}
	}
}

func printStats(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			name := mf.GetName()
			if labels := m.GetLabel(); len(labels) > 0 {
				pairs := make([]string, len(labels))
				for i, lp := range labels {
					pairs[i] = fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue())
				}
				name += "{" + strings.Join(pairs, ",") + "}"
			}
			fmt.Fprintf(w, "%s %v\n", name, metricValue(m))
		}
	}
	return nil
}

func metricValue(m *dto.Metric) float64 {
	switch {
	case m.GetCounter() != nil:
		return m.GetCounter().GetValue()
	case m.GetGauge() != nil:
		return m.GetGauge().GetValue()
	default:
		return m.GetUntyped().GetValue()
	}
}
