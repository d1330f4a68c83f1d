package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/conductorhq/conductor/config"
	"github.com/conductorhq/conductor/flow"
	"github.com/conductorhq/conductor/resolve"
	"github.com/spf13/cobra"
)

type diagramFlags struct {
	flowRef         string
	traceFile       string
	includeMetadata bool
	printSummary    bool
}

func newDiagramCmd() *cobra.Command {
	var f diagramFlags
	cmd := &cobra.Command{
		Use:   "diagram",
		Short: "Render a flow definition as a Mermaid flowchart",
		RunE: func(cmd *cobra.Command, args []string) error {
			return renderDiagram(cmd.Context(), f)
		},
	}
	cmd.Flags().StringVar(&f.flowRef, "flow", "", "reference to the flow definition (required)")
	cmd.Flags().StringVar(&f.traceFile, "trace-file", "", "reference to a trace JSON file to overlay on the diagram")
	cmd.Flags().BoolVar(&f.includeMetadata, "include-metadata", false, "annotate each node with run statistics")
	cmd.Flags().BoolVar(&f.printSummary, "print-summary", false, "print the per-node trace summary as JSON")
	_ = cmd.MarkFlagRequired("flow")
	return cmd
}

func renderDiagram(ctx context.Context, f diagramFlags) error {
	resolver := resolve.Default(nil)

	flowRaw, err := resolver.Resolve(ctx, f.flowRef)
	if err != nil {
		return &configError{cause: fmt.Errorf("loading flow definition: %w", err)}
	}
	def, err := config.DecodeFlow(flowRaw, config.DetectFormat(f.flowRef))
	if err != nil {
		return &configError{cause: fmt.Errorf("decoding flow definition: %w", err)}
	}

	var trace []flow.TraceEntry
	if f.traceFile != "" {
		traceRaw, rerr := resolver.Resolve(ctx, f.traceFile)
		if rerr != nil {
			return &configError{cause: fmt.Errorf("loading trace file: %w", rerr)}
		}
		if uerr := json.Unmarshal(traceRaw, &trace); uerr != nil {
			return &configError{cause: fmt.Errorf("decoding trace file: %w", uerr)}
		}
	}

	diagram, err := flow.Render(&def, trace, flow.RenderOptions{IncludeMetadata: f.includeMetadata})
	if err != nil {
		return err
	}
	fmt.Println(diagram)

	if f.printSummary {
		summary := flow.Summarize(trace)
		out, _ := json.MarshalIndent(summary, "", "  ")
		fmt.Fprintln(os.Stderr, string(out))
	}
	return nil
}
