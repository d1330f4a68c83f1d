package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/conductorhq/conductor/builtins"
	"github.com/conductorhq/conductor/config"
	"github.com/conductorhq/conductor/flow"
	"github.com/conductorhq/conductor/logging"
	"github.com/conductorhq/conductor/resolve"
	"github.com/spf13/cobra"
)

type runFlags struct {
	flowRef         string
	globalConfigRef string
	payload         string
	payloadFile     string
	traceFile       string
	printState      bool
	printTrace      bool
	noPrintResults  bool
}

func newRunCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a flow definition to completion",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlow(cmd.Context(), f)
		},
	}
	cmd.Flags().StringVar(&f.flowRef, "flow", "", "reference to the flow definition (required)")
	cmd.Flags().StringVar(&f.globalConfigRef, "global-config", "", "reference to the global config (required)")
	cmd.Flags().StringVar(&f.payload, "payload", "", "inline JSON seed payload")
	cmd.Flags().StringVar(&f.payloadFile, "payload-file", "", "reference to a JSON seed payload")
	cmd.Flags().StringVar(&f.traceFile, "trace-file", "", "path to write the run's trace as JSON")
	cmd.Flags().BoolVar(&f.printState, "print-state", false, "print the shared state snapshot after the run")
	cmd.Flags().BoolVar(&f.printTrace, "print-trace", false, "print the trace after the run")
	cmd.Flags().BoolVar(&f.noPrintResults, "no-print-results", false, "suppress printing terminal outputs")
	_ = cmd.MarkFlagRequired("flow")
	_ = cmd.MarkFlagRequired("global-config")
	return cmd
}

func runFlow(ctx context.Context, f runFlags) error {
	resolver := resolve.Default(nil)

	globalRaw, err := resolver.Resolve(ctx, f.globalConfigRef)
	if err != nil {
		return &configError{cause: fmt.Errorf("loading global config: %w", err)}
	}
	global, err := config.DecodeGlobal(globalRaw, config.DetectFormat(f.globalConfigRef))
	if err != nil {
		return &configError{cause: fmt.Errorf("decoding global config: %w", err)}
	}

	aliases := map[string]string{}
	for k, v := range global.ResourceLocations {
		aliases[k] = v
	}
	for k, v := range global.CodeLocations {
		aliases[k] = v
	}
	resolver = resolve.Default(aliases)

	flowRaw, err := resolver.Resolve(ctx, f.flowRef)
	if err != nil {
		return &configError{cause: fmt.Errorf("loading flow definition: %w", err)}
	}
	def, err := config.DecodeFlow(flowRaw, config.DetectFormat(f.flowRef))
	if err != nil {
		return &configError{cause: fmt.Errorf("decoding flow definition: %w", err)}
	}

	payload, err := resolvePayload(ctx, resolver, f)
	if err != nil {
		return &configError{cause: err}
	}

	for k, v := range global.Env {
		os.Setenv(k, v)
	}

	registry := flow.NewRegistry()
	builtins.Register(registry, os.Getenv("ANTHROPIC_API_KEY"), os.Getenv("OPENAI_API_KEY"))

	opts := []flow.Option{
		flow.WithMaxConcurrency(global.MaxConcurrency),
		flow.WithProcessPoolSize(global.ProcessPoolSize),
	}
	engine, err := flow.NewEngine(registry, global.SharedState, opts...)
	if err != nil {
		return &configError{cause: err}
	}

	fallback := logging.NewLogEmitter(os.Stderr, false)
	var logger logging.Emitter = fallback
	if global.RemoteLogging.Enabled {
		logger = logging.NewRemoteEmitter(global.RemoteLogging, fallback)
	}
	engine.SetLogger(logger)

	result, err := engine.Run(ctx, &def, payload)
	if err != nil {
		return err
	}

	if f.traceFile != "" {
		traceJSON, merr := json.MarshalIndent(result.Trace, "", "  ")
		if merr != nil {
			return merr
		}
		if werr := os.WriteFile(f.traceFile, traceJSON, 0o644); werr != nil {
			return werr
		}
	}

	if !f.noPrintResults {
		out, _ := json.MarshalIndent(result.TerminalOutputs, "", "  ")
		fmt.Println(string(out))
	}
	if f.printTrace {
		out, _ := json.MarshalIndent(result.Trace, "", "  ")
		fmt.Println(string(out))
	}
	if f.printState {
		out, _ := json.MarshalIndent(result.SharedStateSnapshot, "", "  ")
		fmt.Println(string(out))
	}

	return nil
}

func resolvePayload(ctx context.Context, resolver resolve.Resolver, f runFlags) (any, error) {
	var raw []byte
	switch {
	case f.payload != "":
		raw = []byte(f.payload)
	case f.payloadFile != "":
		b, err := resolver.Resolve(ctx, f.payloadFile)
		if err != nil {
			return nil, fmt.Errorf("loading payload file: %w", err)
		}
		raw = b
	default:
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}
	return v, nil
}
