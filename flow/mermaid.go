package flow

import (
	"fmt"
	"sort"
	"strings"
)

// RenderOptions controls optional detail in the rendered diagram.
type RenderOptions struct {
	// IncludeMetadata appends a metadata block to executed nodes' labels:
	// run count, last status and duration, and last input/output previews.
	IncludeMetadata bool
}

// NodeSummary aggregates everything a single node did across a run, for
// the "diagram --print-summary" CLI path and for diagram annotation, per
// §4.5's "runs, statuses, total_duration_ms, avg_duration_ms, last_status".
type NodeSummary struct {
	NodeID          string         `json:"node_id"`
	Runs            int            `json:"runs"`
	Statuses        map[string]int `json:"statuses"`
	TotalDurationMS int64          `json:"total_duration_ms"`
	AvgDurationMS   float64        `json:"avg_duration_ms"`
	LastStatus      string         `json:"last_status"`
}

// Summarize reduces a trace to one NodeSummary per distinct node id.
// Entries are consumed in trace order, so LastStatus reflects the most
// recently completed invocation of each node.
func Summarize(trace []TraceEntry) map[string]NodeSummary {
	out := map[string]NodeSummary{}
	for _, e := range trace {
		s, ok := out[e.NodeID]
		if !ok {
			s = NodeSummary{NodeID: e.NodeID, Statuses: map[string]int{}}
		}
		s.Runs++
		s.Statuses[e.Output.Status]++
		s.TotalDurationMS += e.DurationMS
		s.LastStatus = e.Output.Status
		out[e.NodeID] = s
	}
	for id, s := range out {
		s.AvgDurationMS = float64(s.TotalDurationMS) / float64(s.Runs)
		out[id] = s
	}
	return out
}

// Render emits a Mermaid `flowchart TD` document for def, optionally
// highlighting the nodes and edges a trace actually exercised. Executed
// nodes get the "executed" class; executed edges get a linkStyle override.
// When trace is nil, the definition's static structure is rendered with
// no highlighting.
func Render(def *FlowDefinition, trace []TraceEntry, opts RenderOptions) (string, error) {
	if def == nil {
		return "", fmt.Errorf("%w: nil flow definition", ErrInvalidDefinition)
	}

	executedNodes := map[string]*TraceEntry{}
	for i := range trace {
		e := &trace[i]
		// Later entries for a revisited node win, matching "most recent
		// invocation" semantics for label content.
		executedNodes[e.NodeID] = e
	}

	summaries := Summarize(trace)

	ids := make([]string, 0, len(def.Nodes))
	for id := range def.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	b.WriteString("flowchart TD\n")

	for _, id := range ids {
		label := mermaidLabel(id, summaries[id], executedNodes[id], opts)
		fmt.Fprintf(&b, "    %s[\"%s\"]\n", mermaidID(id), label)
	}

	type edge struct {
		from, to, status string
	}
	var edges []edge
	for _, id := range ids {
		n := def.Nodes[id]
		statuses := make([]string, 0, len(n.Transitions))
		for status := range n.Transitions {
			statuses = append(statuses, status)
		}
		sort.Strings(statuses)
		for _, status := range statuses {
			for _, to := range n.Transitions[status] {
				edges = append(edges, edge{from: id, to: to, status: status})
			}
		}
	}

	executedEdge := func(from, to string) bool {
		for _, e := range trace {
			if e.NodeID != from {
				continue
			}
			for _, s := range e.Scheduled {
				if s == to {
					return true
				}
			}
		}
		return false
	}

	linkIndex := 0
	var executedLinks []int
	for _, e := range edges {
		fmt.Fprintf(&b, "    %s -->|%s| %s\n", mermaidID(e.from), escapeLabel(e.status), mermaidID(e.to))
		if executedEdge(e.from, e.to) {
			executedLinks = append(executedLinks, linkIndex)
		}
		linkIndex++
	}

	b.WriteString("    classDef executed fill:#d4f7d4,stroke:#2e7d32;\n")
	executedIDs := make([]string, 0, len(executedNodes))
	for id := range executedNodes {
		executedIDs = append(executedIDs, id)
	}
	sort.Strings(executedIDs)
	for _, id := range executedIDs {
		fmt.Fprintf(&b, "    class %s executed;\n", mermaidID(id))
	}
	for _, idx := range executedLinks {
		fmt.Fprintf(&b, "    linkStyle %d stroke:#2e7d32,stroke-width:2px;\n", idx)
	}

	return b.String(), nil
}

func mermaidID(id string) string {
	r := strings.NewReplacer("-", "_", ".", "_", ":", "_", " ", "_")
	return r.Replace(id)
}

// mermaidLabel renders a node's diagram label per §4.5: just the id,
// unless opts.IncludeMetadata is set and the node has run at least once,
// in which case a multiline block of run count, last status, last
// duration, and truncated previews of last input/output is appended.
func mermaidLabel(id string, summary NodeSummary, entry *TraceEntry, opts RenderOptions) string {
	label := escapeLabel(id)
	if !opts.IncludeMetadata || entry == nil {
		return label
	}
	label += fmt.Sprintf("\\nruns: %d", summary.Runs)
	label += fmt.Sprintf("\\n%s in %dms", escapeLabel(entry.Output.Status), entry.DurationMS)
	label += "\\nin: " + escapeLabel(entry.InputPreview)
	label += "\\nout: " + escapeLabel(entry.OutputPreview)
	return label
}

// mermaidEscaper replaces characters Mermaid's flowchart label grammar
// treats specially with HTML-entity-style safe substitutes, per §4.5:
// `"`, `\`, newlines, and Mermaid-reserved punctuation used by the node
// and edge syntax itself.
var mermaidEscaper = strings.NewReplacer(
	"\\", "#bsol;",
	"\"", "#quot;",
	"\n", "<br/>",
	"\r", "",
	"[", "#91;",
	"]", "#93;",
	"{", "#123;",
	"}", "#125;",
	"(", "#40;",
	")", "#41;",
	"|", "#124;",
	"<", "#lt;",
	">", "#gt;",
)

// escapeLabel applies mermaidEscaper to arbitrary label content (ids,
// statuses, previews) so embedded quotes or reserved punctuation can
// never terminate a quoted label early or corrupt the diagram syntax.
func escapeLabel(s string) string {
	return mermaidEscaper.Replace(s)
}
