package flow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/tidwall/sjson"
)

// DockerExecutor runs a node's target (an image reference) as
// `docker run --rm -i <image>`, writing the NodeInput as JSON to the
// container's stdin and parsing NodeOutput from its stdout, per §4.3.3.
// Grounded on the exec.CommandContext + piped stdio pattern used for
// subprocess execution in other_examples/aaf0a3d1_vsavkov-kilroy's
// attractor engine handlers — there is no grounded example anywhere in
// the pack of driving the docker Engine API client directly, so this
// shells out the same way the spec describes the contract.
type DockerExecutor struct {
	// Bin is the docker binary to invoke. Defaults to "docker".
	Bin string
}

// NewDockerExecutor returns a DockerExecutor invoking the docker CLI.
func NewDockerExecutor() *DockerExecutor {
	return &DockerExecutor{Bin: "docker"}
}

func (e *DockerExecutor) bin() string {
	if e.Bin == "" {
		return "docker"
	}
	return e.Bin
}

func (e *DockerExecutor) Execute(ctx context.Context, node NodeDefinition, input NodeInput) (NodeOutput, error) {
	inputJSON, err := json.Marshal(input)
	if err != nil {
		return NodeOutput{}, fmt.Errorf("marshal node input: %w", err)
	}
	// Stamp the invoking node's id into the envelope without re-decoding it
	// into a struct, since the container only needs this one extra field.
	if stamped, serr := sjson.SetBytes(inputJSON, "metadata.node_id", node.ID); serr == nil {
		inputJSON = stamped
	}

	args := []string{"run", "--rm", "-i"}
	for k, v := range node.Env {
		args = append(args, "-e", fmt.Sprintf("%s=%s", k, v))
	}
	args = append(args, node.Target)

	runCtx := ctx
	var cancel context.CancelFunc
	if node.TimeoutSeconds > 0 {
		runCtx, cancel = context.WithTimeout(ctx, secondsToDuration(node.TimeoutSeconds))
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, e.bin(), args...)
	cmd.Stdin = bytes.NewReader(inputJSON)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		return NodeOutput{}, context.DeadlineExceeded
	}

	exitCode := 0
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}

	if runErr != nil && exitCode == 0 {
		// The process never started, or was killed outside the timeout
		// path (e.g. parent context cancellation). Treat as a node error,
		// not a configuration error: the target resolved, the container
		// simply failed to execute.
		return NodeOutput{
			Status: StatusError,
			Metadata: map[string]any{
				"error":  runErr.Error(),
				"stderr": truncate(stderr.String(), previewLen),
			},
		}, nil
	}

	if exitCode != 0 {
		return NodeOutput{
			Status: StatusError,
			Metadata: map[string]any{
				"exit_code": exitCode,
				"stdout":    truncate(stdout.String(), previewLen),
				"stderr":    truncate(stderr.String(), previewLen),
			},
		}, nil
	}

	out, perr := ParseNodeOutput(stdout.Bytes())
	if perr != nil {
		return NodeOutput{
			Status: StatusError,
			Metadata: map[string]any{
				"error":  "unparseable container output: " + perr.Error(),
				"stdout": truncate(stdout.String(), previewLen),
				"stderr": truncate(stderr.String(), previewLen),
			},
		}, nil
	}
	return out, nil
}
