package notebook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// JupyterOptions configures the nbconvert-backed engine.
type JupyterOptions struct {
	// Command is the jupyter executable. Defaults to "jupyter".
	Command string
	// KernelName is passed as ExecutePreprocessor.kernel_name.
	KernelName string
	// CellTimeout is passed as ExecutePreprocessor.timeout.
	CellTimeout time.Duration
}

// Jupyter executes notebooks with `jupyter nbconvert --execute` in a child
// process. The input path is only placed in the child's environment.
type Jupyter struct {
	opts   JupyterOptions
	logger *zap.Logger
}

// NewJupyter creates a Jupyter engine.
func NewJupyter(opts JupyterOptions, logger *zap.Logger) *Jupyter {
	if opts.Command == "" {
		opts.Command = "jupyter"
	}
	if opts.KernelName == "" {
		opts.KernelName = "python3"
	}
	if opts.CellTimeout <= 0 {
		opts.CellTimeout = 600 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Jupyter{opts: opts, logger: logger.Named("jupyter")}
}

func (j *Jupyter) Name() string { return "jupyter" }

func (j *Jupyter) Supports(kernel string) bool {
	switch kernel {
	case "", "python", "python3", "ipykernel":
		return true
	}
	return false
}

const (
	// maxStderr bounds how much child stderr is kept for error messages.
	maxStderr = 8 << 10
	// killGrace bounds how long Execute waits for the kernel's output pipes
	// after the child is killed.
	killGrace = 2 * time.Second
)

// Execute writes the document into the work directory, runs nbconvert on
// it and copies the executed outputs back into doc.
func (j *Jupyter) Execute(ctx context.Context, doc *Document, in ExecInput) error {
	data, err := doc.Encode()
	if err != nil {
		return fmt.Errorf("encoding notebook: %w", err)
	}
	input := filepath.Join(in.WorkDir, "notebook.ipynb")
	if err := os.WriteFile(input, data, 0o600); err != nil {
		return fmt.Errorf("staging notebook: %w", err)
	}

	args := []string{
		"nbconvert",
		"--to", "notebook",
		"--execute",
		"--stdout",
		"--ExecutePreprocessor.timeout=" + strconv.Itoa(int(j.opts.CellTimeout.Seconds())),
		"--ExecutePreprocessor.kernel_name=" + j.opts.KernelName,
		input,
	}
	cmd := exec.CommandContext(ctx, j.opts.Command, args...)
	cmd.Dir = in.WorkDir
	cmd.Env = append(os.Environ(), in.Env()...)
	cmd.WaitDelay = killGrace
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	j.logger.Debug("nbconvert finished",
		zap.String("command", j.opts.Command),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(runErr))

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return &CellError{Cell: -1, EName: "CellExecutionError", EValue: stderrTail(stderr.Bytes())}
		}
		return fmt.Errorf("running %s: %w", j.opts.Command, runErr)
	}

	executed, err := Parse(stdout.Bytes())
	if err != nil {
		return fmt.Errorf("reading executed notebook: %w", err)
	}
	return mergeOutputs(doc, executed)
}

// mergeOutputs copies per-cell outputs from the executed copy.
func mergeOutputs(dst, src *Document) error {
	if len(dst.Cells) != len(src.Cells) {
		return fmt.Errorf("executed notebook has %d cells, expected %d", len(src.Cells), len(dst.Cells))
	}
	for i, c := range dst.Cells {
		if !c.IsCode() {
			continue
		}
		c.Outputs = src.Cells[i].Outputs
		c.ExecutionCount = src.Cells[i].ExecutionCount
	}
	return nil
}

// stderrTail keeps the end of the child's stderr, where nbconvert prints
// the failing cell and exception.
func stderrTail(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > maxStderr {
		s = s[len(s)-maxStderr:]
	}
	if s == "" {
		return "kernel exited with an error"
	}
	return s
}
