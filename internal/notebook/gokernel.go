package notebook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"go/parser"
	"go/token"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"go.uber.org/zap"

	"github.com/ycsa-dashboard/backend/internal/analysis"
)

// DisplayImportPath is the package cells import to publish rich outputs.
const DisplayImportPath = "nb/display"

// deniedImports are stdlib packages cells may not import.
var deniedImports = map[string]bool{
	"os/exec":  true,
	"net":      true,
	"net/http": true,
	"net/rpc":  true,
	"net/smtp": true,
	"plugin":   true,
}

// GoKernel evaluates Go notebook cells with the yaegi interpreter. Each
// Execute call gets a fresh interpreter whose os.Getenv only sees the
// invocation's environment.
type GoKernel struct {
	logger *zap.Logger
}

// NewGoKernel creates a Go kernel engine.
func NewGoKernel(logger *zap.Logger) *GoKernel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GoKernel{logger: logger.Named("gokernel")}
}

func (k *GoKernel) Name() string { return "go" }

func (k *GoKernel) Supports(kernel string) bool {
	switch kernel {
	case "go", "golang", "gonb", "yaegi":
		return true
	}
	return false
}

// displaySink collects display calls made by the cell being evaluated.
type displaySink struct {
	outputs []*Output
}

func (s *displaySink) publish(mime string, payload json.RawMessage) {
	s.outputs = append(s.outputs, &Output{
		OutputType: OutputDisplayData,
		Data:       map[string]json.RawMessage{mime: payload},
		Metadata:   json.RawMessage("{}"),
	})
}

// exports builds the nb/display package bound to sink.
func (s *displaySink) exports() interp.Exports {
	plot := func(fig interface{}) {
		raw, err := figureJSON(fig)
		if err != nil {
			panic(fmt.Sprintf("display.Plotly: %v", err))
		}
		s.publish(analysis.ChartContentType, raw)
	}
	text := func(v string) {
		raw, _ := json.Marshal(v)
		s.publish("text/plain", raw)
	}
	markdown := func(v string) {
		raw, _ := json.Marshal(v)
		s.publish("text/markdown", raw)
	}
	return interp.Exports{
		DisplayImportPath + "/display": {
			"Plotly":   reflect.ValueOf(plot),
			"Text":     reflect.ValueOf(text),
			"Markdown": reflect.ValueOf(markdown),
		},
	}
}

// figureJSON accepts a JSON string, raw bytes or any marshalable value.
func figureJSON(fig interface{}) (json.RawMessage, error) {
	switch v := fig.(type) {
	case nil:
		return nil, errors.New("nil figure")
	case string:
		if json.Valid([]byte(v)) {
			return json.RawMessage(v), nil
		}
		return json.Marshal(v)
	case []byte:
		if json.Valid(v) {
			return json.RawMessage(v), nil
		}
		return json.Marshal(string(v))
	case json.RawMessage:
		return v, nil
	default:
		return json.Marshal(v)
	}
}

// Execute evaluates every code cell in order in a single interpreter.
func (k *GoKernel) Execute(ctx context.Context, doc *Document, in ExecInput) error {
	var stdout bytes.Buffer
	sink := &displaySink{}
	i := interp.New(interp.Options{
		Stdout: &stdout,
		Stderr: &stdout,
		Env:    in.Env(),
	})
	if err := i.Use(stdlib.Symbols); err != nil {
		return fmt.Errorf("loading stdlib: %w", err)
	}
	if err := i.Use(sink.exports()); err != nil {
		return fmt.Errorf("loading display package: %w", err)
	}

	count := 0
	for idx, cell := range doc.Cells {
		if !cell.IsCode() {
			continue
		}
		count++
		n := count
		cell.ExecutionCount = &n
		cell.Outputs = nil

		src := string(cell.Source)
		if strings.TrimSpace(src) == "" {
			continue
		}
		if err := checkImports(src); err != nil {
			cell.Outputs = append(cell.Outputs, errorOutput("ImportError", err.Error(), nil))
			return &CellError{Cell: idx, EName: "ImportError", EValue: err.Error()}
		}

		stdout.Reset()
		sink.outputs = nil
		start := time.Now()
		_, err := i.EvalWithContext(ctx, src)
		if stdout.Len() > 0 {
			cell.Outputs = append(cell.Outputs, &Output{
				OutputType: OutputStream,
				Name:       "stdout",
				Text:       MultilineString(stdout.String()),
			})
		}
		cell.Outputs = append(cell.Outputs, sink.outputs...)

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			ename, evalue, tb := describeEvalError(err)
			cell.Outputs = append(cell.Outputs, errorOutput(ename, evalue, tb))
			return &CellError{Cell: idx, EName: ename, EValue: evalue}
		}
		k.logger.Debug("cell evaluated",
			zap.Int("cell", idx),
			zap.Int("outputs", len(cell.Outputs)),
			zap.Duration("elapsed", time.Since(start)))
	}
	return nil
}

func describeEvalError(err error) (ename, evalue string, traceback []string) {
	if p, ok := err.(interp.Panic); ok {
		return "panic", fmt.Sprint(p.Value), strings.Split(strings.TrimSpace(string(p.Stack)), "\n")
	}
	return "error", err.Error(), nil
}

func errorOutput(ename, evalue string, traceback []string) *Output {
	if traceback == nil {
		traceback = []string{}
	}
	return &Output{
		OutputType: OutputError,
		EName:      ename,
		EValue:     evalue,
		Traceback:  traceback,
	}
}

// checkImports rejects cells importing packages outside the sandbox.
// Sources whose import block does not parse are left to the interpreter.
func checkImports(src string) error {
	f, err := parser.ParseFile(token.NewFileSet(), "cell.go", "package cell\n"+src, parser.ImportsOnly)
	if err != nil {
		return nil
	}
	var denied []string
	for _, imp := range f.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}
		if deniedImports[path] {
			denied = append(denied, path)
		}
	}
	if len(denied) > 0 {
		return fmt.Errorf("import of %s is not allowed", strings.Join(denied, ", "))
	}
	return nil
}
