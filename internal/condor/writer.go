// Package condor writes the submit description files of a DAG for condor
// DAGMan: one submit file per job template and one DAG file.
package condor

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/askiada/go-powerdag/pkg/powerdag"
)

var ErrMissingDAGName = errors.New("dag name must be set")

const defaultConcurrent = 4

// Writer emits the submission files of a DAG into a directory.
type Writer struct {
	dir        string
	dagName    string
	concurrent int
	logger     *zap.Logger
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithConcurrent bounds the number of submit files written at once.
func WithConcurrent(n int) WriterOption {
	return func(w *Writer) {
		if n > 0 {
			w.concurrent = n
		}
	}
}

// WithLogger sets the logger of the writer.
func WithLogger(logger *zap.Logger) WriterOption {
	return func(w *Writer) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWriter creates a writer producing <dir>/<dagName>.dag.
func NewWriter(dir, dagName string, opts ...WriterOption) (*Writer, error) {
	if dagName == "" {
		return nil, ErrMissingDAGName
	}

	w := &Writer{
		dir:        dir,
		dagName:    dagName,
		concurrent: defaultConcurrent,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// DAGFile is the path of the DAG file.
func (w *Writer) DAGFile() string {
	return filepath.Join(w.dir, w.dagName+".dag")
}

// Write writes the submit file of every template used by dag, then the DAG
// file. It stops on the first error.
func (w *Writer) Write(ctx context.Context, dag *powerdag.DAG) error {
	if dag == nil {
		return powerdag.ErrDAGMustBeSet
	}

	err := os.MkdirAll(w.dir, 0o755)
	if err != nil {
		return errors.Wrapf(err, "unable to create %s", w.dir)
	}

	nodes := dag.Nodes()
	subs := collectSubmits(nodes)

	errGrp, dCtx := errgroup.WithContext(ctx)
	errGrp.SetLimit(w.concurrent)
	for _, sub := range subs {
		sub := sub
		errGrp.Go(func() error {
			if err := dCtx.Err(); err != nil {
				return errors.Wrapf(err, "submit file %s", sub.job.SubFile)
			}

			return w.writeSubmit(sub)
		})
	}
	err = errGrp.Wait()
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "dag file")
	}
	err = writeFile(w.DAGFile(), func(bw *bufio.Writer) error {
		return writeDAG(bw, dag, nodes)
	})
	if err != nil {
		return err
	}

	w.logger.Info("submit files written",
		zap.String("dag", w.DAGFile()),
		zap.Int("nodes", len(nodes)),
		zap.Int("submit_files", len(subs)),
	)

	return nil
}

// submit gathers what the nodes of one template need from its submit file.
type submit struct {
	job *powerdag.JobTemplate
	// variable option keys in the order they first appear
	optionKeys []string
	arguments  int
}

func collectSubmits(nodes []powerdag.Node) []*submit {
	var res []*submit
	byFile := make(map[string]*submit)
	seenKeys := make(map[string]map[string]struct{})

	for _, n := range nodes {
		job := n.Job()
		sub, ok := byFile[job.SubFile]
		if !ok {
			sub = &submit{job: job}
			byFile[job.SubFile] = sub
			seenKeys[job.SubFile] = make(map[string]struct{})
			res = append(res, sub)
		}
		for _, opt := range n.Options() {
			if _, ok := seenKeys[job.SubFile][opt.Key]; ok {
				continue
			}
			seenKeys[job.SubFile][opt.Key] = struct{}{}
			sub.optionKeys = append(sub.optionKeys, opt.Key)
		}
		if args := len(n.Arguments()); args > sub.arguments {
			sub.arguments = args
		}
	}

	return res
}

// MacroName is the DAGMan macro carrying the value of a variable option.
func MacroName(key string) string {
	return "macro" + strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}

		return -1
	}, key)
}

// ArgumentMacro is the DAGMan macro carrying the i-th variable argument.
func ArgumentMacro(i int) string {
	return fmt.Sprintf("macroargument%d", i)
}

func (w *Writer) writeSubmit(sub *submit) error {
	path := filepath.Join(w.dir, sub.job.SubFile)

	err := writeFile(path, func(bw *bufio.Writer) error {
		return writeSubmit(bw, sub)
	})
	if err != nil {
		return err
	}

	w.logger.Debug("submit file written", zap.String("path", path), zap.String("kind", string(sub.job.Kind)))

	return nil
}

func writeSubmit(bw *bufio.Writer, sub *submit) error {
	job := sub.job

	args := make([]string, 0, len(job.StaticOptions)+len(sub.optionKeys)+sub.arguments)
	for _, opt := range job.StaticOptions {
		if opt.Value == "" {
			args = append(args, "--"+opt.Key)

			continue
		}
		args = append(args, fmt.Sprintf("--%s %s", opt.Key, opt.Value))
	}
	for _, key := range sub.optionKeys {
		args = append(args, fmt.Sprintf("--%s $(%s)", key, MacroName(key)))
	}
	for i := 0; i < sub.arguments; i++ {
		args = append(args, fmt.Sprintf("$(%s)", ArgumentMacro(i)))
	}

	lines := []string{
		"universe = " + job.Universe,
		"executable = " + job.Executable,
		`arguments = "` + strings.Join(args, " ") + `"`,
	}
	for _, cmd := range job.CondorCommands {
		lines = append(lines, cmd.Key+" = "+cmd.Value)
	}
	if job.LogFile != "" {
		lines = append(lines, "log = "+job.LogFile)
	}
	if job.StderrFile != "" {
		lines = append(lines, "error = "+job.StderrFile)
	}
	if job.StdoutFile != "" {
		lines = append(lines, "output = "+job.StdoutFile)
	}
	lines = append(lines, "notification = never", "queue 1")

	for _, line := range lines {
		if _, err := fmt.Fprintln(bw, line); err != nil {
			return errors.Wrap(err, "unable to write submit file")
		}
	}

	return nil
}

func quote(v string) string {
	return `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
}

func writeDAG(bw *bufio.Writer, dag *powerdag.DAG, nodes []powerdag.Node) error {
	var lines []string
	for _, n := range nodes {
		lines = append(lines, fmt.Sprintf("JOB %s %s", n.Name(), n.Job().SubFile))

		var vars []string
		for _, opt := range n.Options() {
			vars = append(vars, MacroName(opt.Key)+"="+quote(opt.Value))
		}
		for i, arg := range n.Arguments() {
			vars = append(vars, ArgumentMacro(i)+"="+quote(arg))
		}
		for _, macro := range n.Macros() {
			vars = append(vars, macro.Key+"="+quote(macro.Value))
		}
		if len(vars) > 0 {
			lines = append(lines, fmt.Sprintf("VARS %s %s", n.Name(), strings.Join(vars, " ")))
		}

		if post := n.PostScript(); post != "" {
			lines = append(lines, fmt.Sprintf("SCRIPT POST %s %s", n.Name(), post))
		}
	}

	for _, n := range nodes {
		parents := dag.ParentsOf(n.Name())
		if len(parents) == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("PARENT %s CHILD %s", strings.Join(parents, " "), n.Name()))
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(bw, line); err != nil {
			return errors.Wrap(err, "unable to write dag file")
		}
	}

	return nil
}

func writeFile(path string, fn func(bw *bufio.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "unable to create %s", path)
	}

	bw := bufio.NewWriter(f)
	err = fn(bw)
	if err == nil {
		err = bw.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return errors.Wrapf(err, "unable to write %s", path)
	}

	return nil
}
