package powerdag

import (
	"github.com/askiada/go-powerdag/pkg/powerdag/model"
)

// Option is an ordered key/value pair passed to an executable or to condor.
type Option struct {
	Key   string
	Value string
}

// JobTemplate describes one executable and how every node bound to it is
// submitted. Templates are built once by PipelineContext and never modified
// afterwards.
type JobTemplate struct {
	Kind       model.NodeKind
	Executable string
	Universe   string
	// SubFile is the name of the submit description written for the template.
	SubFile    string
	StdoutFile string
	StderrFile string
	LogFile    string

	// StaticOptions are passed to every invocation as --key value.
	StaticOptions []Option
	// InstrumentOptions holds the per-instrument overrides, keyed by instrument.
	InstrumentOptions map[string][]Option
	// CondorCommands are extra submit description commands.
	CondorCommands []Option
	// PostScript, when set, is the executable run by condor after each node
	// of the template. The node supplies its arguments.
	PostScript string
}

// StaticOption returns the value of a static option.
func (j *JobTemplate) StaticOption(key string) (string, bool) {
	for _, opt := range j.StaticOptions {
		if opt.Key == key {
			return opt.Value, true
		}
	}

	return "", false
}
