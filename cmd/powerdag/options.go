package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/askiada/go-powerdag/internal/condor"
	"github.com/askiada/go-powerdag/internal/config"
	"github.com/askiada/go-powerdag/internal/logutil"
	"github.com/askiada/go-powerdag/pkg/powerdag"
	"github.com/askiada/go-powerdag/pkg/powerdag/drawer"
	"github.com/askiada/go-powerdag/pkg/powerdag/measure"
	"github.com/askiada/go-powerdag/pkg/powerdag/model"
	"github.com/askiada/go-powerdag/pkg/segments"
)

var (
	errMissingConfig      = errors.New("--config must be set")
	errMissingSegments    = errors.New("--segments must be set")
	errMissingInstruments = errors.New("at least one --instrument must be set")
	errInvalidSlots       = errors.New("--psds-per-job must be positive")
	errMissingTag         = errors.New("--tag must be set")
)

// options defines the flags of the powerdag command.
type options struct {
	configFile   string
	segmentsFile string
	instruments  []string
	psdsPerJob   int
	tag          string
	injections   bool
	dagName      string
	dagDir       string
	dotFile      string
	logLevel     string
	logFormat    string
	concurrent   int

	cfg    *config.Config
	list   segments.List
	logger *zap.Logger
}

func newOptions() *options {
	return &options{}
}

// addFlags binds the command flags to o.
func (o *options) addFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&o.configFile, "config", "c", "", "HCL configuration file")
	flags.StringVarP(&o.segmentsFile, "segments", "s", "", "Segment list to analyze")
	flags.StringArrayVarP(&o.instruments, "instrument", "i", nil, "Instrument to analyze, repeat for a coincidence run")
	flags.IntVar(&o.psdsPerJob, "psds-per-job", 4, "Number of PSD slots analyzed by each job")
	flags.StringVarP(&o.tag, "tag", "t", "", "User tag of the run")
	flags.BoolVar(&o.injections, "injections", false, "Analyze the segments with software injections")
	flags.StringVar(&o.dagName, "dag-name", "power", "Base name of the DAG file")
	flags.StringVar(&o.dagDir, "dag-dir", ".", "Directory receiving the DAG and submit files")
	flags.StringVar(&o.dotFile, "dot", "", "Write a graphviz rendering of the DAG to this file")
	flags.StringVar(&o.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	flags.StringVar(&o.logFormat, "log-format", "console", "Log format: console or json")
	flags.IntVar(&o.concurrent, "concurrent", 4, "Number of submit files written at once")
}

// complete validates the flags and loads the configuration and segments.
func (o *options) complete(cmd *cobra.Command) error {
	switch {
	case o.configFile == "":
		return errMissingConfig
	case o.segmentsFile == "":
		return errMissingSegments
	case len(o.instruments) == 0:
		return errMissingInstruments
	case o.psdsPerJob <= 0:
		return errInvalidSlots
	case o.tag == "":
		return errMissingTag
	}

	logger, err := logutil.New(o.logLevel, o.logFormat, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	o.logger = logger

	o.cfg, err = config.Load(o.configFile)
	if err != nil {
		return err
	}
	o.list, err = segments.ReadFile(o.segmentsFile)
	if err != nil {
		return err
	}

	return nil
}

// kinds lists the job kinds the run needs a template for.
func (o *options) kinds() []model.NodeKind {
	res := []model.NodeKind{model.DatafindKind, model.PowerKind, model.LladdKind}
	if o.injections {
		res = append(res, model.BinjKind, model.TisiKind, model.BucutKind, model.BuclusterKind, model.BinjfindKind)
	} else {
		res = append(res, model.BuclusterKind)
	}
	if len(o.instruments) > 1 {
		res = append(res, model.BurcaKind)
	}

	return res
}

// run builds the DAG and writes its submit files.
func (o *options) run(cmd *cobra.Command) error {
	ctx := cmd.Context()
	defer func() { _ = o.logger.Sync() }()

	pc, err := powerdag.NewPipelineContext(o.cfg, o.kinds(), powerdag.WithLogger(o.logger))
	if err != nil {
		return err
	}
	for _, dir := range []string{pc.OutDir, pc.CacheDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "unable to create %s", dir)
		}
	}

	msr := measure.NewDefaultMeasure()
	dagOpts := []model.DAGOption{measure.DAGMeasure(msr)}
	if o.dotFile != "" {
		dagOpts = append(dagOpts, drawer.DAGDrawer(drawer.NewDOTDrawer(o.dotFile), msr))
	}
	dag, err := powerdag.New(o.logger, dagOpts...)
	if err != nil {
		return err
	}
	b, err := powerdag.NewBuilder(pc, dag)
	if err != nil {
		return err
	}

	p := &planner{
		builder:     b,
		instruments: o.instruments,
		psdsPerJob:  o.psdsPerJob,
		tag:         o.tag,
		logger:      o.logger,
	}
	if o.injections {
		err = p.injectionRun(o.list)
	} else {
		err = p.plainRun(o.list)
	}
	if err != nil {
		return err
	}

	err = dag.Finish()
	if err != nil {
		return err
	}

	w, err := condor.NewWriter(o.dagDir, o.dagName,
		condor.WithConcurrent(o.concurrent),
		condor.WithLogger(o.logger),
	)
	if err != nil {
		return err
	}
	err = w.Write(ctx, dag)
	if err != nil {
		return err
	}

	metrics := msr.AllMetrics()
	for _, kind := range model.AllKinds {
		mt, ok := metrics[kind]
		if !ok {
			continue
		}
		inputs, outputs := mt.Files()
		o.logger.Info("jobs",
			zap.String("kind", string(kind)),
			zap.Int("nodes", mt.Nodes()),
			zap.Float64("covered_seconds", mt.Covered()),
			zap.Float64("avg_covered_seconds", mt.AVGCovered()),
			zap.Int("inputs", inputs),
			zap.Int("outputs", outputs),
		)
	}

	return nil
}

// newCmdPowerDAG creates the powerdag command.
func newCmdPowerDAG() *cobra.Command {
	o := newOptions()

	command := &cobra.Command{
		Use:           "powerdag",
		Short:         "Generate the condor DAG of an excess power analysis",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := o.complete(cmd); err != nil {
				return err
			}

			return o.run(cmd)
		},
	}

	o.addFlags(command)

	return command
}
