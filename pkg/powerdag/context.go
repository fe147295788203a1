package powerdag

import (
	"path/filepath"
	"strings"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/askiada/go-powerdag/internal/config"
	"github.com/askiada/go-powerdag/pkg/powerdag/model"
)

const (
	condorSection   = "condor"
	pipelineSection = "pipeline"

	// powerInstrumentPrefix prefixes the sections holding per-instrument
	// overrides of the analysis options, for example lalapps_power_H1.
	powerInstrumentPrefix = "lalapps_power_"

	toolUniverse     = "vanilla"
	datafindUniverse = "local"
)

// kindSections maps each job kind to the configuration section holding its
// static options. The same name is the key of its executable in the condor
// section.
var kindSections = map[model.NodeKind]string{
	model.DatafindKind:  "datafind",
	model.BinjKind:      "lalapps_binj",
	model.PowerKind:     "lalapps_power",
	model.LladdKind:     "ligolw_add",
	model.TisiKind:      "ligolw_tisi",
	model.BucutKind:     "ligolw_bucut",
	model.BuclusterKind: "ligolw_bucluster",
	model.BinjfindKind:  "ligolw_binjfind",
	model.BurcaKind:     "ligolw_burca",
}

// PipelineContext holds the job templates and settings shared by every
// builder of a run. It is built once from the configuration.
type PipelineContext struct {
	OutDir   string
	CacheDir string
	// InjectionBands is the number of injection frequency bands.
	InjectionBands int
	// TimeStep is the injection time step of lalapps_binj.
	TimeStep float64

	jobs   map[model.NodeKind]*JobTemplate
	clock  clock.Clock
	logger *zap.Logger
}

// ContextOption configures a PipelineContext.
type ContextOption func(*PipelineContext)

// WithClock sets the clock used to seed the injection jobs.
func WithClock(c clock.Clock) ContextOption {
	return func(pc *PipelineContext) {
		pc.clock = c
	}
}

// WithLogger sets the logger of the builders.
func WithLogger(l *zap.Logger) ContextOption {
	return func(pc *PipelineContext) {
		pc.logger = l
	}
}

// NewPipelineContext builds the job templates of kinds from cfg. An empty
// kinds list builds every kind. Every missing required key is reported in
// the returned error.
func NewPipelineContext(cfg *config.Config, kinds []model.NodeKind, opts ...ContextOption) (*PipelineContext, error) {
	if cfg == nil {
		return nil, errors.Wrap(config.ErrMissingSection, "configuration must be set")
	}
	if len(kinds) == 0 {
		kinds = model.AllKinds
	}

	pc := &PipelineContext{
		jobs:   make(map[model.NodeKind]*JobTemplate, len(kinds)),
		clock:  clock.New(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(pc)
	}

	var errs error
	var err error
	pc.OutDir, err = cfg.Get(pipelineSection, "out_dir")
	errs = multierr.Append(errs, err)
	pc.CacheDir, err = cfg.Get(pipelineSection, "cache_dir")
	errs = multierr.Append(errs, err)

	for _, kind := range kinds {
		job, err := pc.newJobTemplate(cfg, kind)
		if err != nil {
			errs = multierr.Append(errs, err)

			continue
		}
		pc.jobs[kind] = job
	}
	if errs != nil {
		return nil, errs
	}

	pc.logger.Debug("pipeline context ready",
		zap.String("out_dir", pc.OutDir),
		zap.String("cache_dir", pc.CacheDir),
		zap.Int("job_templates", len(pc.jobs)),
	)

	return pc, nil
}

func (pc *PipelineContext) newJobTemplate(cfg *config.Config, kind model.NodeKind) (*JobTemplate, error) {
	section, ok := kindSections[kind]
	if !ok {
		return nil, errors.Wrapf(ErrJobNotConfigured, "unknown job kind %q", kind)
	}

	var errs error
	exe, err := cfg.Get(condorSection, section)
	errs = multierr.Append(errs, err)

	job := &JobTemplate{
		Kind:       kind,
		Executable: exe,
		SubFile:    section + ".sub",
		LogFile:    filepath.Join(pc.OutDir, section+".log"),
		StdoutFile: filepath.Join(pc.OutDir, section+"-$(cluster)-$(process).out"),
		StderrFile: filepath.Join(pc.OutDir, section+"-$(cluster)-$(process).err"),
	}

	switch kind {
	case model.DatafindKind:
		job.Universe = datafindUniverse
		job.PostScript = cfg.GetDefault(condorSection, "datafind_check", "")
		job.StaticOptions = optionalItems(cfg, section)
	case model.BinjKind, model.PowerKind:
		job.Universe, err = cfg.Get(condorSection, "universe")
		errs = multierr.Append(errs, err)
		items, err := cfg.Items(section)
		errs = multierr.Append(errs, err)
		job.StaticOptions = toOptions(items)
		macroLog := filepath.Join(pc.OutDir, section+"-$(macrogpsstarttime)-$(macrogpsendtime)-$(cluster)-$(process)")
		job.StdoutFile = macroLog + ".out"
		job.StderrFile = macroLog + ".err"
	default:
		job.Universe = toolUniverse
		job.CondorCommands = []Option{{Key: "getenv", Value: "True"}}
		job.StaticOptions = optionalItems(cfg, section)
	}

	switch kind {
	case model.BinjKind:
		pc.InjectionBands, err = cfg.GetInt(pipelineSection, "injection_bands")
		errs = multierr.Append(errs, err)
		if err == nil && pc.InjectionBands <= 0 {
			errs = multierr.Append(errs, errors.Wrapf(config.ErrInvalidValue, "[%s] injection_bands must be positive", pipelineSection))
		}
		pc.TimeStep, err = cfg.GetFloat(section, "time-step")
		errs = multierr.Append(errs, err)
	case model.PowerKind:
		job.InstrumentOptions = make(map[string][]Option)
		for _, name := range cfg.Sections() {
			instrument, ok := strings.CutPrefix(name, powerInstrumentPrefix)
			if !ok || instrument == "" {
				continue
			}
			job.InstrumentOptions[instrument] = optionalItems(cfg, name)
		}
	}

	if errs != nil {
		return nil, errs
	}

	return job, nil
}

func optionalItems(cfg *config.Config, section string) []Option {
	if !cfg.HasSection(section) {
		return nil
	}
	items, _ := cfg.Items(section)

	return toOptions(items)
}

func toOptions(items []config.Option) []Option {
	res := make([]Option, 0, len(items))
	for _, item := range items {
		res = append(res, Option{Key: item.Key, Value: item.Value})
	}

	return res
}

// Job returns the template of kind.
func (pc *PipelineContext) Job(kind model.NodeKind) (*JobTemplate, error) {
	job, ok := pc.jobs[kind]
	if !ok {
		return nil, errors.Wrapf(ErrJobNotConfigured, "%s", kind)
	}

	return job, nil
}

// Jobs returns every configured template in construction order.
func (pc *PipelineContext) Jobs() []*JobTemplate {
	res := make([]*JobTemplate, 0, len(pc.jobs))
	for _, kind := range model.AllKinds {
		if job, ok := pc.jobs[kind]; ok {
			res = append(res, job)
		}
	}

	return res
}

// Capacity derives the capacity of one analysis job of slotsPerJob slots.
func (pc *PipelineContext) Capacity(slotsPerJob int) (Capacity, error) {
	job, err := pc.Job(model.PowerKind)
	if err != nil {
		return Capacity{}, err
	}

	return CapacityFromTemplate(job, slotsPerJob)
}

// Clock returns the clock of the context.
func (pc *PipelineContext) Clock() clock.Clock { return pc.clock }

// Logger returns the logger of the context.
func (pc *PipelineContext) Logger() *zap.Logger { return pc.logger }
