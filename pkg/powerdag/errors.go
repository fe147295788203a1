package powerdag

import "github.com/pkg/errors"

var (
	ErrInvalidCapacity   = errors.New("invalid job capacity")
	ErrInvalidSegment    = errors.New("segment must have a positive duration")
	ErrMissingInstrument = errors.New("instrument must be set")
	ErrTooFewInstruments = errors.New("coincidence needs at least two instruments")
	ErrMissingTag        = errors.New("user tag must be set")
	ErrNoJobs            = errors.New("segment is too short to host a single job")
	ErrDAGMustBeSet      = errors.New("dag must be set")
	ErrNodeMustBeSet     = errors.New("node must be set")
	ErrDuplicateNode     = errors.New("node already exists in the dag")
	ErrUnknownParent     = errors.New("parent is not in the dag")
	ErrUnwiredInput      = errors.New("input is produced by a node that is not a parent")
	ErrNodeFrozen        = errors.New("node is frozen")
	ErrJobNotConfigured  = errors.New("job type has not been configured")
	ErrInvalidBand       = errors.New("invalid injection frequency band")
)
