package meshbvh

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// SplitStrategy selects how the builder picks split planes.
type SplitStrategy int

const (
	// SAH scores candidate planes with the surface area heuristic.
	SAH SplitStrategy = iota
	// Center splits at the midpoint of the longest axis of the node box.
	Center
	// Average splits at the mean primitive centroid along the longest axis.
	Average
)

func (s SplitStrategy) String() string {
	switch s {
	case SAH:
		return "sah"
	case Center:
		return "center"
	case Average:
		return "average"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// ParseSplitStrategy converts a strategy name into its value.
func ParseSplitStrategy(name string) (SplitStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sah":
		return SAH, nil
	case "center":
		return Center, nil
	case "average":
		return Average, nil
	default:
		return SAH, fmt.Errorf("%w: unknown split strategy %q", ErrInvalidOptions, name)
	}
}

func (s SplitStrategy) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

func (s *SplitStrategy) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	v, err := ParseSplitStrategy(name)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ProgressFunc receives the fraction of primitives placed into leaves.
type ProgressFunc func(fraction float64)

// Options control how a Tree is built.
type Options struct {
	Strategy    SplitStrategy `yaml:"strategy"`
	MaxDepth    int           `yaml:"max_depth"`
	MaxLeafSize int           `yaml:"max_leaf_size"`

	// Indirect keeps the caller's index buffer untouched and reorders a
	// permutation array instead.
	Indirect bool `yaml:"indirect"`

	// SharedAllocation places the nodes of every root in one backing array.
	SharedAllocation bool `yaml:"shared_allocation"`

	SAHBins           int     `yaml:"sah_bins"`
	SAHExactThreshold int     `yaml:"sah_exact_threshold"`
	SAHTriangleCost   float64 `yaml:"sah_triangle_cost"`

	Progress ProgressFunc    `yaml:"-"`
	Logger   log.FieldLogger `yaml:"-"`
}

func DefaultOptions() Options {
	return Options{
		Strategy:          SAH,
		MaxDepth:          40,
		MaxLeafSize:       10,
		SAHBins:           32,
		SAHExactThreshold: 32,
		SAHTriangleCost:   1.25,
	}
}

// Validate rejects options the builder cannot honour.
func (o Options) Validate() error {
	switch {
	case o.Strategy != SAH && o.Strategy != Center && o.Strategy != Average:
		return fmt.Errorf("%w: unknown strategy %d", ErrInvalidOptions, int(o.Strategy))
	case o.MaxDepth <= 0:
		return fmt.Errorf("%w: max depth must be positive", ErrInvalidOptions)
	case o.MaxLeafSize <= 0:
		return fmt.Errorf("%w: max leaf size must be positive", ErrInvalidOptions)
	case o.SAHBins < 2:
		return fmt.Errorf("%w: at least 2 SAH bins are required", ErrInvalidOptions)
	case o.SAHExactThreshold < 0:
		return fmt.Errorf("%w: negative SAH exact threshold", ErrInvalidOptions)
	case !(o.SAHTriangleCost > 0):
		return fmt.Errorf("%w: SAH triangle cost must be positive", ErrInvalidOptions)
	}
	return nil
}

func (o Options) logger() log.FieldLogger {
	if o.Logger != nil {
		return o.Logger
	}
	return log.StandardLogger()
}

// LoadOptions decodes YAML options on top of DefaultOptions.
func LoadOptions(r io.Reader) (Options, error) {
	opts := DefaultOptions()
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return opts, err
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	return opts, opts.Validate()
}

func LoadOptionsFile(path string) (Options, error) {
	f, err := os.Open(path)
	if err != nil {
		return DefaultOptions(), err
	}
	defer f.Close()
	return LoadOptions(f)
}
