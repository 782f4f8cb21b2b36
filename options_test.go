package meshbvh

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

func TestParseSplitStrategy(t *testing.T) {
	for name, want := range map[string]SplitStrategy{"sah": SAH, " Center ": Center, "AVERAGE": Average} {
		got, err := ParseSplitStrategy(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got)
	}
	_, err := ParseSplitStrategy("median")
	assert.ErrorIs(t, err, ErrInvalidOptions)
	assert.Equal(t, "strategy(7)", SplitStrategy(7).String())
}

func TestLoadOptions(t *testing.T) {
	opts, err := LoadOptions(strings.NewReader("strategy: center\nmax_leaf_size: 4\nindirect: true\n"))
	require.NoError(t, err)
	assert.Equal(t, Center, opts.Strategy)
	assert.Equal(t, 4, opts.MaxLeafSize)
	assert.True(t, opts.Indirect)
	assert.Equal(t, DefaultOptions().MaxDepth, opts.MaxDepth)
	assert.Equal(t, DefaultOptions().SAHBins, opts.SAHBins)

	_, err = LoadOptions(strings.NewReader("strategy: median\n"))
	assert.ErrorIs(t, err, ErrInvalidOptions)
	_, err = LoadOptions(strings.NewReader("max_depth: 0\n"))
	assert.ErrorIs(t, err, ErrInvalidOptions)
	_, err = LoadOptions(strings.NewReader("max_leaf_size: [1]\n"))
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

func TestLoadOptionsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bvh.yaml")
	require.NoError(t, os.WriteFile(path, []byte("strategy: average\nsah_bins: 8\n"), 0o644))

	opts, err := LoadOptionsFile(path)
	require.NoError(t, err)
	assert.Equal(t, Average, opts.Strategy)
	assert.Equal(t, 8, opts.SAHBins)

	_, err = LoadOptionsFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, os.IsNotExist(err))
}

func TestOptionsValidate(t *testing.T) {
	cases := map[string]func(o *Options){
		"strategy":  func(o *Options) { o.Strategy = SplitStrategy(5) },
		"depth":     func(o *Options) { o.MaxDepth = -1 },
		"leaf":      func(o *Options) { o.MaxLeafSize = 0 },
		"bins":      func(o *Options) { o.SAHBins = 1 },
		"threshold": func(o *Options) { o.SAHExactThreshold = -1 },
		"cost":      func(o *Options) { o.SAHTriangleCost = 0 },
	}
	for name, mutate := range cases {
		opts := DefaultOptions()
		mutate(&opts)
		assert.ErrorIs(t, opts.Validate(), ErrInvalidOptions, name)
	}
	assert.NoError(t, DefaultOptions().Validate())
}

func TestOptionsMarshalYAML(t *testing.T) {
	opts := DefaultOptions()
	opts.Strategy = Center
	data, err := yaml.Marshal(opts)
	require.NoError(t, err)
	assert.Contains(t, string(data), "strategy: center")
	assert.NotContains(t, string(data), "logger")

	back, err := LoadOptions(strings.NewReader(string(data)))
	require.NoError(t, err)
	assert.Equal(t, opts, back)
}
