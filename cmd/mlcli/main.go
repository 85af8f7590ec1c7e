// Command mlcli is the batch harness for classifying sparse detector
// feature vectors: it trains, evaluates, and runs predictions with one of
// the interchangeable classifier backends (et, mlp, cnn).
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crtc-jlab/mlcli/model"
	"github.com/crtc-jlab/mlcli/physics"
)

// validDims are the feature dimensionalities the detector exports.
var validDims = []int{6, 36, 4032}

var (
	logger *zap.SugaredLogger

	flagClassMap string
	flagSeed     int64
)

func main() {
	zl, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer zl.Sync()
	logger = zl.Sugar()

	root := &cobra.Command{
		Use:           "mlcli",
		Short:         "CRTC-JLab machine learning CLI",
		Long:          "Train, evaluate, and run predictions with particle classification models over sparse detector feature vectors.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagClassMap, "class-map", "", "YAML file mapping raw labels to report classes (default: built-in table)")
	root.PersistentFlags().Int64Var(&flagSeed, "seed", 1, "random seed for model initialization")

	root.AddCommand(trainCommand())
	root.AddCommand(testCommand())
	root.AddCommand(predictCommand())

	if err := root.Execute(); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

// classMapping returns the injected label table: the --class-map file when
// given, the built-in default otherwise.
func classMapping() (physics.Mapping, error) {
	if flagClassMap == "" {
		return physics.DefaultMapping(), nil
	}
	return physics.LoadMapping(flagClassMap)
}

// listDataFiles enumerates the *.txt data files of a directory in sorted
// order, so runs over the same directory are reproducible.
func listDataFiles(dir string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no *.txt data files in %s", dir)
	}
	sort.Strings(paths)
	return paths, nil
}

// checkDim validates the --num-features flag against the supported
// dimensionalities.
func checkDim(dim int) error {
	for _, d := range validDims {
		if dim == d {
			return nil
		}
	}
	return fmt.Errorf("unsupported feature dimensionality %d (supported: %v)", dim, validDims)
}

// modelKind validates the --model-type flag.
func modelKind(name string) (model.Kind, error) {
	kind := model.Kind(name)
	for _, k := range model.Kinds() {
		if kind == k {
			return kind, nil
		}
	}
	return "", &model.UnsupportedTypeError{Kind: kind}
}

// markRequired marks the named flags required and panics on a flag name that
// does not exist. The flag set is wired at startup, so a failure here is a
// typo in this file, not a runtime condition.
func markRequired(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}
}

// backendConfig assembles the per-backend configuration. The convolutional
// backend needs the dataset shape at construction, which is why the sample
// count travels here.
func backendConfig(kind model.Kind, dim, sampleCount int) model.Config {
	switch kind {
	case model.TreeEnsemble:
		cfg := model.DefaultTreesConfig()
		cfg.Seed = flagSeed
		return cfg
	case model.FeedForward:
		cfg := model.DefaultMLPConfig()
		cfg.Seed = flagSeed
		return cfg
	case model.Convolutional:
		cfg := model.DefaultConvConfig()
		cfg.Seed = flagSeed
		cfg.InputDim = dim
		cfg.SampleCount = sampleCount
		return cfg
	default:
		return nil
	}
}
