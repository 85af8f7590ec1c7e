package model

// Config is implemented by the per-backend configuration structs. Passing a
// config of the wrong backend kind to New is an error; passing nil selects
// that backend's defaults.
type Config interface {
	kind() Kind
}

// TreesConfig configures the extra-trees backend.
type TreesConfig struct {
	// Trees is the ensemble size.
	Trees int
	// MaxDepth bounds tree height; 0 means unbounded.
	MaxDepth int
	// MinLeaf is the minimum sample count that may still be split.
	MinLeaf int
	// Seed drives threshold and feature sampling. Identical seed and data
	// produce an identical forest.
	Seed int64
}

func (TreesConfig) kind() Kind { return TreeEnsemble }

// DefaultTreesConfig mirrors the ensemble sizing the harness has always
// trained with.
func DefaultTreesConfig() TreesConfig {
	return TreesConfig{
		Trees:    100,
		MaxDepth: 0,
		MinLeaf:  2,
		Seed:     1,
	}
}

// MLPConfig configures the feed-forward network backend.
type MLPConfig struct {
	// Hidden lists the hidden layer widths.
	Hidden []int
	// LearningRate is the Adam step size.
	LearningRate float64
	// Seed drives weight initialization and batch shuffling.
	Seed int64
}

func (MLPConfig) kind() Kind { return FeedForward }

// DefaultMLPConfig is a three-layer 64-wide stack.
func DefaultMLPConfig() MLPConfig {
	return MLPConfig{
		Hidden:       []int{64, 64, 64},
		LearningRate: 1e-3,
		Seed:         1,
	}
}

// ConvConfig configures the convolutional backend. Unlike the other two,
// the architecture depends on the shape of the incoming data, so InputDim
// and SampleCount must be known when the model is constructed, not first at
// training time.
type ConvConfig struct {
	// Filters is the number of 1-D convolution kernels.
	Filters int
	// KernelSize is the kernel width; must not exceed InputDim.
	KernelSize int
	// PoolSize is the non-overlapping max-pool window.
	PoolSize int
	// Hidden is the width of the dense layer after pooling.
	Hidden int
	// LearningRate is the Adam step size.
	LearningRate float64
	// Seed drives weight initialization and batch shuffling.
	Seed int64

	// InputDim is the feature dimensionality of the incoming dataset.
	InputDim int
	// SampleCount is the total number of samples the model will see;
	// required at construction.
	SampleCount int
}

func (ConvConfig) kind() Kind { return Convolutional }

// DefaultConvConfig returns the conv architecture defaults; InputDim and
// SampleCount still have to be filled in from the dataset shape.
func DefaultConvConfig() ConvConfig {
	return ConvConfig{
		Filters:      16,
		KernelSize:   3,
		PoolSize:     2,
		Hidden:       64,
		LearningRate: 1e-3,
		Seed:         1,
	}
}
