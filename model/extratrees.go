package model

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/crtc-jlab/mlcli/checkpoints"
	"github.com/crtc-jlab/mlcli/dataset"
	"github.com/crtc-jlab/mlcli/physics"
)

// extraTrees is the tree-ensemble backend: extremely randomized trees. At
// every node a random subset of features is drawn and each candidate gets a
// uniformly random threshold between its observed min and max; the split
// with the lowest weighted gini impurity wins. Prediction is a majority
// vote over the forest.
type extraTrees struct {
	lifecycle
	dim     int
	mapping physics.Mapping
	classes *classIndex
	cfg     TreesConfig

	trees [][]treeNode
}

// treeNode is one node in index-linked form so a whole tree serializes as a
// flat slice. Leaf nodes have Feature == -1 and carry the class in Class.
type treeNode struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Class     int     `json:"c"`
}

func newExtraTrees(dim int, m physics.Mapping, cfg Config) (*extraTrees, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("feature dimensionality must be positive, got %d", dim)
	}

	c := DefaultTreesConfig()
	if cfg != nil {
		typed, ok := cfg.(TreesConfig)
		if !ok {
			return nil, fmt.Errorf("et model requires a TreesConfig, got %T", cfg)
		}
		c = typed
	}
	if c.Trees <= 0 {
		return nil, fmt.Errorf("ensemble size must be positive, got %d", c.Trees)
	}
	if c.MinLeaf < 1 {
		c.MinLeaf = 1
	}

	return &extraTrees{
		dim:     dim,
		mapping: m,
		classes: newClassIndex(m),
		cfg:     c,
	}, nil
}

func (m *extraTrees) Kind() Kind { return TreeEnsemble }

func (m *extraTrees) Build() error {
	// The forest has no architecture to allocate ahead of training; Build
	// only advances the lifecycle.
	return m.lifecycle.build()
}

// Train grows the forest. Epochs and batch size have no meaning for trees
// and are ignored; the arguments exist to satisfy the shared contract.
func (m *extraTrees) Train(ds *dataset.Dataset, epochs, batchSize int) (*TrainingReport, error) {
	if err := m.requireTrainable(); err != nil {
		return nil, err
	}
	if err := m.checkDim(ds); err != nil {
		return nil, err
	}
	if ds.Len() == 0 {
		return nil, fmt.Errorf("cannot train on an empty dataset")
	}

	targets, err := m.classes.indexLabels(ds.Labels())
	if err != nil {
		return nil, err
	}

	start := time.Now()
	trees := make([][]treeNode, m.cfg.Trees)

	// Trees are independent; grow them in parallel, each from its own
	// deterministic stream so the forest does not depend on scheduling.
	var wg sync.WaitGroup
	for t := 0; t < m.cfg.Trees; t++ {
		wg.Add(1)
		go func(t int) {
			defer wg.Done()
			builder := &treeBuilder{
				ds:       ds,
				targets:  targets,
				classes:  m.classes.size(),
				maxDepth: m.cfg.MaxDepth,
				minLeaf:  m.cfg.MinLeaf,
				rng:      rand.New(rand.NewSource(m.cfg.Seed + int64(t))),
			}
			indices := make([]int, ds.Len())
			for i := range indices {
				indices[i] = i
			}
			builder.grow(indices, 0)
			trees[t] = builder.nodes
		}(t)
	}
	wg.Wait()

	m.trees = trees
	elapsed := time.Since(start)

	m.markTrained()
	accuracy, err := accuracyOn(m, ds, batchSize)
	if err != nil {
		return nil, err
	}
	return &TrainingReport{TrainingTime: elapsed, Accuracy: accuracy}, nil
}

func (m *extraTrees) Test(ds *dataset.Dataset, batchSize int) (*TestingReport, error) {
	if err := m.requireUsable(); err != nil {
		return nil, err
	}
	return evaluate(m, ds, batchSize, m.mapping)
}

func (m *extraTrees) Predict(ds *dataset.Dataset, batchSize int) ([]int, error) {
	if err := m.requireUsable(); err != nil {
		return nil, err
	}
	if err := m.checkDim(ds); err != nil {
		return nil, err
	}

	out := make([]int, ds.Len())
	votes := make([]int, m.classes.size())
	for i := 0; i < ds.Len(); i++ {
		row := ds.Row(i)
		for v := range votes {
			votes[v] = 0
		}
		for _, tree := range m.trees {
			votes[classify(tree, row)]++
		}
		best := 0
		for c, v := range votes {
			if v > votes[best] {
				best = c
			}
		}
		out[i] = m.classes.label(best)
	}
	return out, nil
}

// classify walks a flat tree from the root to a leaf.
func classify(tree []treeNode, row []float64) int {
	idx := 0
	for {
		node := tree[idx]
		if node.Feature < 0 {
			return node.Class
		}
		if row[node.Feature] <= node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}
}

func (m *extraTrees) checkDim(ds *dataset.Dataset) error {
	if ds.Dim() != m.dim {
		return &dataset.DimensionMismatchError{Want: m.dim, Got: ds.Dim()}
	}
	return nil
}

// treeBuilder grows one extremely randomized tree.
type treeBuilder struct {
	ds       *dataset.Dataset
	targets  []int
	classes  int
	maxDepth int
	minLeaf  int
	rng      *rand.Rand

	nodes []treeNode
}

// grow recursively builds the subtree over the given sample indices and
// returns its node index.
func (b *treeBuilder) grow(indices []int, depth int) int {
	counts := make([]int, b.classes)
	for _, i := range indices {
		counts[b.targets[i]]++
	}

	if b.isLeaf(indices, counts, depth) {
		return b.leaf(counts)
	}

	feature, threshold, ok := b.drawSplit(indices)
	if !ok {
		return b.leaf(counts)
	}

	left := make([]int, 0, len(indices))
	right := make([]int, 0, len(indices))
	for _, i := range indices {
		if b.ds.Row(i)[feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return b.leaf(counts)
	}

	idx := len(b.nodes)
	b.nodes = append(b.nodes, treeNode{Feature: feature, Threshold: threshold})
	b.nodes[idx].Left = b.grow(left, depth+1)
	b.nodes[idx].Right = b.grow(right, depth+1)
	return idx
}

func (b *treeBuilder) isLeaf(indices []int, counts []int, depth int) bool {
	if len(indices) < 2*b.minLeaf {
		return true
	}
	if b.maxDepth > 0 && depth >= b.maxDepth {
		return true
	}
	nonEmpty := 0
	for _, c := range counts {
		if c > 0 {
			nonEmpty++
		}
	}
	return nonEmpty <= 1
}

func (b *treeBuilder) leaf(counts []int) int {
	best := 0
	for c, v := range counts {
		if v > counts[best] {
			best = c
		}
	}
	idx := len(b.nodes)
	b.nodes = append(b.nodes, treeNode{Feature: -1, Class: best})
	return idx
}

// drawSplit samples sqrt(dim) candidate features, gives each one uniformly
// random threshold between its observed min and max over the node, and
// keeps the candidate with the lowest weighted gini impurity.
func (b *treeBuilder) drawSplit(indices []int) (int, float64, bool) {
	dim := b.ds.Dim()
	k := int(math.Sqrt(float64(dim)))
	if k < 1 {
		k = 1
	}

	bestFeature := -1
	bestThreshold := 0.0
	bestScore := math.Inf(1)

	for c := 0; c < k; c++ {
		feature := b.rng.Intn(dim)

		lo, hi := b.ds.Row(indices[0])[feature], b.ds.Row(indices[0])[feature]
		for _, i := range indices[1:] {
			v := b.ds.Row(i)[feature]
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		if lo == hi {
			continue // constant feature over this node
		}

		threshold := lo + b.rng.Float64()*(hi-lo)
		score := b.splitImpurity(indices, feature, threshold)
		if score < bestScore {
			bestScore = score
			bestFeature = feature
			bestThreshold = threshold
		}
	}

	if bestFeature < 0 {
		return 0, 0, false
	}
	return bestFeature, bestThreshold, true
}

// splitImpurity is the size-weighted gini impurity of the two sides.
func (b *treeBuilder) splitImpurity(indices []int, feature int, threshold float64) float64 {
	leftCounts := make([]int, b.classes)
	rightCounts := make([]int, b.classes)
	leftN, rightN := 0, 0

	for _, i := range indices {
		if b.ds.Row(i)[feature] <= threshold {
			leftCounts[b.targets[i]]++
			leftN++
		} else {
			rightCounts[b.targets[i]]++
			rightN++
		}
	}

	total := float64(leftN + rightN)
	return float64(leftN)/total*gini(leftCounts, leftN) +
		float64(rightN)/total*gini(rightCounts, rightN)
}

func gini(counts []int, n int) float64 {
	if n == 0 {
		return 0
	}
	sq := 0.0
	for _, c := range counts {
		p := float64(c) / float64(n)
		sq += p * p
	}
	return 1.0 - sq
}

// checkForest verifies every node of a deserialized forest before classify
// walks it: split features must fall inside the data dimensionality, child
// indices must stay inside their tree, and leaf classes inside the label
// alphabet. A node that fails any of these would index out of range at
// prediction time.
func checkForest(trees [][]treeNode, dim, classes int) error {
	for ti, tree := range trees {
		if len(tree) == 0 {
			return fmt.Errorf("tree %d is empty", ti)
		}
		for ni, node := range tree {
			if node.Feature < 0 {
				if node.Class < 0 || node.Class >= classes {
					return fmt.Errorf("tree %d node %d: class %d outside [0, %d)", ti, ni, node.Class, classes)
				}
				continue
			}
			if node.Feature >= dim {
				return fmt.Errorf("tree %d node %d: feature %d outside [0, %d)", ti, ni, node.Feature, dim)
			}
			if node.Left < 0 || node.Left >= len(tree) || node.Right < 0 || node.Right >= len(tree) {
				return fmt.Errorf("tree %d node %d: child index outside [0, %d)", ti, ni, len(tree))
			}
		}
	}
	return nil
}

// treesPayload is the checkpoint payload of the tree-ensemble backend.
type treesPayload struct {
	Trees [][]treeNode `json:"trees"`
}

func (m *extraTrees) Save(path string) error {
	if err := m.requireUsable(); err != nil {
		return err
	}

	cp, err := checkpoints.New(string(TreeEnsemble), m.dim, m.classes.labels, treesPayload{Trees: m.trees})
	if err != nil {
		return &checkpoints.PersistenceError{Path: path, Op: "save", Err: err}
	}
	return checkpoints.Save(path, cp)
}

func (m *extraTrees) Load(path string) error {
	cp, err := checkpoints.Open(path, string(TreeEnsemble))
	if err != nil {
		return err
	}

	var payload treesPayload
	if err := cp.Decode(&payload); err != nil {
		return &checkpoints.PersistenceError{Path: path, Op: "load", Err: err}
	}
	if len(payload.Trees) == 0 {
		return &checkpoints.PersistenceError{Path: path, Op: "load",
			Err: fmt.Errorf("checkpoint holds an empty forest")}
	}
	if err := checkForest(payload.Trees, cp.Dim, len(cp.Labels)); err != nil {
		return &checkpoints.PersistenceError{Path: path, Op: "load", Err: err}
	}

	m.dim = cp.Dim
	m.classes = classIndexFromLabels(cp.Labels)
	m.trees = payload.Trees
	m.markLoaded()
	return nil
}
