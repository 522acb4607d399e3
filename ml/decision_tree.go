package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
)

const numClasses = 2

// ErrInvalidTree marks a node table that is not a forward-linked tree.
var ErrInvalidTree = errors.New("invalid tree state")

type DecisionTree struct {
	nodes []TreeNode
}

type TreeNode struct {
	FeatureIdx int       `json:"feature_idx"`
	Threshold  float64   `json:"threshold"`
	LeftChild  int       `json:"left_child"`
	RightChild int       `json:"right_child"`
	ClassLabel int       `json:"class_label"`
	IsLeaf     bool      `json:"is_leaf"`
	Proba      []float64 `json:"proba,omitempty"`
}

// NewDecisionTreeFromNodes builds a tree from an already trained node table.
func NewDecisionTreeFromNodes(nodes []TreeNode) *DecisionTree {
	return &DecisionTree{nodes: append([]TreeNode(nil), nodes...)}
}

func (dt *DecisionTree) Train(features [][]float64, labels []int, maxDepth int) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}
	if maxDepth <= 0 {
		maxDepth = 3
	}

	dt.nodes = dt.buildNode(features, labels, 0, maxDepth)
	return nil
}

func (dt *DecisionTree) Predict(features []float64) (int, error) {
	node, err := dt.leaf(features)
	if err != nil {
		return 0, err
	}
	return node.ClassLabel, nil
}

// PredictProba returns the class distribution of the training samples that
// reached the leaf. Trees loaded without distributions report the leaf label
// with probability 1.
func (dt *DecisionTree) PredictProba(features []float64) ([]float64, error) {
	node, err := dt.leaf(features)
	if err != nil {
		return nil, err
	}
	if len(node.Proba) == numClasses {
		return append([]float64(nil), node.Proba...), nil
	}
	proba := make([]float64, numClasses)
	if node.ClassLabel >= 0 && node.ClassLabel < numClasses {
		proba[node.ClassLabel] = 1
	}
	return proba, nil
}

func (dt *DecisionTree) leaf(features []float64) (TreeNode, error) {
	if len(dt.nodes) == 0 {
		return TreeNode{}, ErrNotTrained
	}
	idx := 0
	for {
		node := dt.nodes[idx]
		if node.IsLeaf {
			return node, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return TreeNode{}, errors.New("feature index out of range")
		}
		next := node.RightChild
		if features[node.FeatureIdx] <= node.Threshold {
			next = node.LeftChild
		}
		// Children always follow their parent, so every step moves forward.
		if next <= idx || next >= len(dt.nodes) {
			return TreeNode{}, fmt.Errorf("%w: node %d points to %d", ErrInvalidTree, idx, next)
		}
		idx = next
	}
}

func (dt *DecisionTree) Save(path string) error {
	if len(dt.nodes) == 0 {
		return ErrNotTrained
	}
	payload, err := json.Marshal(dt.nodes)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}

func (dt *DecisionTree) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var nodes []TreeNode
	if err := json.Unmarshal(payload, &nodes); err != nil {
		return err
	}
	if len(nodes) == 0 {
		return ErrNotTrained
	}
	if err := validateNodes(nodes); err != nil {
		return err
	}
	dt.nodes = nodes
	return nil
}

func validateNodes(nodes []TreeNode) error {
	for i, node := range nodes {
		if node.IsLeaf {
			continue
		}
		for _, child := range []int{node.LeftChild, node.RightChild} {
			if child <= i || child >= len(nodes) {
				return fmt.Errorf("%w: node %d points to %d", ErrInvalidTree, i, child)
			}
		}
	}
	return nil
}

func leafNode(labels []int) TreeNode {
	return TreeNode{
		FeatureIdx: -1,
		LeftChild:  -1,
		RightChild: -1,
		ClassLabel: majorityLabel(labels),
		IsLeaf:     true,
		Proba:      classDistribution(labels),
	}
}

func (dt *DecisionTree) buildNode(features [][]float64, labels []int, depth int, maxDepth int) []TreeNode {
	if depth >= maxDepth || isPure(labels) {
		return []TreeNode{leafNode(labels)}
	}

	bestFeature, threshold, ok := findBestSplit(features, labels)
	if !ok {
		return []TreeNode{leafNode(labels)}
	}

	leftFeatures, leftLabels, rightFeatures, rightLabels := splitData(features, labels, bestFeature, threshold)
	if len(leftLabels) == 0 || len(rightLabels) == 0 {
		return []TreeNode{leafNode(labels)}
	}

	leftNodes := dt.buildNode(leftFeatures, leftLabels, depth+1, maxDepth)
	rightNodes := dt.buildNode(rightFeatures, rightLabels, depth+1, maxDepth)

	root := TreeNode{
		FeatureIdx: bestFeature,
		Threshold:  threshold,
		LeftChild:  1,
		RightChild: 1 + len(leftNodes),
		ClassLabel: majorityLabel(labels),
	}

	nodes := make([]TreeNode, 0, 1+len(leftNodes)+len(rightNodes))
	nodes = append(nodes, root)
	nodes = append(nodes, offsetChildren(leftNodes, 1)...)
	nodes = append(nodes, offsetChildren(rightNodes, 1+len(leftNodes))...)
	return nodes
}

// offsetChildren rebases subtree child indexes once the subtree is placed at
// position base in the parent's node table.
func offsetChildren(nodes []TreeNode, base int) []TreeNode {
	out := make([]TreeNode, len(nodes))
	for i, node := range nodes {
		if !node.IsLeaf {
			node.LeftChild += base
			node.RightChild += base
		}
		out[i] = node
	}
	return out
}

func findBestSplit(features [][]float64, labels []int) (int, float64, bool) {
	featureCount := len(features[0])
	bestFeature := -1
	bestThreshold := 0.0
	bestImpurity := math.MaxFloat64

	for featureIdx := 0; featureIdx < featureCount; featureIdx++ {
		values := make([]float64, len(features))
		for i := range features {
			values[i] = features[i][featureIdx]
		}
		threshold := median(values)
		leftLabels, rightLabels := splitLabels(features, labels, featureIdx, threshold)
		if len(leftLabels) == 0 || len(rightLabels) == 0 {
			continue
		}
		impurity := weightedGini(leftLabels, rightLabels)
		if impurity < bestImpurity {
			bestImpurity = impurity
			bestFeature = featureIdx
			bestThreshold = threshold
		}
	}
	if bestFeature == -1 {
		return -1, 0, false
	}
	return bestFeature, bestThreshold, true
}

func splitData(features [][]float64, labels []int, featureIdx int, threshold float64) ([][]float64, []int, [][]float64, []int) {
	leftFeatures := make([][]float64, 0)
	leftLabels := make([]int, 0)
	rightFeatures := make([][]float64, 0)
	rightLabels := make([]int, 0)
	for i, feature := range features {
		if feature[featureIdx] <= threshold {
			leftFeatures = append(leftFeatures, feature)
			leftLabels = append(leftLabels, labels[i])
		} else {
			rightFeatures = append(rightFeatures, feature)
			rightLabels = append(rightLabels, labels[i])
		}
	}
	return leftFeatures, leftLabels, rightFeatures, rightLabels
}

func splitLabels(features [][]float64, labels []int, featureIdx int, threshold float64) ([]int, []int) {
	leftLabels := make([]int, 0)
	rightLabels := make([]int, 0)
	for i, feature := range features {
		if feature[featureIdx] <= threshold {
			leftLabels = append(leftLabels, labels[i])
		} else {
			rightLabels = append(rightLabels, labels[i])
		}
	}
	return leftLabels, rightLabels
}

func weightedGini(leftLabels, rightLabels []int) float64 {
	leftWeight := float64(len(leftLabels))
	rightWeight := float64(len(rightLabels))
	total := leftWeight + rightWeight
	return (leftWeight/total)*gini(leftLabels) + (rightWeight/total)*gini(rightLabels)
}

func gini(labels []int) float64 {
	if len(labels) == 0 {
		return 0
	}
	counts := make(map[int]int)
	for _, label := range labels {
		counts[label]++
	}
	impurity := 1.0
	for _, count := range counts {
		prob := float64(count) / float64(len(labels))
		impurity -= prob * prob
	}
	return impurity
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func majorityLabel(labels []int) int {
	counts := make(map[int]int)
	bestLabel := 0
	bestCount := -1
	for _, label := range labels {
		counts[label]++
		if counts[label] > bestCount {
			bestCount = counts[label]
			bestLabel = label
		}
	}
	return bestLabel
}

func classDistribution(labels []int) []float64 {
	proba := make([]float64, numClasses)
	if len(labels) == 0 {
		return proba
	}
	for _, label := range labels {
		if label >= 0 && label < numClasses {
			proba[label]++
		}
	}
	for i := range proba {
		proba[i] /= float64(len(labels))
	}
	return proba
}

func isPure(labels []int) bool {
	if len(labels) == 0 {
		return true
	}
	first := labels[0]
	for _, label := range labels[1:] {
		if label != first {
			return false
		}
	}
	return true
}
