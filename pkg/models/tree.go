package models

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/HatiCode/autompg/pkg/vehicle"
)

// Ensemble aggregation modes.
const (
	AggregateSum  = "sum"  // gradient boosting: base_score + learning_rate * Σ trees
	AggregateMean = "mean" // random forest: base_score + mean(trees)
)

// TreeEnsembleModel evaluates a set of binary regression trees.
//
// Artifact layout:
//
//	{
//	  "format": "tree_ensemble",
//	  "features": [...],
//	  "base_score": 23.5,
//	  "learning_rate": 0.1,
//	  "aggregate": "sum",
//	  "trees": [
//	    {"nodes": [
//	      {"feature": 3, "threshold": 2800, "left": 1, "right": 2},
//	      {"value": 4.2},
//	      {"value": -3.9}
//	    ]}
//	  ]
//	}
//
// A split sends x to left when x[feature] <= threshold. Node 0 is the root.
type TreeEnsembleModel struct {
	baseScore    float64
	learningRate float64
	aggregate    string
	trees        []tree
}

type tree struct {
	nodes []treeNode
}

type treeNode struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      int
	right     int
}

// Name returns the model identifier.
func (m *TreeEnsembleModel) Name() string {
	return FormatTreeEnsemble
}

// Predict walks every tree and combines the leaf values.
func (m *TreeEnsembleModel) Predict(ctx context.Context, features vehicle.FeatureVector) (float64, error) {
	var sum float64
	for _, t := range m.trees {
		sum += t.eval(features)
	}

	if m.aggregate == AggregateMean {
		return m.baseScore + sum/float64(len(m.trees)), nil
	}
	return m.baseScore + m.learningRate*sum, nil
}

func (t tree) eval(x vehicle.FeatureVector) float64 {
	n := t.nodes[0]
	for !n.leaf {
		if x[n.feature] <= n.threshold {
			n = t.nodes[n.left]
		} else {
			n = t.nodes[n.right]
		}
	}
	return n.value
}

func decodeTreeEnsemble(doc gjson.Result) (Model, error) {
	baseScore, err := number(doc, "base_score")
	if err != nil {
		return nil, err
	}

	m := &TreeEnsembleModel{
		baseScore:    baseScore,
		learningRate: 1.0,
		aggregate:    AggregateSum,
	}

	if lr := doc.Get("learning_rate"); lr.Exists() {
		if lr.Type != gjson.Number || lr.Float() <= 0 {
			return nil, fmt.Errorf("%w: learning_rate must be a positive number", ErrInvalidArtifact)
		}
		m.learningRate = lr.Float()
	}

	if agg := doc.Get("aggregate").String(); agg != "" {
		if agg != AggregateSum && agg != AggregateMean {
			return nil, fmt.Errorf("%w: aggregate must be sum or mean, got %q", ErrInvalidArtifact, agg)
		}
		m.aggregate = agg
	}

	trees := doc.Get("trees").Array()
	if len(trees) == 0 {
		return nil, fmt.Errorf("%w: tree ensemble has no trees", ErrInvalidArtifact)
	}

	m.trees = make([]tree, 0, len(trees))
	for i, raw := range trees {
		t, err := decodeTree(raw.Get("nodes").Array())
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		m.trees = append(m.trees, t)
	}

	return m, nil
}

func decodeTree(raw []gjson.Result) (tree, error) {
	if len(raw) == 0 {
		return tree{}, fmt.Errorf("%w: tree has no nodes", ErrInvalidArtifact)
	}

	nodes := make([]treeNode, len(raw))
	for i, r := range raw {
		if r.Get("value").Exists() {
			value, err := number(r, "value")
			if err != nil {
				return tree{}, fmt.Errorf("node %d: %w", i, err)
			}
			nodes[i] = treeNode{leaf: true, value: value}
			continue
		}

		if !r.Get("feature").Exists() || !r.Get("left").Exists() || !r.Get("right").Exists() {
			return tree{}, fmt.Errorf("%w: node %d is neither a leaf nor a split", ErrInvalidArtifact, i)
		}
		threshold, err := number(r, "threshold")
		if err != nil {
			return tree{}, fmt.Errorf("node %d: %w", i, err)
		}

		n := treeNode{
			feature:   int(r.Get("feature").Int()),
			threshold: threshold,
			left:      int(r.Get("left").Int()),
			right:     int(r.Get("right").Int()),
		}
		if n.feature < 0 || n.feature >= vehicle.FeatureCount {
			return tree{}, fmt.Errorf("%w: node %d splits on unknown feature %d", ErrInvalidArtifact, i, n.feature)
		}
		// Children must point forward so evaluation always terminates.
		if n.left <= i || n.left >= len(raw) || n.right <= i || n.right >= len(raw) {
			return tree{}, fmt.Errorf("%w: node %d has out-of-order children", ErrInvalidArtifact, i)
		}
		nodes[i] = n
	}

	return tree{nodes: nodes}, nil
}
