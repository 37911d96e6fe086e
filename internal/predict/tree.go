package predict

import "stock-signal/internal/model"

// node is either a split (Leaf false) or a terminal value.
type node struct {
	Leaf      bool
	Feature   int
	Threshold float64 // x[Feature] <= Threshold goes Left
	Left      int
	Right     int
	Value     float64
}

type tree struct {
	nodes []node
}

func (t *tree) predict(x *[model.NumFeatures]float64) float64 {
	i := 0
	for !t.nodes[i].Leaf {
		n := &t.nodes[i]
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return t.nodes[i].Value
}

func (t *tree) leaves() int {
	c := 0
	for _, n := range t.nodes {
		if n.Leaf {
			c++
		}
	}
	return c
}
