package predict

import (
	"math"
	"math/rand"
	"sort"

	"stock-signal/internal/model"
)

// booster trains binary-logloss gradient-boosted trees over binned features.
// All randomness comes from rng, seeded from Params.Seed.
type booster struct {
	p    Params
	rng  *rand.Rand
	bins *binMapper

	binned [][model.NumFeatures]uint16 // per example bin index
	y      []float64
	score  []float64 // raw margin per example
	grad   []float64
	hess   []float64
}

type histBin struct {
	g, h float64
	n    int
}

type split struct {
	gain    float64
	feature int
	bin     int
	ok      bool
}

type growingLeaf struct {
	node int
	idx  []int
	g, h float64
	best split
}

func train(examples []Example, p Params) *Model {
	b := &booster{
		p:    p,
		rng:  rand.New(rand.NewSource(p.Seed)),
		bins: newBinMapper(examples, model.NumFeatures, p.MaxBin),
		y:    make([]float64, len(examples)),
	}
	b.binned = make([][model.NumFeatures]uint16, len(examples))
	for i := range examples {
		b.y[i] = examples[i].Y
		for f := 0; f < model.NumFeatures; f++ {
			b.binned[i][f] = uint16(b.bins.bin(f, examples[i].X[f]))
		}
	}

	m := &Model{init: initScore(b.y)}
	b.score = make([]float64, len(examples))
	for i := range b.score {
		b.score[i] = m.init
	}
	b.grad = make([]float64, len(examples))
	b.hess = make([]float64, len(examples))

	for round := 0; round < p.Rounds; round++ {
		b.gradients()
		t := b.growTree(b.sampleRows(), b.sampleFeatures())
		if t == nil {
			break
		}
		for i := range examples {
			b.score[i] += t.predict(&examples[i].X)
		}
		m.trees = append(m.trees, *t)
	}
	return m
}

// initScore is the log-odds of the base rate, kept finite for one-class labels.
func initScore(y []float64) float64 {
	var pos float64
	for _, v := range y {
		pos += v
	}
	rate := pos / float64(len(y))
	rate = math.Min(math.Max(rate, 1e-6), 1-1e-6)
	return math.Log(rate / (1 - rate))
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func (b *booster) gradients() {
	for i, s := range b.score {
		pr := sigmoid(s)
		b.grad[i] = pr - b.y[i]
		b.hess[i] = pr * (1 - pr)
	}
}

func (b *booster) sampleRows() []int {
	n := len(b.y)
	if b.p.BaggingFraction >= 1 {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	idx := make([]int, 0, int(float64(n)*b.p.BaggingFraction)+1)
	for i := 0; i < n; i++ {
		if b.rng.Float64() < b.p.BaggingFraction {
			idx = append(idx, i)
		}
	}
	return idx
}

func (b *booster) sampleFeatures() []int {
	if b.p.FeatureFraction >= 1 {
		out := make([]int, model.NumFeatures)
		for f := range out {
			out[f] = f
		}
		return out
	}
	k := int(math.Ceil(b.p.FeatureFraction * model.NumFeatures))
	if k < 1 {
		k = 1
	}
	feats := b.rng.Perm(model.NumFeatures)[:k]
	// keep scan order stable for tie-breaking
	sort.Ints(feats)
	return feats
}

// growTree grows one tree best-first until NumLeaves or no positive gain.
// Returns nil when even the root cannot be given a value.
func (b *booster) growTree(rows, feats []int) *tree {
	if len(rows) == 0 {
		return nil
	}
	t := &tree{nodes: []node{{Leaf: true}}}
	root := b.newLeaf(0, rows, feats)
	leaves := []*growingLeaf{root}

	for len(leaves) < b.p.NumLeaves {
		bestAt := -1
		for i, l := range leaves {
			if l.best.ok && (bestAt < 0 || l.best.gain > leaves[bestAt].best.gain) {
				bestAt = i
			}
		}
		if bestAt < 0 {
			break
		}
		l := leaves[bestAt]
		s := l.best

		var left, right []int
		for _, r := range l.idx {
			if int(b.binned[r][s.feature]) <= s.bin {
				left = append(left, r)
			} else {
				right = append(right, r)
			}
		}

		li, ri := len(t.nodes), len(t.nodes)+1
		t.nodes = append(t.nodes, node{Leaf: true}, node{Leaf: true})
		t.nodes[l.node] = node{
			Feature:   s.feature,
			Threshold: b.bins.threshold(s.feature, s.bin),
			Left:      li,
			Right:     ri,
		}

		leaves[bestAt] = b.newLeaf(li, left, feats)
		leaves = append(leaves, b.newLeaf(ri, right, feats))
	}

	for _, l := range leaves {
		t.nodes[l.node].Value = b.leafValue(l.g, l.h)
	}
	return t
}

func (b *booster) newLeaf(nodeIdx int, idx []int, feats []int) *growingLeaf {
	l := &growingLeaf{node: nodeIdx, idx: idx}
	for _, r := range idx {
		l.g += b.grad[r]
		l.h += b.hess[r]
	}
	l.best = b.findSplit(l, feats)
	return l
}

func (b *booster) leafValue(g, h float64) float64 {
	return -g / (h + b.p.Lambda) * b.p.LearningRate
}

func (b *booster) leafScore(g, h float64) float64 {
	return g * g / (h + b.p.Lambda)
}

// findSplit scans per-feature histograms for the best gain split that keeps
// MinDataInLeaf rows and MinSumHessian on each side.
func (b *booster) findSplit(l *growingLeaf, feats []int) split {
	best := split{}
	if len(l.idx) < 2*b.p.MinDataInLeaf || l.h+b.p.Lambda <= 0 {
		return best
	}
	parent := b.leafScore(l.g, l.h)

	for _, f := range feats {
		nb := b.bins.numBins(f)
		if nb < 2 {
			continue
		}
		hist := make([]histBin, nb)
		for _, r := range l.idx {
			hb := &hist[b.binned[r][f]]
			hb.g += b.grad[r]
			hb.h += b.hess[r]
			hb.n++
		}

		var gl, hl float64
		var nl int
		for k := 0; k < nb-1; k++ {
			gl += hist[k].g
			hl += hist[k].h
			nl += hist[k].n
			nr := len(l.idx) - nl
			if nl < b.p.MinDataInLeaf {
				continue
			}
			if nr < b.p.MinDataInLeaf {
				break
			}
			gr, hr := l.g-gl, l.h-hl
			if hl < b.p.MinSumHessian || hr < b.p.MinSumHessian {
				continue
			}
			gain := b.leafScore(gl, hl) + b.leafScore(gr, hr) - parent
			if gain > 1e-12 && (!best.ok || gain > best.gain) {
				best = split{gain: gain, feature: f, bin: k, ok: true}
			}
		}
	}
	return best
}
