package ml

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// LogisticModel is an L2-regularised logistic regression classifier fitted
// by full-batch gradient descent. The exported fields make the model
// gob-serialisable for the artifact store.
type LogisticModel struct {
	Bias    float64
	Weights []float64
}

type trainParams struct {
	epochs    int
	learnRate float64
	l2        float64
}

func defaultTrainParams() trainParams {
	return trainParams{epochs: 2000, learnRate: 0.1, l2: 1e-3}
}

// fitLogistic trains on standardised features. sampleWeight scales each
// row's gradient contribution, which is how class imbalance is compensated.
func fitLogistic(x *mat.Dense, y, sampleWeight []float64, p trainParams) *LogisticModel {
	rows, cols := x.Dims()
	m := &LogisticModel{Weights: make([]float64, cols)}

	var weightSum float64
	for _, w := range sampleWeight {
		weightSum += w
	}
	if weightSum == 0 {
		return m
	}

	grad := make([]float64, cols)
	for epoch := 0; epoch < p.epochs; epoch++ {
		for c := range grad {
			grad[c] = 0
		}
		var biasGrad float64
		for r := 0; r < rows; r++ {
			row := x.RawRowView(r)
			pred := sigmoid(m.Bias + dot(m.Weights, row))
			residual := (pred - y[r]) * sampleWeight[r]
			biasGrad += residual
			for c, v := range row {
				grad[c] += residual * v
			}
		}
		m.Bias -= p.learnRate * biasGrad / weightSum
		for c := range m.Weights {
			m.Weights[c] -= p.learnRate * (grad[c]/weightSum + p.l2*m.Weights[c])
		}
	}
	return m
}

// PredictProba returns the failure probability for one standardised feature
// vector.
func (m *LogisticModel) PredictProba(x []float64) float64 {
	return sigmoid(m.Bias + dot(m.Weights, x))
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
