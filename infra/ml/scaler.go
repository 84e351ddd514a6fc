package ml

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Scaler standardises features to zero mean and unit variance, column by
// column. The fitted parameters are persisted alongside the model so
// inference scales exactly like training did.
type Scaler struct {
	Mean []float64
	Std  []float64
}

// FitScaler computes per-column mean and standard deviation. Columns with no
// variance get a unit deviation so transformed values stay finite.
func FitScaler(x *mat.Dense) *Scaler {
	_, cols := x.Dims()
	s := &Scaler{Mean: make([]float64, cols), Std: make([]float64, cols)}
	for c := 0; c < cols; c++ {
		col := mat.Col(nil, c, x)
		mean, std := stat.MeanStdDev(col, nil)
		if std == 0 {
			std = 1
		}
		s.Mean[c] = mean
		s.Std[c] = std
	}
	return s
}

// Transform returns a standardised copy of the matrix.
func (s *Scaler) Transform(x *mat.Dense) *mat.Dense {
	rows, cols := x.Dims()
	out := mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			out.Set(r, c, (x.At(r, c)-s.Mean[c])/s.Std[c])
		}
	}
	return out
}

// TransformRow standardises a single feature vector.
func (s *Scaler) TransformRow(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - s.Mean[i]) / s.Std[i]
	}
	return out
}
