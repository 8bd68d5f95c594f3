// Package model_selection provides deterministic dataset splitting.
package model_selection

import (
	"math"
	"math/rand/v2"

	"github.com/pitwall-labs/lapcast/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Split holds the two partitions of a dataset and the row indices of the
// original matrices that went into each.
type Split struct {
	XTrain, XTest *mat.Dense
	YTrain, YTest *mat.Dense

	TrainIndices []int
	TestIndices  []int
}

// TrainTestSplit shuffles the rows of X and y with a PCG generator seeded by
// randomState and holds out ceil(testSize·n) of them. The same inputs and
// seed always give the same partition.
func TrainTestSplit(X, y mat.Matrix, testSize float64, randomState int) (*Split, error) {
	nSamples, _ := X.Dims()
	yRows, yCols := y.Dims()

	if nSamples == 0 {
		return nil, errors.NewModelError("TrainTestSplit", "empty data", errors.ErrEmptyData)
	}
	if yRows != nSamples {
		return nil, errors.NewDimensionError("TrainTestSplit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return nil, errors.NewDimensionError("TrainTestSplit", 1, yCols, 1)
	}
	if testSize <= 0 || testSize >= 1 {
		return nil, errors.NewValidationError("test_size", "must be in (0, 1)", testSize)
	}

	nTest := int(math.Ceil(testSize * float64(nSamples)))
	nTrain := nSamples - nTest
	if nTrain == 0 {
		return nil, errors.NewValueError("TrainTestSplit",
			"the resulting train set is empty; provide more samples or lower test_size")
	}

	indices := make([]int, nSamples)
	for i := range indices {
		indices[i] = i
	}
	r := rand.New(rand.NewPCG(uint64(randomState), uint64(randomState)))
	r.Shuffle(len(indices), func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})

	testIdx := append([]int(nil), indices[:nTest]...)
	trainIdx := append([]int(nil), indices[nTest:]...)

	return &Split{
		XTrain:       TakeRows(X, trainIdx),
		XTest:        TakeRows(X, testIdx),
		YTrain:       TakeRows(y, trainIdx),
		YTest:        TakeRows(y, testIdx),
		TrainIndices: trainIdx,
		TestIndices:  testIdx,
	}, nil
}

// TakeRows copies the given rows of m, in order, into a new matrix.
func TakeRows(m mat.Matrix, rows []int) *mat.Dense {
	_, c := m.Dims()
	if len(rows) == 0 {
		return &mat.Dense{}
	}
	out := mat.NewDense(len(rows), c, nil)
	for i, row := range rows {
		for j := 0; j < c; j++ {
			out.Set(i, j, m.At(row, j))
		}
	}
	return out
}
