package model

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Classifier is a binary logistic regression.
type Classifier struct {
	Weights []float64
	Bias    float64
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// Fit trains a classifier with mini-batch gradient descent on binary
// cross-entropy. Weights start at zero and batches are shuffled with a
// generator seeded from cfg, so repeated calls give identical weights.
func Fit(x mat.Matrix, y []float64, cfg TrainConfig) (*Classifier, error) {
	n, d := x.Dims()
	if n == 0 || d == 0 {
		return nil, errors.New("fit: empty training matrix")
	}
	if len(y) != n {
		return nil, fmt.Errorf("fit: %d labels for %d rows", len(y), n)
	}
	for i, v := range y {
		if v != 0 && v != 1 {
			return nil, fmt.Errorf("fit: label %v at row %d is not binary", v, i)
		}
	}
	if cfg.Epochs <= 0 || cfg.LearningRate <= 0 {
		return nil, fmt.Errorf("fit: invalid config epochs=%d lr=%v", cfg.Epochs, cfg.LearningRate)
	}
	batch := cfg.BatchSize
	if batch <= 0 || batch > n {
		batch = n
	}

	c := &Classifier{Weights: make([]float64, d)}
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = mat.Row(nil, i, x)
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed+1))
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	grad := make([]float64, d)

	for ep := 0; ep < cfg.Epochs; ep++ {
		rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
		for start := 0; start < n; start += batch {
			end := min(start+batch, n)
			clear(grad)
			gb := 0.0
			for _, i := range order[start:end] {
				// d(BCE)/dz for a sigmoid output is p - y
				diff := sigmoid(floats.Dot(c.Weights, rows[i])+c.Bias) - y[i]
				floats.AddScaled(grad, diff, rows[i])
				gb += diff
			}
			m := float64(end - start)
			if cfg.L2 > 0 {
				floats.AddScaled(grad, cfg.L2*m, c.Weights)
			}
			floats.AddScaled(c.Weights, -cfg.LearningRate/m, grad)
			c.Bias -= cfg.LearningRate * gb / m
		}
	}
	return c, nil
}

// PredictProba returns P(class 1) for every row of x, spreading rows over
// GOMAXPROCS workers.
func (c *Classifier) PredictProba(x mat.Matrix) ([]float64, error) {
	n, d := x.Dims()
	if d != len(c.Weights) {
		return nil, fmt.Errorf("predict: %d features, classifier expects %d", d, len(c.Weights))
	}
	out := make([]float64, n)
	workers := runtime.GOMAXPROCS(0)
	per := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < n; start += per {
		end := min(start+per, n)
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			row := make([]float64, d)
			for i := start; i < end; i++ {
				mat.Row(row, i, x)
				out[i] = sigmoid(floats.Dot(c.Weights, row) + c.Bias)
			}
		}(start, end)
	}
	wg.Wait()
	return out, nil
}

// Predict returns class indices using a 0.5 threshold.
func (c *Classifier) Predict(x mat.Matrix) ([]int, error) {
	proba, err := c.PredictProba(x)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(proba))
	for i, p := range proba {
		if p >= 0.5 {
			out[i] = 1
		}
	}
	return out, nil
}
