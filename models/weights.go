package models

import "math"

// Weights is the relative importance of each scoring factor.
type Weights struct {
	Price        float64 `json:"price" yaml:"price"`
	Rating       float64 `json:"rating" yaml:"rating"`
	Reviews      float64 `json:"reviews" yaml:"reviews"`
	DeliveryTime float64 `json:"delivery_time" yaml:"delivery_time"`
	ReturnPolicy float64 `json:"return_policy" yaml:"return_policy"`
}

// DefaultWeights is used whenever supplied weights cannot be normalised.
func DefaultWeights() Weights {
	return Weights{
		Price:        0.35,
		Rating:       0.25,
		Reviews:      0.15,
		DeliveryTime: 0.15,
		ReturnPolicy: 0.10,
	}
}

// Sum adds up all five weights.
func (w Weights) Sum() float64 {
	return w.Price + w.Rating + w.Reviews + w.DeliveryTime + w.ReturnPolicy
}

// Normalized scales w to sum to 1. Negative or non-finite entries count as 0;
// if nothing positive is left the default vector is returned.
func (w Weights) Normalized() Weights {
	c := Weights{
		Price:        nonNegative(w.Price),
		Rating:       nonNegative(w.Rating),
		Reviews:      nonNegative(w.Reviews),
		DeliveryTime: nonNegative(w.DeliveryTime),
		ReturnPolicy: nonNegative(w.ReturnPolicy),
	}
	total := c.Sum()
	if total <= 0 || math.IsInf(total, 0) {
		return DefaultWeights()
	}
	return Weights{
		Price:        c.Price / total,
		Rating:       c.Rating / total,
		Reviews:      c.Reviews / total,
		DeliveryTime: c.DeliveryTime / total,
		ReturnPolicy: c.ReturnPolicy / total,
	}
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
