// Package decision turns raw class scores into a probability distribution and
// picks the predicted class.
package decision

import (
	"math"

	"github.com/Brownie44l1/digit-api/internal/model"
)

// Softmax normalizes scores into a probability distribution. The maximum
// score is subtracted before exponentiating so large logits cannot overflow.
func Softmax(scores []float64) ([]float64, error) {
	if len(scores) == 0 {
		return nil, &model.InvalidInputError{Reason: "score vector is empty"}
	}

	maxScore := scores[0]
	for _, s := range scores[1:] {
		if math.IsNaN(s) {
			return nil, &model.InvalidInputError{Reason: "score vector contains NaN"}
		}
		if s > maxScore {
			maxScore = s
		}
	}
	if math.IsNaN(maxScore) || math.IsInf(maxScore, 0) {
		return nil, &model.InvalidInputError{Reason: "score vector is not finite"}
	}

	probs := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		probs[i] = math.Exp(s - maxScore)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs, nil
}

// Argmax returns the index of the largest value. Ties go to the lowest index.
func Argmax(values []float64) (int, error) {
	if len(values) == 0 {
		return -1, &model.InvalidInputError{Reason: "cannot take argmax of an empty vector"}
	}
	best := 0
	for i, v := range values[1:] {
		if v > values[best] {
			best = i + 1
		}
	}
	return best, nil
}

// Decide computes the distribution for scores and selects the predicted class
// with its confidence.
func Decide(scores model.RawScores) (*model.ClassificationResult, error) {
	probs, err := Softmax(scores)
	if err != nil {
		return nil, err
	}
	predicted, err := Argmax(probs)
	if err != nil {
		return nil, err
	}
	return &model.ClassificationResult{
		PredictedClass: predicted,
		Confidence:     probs[predicted],
		Distribution:   probs,
	}, nil
}
