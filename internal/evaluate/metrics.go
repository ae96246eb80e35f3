package evaluate

import (
	"fmt"

	"github.com/winelabs/wineserve/internal/models"
)

// Compute derives accuracy and weighted F1 from true and predicted labels.
// The sequences must have equal non-zero length.
func Compute(yTrue, yPred []int) (models.MetricsSnapshot, error) {
	if len(yTrue) != len(yPred) {
		return models.MetricsSnapshot{}, fmt.Errorf("label length mismatch: %d true vs %d predicted", len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return models.MetricsSnapshot{}, fmt.Errorf("no labels to evaluate")
	}

	matches := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			matches++
		}
	}

	return models.MetricsSnapshot{
		Accuracy:   float64(matches) / float64(len(yTrue)),
		F1Weighted: weightedF1(yTrue, yPred),
	}, nil
}

// weightedF1 averages per-class F1 scores weighted by each class's support
// in the true labels.
func weightedF1(yTrue, yPred []int) float64 {
	support := map[int]int{}
	truePos := map[int]int{}
	falsePos := map[int]int{}
	falseNeg := map[int]int{}

	for i := range yTrue {
		support[yTrue[i]]++
		if yTrue[i] == yPred[i] {
			truePos[yTrue[i]]++
		} else {
			falseNeg[yTrue[i]]++
			falsePos[yPred[i]]++
		}
	}

	sum := 0.0
	for class, count := range support {
		tp := float64(truePos[class])
		fp := float64(falsePos[class])
		fn := float64(falseNeg[class])

		var precision, recall float64
		if tp+fp > 0 {
			precision = tp / (tp + fp)
		}
		if tp+fn > 0 {
			recall = tp / (tp + fn)
		}

		f1 := 0.0
		if precision+recall > 0 {
			f1 = 2 * precision * recall / (precision + recall)
		}
		sum += f1 * float64(count)
	}
	return sum / float64(len(yTrue))
}
