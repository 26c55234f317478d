package model

// Score compares predicted and true class indices. Precision, recall and
// F1 treat class 1 as positive and are 0 when undefined.
func Score(yTrue, yPred []int) Metrics {
	if len(yTrue) == 0 || len(yTrue) != len(yPred) {
		return Metrics{}
	}
	var tp, fp, fn, correct int
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
		switch {
		case yPred[i] == 1 && yTrue[i] == 1:
			tp++
		case yPred[i] == 1:
			fp++
		case yTrue[i] == 1:
			fn++
		}
	}
	m := Metrics{Accuracy: float64(correct) / float64(len(yTrue))}
	if tp+fp > 0 {
		m.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		m.Recall = float64(tp) / float64(tp+fn)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}

// Labels converts encoded float targets to class indices.
func Labels(y []float64) []int {
	out := make([]int, len(y))
	for i, v := range y {
		out[i] = int(v)
	}
	return out
}
