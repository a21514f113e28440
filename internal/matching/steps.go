package matching

import "go.uber.org/zap"

// Step describes how a stage of a match run changed the candidate count.
type Step struct {
	Name    string
	Initial int
	Dropped int
	Left    int
}

func newStep(name string, initial, left int) Step {
	return Step{Name: name, Initial: initial, Dropped: initial - left, Left: left}
}

func (s Step) log(l *zap.Logger) {
	l.Info("match step",
		zap.String("name", s.Name),
		zap.Int("initial", s.Initial),
		zap.Int("dropped", s.Dropped),
		zap.Int("left", s.Left),
	)
}
