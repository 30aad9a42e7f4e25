package partogram

// Labor period measurement cadences, in minutes.
const (
	Period1IntervalMinutes = 30
	Period2IntervalMinutes = 15

	// FullDilationCM is the cervical dilation at which the second
	// period of labor begins.
	FullDilationCM = 10
)

// ClassifyPeriod maps a measurement history, ordered by time descending,
// to labor period 1 or 2. The period is driven solely by the most recent
// dilation-bearing measurement: 2 once it reads full dilation, 1 otherwise.
// A later reading below full dilation moves the patient back to period 1;
// no monotonicity is enforced. An empty history is period 1.
func ClassifyPeriod(entries []*Entry) int {
	for _, e := range entries {
		if e.CervicalDilation == nil {
			continue
		}
		if *e.CervicalDilation >= FullDilationCM {
			return 2
		}
		return 1
	}
	return 1
}

// IntervalMinutes returns the measurement cadence for a labor period.
func IntervalMinutes(period int) int {
	if period == 2 {
		return Period2IntervalMinutes
	}
	return Period1IntervalMinutes
}
