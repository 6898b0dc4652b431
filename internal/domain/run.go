package domain

// RunReport summarizes a finished batch run for outbound notifications.
type RunReport struct {
	RunID     string
	Course    string
	State     string
	Start     int
	End       int
	Processed int
	Failed    int
	Err       string
}

// Total is the number of rows the run was asked to cover.
func (r RunReport) Total() int {
	return r.End - r.Start + 1
}
