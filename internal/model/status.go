// Package model defines the status and exit-strategy domain shared by
// commands and sequences.
package model

type Status string

const (
	StatusNotExecuted Status = "not_executed"
	StatusRunning     Status = "running"
	StatusSuccess     Status = "success"
	StatusWarning     Status = "warning"
	StatusError       Status = "error"
)

var terminalStatuses = map[Status]bool{
	StatusSuccess: true,
	StatusWarning: true,
	StatusError:   true,
}

func IsTerminal(s Status) bool {
	return terminalStatuses[s]
}

// Strategy controls how a sequence reacts to a step's Error or Warning
// status: Fail* halts the sequence, Flunk* records the failure and keeps
// going.
type Strategy string

const (
	FailOnError    Strategy = "fail_on_error"
	FlunkOnError   Strategy = "flunk_on_error"
	FailOnWarning  Strategy = "fail_on_warning"
	FlunkOnWarning Strategy = "flunk_on_warning"
)

var validStrategies = map[Strategy]bool{
	FailOnError:    true,
	FlunkOnError:   true,
	FailOnWarning:  true,
	FlunkOnWarning: true,
}

func IsValidStrategy(s Strategy) bool {
	return validStrategies[s]
}

// NormalizeStrategy maps any unrecognized token to the FailOnError default.
func NormalizeStrategy(s Strategy) Strategy {
	if validStrategies[s] {
		return s
	}
	return FailOnError
}
