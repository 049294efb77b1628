package command

import "fmt"

// ParameterError reports a missing required construction parameter. It is
// the only error class commands raise synchronously; every runtime failure
// is reflected in the command's status instead.
type ParameterError struct {
	Param string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("missing required parameter: %s", e.Param)
}
