package model

import "testing"

func TestIsTerminal(t *testing.T) {
	tests := []struct {
		status   Status
		terminal bool
	}{
		{StatusNotExecuted, false},
		{StatusRunning, false},
		{StatusSuccess, true},
		{StatusWarning, true},
		{StatusError, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := IsTerminal(tt.status); got != tt.terminal {
				t.Errorf("IsTerminal(%q) = %v, want %v", tt.status, got, tt.terminal)
			}
		})
	}
}

func TestNormalizeStrategy(t *testing.T) {
	tests := []struct {
		in   Strategy
		want Strategy
	}{
		{FailOnError, FailOnError},
		{FlunkOnError, FlunkOnError},
		{FailOnWarning, FailOnWarning},
		{FlunkOnWarning, FlunkOnWarning},
		{Strategy(""), FailOnError},
		{Strategy("retry_forever"), FailOnError},
	}
	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			if got := NormalizeStrategy(tt.in); got != tt.want {
				t.Errorf("NormalizeStrategy(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsValidStrategy(t *testing.T) {
	if !IsValidStrategy(FlunkOnWarning) {
		t.Error("IsValidStrategy(FlunkOnWarning) = false, want true")
	}
	if IsValidStrategy("fail_always") {
		t.Error(`IsValidStrategy("fail_always") = true, want false`)
	}
}
