package models

import "testing"

func TestSafetyCheckStateTerminal(t *testing.T) {
	cases := []struct {
		state SafetyCheckState
		want  bool
	}{
		{SafetyCheckPending, false},
		{SafetyCheckConfirmed, true},
		{SafetyCheckEscalated, true},
		{SafetyCheckCancelled, true},
		{SafetyCheckUnresolved, true},
		// The zero value is not a resolved check.
		{SafetyCheckState(""), false},
		{SafetyCheckState("garbage"), false},
	}

	for _, c := range cases {
		if got := c.state.Terminal(); got != c.want {
			t.Errorf("Terminal(%q) = %v, want %v", c.state, got, c.want)
		}
	}
}
