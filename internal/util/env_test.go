package util

import "testing"

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"true", false, true},
		{"1", false, true},
		{"yes", false, true},
		{"ON", false, true},
		{"false", true, false},
		{"0", true, false},
		{"no", true, false},
		{"off", true, false},
		{" True ", false, true},
		{"maybe", true, true},
		{"maybe", false, false},
	}
	for _, tt := range tests {
		t.Setenv("SUPPORTLINE_TEST_BOOL", tt.value)
		if got := ParseBoolEnv("SUPPORTLINE_TEST_BOOL", tt.def); got != tt.want {
			t.Errorf("ParseBoolEnv(%q, %t) = %t, want %t", tt.value, tt.def, got, tt.want)
		}
	}
}

func TestParseBoolEnvUnsetReturnsDefault(t *testing.T) {
	if got := ParseBoolEnv("SUPPORTLINE_TEST_BOOL_UNSET", true); !got {
		t.Error("unset variable should return the default")
	}
}

func TestParseIntEnv(t *testing.T) {
	t.Setenv("SUPPORTLINE_TEST_INT", "42")
	if got := ParseIntEnv("SUPPORTLINE_TEST_INT", 7); got != 42 {
		t.Errorf("ParseIntEnv = %d, want 42", got)
	}
	t.Setenv("SUPPORTLINE_TEST_INT", "not a number")
	if got := ParseIntEnv("SUPPORTLINE_TEST_INT", 7); got != 7 {
		t.Errorf("ParseIntEnv with invalid value = %d, want default 7", got)
	}
}

func TestParseIntEnvUnsetReturnsDefault(t *testing.T) {
	if got := ParseIntEnv("SUPPORTLINE_TEST_INT_UNSET", 7); got != 7 {
		t.Error("unset variable should return the default")
	}
}
