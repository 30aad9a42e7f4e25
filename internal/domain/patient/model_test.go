package patient

import "testing"

func TestStatusValid(t *testing.T) {
	valid := []Status{StatusNotStarted, StatusInProgress, StatusCompleted}
	for _, s := range valid {
		if !s.Valid() {
			t.Errorf("expected %q to be valid", s)
		}
	}

	invalid := []Status{"", "active", "in progress", "done"}
	for _, s := range invalid {
		if s.Valid() {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

func TestStatusColor(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusNotStarted, "secondary"},
		{StatusInProgress, "danger"},
		{StatusCompleted, "success"},
		{Status("bogus"), "light"},
	}
	for _, tt := range tests {
		if got := tt.status.Color(); got != tt.want {
			t.Errorf("Color(%q) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestStatusLabel(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusNotStarted, "роды не начались"},
		{StatusInProgress, "в родах"},
		{StatusCompleted, "роды завершены"},
	}
	for _, tt := range tests {
		if got := tt.status.Label(); got != tt.want {
			t.Errorf("Label(%q) = %q, want %q", tt.status, got, tt.want)
		}
	}
}
