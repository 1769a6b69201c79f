package diagram

import "testing"

func TestIsPlaceholder(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Context 1", true},
		{"context 12", true},
		{"CONTEXT 3", true},
		{"Attribute 2", true},
		{"Branch 1", true},
		{"New Branch 4", true},
		{"New", true},
		{"new", true},
		{"联想 1", true},
		{"属性3", true},
		{"分支 2", true},
		{"新分支 1", true},
		{"新 2", true},
		{"新", true},

		{"", false},
		{"   ", false},
		{"Red planet", false},
		{"Context", false},
		{"Context about Mars", false},
		{"Branching factor", false},
		{"新能源汽车", false},
		{"属性工程", false},
	}

	for _, tc := range tests {
		if got := IsPlaceholder(tc.text); got != tc.want {
			t.Errorf("IsPlaceholder(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}
