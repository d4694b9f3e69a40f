package config

import "testing"

func TestLoadClampsDefaultElasticity(t *testing.T) {
	tests := []struct {
		env  string
		want float64
	}{
		{"", 1},
		{"0.4", 0.4},
		{"1.7", 1},
		{"-0.3", 0},
		{"NaN", 1},
		{"bouncy", 1},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv("DEFAULT_ELASTICITY", tt.env)
			if got := Load().DefaultElasticity; got != tt.want {
				t.Errorf("DEFAULT_ELASTICITY=%q: got %v, want %v", tt.env, got, tt.want)
			}
		})
	}
}
