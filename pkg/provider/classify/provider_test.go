package classify

import "testing"

func TestTop(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		scores []Score
		want   string
		ok     bool
	}{
		{"empty", nil, "", false},
		{"single", []Score{{"a", 0.4}}, "a", true},
		{"picks max", []Score{{"a", 0.2}, {"b", 0.7}, {"c", 0.1}}, "b", true},
		{"tie keeps first", []Score{{"a", 0.5}, {"b", 0.5}}, "a", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := Top(tt.scores)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && got.Label != tt.want {
				t.Errorf("Top label = %q, want %q", got.Label, tt.want)
			}
		})
	}
}
