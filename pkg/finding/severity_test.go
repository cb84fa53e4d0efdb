package finding

import "testing"

func TestSeverity_RankOrdering(t *testing.T) {
	t.Parallel()

	ordered := []Severity{Info, Low, Medium, High, Critical}
	for i := 1; i < len(ordered); i++ {
		if ordered[i].Rank() <= ordered[i-1].Rank() {
			t.Errorf("%s rank %d must exceed %s rank %d",
				ordered[i], ordered[i].Rank(), ordered[i-1], ordered[i-1].Rank())
		}
		if ordered[i].Impact() <= ordered[i-1].Impact() {
			t.Errorf("%s impact %v must exceed %s impact %v",
				ordered[i], ordered[i].Impact(), ordered[i-1], ordered[i-1].Impact())
		}
	}
}

func TestSeverity_ImpactWeights(t *testing.T) {
	t.Parallel()

	want := map[Severity]float64{
		Critical: 10,
		High:     8,
		Medium:   5,
		Low:      2,
		Info:     1,
	}
	for sev, impact := range want {
		if got := sev.Impact(); got != impact {
			t.Errorf("%s impact = %v, want %v", sev, got, impact)
		}
	}
}

func TestParseSeverity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want Severity
	}{
		{"critical", Critical},
		{"high", High},
		{"medium", Medium},
		{"low", Low},
		{"info", Info},
		{"unknown", Info},
		{"", Info},
	}
	for _, tt := range tests {
		if got := ParseSeverity(tt.raw); got != tt.want {
			t.Errorf("ParseSeverity(%q) = %s, want %s", tt.raw, got, tt.want)
		}
	}
}

func TestSeverity_IsValid(t *testing.T) {
	t.Parallel()

	for _, s := range []Severity{Critical, High, Medium, Low, Info} {
		if !s.IsValid() {
			t.Errorf("%s must be valid", s)
		}
	}
	if Severity("urgent").IsValid() {
		t.Error("unrecognized severity must not be valid")
	}
}
