package problemtype

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    ProblemType
		wantErr bool
	}{
		{"binary", Binary, false},
		{"BINARY", Binary, false},
		{"multi", Multiclass, false},
		{"multiclass", Multiclass, false},
		{"regression", Regression, false},
		{"time_series_regression", TimeSeriesRegression, false},
		{"time series  binary", TimeSeriesBinary, false},
		{"clustering", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		p                                  ProblemType
		binary, multi, class, reg, series bool
	}{
		{Binary, true, false, true, false, false},
		{Multiclass, false, true, true, false, false},
		{Regression, false, false, false, true, false},
		{TimeSeriesBinary, true, false, true, false, true},
		{TimeSeriesMulticlass, false, true, true, false, true},
		{TimeSeriesRegression, false, false, false, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.p.String(), func(t *testing.T) {
			if tt.p.IsBinary() != tt.binary || tt.p.IsMulticlass() != tt.multi ||
				tt.p.IsClassification() != tt.class || tt.p.IsRegression() != tt.reg ||
				tt.p.IsTimeSeries() != tt.series {
				t.Errorf("unexpected predicates for %v", tt.p)
			}
		})
	}
	if TimeSeriesMulticlass.NonTimeSeries() != Multiclass {
		t.Error("NonTimeSeries should strip the time series flag")
	}
}

func TestTextRoundTrip(t *testing.T) {
	for _, p := range All() {
		text, _ := p.MarshalText()
		var back ProblemType
		if err := back.UnmarshalText(text); err != nil || back != p {
			t.Errorf("round trip of %v gave %v (%v)", p, back, err)
		}
	}
}
