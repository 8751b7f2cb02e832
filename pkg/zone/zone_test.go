package zone

import "testing"

func TestDefaultLabel(t *testing.T) {
	tests := []struct {
		index int
		want  string
	}{
		{0, "Main"},
		{1, "Sub"},
		{2, "Output 3"},
		{3, "Output 4"},
		{7, "Output 8"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := DefaultLabel(tt.index); got != tt.want {
				t.Errorf("DefaultLabel(%d) = %q, want %q", tt.index, got, tt.want)
			}
		})
	}
}

func TestDefaultType(t *testing.T) {
	tests := []struct {
		name  string
		index int
		total int
		want  OutputType
	}{
		{"sole output is mono", 0, 1, OutputMono},
		{"first of pair is main", 0, 2, OutputMain},
		{"second of pair is sub", 1, 2, OutputSub},
		{"third output is main", 2, 3, OutputMain},
		{"fourth output is main", 3, 4, OutputMain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultType(tt.index, tt.total); got != tt.want {
				t.Errorf("DefaultType(%d, %d) = %v, want %v", tt.index, tt.total, got, tt.want)
			}
		})
	}
}

func TestDefaultZoneLabel(t *testing.T) {
	if got := DefaultZoneLabel(0); got != "Zone 1" {
		t.Errorf("DefaultZoneLabel(0) = %q, want %q", got, "Zone 1")
	}
	if got := DefaultZoneLabel(7); got != "Zone 8" {
		t.Errorf("DefaultZoneLabel(7) = %q, want %q", got, "Zone 8")
	}
}

func TestOutputTypeString(t *testing.T) {
	tests := []struct {
		typ  OutputType
		want string
	}{
		{OutputMono, "MONO"},
		{OutputMain, "MAIN"},
		{OutputSub, "SUB"},
		{OutputLeft, "LEFT"},
		{OutputRight, "RIGHT"},
		{OutputType(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.typ.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestZoneOutputAt(t *testing.T) {
	z := &Zone{
		Index: 2,
		Outputs: []Output{
			{Index: 0, Label: "Main", Type: OutputMain, Param: "ZoneOutput1Gain_2"},
			{Index: 1, Label: "Sub", Type: OutputSub, Param: "ZoneOutput2Gain_2"},
		},
	}

	out, ok := z.OutputAt(1)
	if !ok {
		t.Fatal("OutputAt(1) reported missing output")
	}
	if out.Param != "ZoneOutput2Gain_2" {
		t.Errorf("output param = %q, want %q", out.Param, "ZoneOutput2Gain_2")
	}

	if _, ok := z.OutputAt(2); ok {
		t.Error("OutputAt(2) found an output beyond the end")
	}
	if _, ok := z.OutputAt(-1); ok {
		t.Error("OutputAt(-1) found an output at a negative index")
	}
}
