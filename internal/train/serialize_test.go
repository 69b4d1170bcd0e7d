package train

import "testing"

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	x, y := linearlySeparableData(100, 4, 11)
	m := Fit(DefaultParams(), x[:80], y[:80], x[80:], y[80:])

	data, err := m.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	restored, err := UnmarshalModel(data)
	if err != nil {
		t.Fatalf("UnmarshalModel: %v", err)
	}
	if len(restored.Trees) != len(m.Trees) {
		t.Fatalf("tree count mismatch: got %d want %d", len(restored.Trees), len(m.Trees))
	}
	for i, row := range x[:10] {
		if got, want := restored.PredictProba(row), m.PredictProba(row); got != want {
			t.Fatalf("row %d: restored prediction %v != original %v", i, got, want)
		}
	}
}
