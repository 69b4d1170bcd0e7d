package train

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// treeDump and modelDump are exported mirrors of histogramTree/Model with
// gob-friendly exported fields; node itself stays unexported since nothing
// outside this package constructs one directly. No model-serialization
// library exists anywhere in the example pack (the one hand-rolled trainer
// that exists, the logreg example, never persists its weights at all), so
// model.bin uses encoding/gob — see DESIGN.md for why no third-party
// library was substituted here.
type treeDump struct {
	IsLeaf    bool
	Value     float64
	Feature   int
	Threshold float64
	Left      *treeDump
	Right     *treeDump
}

type modelDump struct {
	Params      Params
	BaseScore   float64
	NumFeatures int
	Trees       []*treeDump
}

func dumpNode(n *node) *treeDump {
	if n == nil {
		return nil
	}
	return &treeDump{
		IsLeaf:    n.isLeaf,
		Value:     n.value,
		Feature:   n.feature,
		Threshold: n.threshold,
		Left:      dumpNode(n.left),
		Right:     dumpNode(n.right),
	}
}

func loadNode(d *treeDump) *node {
	if d == nil {
		return nil
	}
	return &node{
		isLeaf:    d.IsLeaf,
		value:     d.Value,
		feature:   d.Feature,
		threshold: d.Threshold,
		left:      loadNode(d.Left),
		right:     loadNode(d.Right),
	}
}

// MarshalBinary encodes the model for persistence as model.bin.
func (m *Model) MarshalBinary() ([]byte, error) {
	dump := modelDump{Params: m.Params, BaseScore: m.BaseScore, NumFeatures: m.NumFeatures}
	for _, t := range m.Trees {
		dump.Trees = append(dump.Trees, dumpNode(t.root))
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(dump); err != nil {
		return nil, fmt.Errorf("train: encode model: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalModel decodes a model.bin blob produced by MarshalBinary.
func UnmarshalModel(data []byte) (*Model, error) {
	var dump modelDump
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&dump); err != nil {
		return nil, fmt.Errorf("train: decode model: %w", err)
	}
	m := &Model{Params: dump.Params, BaseScore: dump.BaseScore, NumFeatures: dump.NumFeatures}
	for _, root := range dump.Trees {
		m.Trees = append(m.Trees, &histogramTree{root: loadNode(root)})
	}
	return m, nil
}
