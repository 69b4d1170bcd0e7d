package predictor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/letsgopredict/battlepredict/internal/model"
)

// localBundle is the flat on-disk fallback layout: model.bin and
// scalers.pkl directly under localDir, with no registry index or
// versioning (spec.md §4.7: "a bundle from the local filesystem at a
// well-known path"). metadata.json is optional here (unlike a registry
// version) but read when present so the schema-mismatch guard (spec.md §3
// invariant iv) still applies to the fallback source.
type localBundle struct {
	modelBytes          []byte
	scalersBytes        []byte
	metadataColumnOrder []string
}

func loadLocalFallback(dir string) (localBundle, error) {
	modelBytes, err := os.ReadFile(filepath.Join(dir, "model.bin"))
	if err != nil {
		return localBundle{}, fmt.Errorf("predictor: read local fallback model.bin: %w", err)
	}
	scalersBytes, err := os.ReadFile(filepath.Join(dir, "scalers.pkl"))
	if err != nil {
		return localBundle{}, fmt.Errorf("predictor: read local fallback scalers.pkl: %w", err)
	}
	lb := localBundle{modelBytes: modelBytes, scalersBytes: scalersBytes}

	if metaBytes, mErr := os.ReadFile(filepath.Join(dir, "metadata.json")); mErr == nil {
		var meta model.Metadata
		if jErr := json.Unmarshal(metaBytes, &meta); jErr == nil {
			lb.metadataColumnOrder = meta.ColumnOrder
		}
	}
	return lb, nil
}
