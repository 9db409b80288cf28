package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// WriteMetadata writes the records as a JSON document named with the run
// timestamp inside dir, and returns the path of the written file. The write
// is all-or-nothing; on failure nothing useful is left behind and the
// caller drops the in-memory result.
func WriteMetadata(dir string, records []SceneMetadata) (string, error) {
	data, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("marshal scene metadata: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("stash_metadata_%d.json", time.Now().Unix()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write metadata file: %w", err)
	}

	return path, nil
}
