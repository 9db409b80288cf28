package export

import (
	"fmt"
	"path/filepath"

	"github.com/tidwall/gjson"
)

// SceneMetadata is the flattened record written to the export file.
type SceneMetadata struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Filename string  `json:"filename"`
	Duration float64 `json:"duration"`
	Sprites  string  `json:"sprites"`
}

// MalformedSceneError reports a scene that lacks the fields the transform
// needs, currently always a scene with no files.
type MalformedSceneError struct {
	ID     string
	Reason string
}

// Error implements the error interface.
func (e *MalformedSceneError) Error() string {
	return fmt.Sprintf("malformed scene %q: %s", e.ID, e.Reason)
}

// NormalizeScene flattens one raw scene object into a SceneMetadata record.
// The scene stays opaque JSON; only the guaranteed fields are plucked out.
// Title falls back to the filename when the scene has no title set.
func NormalizeScene(raw []byte) (SceneMetadata, error) {
	id := gjson.GetBytes(raw, "id").String()

	files := gjson.GetBytes(raw, "files").Array()
	if len(files) == 0 {
		return SceneMetadata{}, &MalformedSceneError{ID: id, Reason: "no files"}
	}

	first := files[0]
	filename := filepath.Base(first.Get("path").String())

	title := gjson.GetBytes(raw, "title").String()
	if title == "" {
		title = filename
	}

	return SceneMetadata{
		ID:       id,
		Title:    title,
		Filename: filename,
		Duration: first.Get("duration").Float(),
		Sprites:  gjson.GetBytes(raw, "paths.sprite").String(),
	}, nil
}
