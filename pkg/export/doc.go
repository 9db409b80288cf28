// Package export walks the full Stash scene catalog page by page and
// flattens each scene into a small metadata record.
//
// Stash reports the total scene count on every findScenes page, so the
// extractor freezes the count from the first page and uses it to drive
// termination instead of trusting page lengths. Each page is requested
// exactly once, in order, and progress is reported per processed scene.
//
// Example usage:
//
//	ex, err := export.New(client, export.DefaultConfig())
//	records, err := ex.Run(ctx)
//	path, err := export.WriteMetadata(outputDir, records)
//
// The extractor:
//   - Fetches page 1 to learn the total scene count
//   - Fetches ceil(total/pageSize) pages in total, never refetching
//   - Normalizes scenes in server order into SceneMetadata records
//   - Fails fast when the reported count changes mid-run
//   - Skips (or aborts on) scenes with no files, depending on policy
package export
