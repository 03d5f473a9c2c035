// Package catalog answers the two questions the experiment engine asks of the
// production skill and tool registries: "does skill X exist" and "does tool Y
// exist".
//
// # Implementations
//
//   - Static: in-memory sets, used for tests and for embedding a fixed catalog.
//   - File: a YAML document listing skills and tools, optionally hot reloaded
//     with fsnotify when the file changes on disk.
//   - Remote: an HTTP registry queried per lookup.
//
// # Failure Semantics
//
// A lookup returns (false, nil) when the registry answered and the name is not
// registered. It returns an *UnavailableError when the registry could not be
// consulted at all. Callers must keep the two apart: a missing skill rejects an
// experiment definition outright, an unavailable catalog blocks admission with
// a retryable error.
//
//	v := catalog.NewStatic([]string{"summarize"}, []string{"web_search"})
//	ok, err := v.SkillExists(ctx, "summarize")
//	if errors.Is(err, catalog.ErrUnavailable) {
//	    // retry later
//	}
package catalog
