package catalog

import (
	"context"
	"time"
)

// Validator performs read-only lookups against the skill and tool registries.
// Implementations must be safe for concurrent use and must not have side
// effects.
type Validator interface {
	// SkillExists reports whether name is a registered skill.
	SkillExists(ctx context.Context, name string) (bool, error)

	// ToolExists reports whether name is a registered tool.
	ToolExists(ctx context.Context, name string) (bool, error)
}

// Mode selects the catalog implementation built by New.
type Mode string

const (
	ModeStatic Mode = "static"
	ModeFile   Mode = "file"
	ModeRemote Mode = "remote"
)

// Config configures the catalog validator.
type Config struct {
	// Mode is one of "static", "file" or "remote".
	Mode Mode

	// Skills and Tools seed the static catalog.
	Skills []string
	Tools  []string

	// Path is the YAML catalog file for file mode.
	Path string

	// Watch enables hot reload of the catalog file.
	Watch bool

	// DebounceInterval delays reloads after bursts of file events.
	DebounceInterval time.Duration

	// URL is the base URL of the remote registry.
	URL string

	// Timeout bounds a single remote lookup.
	Timeout time.Duration
}

// Document is the on-disk shape of a file catalog.
type Document struct {
	Skills []string `yaml:"skills"`
	Tools  []string `yaml:"tools"`
}

// Kind distinguishes skill lookups from tool lookups in errors and logs.
type Kind string

const (
	KindSkill Kind = "skill"
	KindTool  Kind = "tool"
)
