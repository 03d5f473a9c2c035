package catalog

import (
	"context"
	"sync"
)

// Static is an in-memory catalog. The zero value is an empty catalog.
type Static struct {
	mu     sync.RWMutex
	skills map[string]struct{}
	tools  map[string]struct{}
}

// NewStatic creates a catalog containing the given skills and tools.
func NewStatic(skills, tools []string) *Static {
	s := &Static{}
	s.Replace(skills, tools)
	return s
}

// SkillExists implements Validator.
func (s *Static) SkillExists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, NewUnavailableError("static", KindSkill, name, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.skills[name]
	return ok, nil
}

// ToolExists implements Validator.
func (s *Static) ToolExists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, NewUnavailableError("static", KindTool, name, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tools[name]
	return ok, nil
}

// Replace atomically swaps the catalog contents.
func (s *Static) Replace(skills, tools []string) {
	skillSet := toSet(skills)
	toolSet := toSet(tools)

	s.mu.Lock()
	s.skills = skillSet
	s.tools = toolSet
	s.mu.Unlock()
}

// Counts returns the number of registered skills and tools.
func (s *Static) Counts() (skills, tools int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.skills), len(s.tools)
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		set[n] = struct{}{}
	}
	return set
}
