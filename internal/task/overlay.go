package task

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// overlayFile is the on-disk shape of an optional task catalog overlay: a
// YAML document naming additional or replacement tasks by slug.
type overlayFile struct {
	CodeTasks []CodeTask `yaml:"codeTasks"`
	ToolTasks []ToolTask `yaml:"toolTasks"`
}

// ExpandEnv expands ${VAR}/$VAR references in overlay YAML before parsing,
// grounded on the teacher's config.ExpandEnv.
func ExpandEnv(data []byte) []byte {
	return []byte(os.ExpandEnv(string(data)))
}

// LoadOverlay parses an overlay YAML document.
func LoadOverlay(data []byte) (*overlayFile, error) {
	var f overlayFile
	if err := yaml.Unmarshal(ExpandEnv(data), &f); err != nil {
		return nil, fmt.Errorf("parse task overlay: %w", err)
	}
	return &f, nil
}

// MergeOverlay layers an overlay file's tasks over the built-in catalog.
// Overlay entries override built-ins with the same slug, grounded on the
// teacher's mergeAgents/mergeMCPServers "built-in, then override" pattern.
func MergeOverlay(base *Catalog, overlay *overlayFile) *Catalog {
	merged := &Catalog{
		CodeTasks: make(map[string]CodeTask, len(base.CodeTasks)),
		ToolTasks: make(map[string]ToolTask, len(base.ToolTasks)),
	}
	for slug, t := range base.CodeTasks {
		merged.CodeTasks[slug] = t
	}
	for slug, t := range base.ToolTasks {
		merged.ToolTasks[slug] = t
	}
	if overlay == nil {
		return merged
	}
	for _, t := range overlay.CodeTasks {
		merged.CodeTasks[t.Slug] = t
	}
	for _, t := range overlay.ToolTasks {
		merged.ToolTasks[t.Slug] = t
	}
	return merged
}
