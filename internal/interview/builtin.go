package interview

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

type catalogFile struct {
	Templates []Template `yaml:"templates"`
}

var (
	catalogOnce sync.Once
	catalogByID map[string]Template
)

// Builtin looks up a built-in template by its catalog id.
func Builtin(id string) (Template, bool) {
	loadCatalog()
	tpl, ok := catalogByID[id]
	return tpl, ok
}

// BuiltinTemplates returns the full catalog sorted by id.
func BuiltinTemplates() []Template {
	loadCatalog()
	out := make([]Template, 0, len(catalogByID))
	for _, tpl := range catalogByID {
		out = append(out, tpl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// loadCatalog parses and validates the embedded catalog exactly once.
// The catalog ships inside the binary, so a malformed document is a
// programming error, not a runtime condition.
func loadCatalog() {
	catalogOnce.Do(func() {
		var file catalogFile
		if err := yaml.Unmarshal(catalogYAML, &file); err != nil {
			panic(fmt.Sprintf("parse embedded catalog: %v", err))
		}
		if err := validateCatalog(file.Templates); err != nil {
			panic(fmt.Sprintf("invalid embedded catalog: %v", err))
		}

		catalogByID = make(map[string]Template, len(file.Templates))
		for _, tpl := range file.Templates {
			catalogByID[tpl.ID] = tpl
		}
	})
}

func validateCatalog(templates []Template) error {
	if len(templates) == 0 {
		return fmt.Errorf("catalog is empty")
	}

	seen := make(map[string]struct{}, len(templates))
	for _, tpl := range templates {
		if tpl.ID == "" {
			return fmt.Errorf("template %q has no id", tpl.Title)
		}
		if _, dup := seen[tpl.ID]; dup {
			return fmt.Errorf("duplicate template id %q", tpl.ID)
		}
		seen[tpl.ID] = struct{}{}

		if tpl.Title == "" {
			return fmt.Errorf("template %q has no title", tpl.ID)
		}
		if tpl.DurationMinutes <= 0 {
			return fmt.Errorf("template %q has non-positive duration", tpl.ID)
		}
		switch tpl.Difficulty {
		case DifficultyEasy, DifficultyMedium, DifficultyHard:
		default:
			return fmt.Errorf("template %q has unknown difficulty %q", tpl.ID, tpl.Difficulty)
		}
		if len(tpl.Questions) == 0 {
			return fmt.Errorf("template %q has no questions", tpl.ID)
		}
	}
	return nil
}
