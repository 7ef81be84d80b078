package script

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

//go:embed templates/*.yaml
var builtinFS embed.FS

// LoadBuiltins parses the templates compiled into the binary.
func LoadBuiltins() ([]Template, error) {
	entries, err := fs.Glob(builtinFS, "templates/*.yaml")
	if err != nil {
		return nil, err
	}

	var templates []Template
	for _, name := range entries {
		data, err := builtinFS.ReadFile(name)
		if err != nil {
			return nil, err
		}
		tpl, err := parseTemplate(data)
		if err != nil {
			return nil, fmt.Errorf("builtin template %s: %w", name, err)
		}
		templates = append(templates, tpl)
	}
	return templates, nil
}

// LoadDir parses every *.yaml / *.yml template in dir. A missing directory
// yields no templates, not an error.
func LoadDir(dir string) ([]Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var templates []Template
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		tpl, err := parseTemplate(data)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", entry.Name(), err)
		}
		templates = append(templates, tpl)
	}
	return templates, nil
}

// LoadAll merges builtin templates with those from dir. A user template
// whose ID matches a builtin replaces it; duplicate IDs within dir are an
// error (template IDs must be unique).
func LoadAll(dir string) ([]Template, error) {
	builtins, err := LoadBuiltins()
	if err != nil {
		return nil, err
	}

	user, err := LoadDir(dir)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(user))
	for _, tpl := range user {
		if seen[tpl.ID] {
			return nil, fmt.Errorf("duplicate template id %q in %s", tpl.ID, dir)
		}
		seen[tpl.ID] = true
	}

	out := make([]Template, 0, len(builtins)+len(user))
	for _, tpl := range builtins {
		if !seen[tpl.ID] {
			out = append(out, tpl)
		}
	}
	out = append(out, user...)
	return out, nil
}

func parseTemplate(data []byte) (Template, error) {
	var tpl Template
	if err := yaml.Unmarshal(data, &tpl); err != nil {
		return Template{}, err
	}
	if tpl.ID == "" {
		return Template{}, fmt.Errorf("missing id")
	}
	if tpl.Step.Name == "" {
		return Template{}, fmt.Errorf("template %q: step has no name", tpl.ID)
	}
	if len(tpl.Step.Commands) == 0 {
		return Template{}, fmt.Errorf("template %q: step has no commands", tpl.ID)
	}
	if err := ValidateURLQuoting(tpl.Step); err != nil {
		return Template{}, fmt.Errorf("template %q: %w", tpl.ID, err)
	}
	return tpl, nil
}
