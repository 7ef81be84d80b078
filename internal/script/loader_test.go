package script

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadBuiltins(t *testing.T) {
	templates, err := LoadBuiltins()
	if err != nil {
		t.Fatalf("LoadBuiltins: %v", err)
	}
	if len(templates) == 0 {
		t.Fatal("no builtin templates")
	}

	seen := map[string]bool{}
	for _, tpl := range templates {
		if tpl.ID == "" {
			t.Error("builtin template with empty ID")
		}
		if seen[tpl.ID] {
			t.Errorf("duplicate builtin ID %q", tpl.ID)
		}
		seen[tpl.ID] = true
		if len(tpl.Step.Commands) == 0 {
			t.Errorf("builtin %q has no commands", tpl.ID)
		}
	}

	if !seen["git-ssh-key"] {
		t.Error("git-ssh-key builtin missing")
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	data := `
id: custom
name: Custom
description: A user template.
category: misc
suggested_for: [wget]
step:
  name: Do things
  condition: always
  commands:
    - echo hello
`
	if err := os.WriteFile(filepath.Join(dir, "custom.yaml"), []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	// Non-YAML files are ignored.
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("nope"), 0644); err != nil {
		t.Fatal(err)
	}

	templates, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(templates) != 1 || templates[0].ID != "custom" {
		t.Errorf("templates = %v", ids(templates))
	}
	if templates[0].Step.Commands[0] != "echo hello" {
		t.Errorf("commands = %v", templates[0].Step.Commands)
	}
}

func TestLoadDir_Missing(t *testing.T) {
	templates, err := LoadDir(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(templates) != 0 {
		t.Errorf("templates = %v", ids(templates))
	}
}

func TestLoadDir_InvalidTemplate(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("id: bad\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadDir(dir); err == nil {
		t.Error("expected error for template without step commands")
	}
}

func TestLoadDir_BareURLPlaceholderRejected(t *testing.T) {
	dir := t.TempDir()
	data := `
id: dl
name: Download
description: Fetches a file.
category: misc
step:
  name: fetch
  condition: always
  prompt_for_input:
    url:
      message: Source URL
      validation: url
  commands:
    - curl -fsSL {{url}} -o out
`
	if err := os.WriteFile(filepath.Join(dir, "dl.yaml"), []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadDir(dir); err == nil {
		t.Error("expected error for unquoted url placeholder")
	}
}

func TestLoadAll_UserOverridesBuiltin(t *testing.T) {
	dir := t.TempDir()
	data := `
id: git-ssh-key
name: My own key setup
description: Replaces the builtin.
category: git
step:
  name: Custom key
  condition: always
  commands:
    - echo custom
`
	if err := os.WriteFile(filepath.Join(dir, "override.yaml"), []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	templates, err := LoadAll(dir)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}

	count := 0
	for _, tpl := range templates {
		if tpl.ID == "git-ssh-key" {
			count++
			if tpl.Name != "My own key setup" {
				t.Errorf("builtin not overridden: %q", tpl.Name)
			}
		}
	}
	if count != 1 {
		t.Errorf("git-ssh-key appears %d times, want 1", count)
	}
}

func TestLoadAll_DuplicateUserIDs(t *testing.T) {
	dir := t.TempDir()
	data := `
id: dup
name: D
description: d
category: misc
step:
  name: S
  commands: [echo hi]
`
	for _, f := range []string{"a.yaml", "b.yaml"} {
		if err := os.WriteFile(filepath.Join(dir, f), []byte(data), 0644); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := LoadAll(dir); err == nil {
		t.Error("expected error for duplicate template IDs")
	}
}
