package queue

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "queue.json")

	q, _ := Add(Queue{},
		Candidate{Name: "docker", Type: TypeCask},
		Candidate{Name: "jq", Type: TypeFormula},
	)

	if err := Save(path, q); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("len = %d, want 2", len(loaded))
	}
	if loaded[0].ID != "cask:docker" || loaded[1].ID != "formula:jq" {
		t.Errorf("order not preserved: %v, %v", loaded[0].ID, loaded[1].ID)
	}
}

func TestLoad_ResetsInterruptedInstalls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")

	q := Queue{
		{ID: "formula:jq", Name: "jq", Type: TypeFormula, Status: StatusInstalling},
		{ID: "cask:docker", Name: "docker", Type: TypeCask, Status: StatusSuccess},
	}
	if err := Save(path, q); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded[0].Status != StatusPending {
		t.Errorf("interrupted item status = %q, want pending", loaded[0].Status)
	}
	if loaded[1].Status != StatusSuccess {
		t.Errorf("terminal item status = %q, want success", loaded[1].Status)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	q, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(q) != 0 {
		t.Errorf("len = %d, want 0", len(q))
	}
}

func TestLoadPreset_BareList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preset.json")
	data := `[{"name":"wget","type":"formula"},{"name":"docker","type":"cask"}]`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	items, err := LoadPreset(path)
	if err != nil {
		t.Fatalf("LoadPreset: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].Status != StatusPending {
		t.Errorf("status = %q, want pending", items[0].Status)
	}
}

func TestLoadPreset_Snapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preset.json")
	data := `{"items":[{"id":"formula:git","name":"git","type":"formula","status":"pending"}]}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	items, err := LoadPreset(path)
	if err != nil {
		t.Fatalf("LoadPreset: %v", err)
	}
	if len(items) != 1 || items[0].ID != "formula:git" {
		t.Errorf("items = %+v", items)
	}
}
