package fileio

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	yamlv3 "gopkg.in/yaml.v3"
)

func TestAtomicWriteJSON_Success(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.json")

	data := []map[string]any{{"project": "p1", "push_count": 1}}
	if err := AtomicWriteJSON(path, data); err != nil {
		t.Fatalf("AtomicWriteJSON failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	var result []map[string]any
	if err := json.Unmarshal(content, &result); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if len(result) != 1 || result[0]["project"] != "p1" {
		t.Errorf("got %v", result)
	}
}

func TestAtomicWriteJSON_CreatesBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.json")

	if err := AtomicWriteJSON(path, map[string]string{"version": "1"}); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if err := AtomicWriteJSON(path, map[string]string{"version": "2"}); err != nil {
		t.Fatalf("second write failed: %v", err)
	}

	bakContent, err := os.ReadFile(path + ".bak")
	if err != nil {
		t.Fatalf("ReadFile .bak failed: %v", err)
	}
	var bakData map[string]string
	if err := json.Unmarshal(bakContent, &bakData); err != nil {
		t.Fatalf("Unmarshal .bak failed: %v", err)
	}
	if bakData["version"] != "1" {
		t.Errorf("backup version: got %q, want %q", bakData["version"], "1")
	}

	curContent, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile current failed: %v", err)
	}
	var curData map[string]string
	if err := json.Unmarshal(curContent, &curData); err != nil {
		t.Fatalf("Unmarshal current failed: %v", err)
	}
	if curData["version"] != "2" {
		t.Errorf("current version: got %q, want %q", curData["version"], "2")
	}
}

func TestAtomicWriteRaw_InvalidJSONLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.json")

	if err := AtomicWriteRaw(path, []byte(`[{"broken":`), ValidateJSON); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file should not exist after failed write")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".taskcoord-tmp-") {
			t.Errorf("unexpected temp file remaining: %s", entry.Name())
		}
	}
}

func TestAtomicWriteRaw_InvalidWriteKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.json")

	if err := AtomicWriteJSON(path, []string{"a"}); err != nil {
		t.Fatalf("seed write failed: %v", err)
	}
	if err := AtomicWriteRaw(path, []byte("{"), ValidateJSON); err == nil {
		t.Fatal("expected validation error")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !json.Valid(content) {
		t.Errorf("previous content corrupted: %q", content)
	}
}

func TestAtomicWriteYAML_StructData(t *testing.T) {
	type testStruct struct {
		Name    string `yaml:"name"`
		Version int    `yaml:"version"`
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "taskcoord.yaml")

	if err := AtomicWriteYAML(path, &testStruct{Name: "taskcoord", Version: 2}); err != nil {
		t.Fatalf("AtomicWriteYAML failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	var result testStruct
	if err := yamlv3.Unmarshal(content, &result); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if result.Name != "taskcoord" || result.Version != 2 {
		t.Errorf("got %+v", result)
	}
}
