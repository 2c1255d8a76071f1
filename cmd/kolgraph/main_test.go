package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadJSONFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.json")
	if err := os.WriteFile(path, []byte(`{"product_info": {"name": "bike"}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	var in workflowInput
	if err := readJSONFile(path, &in); err != nil {
		t.Fatalf("readJSONFile: %v", err)
	}
	if in.ProductInfo["name"] != "bike" {
		t.Errorf("name = %v, want bike", in.ProductInfo["name"])
	}
}

func TestReadJSONFile_Missing(t *testing.T) {
	var in workflowInput
	if err := readJSONFile(filepath.Join(t.TempDir(), "nope.json"), &in); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestGraphCmd_UnknownGraph(t *testing.T) {
	cmd := graphCmd()
	cmd.SetArgs([]string{"mystery"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for unknown graph name")
	}
}

func TestGraphCmd_RendersDOT(t *testing.T) {
	for _, name := range []string{"workflow", "product", "profile", "intent", "panel"} {
		cmd := graphCmd()
		cmd.SetArgs([]string{name})
		if err := cmd.Execute(); err != nil {
			t.Errorf("graph %s: %v", name, err)
		}
	}
}
