package catalogs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	blocks := `[{"id":"AIR"},{"id":"STONE","solid":true},{"id":"CHEST","solid":true,"container":"CHEST"}]`
	items := `[{"id":"STONE","block":true},{"id":"GLASS_PANE","block":true,"flat":true},{"id":"DIAMOND"}]`
	if err := os.WriteFile(filepath.Join(dir, "blocks.json"), []byte(blocks), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "items.json"), []byte(items), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Blocks.Solid(Air) || !c.Blocks.Solid("STONE") {
		t.Fatalf("unexpected solidity")
	}
	if !c.Blocks.Solid("UNKNOWN_BLOCK") {
		t.Fatalf("unknown blocks should be solid")
	}
	if got := c.Blocks.ContainerKind("CHEST"); got != "CHEST" {
		t.Fatalf("container kind = %q", got)
	}
	if !c.Items.RendersAsBlock("STONE") || c.Items.RendersAsBlock("GLASS_PANE") || c.Items.RendersAsBlock("DIAMOND") {
		t.Fatalf("unexpected block rendering flags")
	}
	if c.Blocks.Digest == "" || c.Items.Digest == "" {
		t.Fatalf("missing digests")
	}
}

func TestLoad_MissingAir(t *testing.T) {
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "blocks.json"), []byte(`[{"id":"STONE","solid":true}]`), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "items.json"), []byte(`[]`), 0o644)
	if _, err := Load(dir); err == nil {
		t.Fatalf("expected error for missing AIR")
	}
}

func TestDefaults(t *testing.T) {
	c := Defaults()
	if c.Blocks.ContainerKind("HOPPER") != "HOPPER" {
		t.Fatalf("hopper container kind missing")
	}
	if c.Blocks.Solid("TORCH") {
		t.Fatalf("torch should be passable")
	}
}
