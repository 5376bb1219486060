package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type Catalogs struct {
	Blocks BlockCatalog
	Items  ItemCatalog
}

type BlockCatalog struct {
	Palette []string
	Defs    map[string]BlockDef
	Digest  string
}

type BlockDef struct {
	ID    string `json:"id"`
	Solid bool   `json:"solid"`
	// Container kind for blocks that hold an inventory ("CHEST", "HOPPER", "FURNACE", "DISPENSER").
	Container string `json:"container,omitempty"`
	// Theme colors used by container previews (hex "#rrggbb").
	Trim   string `json:"trim,omitempty"`
	Panel  string `json:"panel,omitempty"`
	Header string `json:"header,omitempty"`
}

type ItemCatalog struct {
	Palette []string
	Defs    map[string]ItemDef
	Digest  string
}

type ItemDef struct {
	ID string `json:"id"`
	// Block items render as a placed block (rotated cube) instead of a flat sprite.
	Block bool `json:"block"`
	// Flat overrides Block for thin block items (panes, flowers, grass).
	Flat bool `json:"flat,omitempty"`
}

const Air = "AIR"

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs
	if err := loadBlocks(filepath.Join(configDir, "blocks.json"), &c.Blocks); err != nil {
		return nil, err
	}
	if err := loadItems(filepath.Join(configDir, "items.json"), &c.Items); err != nil {
		return nil, err
	}
	return &c, nil
}

// Defaults is a minimal built-in catalog used by tests and when no config directory exists.
func Defaults() *Catalogs {
	blocks := []BlockDef{
		{ID: Air},
		{ID: "STONE", Solid: true},
		{ID: "DIRT", Solid: true},
		{ID: "GLASS", Solid: true},
		{ID: "TORCH"},
		{ID: "SHORT_GRASS"},
		{ID: "CHEST", Solid: true, Container: "CHEST", Header: "Chest"},
		{ID: "BARREL", Solid: true, Container: "CHEST", Header: "Barrel"},
		{ID: "SHULKER_BOX", Solid: true, Container: "CHEST", Header: "Shulker Box", Trim: "#a070b0"},
		{ID: "HOPPER", Solid: true, Container: "HOPPER", Header: "Hopper", Trim: "#555555"},
		{ID: "DISPENSER", Solid: true, Container: "DISPENSER", Header: "Dispenser"},
		{ID: "DROPPER", Solid: true, Container: "DISPENSER", Header: "Dropper"},
		{ID: "FURNACE", Solid: true, Container: "FURNACE", Header: "Furnace"},
		{ID: "SMOKER", Solid: true, Container: "FURNACE", Header: "Smoker"},
		{ID: "BLAST_FURNACE", Solid: true, Container: "FURNACE", Header: "Blast Furnace"},
	}
	items := []ItemDef{
		{ID: "STONE", Block: true},
		{ID: "DIRT", Block: true},
		{ID: "GLASS_PANE", Block: true, Flat: true},
		{ID: "SHORT_GRASS", Block: true, Flat: true},
		{ID: "HOPPER", Block: true, Flat: true},
		{ID: "BARRIER", Block: true, Flat: true},
		{ID: "DIAMOND"},
		{ID: "IRON_INGOT"},
		{ID: "COAL"},
		{ID: "BREAD"},
	}
	c := &Catalogs{}
	c.Blocks.index(blocks)
	c.Items.index(items)
	return c
}

func (c *BlockCatalog) Solid(id string) bool {
	if id == "" || id == Air {
		return false
	}
	d, ok := c.Defs[id]
	if !ok {
		// Unknown blocks occlude.
		return true
	}
	return d.Solid
}

func (c *BlockCatalog) ContainerKind(id string) string {
	return c.Defs[id].Container
}

// RendersAsBlock reports whether an item icon should be drawn as a placed block.
func (c *ItemCatalog) RendersAsBlock(id string) bool {
	d, ok := c.Defs[id]
	return ok && d.Block && !d.Flat
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadBlocks(path string, out *BlockCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var defs []BlockDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("blocks.json: %w", err)
	}
	for _, d := range defs {
		if strings.TrimSpace(d.ID) == "" {
			return fmt.Errorf("blocks.json: empty id")
		}
	}
	out.index(defs)
	if _, ok := out.Defs[Air]; !ok {
		return fmt.Errorf("blocks.json: missing AIR")
	}
	out.Digest = sha256Hex(raw)
	return nil
}

func loadItems(path string, out *ItemCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var defs []ItemDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("items.json: %w", err)
	}
	for _, d := range defs {
		if strings.TrimSpace(d.ID) == "" {
			return fmt.Errorf("items.json: empty id")
		}
	}
	out.index(defs)
	out.Digest = sha256Hex(raw)
	return nil
}

func (c *BlockCatalog) index(defs []BlockDef) {
	c.Defs = make(map[string]BlockDef, len(defs))
	for _, d := range defs {
		c.Defs[d.ID] = d
	}
	c.Palette = sortedKeys(c.Defs)
	if c.Digest == "" {
		b, _ := json.Marshal(defs)
		c.Digest = sha256Hex(b)
	}
}

func (c *ItemCatalog) index(defs []ItemDef) {
	c.Defs = make(map[string]ItemDef, len(defs))
	for _, d := range defs {
		c.Defs[d.ID] = d
	}
	c.Palette = sortedKeys(c.Defs)
	if c.Digest == "" {
		b, _ := json.Marshal(defs)
		c.Digest = sha256Hex(b)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
