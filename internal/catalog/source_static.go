package catalog

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
)

//go:embed data/catalog.json
var staticFS embed.FS

// StaticSource serves the reference catalog bundled with the binary. It is the
// default source for development and the fallback when no database is wired.
type StaticSource struct{}

func NewStaticSource() StaticSource { return StaticSource{} }

func (StaticSource) Load(_ context.Context) (Data, error) {
	raw, err := staticFS.ReadFile("data/catalog.json")
	if err != nil {
		return Data{}, fmt.Errorf("read embedded catalog: %w", err)
	}
	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return Data{}, fmt.Errorf("decode embedded catalog: %w", err)
	}
	return data, nil
}
