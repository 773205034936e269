// Package bundle loads an exported organisation bundle from disk and replays
// it through the concept and dashboard services.
package bundle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/ombhardwajj/avni-server/internal/domain/concept"
	"github.com/ombhardwajj/avni-server/internal/domain/dashboard"
	"github.com/ombhardwajj/avni-server/internal/platform/auth"
)

// Bundle is the subset of an export this server understands.
type Bundle struct {
	Concepts        []concept.Contract
	GroupDashboards []dashboard.BundleContract
}

func (b *Bundle) Empty() bool {
	return len(b.Concepts) == 0 && len(b.GroupDashboards) == 0
}

var extensions = []string{".json", ".yaml", ".yml"}

// Load reads concepts and groupDashboards from dir. Each may be stored as
// JSON or YAML; a missing file leaves that section empty.
func Load(dir string) (*Bundle, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("bundle dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("bundle dir: %s is not a directory", dir)
	}

	var b Bundle
	if err := decodeFirst(dir, "concepts", &b.Concepts); err != nil {
		return nil, err
	}
	if err := decodeFirst(dir, "groupDashboards", &b.GroupDashboards); err != nil {
		return nil, err
	}
	return &b, nil
}

func decodeFirst(dir, base string, out interface{}) error {
	for _, ext := range extensions {
		path := filepath.Join(dir, base+ext)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		// JSON is a subset of YAML, so one decoder serves both.
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(out); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		return nil
	}
	return nil
}

type ConceptSaver interface {
	SaveOrUpdateConcepts(ctx context.Context, uc auth.UserContext, contracts []concept.Contract) error
}

type DashboardSaver interface {
	SaveFromBundle(ctx context.Context, uc auth.UserContext, contracts []dashboard.BundleContract) error
}

type Importer struct {
	concepts   ConceptSaver
	dashboards DashboardSaver
	logger     zerolog.Logger
}

func NewImporter(concepts ConceptSaver, dashboards DashboardSaver, logger zerolog.Logger) *Importer {
	return &Importer{concepts: concepts, dashboards: dashboards, logger: logger}
}

// Import saves concepts before group dashboards. Each section commits on its
// own; a failing section stops the import.
func (i *Importer) Import(ctx context.Context, uc auth.UserContext, b *Bundle) error {
	if len(b.Concepts) > 0 {
		if err := i.concepts.SaveOrUpdateConcepts(ctx, uc, b.Concepts); err != nil {
			return fmt.Errorf("importing concepts: %w", err)
		}
		i.logger.Info().Int("count", len(b.Concepts)).Msg("concepts imported")
	}
	if len(b.GroupDashboards) > 0 {
		if err := i.dashboards.SaveFromBundle(ctx, uc, b.GroupDashboards); err != nil {
			return fmt.Errorf("importing group dashboards: %w", err)
		}
		i.logger.Info().Int("count", len(b.GroupDashboards)).Msg("group dashboards imported")
	}
	return nil
}
