package platform

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// platformsFile is the structure of an extra-platforms YAML file.
type platformsFile struct {
	Platforms []*Platform `yaml:"platforms"`
}

// LoadFile reads additional platform definitions from a YAML file and
// registers them after the built-ins. A missing file is not an error, so
// installs without custom platforms keep working.
func (r *Registry) LoadFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read platforms file: %w", err)
	}

	var file platformsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse platforms file: %w", err)
	}

	for i, p := range file.Platforms {
		if p.ID == "" {
			return fmt.Errorf("platform[%d]: id is required", i)
		}
		if len(p.Hosts) == 0 {
			return fmt.Errorf("platform[%d] %s: hosts are required", i, p.ID)
		}
		if p.CanonicalName == "" {
			p.CanonicalName = p.Label
		}
		r.Register(p)
	}
	return nil
}
