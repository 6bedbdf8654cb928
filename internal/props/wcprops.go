package props

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wcupdate/wcupdate/internal/adm"
)

func wcPropsPath(path string) string {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	return filepath.Join(adm.WCPropsDir(dir), base+".json")
}

// LoadWC reads the working-copy-only property map for path (spec.md §3's
// "wc" namespace — not versioned, never sent to a repository).
func LoadWC(path string) (map[string]string, error) {
	data, err := os.ReadFile(wcPropsPath(path)) // #nosec G304
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("wcprops: load %s: %w", path, err)
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("wcprops: parse %s: %w", path, err)
	}
	if m == nil {
		m = map[string]string{}
	}
	return m, nil
}

// SaveWC persists the working-copy-only property map for path.
func SaveWC(path string, m map[string]string) error {
	p := wcPropsPath(path)
	if err := os.MkdirAll(filepath.Dir(p), 0750); err != nil {
		return fmt.Errorf("wcprops: mkdir %s: %w", filepath.Dir(p), err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("wcprops: marshal %s: %w", path, err)
	}
	return os.WriteFile(p, data, 0640)
}

// ApplyWC applies a set of wc-prop changes (one MODIFY_WCPROP log command
// per change, per spec.md §4.3 step 5) to path's wc-prop map.
func ApplyWC(path string, changes []Change) error {
	m, err := LoadWC(path)
	if err != nil {
		return err
	}
	for _, c := range changes {
		if c.Tombstone {
			delete(m, c.Name)
		} else {
			m[c.Name] = c.Value
		}
	}
	return SaveWC(path, m)
}
