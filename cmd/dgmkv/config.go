package main

import (
	"fmt"
	"os"
	"time"

	json "github.com/goccy/go-json"
	"github.com/tailscale/hujson"

	"github.com/calvinalkan/dgmkv/pkg/dgm"
)

// fileConfig is the on-disk JSONC shape for a dgmkv config file.
// hujson.Standardize strips comments/trailing commas before the
// stdlib-compatible JSON decode.
type fileConfig struct {
	Dir                 string  `json:"dir"`
	Name                string  `json:"name"`
	Levels              int     `json:"levels"`
	Lsm                 *bool   `json:"lsm"`
	MemRatio            float64 `json:"mem_ratio"`
	DiskRatio           float64 `json:"disk_ratio"`
	M0Limit             int     `json:"m0_limit"`
	AutoCommitSeconds   int     `json:"auto_commit_seconds"`
	AutoCompactSeconds  int     `json:"auto_compact_seconds"`
}

// loadConfig reads path (if non-empty and present) as JSONC and overlays it
// onto dgm.DefaultConfig for dir/name. Missing files are not an error: the
// defaults stand alone.
func loadConfig(path, dir, name string) (dgm.Config, error) {
	cfg := dgm.DefaultConfig(dir, name)
	cfg.Decoder = defaultDecoder

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}

		return dgm.Config{}, fmt.Errorf("dgmkv: read config %q: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return dgm.Config{}, fmt.Errorf("dgmkv: invalid JSONC in %q: %w", path, err)
	}

	var fc fileConfig

	if err := json.Unmarshal(standardized, &fc); err != nil {
		return dgm.Config{}, fmt.Errorf("dgmkv: invalid config %q: %w", path, err)
	}

	if fc.Dir != "" {
		cfg.Dir = fc.Dir
		cfg.Disk.Dir = fc.Dir
	}

	if fc.Name != "" {
		cfg.Name = fc.Name
		cfg.Disk.Name = fc.Name
	}

	if fc.Levels > 0 {
		cfg.Levels = fc.Levels
	}

	if fc.Lsm != nil {
		cfg.Lsm = *fc.Lsm
	}

	if fc.MemRatio > 0 {
		cfg.MemRatio = fc.MemRatio
	}

	if fc.DiskRatio > 0 {
		cfg.DiskRatio = fc.DiskRatio
	}

	if fc.M0Limit > 0 {
		cfg.M0Limit = fc.M0Limit
	}

	if fc.AutoCommitSeconds > 0 {
		cfg.AutoCommitInterval = time.Duration(fc.AutoCommitSeconds) * time.Second
	}

	if fc.AutoCompactSeconds > 0 {
		cfg.AutoCompactInterval = time.Duration(fc.AutoCompactSeconds) * time.Second
	}

	return cfg, nil
}
