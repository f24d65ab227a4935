package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/hupe1980/assetmesh"
	"github.com/hupe1980/assetmesh/config"
	"github.com/hupe1980/assetmesh/core"
	"github.com/hupe1980/assetmesh/logging"
)

// inventoryFile is the on-disk shape: one enterprise with any number of
// facilities, each carrying its discovered assets and optional baseline.
type inventoryFile struct {
	Facilities []struct {
		Name     string                 `json:"name"`
		Code     string                 `json:"code"`
		Assets   []core.Asset           `json:"assets"`
		Baseline []core.BaselineAsset   `json:"baseline,omitempty"`
		Template *core.IndustryTemplate `json:"template,omitempty"`
	} `json:"facilities"`
}

// loadInventory parses the inventory file into facility specs.
func loadInventory(path string) ([]assetmesh.FacilitySpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read inventory: %w", err)
	}
	var file inventoryFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse inventory: %w", err)
	}
	if len(file.Facilities) == 0 {
		return nil, fmt.Errorf("inventory %s contains no facilities", path)
	}

	specs := make([]assetmesh.FacilitySpec, 0, len(file.Facilities))
	for _, f := range file.Facilities {
		if f.Name == "" || f.Code == "" {
			return nil, fmt.Errorf("facility entries need both name and code")
		}
		specs = append(specs, assetmesh.FacilitySpec{
			Name: f.Name,
			Code: f.Code,
			Context: &core.AssetContext{
				Facility:     f.Name,
				FacilityCode: f.Code,
				Assets:       f.Assets,
				Baseline:     f.Baseline,
				Template:     f.Template,
			},
		})
	}
	return specs, nil
}

// loadConfig reads the config flag, falling back to defaults.
func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

// buildMesh assembles the full observation layer from the CLI flags.
func buildMesh() (*assetmesh.AssetMesh, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	specs, err := loadInventory(inventoryPath)
	if err != nil {
		return nil, err
	}
	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Format: cfg.LogFormat,
	})
	return assetmesh.New(specs, func(o *assetmesh.Options) {
		o.Config = cfg
		o.Logger = logger
	})
}
