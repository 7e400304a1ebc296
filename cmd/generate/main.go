package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	engine "github.com/rxtech-lab/argo-signal/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-signal/internal/logger"
	"github.com/rxtech-lab/argo-signal/pkg/strategy"
)

const (
	configDir          = "./config"
	engineSchemaName   = "backtest-engine-v1-config.json"
	engineSampleName   = "backtest-engine-v1-config.yaml"
	strategySchemaName = "strategy-schema.json"
	strategySampleName = "strategy.yaml"
	samplePreset       = "minimal_pionex"
)

func main() {
	log, err := logger.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	if err := run(); err != nil {
		log.Fatal("Failed to generate config files", zap.Error(err))
	}

	log.Info("Config files generated", zap.String("dir", configDir))
}

func run() error {
	config := engine.EmptyConfig()

	schemaPath := filepath.Join(configDir, engineSchemaName)
	samplePath := filepath.Join(configDir, engineSampleName)

	if err := validatePaths(schemaPath, samplePath); err != nil {
		return err
	}

	if err := validateSchemaName(engineSchemaName); err != nil {
		return err
	}

	if err := generateSchemaFile(config, schemaPath); err != nil {
		return err
	}

	if err := generateSampleConfig(config, samplePath, engineSchemaName); err != nil {
		return err
	}

	return generateStrategyFiles(configDir)
}

// generateSchemaFile writes the engine config schema to path, creating parent directories.
func generateSchemaFile(config engine.BacktestEngineV1Config, path string) error {
	schemaJSON, err := config.GenerateSchemaJSON()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	return writeFile(path, []byte(schemaJSON))
}

// generateSampleConfig writes config as YAML with a schema reference header. An existing
// file is left untouched.
func generateSampleConfig(config engine.BacktestEngineV1Config, path string, schemaName string) error {
	yamlBytes, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal sample config to yaml: %w", err)
	}

	return writeSample(path, schemaName, yamlBytes)
}

// generateStrategyFiles writes the strategy file schema and, if missing, a sample strategy
// taken from the bundled presets.
func generateStrategyFiles(dir string) error {
	schemaJSON, err := strategy.ConfigSchema()
	if err != nil {
		return fmt.Errorf("failed to generate strategy schema: %w", err)
	}

	if err := writeFile(filepath.Join(dir, strategySchemaName), []byte(schemaJSON)); err != nil {
		return err
	}

	source, err := strategy.PresetSource(samplePreset)
	if err != nil {
		return fmt.Errorf("failed to load preset %s: %w", samplePreset, err)
	}

	return writeSample(filepath.Join(dir, strategySampleName), strategySchemaName, source)
}

func writeSample(path string, schemaName string, content []byte) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	return writeFile(path, append([]byte(getSchemaReference(schemaName)), content...))
}

func writeFile(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}

func validatePaths(schemaPath string, samplePath string) error {
	if schemaPath == "" {
		return fmt.Errorf("schema path cannot be empty")
	}

	if samplePath == "" {
		return fmt.Errorf("sample config path cannot be empty")
	}

	return nil
}

func validateSchemaName(name string) error {
	if name == "" {
		return fmt.Errorf("schema name cannot be empty")
	}

	if !strings.HasSuffix(name, ".json") {
		return fmt.Errorf("schema name %q must have .json extension", name)
	}

	return nil
}

// getSchemaReference returns the yaml-language-server modeline pointing at schemaName.
func getSchemaReference(schemaName string) string {
	return "# yaml-language-server: $schema=" + schemaName + "\n"
}
