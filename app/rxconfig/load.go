package rxconfig

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

//go:embed schema.json
var schemaJSON []byte

// Schema returns the JSON schema of the configuration file.
func Schema() []byte {
	return schemaJSON
}

var loadSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
})

// ConfigError indicates the configuration cannot be used.
// It is returned when the file cannot be read, is not well-formed, lacks a required field,
// or violates a constraint.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ErrSchema indicates the document failed schema validation.
var ErrSchema = errors.New("JSON document failed schema validation")

func checkSchema(doc []byte) error {
	schema, e := loadSchema()
	if e != nil {
		return fmt.Errorf("schema: %w", e)
	}
	result, e := schema.Validate(gojsonschema.NewBytesLoader(doc))
	if e != nil {
		return e
	}
	if result.Valid() {
		return nil
	}
	errs := ErrSchema
	for _, desc := range result.Errors() {
		errs = multierr.Append(errs, errors.New(desc.String()))
	}
	return errs
}

// Parse parses and validates a configuration document.
// Failure is reported as *ConfigError.
func Parse(doc []byte) (cfg *Config, e error) {
	if e = checkSchema(doc); e != nil {
		return nil, &ConfigError{Err: e}
	}

	cfg = &Config{}
	if e = json.Unmarshal(doc, cfg); e != nil {
		return nil, &ConfigError{Err: e}
	}
	cfg.ApplyDefaults()
	if e = cfg.Validate(); e != nil {
		return nil, &ConfigError{Err: e}
	}
	return cfg, nil
}

// Load reads, parses, and validates a configuration file.
// Failure is reported as *ConfigError.
func Load(path string) (cfg *Config, e error) {
	doc, e := os.ReadFile(path)
	if e != nil {
		return nil, &ConfigError{Path: path, Err: e}
	}
	if cfg, e = Parse(doc); e != nil {
		e.(*ConfigError).Path = path
		return nil, e
	}
	logger.Info("config loaded",
		zap.String("path", path),
		zap.String("pcieaddr", cfg.Driver.PCIAddr),
		zap.Int("corecount", cfg.Driver.CoreCount),
		zap.String("driver", cfg.Driver.Driver),
		zap.String("sche_policy", cfg.Panic.SchedPolicy),
		zap.Int("engine_num", cfg.Panic.EngineNum),
		zap.Int("tenants", cfg.Tenants.Len()),
	)
	return cfg, nil
}
