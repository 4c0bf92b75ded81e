package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/leapstack-labs/leapnote/pkg/schema"
)

// ConfigFileName is the name of the project file.
const ConfigFileName = "leapnote.yaml"

// ConfigFileNameAlt is the alternate name of the project file.
const ConfigFileNameAlt = "leapnote.yml"

// UnmarshalConf decodes with the koanf tags and runs encoding.TextUnmarshaler
// for enum values such as field kinds, clause operators and combinators.
// Scalars are weakly typed so that `value: 3` fills a string.
func UnmarshalConf(out any) koanf.UnmarshalConf {
	return koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook:       mapstructure.TextUnmarshallerHookFunc(),
			Result:           out,
			TagName:          "koanf",
			WeaklyTypedInput: true,
		},
	}
}

// LoadSchemaFile reads a schema file into its type definitions.
func LoadSchemaFile(path string) (*SchemaFile, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("error reading schema file %s: %w", path, err)
	}

	var sf SchemaFile
	if err := k.UnmarshalWithConf("", &sf, UnmarshalConf(&sf)); err != nil {
		return nil, fmt.Errorf("unable to decode schema file %s: %w", path, err)
	}
	if len(sf.Types) == 0 {
		return nil, fmt.Errorf("schema file %s defines no types", path)
	}
	return &sf, nil
}

// LoadSchema reads a schema file and builds its registry. Every invalid
// type or field is reported, joined.
func LoadSchema(path string) (*schema.Registry, error) {
	sf, err := LoadSchemaFile(path)
	if err != nil {
		return nil, err
	}
	reg, err := schema.NewRegistry(sf.Types...)
	if err != nil {
		return nil, fmt.Errorf("schema file %s: %w", path, err)
	}
	return reg, nil
}

// LoadFromDir loads a ProjectConfig from the given directory.
// It looks for leapnote.yaml or leapnote.yml in the directory.
// Returns nil, nil if no config file is found (not an error condition).
// Relative paths in the file are resolved against dir.
func LoadFromDir(dir string) (*ProjectConfig, error) {
	configPath := findConfigFile(dir)
	if configPath == "" {
		return nil, nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
		return nil, err
	}

	var cfg ProjectConfig
	if err := k.UnmarshalWithConf("", &cfg, UnmarshalConf(&cfg)); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	cfg.Schema = ResolvePath(cfg.Schema, dir)
	cfg.Outline = ResolvePath(cfg.Outline, dir)
	return &cfg, nil
}

// ResolvePath resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty or already absolute.
func ResolvePath(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// findConfigFile finds the config file in the given directory.
// Returns empty string if not found.
func findConfigFile(dir string) string {
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// FindProjectRoot walks up from the given directory to find a directory
// containing leapnote.yaml or leapnote.yml.
// Returns empty string if not found.
func FindProjectRoot(startDir string) string {
	dir := startDir
	for {
		if findConfigFile(dir) != "" {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return ""
		}
		dir = parent
	}
}
