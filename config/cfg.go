package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"

	"twsplit/common"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	// TagRoute sends passages whose tag contains Keyword into Folder.
	TagRoute struct {
		Keyword string `yaml:"keyword" validate:"required"`
		Folder  string `yaml:"folder" validate:"required"`
	}

	// TitleRoute sends passages whose title contains any of Titles into Folder.
	TitleRoute struct {
		Titles []string `yaml:"titles" validate:"dive,required"`
		Folder string   `yaml:"folder" validate:"required"`
	}

	AggregateConfig struct {
		Passage string `yaml:"passage" validate:"required"`
		Folder  string `yaml:"folder" validate:"required"`
		Marker  string `yaml:"marker" validate:"required"`
		Ext     string `yaml:"ext" validate:"required,startswith=."`
	}

	SplitConfig struct {
		PassageExt         string                 `yaml:"passage_ext" validate:"required,startswith=."`
		Subfolders         bool                   `yaml:"subfolders"`
		MoreSplit          bool                   `yaml:"more_split"`
		Decoding           string                 `yaml:"decoding" validate:"required"`
		Encoding           string                 `yaml:"encoding" validate:"required"`
		Collisions         common.CollisionPolicy `yaml:"collisions" validate:"gte=0"`
		TransliterateNames bool                   `yaml:"transliterate_names"`
		TagRoutes          []TagRoute             `yaml:"tag_routes" validate:"dive"`
		Special            TitleRoute             `yaml:"special"`
		StoryData          TitleRoute             `yaml:"story_data"`
		Stylesheet         AggregateConfig        `yaml:"stylesheet"`
		Script             AggregateConfig        `yaml:"script"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Split     SplitConfig    `yaml:"split"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration tamplate to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
