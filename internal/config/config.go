// Package config loads service configuration from the environment and an
// optional config file.
//
// Every key can be set through an environment variable with the ROSTER_
// prefix, for example ROSTER_CACHE_DIR or ROSTER_DETECTOR. A YAML, JSON or
// TOML file named by ROSTER_CONFIG (or passed to Load) supplies the rest,
// including the geometry sub-tree:
//
//	detector: tesseract
//	catalog_path: /data/champions.json
//	geometry:
//	  match_threshold: 80
//	  portrait_crop: {x: 0.1, y: 0.12, w: 0.8, h: 0.55}
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/Ondrej-Sulc/cerebro-roster/internal/champions"
	"github.com/Ondrej-Sulc/cerebro-roster/internal/geometry"
	"github.com/Ondrej-Sulc/cerebro-roster/internal/ocr"
	"github.com/Ondrej-Sulc/cerebro-roster/internal/portrait"
	"github.com/Ondrej-Sulc/cerebro-roster/internal/roster"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "ROSTER"

// Detector backends.
const (
	DetectorVision    = "vision"
	DetectorTesseract = "tesseract"
	DetectorGemini    = "gemini"
	DetectorFile      = "file"
)

// Config is the resolved service configuration.
type Config struct {
	CacheDir    string
	CatalogPath string

	Detector          string
	AnnotationsPath   string
	VisionAPIKey      string
	GeminiAPIKey      string
	GeminiModel       string
	TesseractLanguage string
	TessdataPrefix    string

	LogLevel string
	LogFile  string

	Workers          int
	BatchParallelism int

	// FixedClass, when set, is assumed for every cell.
	FixedClass roster.Class

	Geometry geometry.Config
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "cerebro-roster")
	}
	return filepath.Join(os.TempDir(), "cerebro-roster")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("cache_dir", defaultCacheDir())
	v.SetDefault("catalog_path", "champions.json")
	v.SetDefault("detector", DetectorVision)
	v.SetDefault("gemini_model", "gemini-2.5-flash")
	v.SetDefault("tesseract_language", "eng")
	v.SetDefault("log_level", "info")
	v.SetDefault("workers", portrait.DefaultWorkers)
	v.SetDefault("batch_parallelism", 4)
}

// Load resolves configuration. configFile overrides ROSTER_CONFIG; both may
// be empty.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if configFile == "" {
		configFile = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", configFile, err)
		}
	}

	cfg := &Config{
		CacheDir:          v.GetString("cache_dir"),
		CatalogPath:       v.GetString("catalog_path"),
		Detector:          strings.ToLower(v.GetString("detector")),
		AnnotationsPath:   v.GetString("annotations_path"),
		VisionAPIKey:      v.GetString("vision_api_key"),
		GeminiAPIKey:      v.GetString("gemini_api_key"),
		GeminiModel:       v.GetString("gemini_model"),
		TesseractLanguage: v.GetString("tesseract_language"),
		TessdataPrefix:    v.GetString("tessdata_prefix"),
		LogLevel:          v.GetString("log_level"),
		LogFile:           v.GetString("log_file"),
		Workers:           v.GetInt("workers"),
		BatchParallelism:  v.GetInt("batch_parallelism"),
		FixedClass:        roster.Class(strings.ToUpper(v.GetString("fixed_class"))),
		Geometry:          geometry.Default(),
	}

	// Keys absent from the file keep their defaults.
	if v.IsSet("geometry") {
		if err := v.UnmarshalKey("geometry", &cfg.Geometry); err != nil {
			return nil, fmt.Errorf("failed to decode geometry: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	switch c.Detector {
	case DetectorVision, DetectorTesseract, DetectorGemini:
	case DetectorFile:
		if c.AnnotationsPath == "" {
			return fmt.Errorf("detector %q needs annotations_path", c.Detector)
		}
	default:
		return fmt.Errorf("unknown detector %q", c.Detector)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.BatchParallelism < 1 {
		return fmt.Errorf("batch_parallelism must be at least 1, got %d", c.BatchParallelism)
	}
	switch c.FixedClass {
	case "", roster.ClassCosmic, roster.ClassTech, roster.ClassMutant,
		roster.ClassSkill, roster.ClassScience, roster.ClassMystic:
	default:
		return fmt.Errorf("unknown fixed_class %q", c.FixedClass)
	}
	if err := c.Geometry.Validate(); err != nil {
		return fmt.Errorf("invalid geometry: %w", err)
	}
	return nil
}

// NewDetector builds the configured text detection backend.
func (c *Config) NewDetector(ctx context.Context) (ocr.Detector, error) {
	switch c.Detector {
	case DetectorVision:
		if c.VisionAPIKey == "" {
			return nil, fmt.Errorf("vision detector needs %s_VISION_API_KEY", EnvPrefix)
		}
		return ocr.NewVisionDetector(c.VisionAPIKey), nil
	case DetectorTesseract:
		return &ocr.TesseractDetector{Language: c.TesseractLanguage, TessdataPrefix: c.TessdataPrefix}, nil
	case DetectorGemini:
		if c.GeminiAPIKey == "" {
			return nil, fmt.Errorf("gemini detector needs %s_GEMINI_API_KEY", EnvPrefix)
		}
		d, err := ocr.NewGeminiDetector(ctx, c.GeminiAPIKey, c.GeminiModel)
		if err != nil {
			return nil, err
		}
		return d, nil
	case DetectorFile:
		data, err := os.ReadFile(c.AnnotationsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read annotations: %w", err)
		}
		annotations, err := ocr.ParseAnnotations(data)
		if err != nil {
			return nil, err
		}
		return &ocr.StaticDetector{Annotations: annotations}, nil
	default:
		return nil, fmt.Errorf("unknown detector %q", c.Detector)
	}
}

// NewMatcher loads the champion catalog and builds a portrait matcher
// backed by the reference image cache under CacheDir.
func (c *Config) NewMatcher() (*portrait.Matcher, *champions.JSONCatalog, error) {
	catalog, err := champions.LoadJSONCatalog(c.CatalogPath)
	if err != nil {
		return nil, nil, err
	}
	store := portrait.NewReferenceStore(filepath.Join(c.CacheDir, "references"), nil)
	m := portrait.NewMatcher(catalog, store, c.Geometry, portrait.Options{Workers: c.Workers})
	return m, catalog, nil
}
