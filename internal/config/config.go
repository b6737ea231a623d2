package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Data    DataConfig    `mapstructure:"data"`
	Media   MediaConfig   `mapstructure:"media"`
	Upload  UploadConfig  `mapstructure:"upload"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Mask    MaskConfig    `mapstructure:"mask"`
	Compose ComposeConfig `mapstructure:"compose"`
	Scene   SceneConfig   `mapstructure:"scene"`
	Export  ExportConfig  `mapstructure:"export"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// PublicURL prefixes links encoded into QR codes.
	PublicURL string `mapstructure:"public_url"`
}

type DataConfig struct {
	Dir          string `mapstructure:"dir"`
	ProductsFile string `mapstructure:"products_file"`
	FabricsFile  string `mapstructure:"fabrics_file"`
	MasksFile    string `mapstructure:"masks_file"`
}

type MediaConfig struct {
	Dir       string `mapstructure:"dir"`
	URLPrefix string `mapstructure:"url_prefix"`
}

type UploadConfig struct {
	MaxSize      int64    `mapstructure:"max_size"`
	AllowedTypes []string `mapstructure:"allowed_types"`
	// MaxPixels bounds the decoded size of an uploaded photo.
	MaxPixels int `mapstructure:"max_pixels"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type FetchConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type MaskConfig struct {
	MaxWidth     int `mapstructure:"max_width"`
	BrushMin     int `mapstructure:"brush_min"`
	BrushMax     int `mapstructure:"brush_max"`
	BrushDefault int `mapstructure:"brush_default"`
	BrushStep    int `mapstructure:"brush_step"`
}

type ComposeConfig struct {
	TileFraction     float64 `mapstructure:"tile_fraction"`
	OverlayOpacity   float64 `mapstructure:"overlay_opacity"`
	DirectOverlay    float64 `mapstructure:"direct_overlay"`
	DefaultIntensity float64 `mapstructure:"default_intensity"`
}

type SceneConfig struct {
	MaxDimension int     `mapstructure:"max_dimension"`
	MaxViewport  float64 `mapstructure:"max_viewport"`
	ZoomMin      float64 `mapstructure:"zoom_min"`
	ZoomMax      float64 `mapstructure:"zoom_max"`
	ZoomStep     float64 `mapstructure:"zoom_step"`
	WheelZoom    float64 `mapstructure:"wheel_zoom"`
	SizeMin      float64 `mapstructure:"size_min"`
	SizeMax      float64 `mapstructure:"size_max"`
	SizeDefault  float64 `mapstructure:"size_default"`
	SizeStep     float64 `mapstructure:"size_step"`
	Supersample  int     `mapstructure:"supersample"`
}

type ExportConfig struct {
	Format      string `mapstructure:"format"`
	JPEGQuality int    `mapstructure:"jpeg_quality"`
}

// Load reads a YAML config file. Keys missing from the file keep their defaults
// and FABRICVIEW_* environment variables override both.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", configPath, err)
	}
	return decode(v)
}

// New loads config.yaml from the working directory, falling back to defaults
// (still subject to environment overrides) when the file cannot be read.
func New() *Config {
	cfg, err := Load("config.yaml")
	if err == nil {
		return cfg
	}
	cfg, err = decode(newViper())
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns the built-in configuration without consulting files or env.
func Default() *Config {
	cfg, err := decode(defaultsOnly())
	if err != nil {
		panic(err)
	}
	return cfg
}

func newViper() *viper.Viper {
	v := defaultsOnly()
	v.SetEnvPrefix("FABRICVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("server.port", "PORT")
	return v
}

func defaultsOnly() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if cfg.Server.Port != "" && !strings.Contains(cfg.Server.Port, ":") {
		cfg.Server.Port = ":" + cfg.Server.Port
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.public_url", "http://localhost:8080")

	v.SetDefault("data.dir", "data")
	v.SetDefault("data.products_file", "products.csv")
	v.SetDefault("data.fabrics_file", "fabrics.csv")
	v.SetDefault("data.masks_file", "masks.json")

	v.SetDefault("media.dir", "media")
	v.SetDefault("media.url_prefix", "/media")

	v.SetDefault("upload.max_size", 10*1024*1024)
	v.SetDefault("upload.allowed_types", []string{"image/jpeg", "image/jpg", "image/png", "image/webp"})
	v.SetDefault("upload.max_pixels", 40_000_000)

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 24*time.Hour)

	v.SetDefault("fetch.timeout", 12*time.Second)

	v.SetDefault("mask.max_width", 1000)
	v.SetDefault("mask.brush_min", 5)
	v.SetDefault("mask.brush_max", 100)
	v.SetDefault("mask.brush_default", 30)
	v.SetDefault("mask.brush_step", 5)

	v.SetDefault("compose.tile_fraction", 0.2)
	v.SetDefault("compose.overlay_opacity", 0.25)
	v.SetDefault("compose.direct_overlay", 0.3)
	v.SetDefault("compose.default_intensity", 0.5)

	v.SetDefault("scene.max_dimension", 1920)
	v.SetDefault("scene.max_viewport", 4096.0)
	v.SetDefault("scene.zoom_min", 0.5)
	v.SetDefault("scene.zoom_max", 4.0)
	v.SetDefault("scene.zoom_step", 0.25)
	v.SetDefault("scene.wheel_zoom", 1.1)
	v.SetDefault("scene.size_min", 5.0)
	v.SetDefault("scene.size_max", 90.0)
	v.SetDefault("scene.size_default", 30.0)
	v.SetDefault("scene.size_step", 5.0)
	v.SetDefault("scene.supersample", 2)

	v.SetDefault("export.format", "png")
	v.SetDefault("export.jpeg_quality", 90)
}
