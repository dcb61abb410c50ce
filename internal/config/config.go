// README: Config loader with defaults for HTTP, fleet simulation, location tracking and infra clients.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"ridemap/internal/types"
)

const (
	LocationSourceSimulated = "simulated"
	LocationSourceFirebase  = "firebase"
)

type FleetConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval" validate:"gt=0"`
	// Jitter is the full width of the per-axis random step in degrees.
	Jitter   float64 `mapstructure:"jitter" validate:"gte=0"`
	SeedFile string  `mapstructure:"seed_file"`
}

type ViewportConfig struct {
	BaseDelta   float64 `mapstructure:"base_delta" validate:"gt=0"`
	AspectRatio float64 `mapstructure:"aspect_ratio" validate:"gt=0"`
}

type LocationConfig struct {
	Source         string        `mapstructure:"source" validate:"oneof=simulated firebase"`
	MinInterval    time.Duration `mapstructure:"min_interval" validate:"gte=0"`
	MinDistanceM   float64       `mapstructure:"min_distance_m" validate:"gte=0"`
	Accuracy       string        `mapstructure:"accuracy" validate:"oneof=lowest low balanced high highest"`
	SimulatedGrant bool          `mapstructure:"simulated_grant"`
	Start          types.Point   `mapstructure:"start"`
	RiderID        string        `mapstructure:"rider_id"`
}

type PulseConfig struct {
	Friction      float64       `mapstructure:"friction" validate:"gt=0"`
	Tension       float64       `mapstructure:"tension" validate:"gt=0"`
	FrameInterval time.Duration `mapstructure:"frame_interval" validate:"gte=0"`
}

type Config struct {
	HTTP struct {
		Addr string `mapstructure:"addr" validate:"required"`
	} `mapstructure:"http"`
	Fleet    FleetConfig    `mapstructure:"fleet"`
	Viewport ViewportConfig `mapstructure:"viewport"`
	Location LocationConfig `mapstructure:"location"`
	Pulse    PulseConfig    `mapstructure:"pulse"`
	Redis    struct {
		Addr string        `mapstructure:"addr"`
		TTL  time.Duration `mapstructure:"ttl" validate:"gte=0"`
	} `mapstructure:"redis"`
	Firebase struct {
		ProjectID       string `mapstructure:"project_id"`
		CredentialsFile string `mapstructure:"credentials_file"`
		DatabaseURL     string `mapstructure:"database_url" validate:"omitempty,url"`
	} `mapstructure:"firebase"`
	Maps struct {
		APIKey string `mapstructure:"api_key"`
	} `mapstructure:"maps"`
	Log struct {
		Ticks bool `mapstructure:"ticks"`
	} `mapstructure:"log"`
}

// Load reads ridemap.yaml from the working directory when present and
// applies RIDEMAP_* environment overrides, e.g. RIDEMAP_FLEET_TICK_INTERVAL=5s.
func Load() (Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches the
// working directory for ridemap.yaml and tolerates its absence.
func LoadFile(path string) (Config, error) {
	var cfg Config

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("RIDEMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("ridemap")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return cfg
}

func Validate(cfg Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Location.Source == LocationSourceFirebase {
		if cfg.Firebase.ProjectID == "" || cfg.Location.RiderID == "" {
			return errors.New("invalid config: firebase location source needs firebase.project_id and location.rider_id")
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")

	v.SetDefault("fleet.tick_interval", 3*time.Second)
	v.SetDefault("fleet.jitter", 0.001)
	v.SetDefault("fleet.seed_file", "")

	v.SetDefault("viewport.base_delta", 0.005)
	v.SetDefault("viewport.aspect_ratio", 390.0/845.0)

	v.SetDefault("location.source", LocationSourceSimulated)
	v.SetDefault("location.min_interval", 5*time.Second)
	v.SetDefault("location.min_distance_m", 10.0)
	v.SetDefault("location.accuracy", "high")
	v.SetDefault("location.simulated_grant", true)
	v.SetDefault("location.start.lat", 14.5995)
	v.SetDefault("location.start.lng", 120.9843)
	v.SetDefault("location.rider_id", "")

	v.SetDefault("pulse.friction", 5.0)
	v.SetDefault("pulse.tension", 40.0)
	v.SetDefault("pulse.frame_interval", 16*time.Millisecond)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.ttl", 10*time.Minute)

	v.SetDefault("firebase.project_id", "")
	v.SetDefault("firebase.credentials_file", "")
	v.SetDefault("firebase.database_url", "")

	v.SetDefault("maps.api_key", "")

	v.SetDefault("log.ticks", false)
}
