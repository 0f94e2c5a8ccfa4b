package config

import (
	"os"
	"runtime"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/cubes/engine/core"
)

type ApplicationConfig struct {
	// The application name used in windowing.
	Name string `toml:"name"`
	// Window starting position, if the window manager honors it.
	StartPosX uint32 `toml:"start_pos_x"`
	StartPosY uint32 `toml:"start_pos_y"`
	// Window starting size.
	StartWidth  uint32 `toml:"start_width"`
	StartHeight uint32 `toml:"start_height"`
	// One of debug, info, warn, error.
	LogLevel string `toml:"log_level"`
	// Directory holding compiled shaders and packed meshes.
	AssetsDir string `toml:"assets_dir"`
}

type RendererConfig struct {
	// Enables the Khronos validation layer and the debug callback.
	EnableValidation bool `toml:"enable_validation"`
	// Number of job system workers recording frames and loading
	// shaders. Zero means one worker per CPU.
	Workers int `toml:"workers"`
}

// WorkerCount resolves the configured worker count; zero or negative
// falls back to one worker per CPU.
func (rc RendererConfig) WorkerCount() int {
	if rc.Workers > 0 {
		return rc.Workers
	}
	return runtime.NumCPU()
}

type Config struct {
	Application ApplicationConfig `toml:"application"`
	Renderer    RendererConfig    `toml:"renderer"`
}

func Default() *Config {
	return &Config{
		Application: ApplicationConfig{
			Name:        "Cubes",
			StartPosX:   100,
			StartPosY:   100,
			StartWidth:  1280,
			StartHeight: 720,
			LogLevel:    "info",
			AssetsDir:   "assets",
		},
		Renderer: RendererConfig{
			EnableValidation: false,
			Workers:          2,
		},
	}
}

// Load reads the TOML file at path over the defaults. A missing file
// is not an error; the defaults stand.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			core.LogInfo("no config file at '%s', using defaults", path)
			return cfg, nil
		}
		return nil, err
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
