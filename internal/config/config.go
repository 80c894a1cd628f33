// Package config handles viewer configuration loading and management.
package config

// Config holds all viewer settings.
type Config struct {
	Graphics GraphicsConfig `yaml:"graphics"`
	Render   RenderConfig   `yaml:"render"`
	Scene    SceneConfig    `yaml:"scene"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// GraphicsConfig holds display settings.
type GraphicsConfig struct {
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	Fullscreen bool `yaml:"fullscreen"`
	VSync      bool `yaml:"vsync"`
	FPSLimit   int  `yaml:"fps_limit"`
	ShowFPS    bool `yaml:"show_fps"`
}

// RenderConfig holds splat pipeline settings.
type RenderConfig struct {
	// RadiusSigma is the splat quad radius in standard deviations.
	// Zero picks the pipeline default.
	RadiusSigma float32 `yaml:"radius_sigma"`

	// Workers is the number of goroutines per pipeline stage. Zero
	// uses one per CPU.
	Workers int `yaml:"workers"`

	// Background is the clear color as RGBA in [0, 1].
	Background [4]float32 `yaml:"background"`
}

// SceneConfig holds scene input settings.
type SceneConfig struct {
	// Path is the PLY file to load.
	Path string `yaml:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Graphics: GraphicsConfig{
			Width:      1280,
			Height:     720,
			Fullscreen: false,
			VSync:      true,
			FPSLimit:   0,
			ShowFPS:    false,
		},
		Render: RenderConfig{
			RadiusSigma: 0,
			Workers:     0,
			Background:  [4]float32{0, 0, 0, 1},
		},
		Scene: SceneConfig{
			Path: "scene.ply",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
