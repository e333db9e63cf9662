package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/maastricht-university/vocal-eval/audio"
	"github.com/maastricht-university/vocal-eval/pitch"
	"github.com/maastricht-university/vocal-eval/scoring"
)

// EnvPrefix prefixes environment overrides: analysis.alignment is read from
// VOCAL_ANALYSIS_ALIGNMENT.
const EnvPrefix = "VOCAL"

var ErrInvalid = errors.New("invalid config")

type Service struct {
	URL string `mapstructure:"url" yaml:"url"`
}
type Services struct {
	Transcoder Service `mapstructure:"transcoder" yaml:"transcoder"`
	SheetMusic Service `mapstructure:"sheet_music" yaml:"sheet_music"`
	Advisor    Service `mapstructure:"advisor" yaml:"advisor"`
	Renderer   Service `mapstructure:"renderer" yaml:"renderer"`
	Timeout    int     `mapstructure:"timeout" yaml:"timeout"`
}
type Audio struct {
	SampleRate int    `mapstructure:"sample_rate" yaml:"sample_rate"`
	Decoder    string `mapstructure:"decoder" yaml:"decoder"`
	FFmpegBin  string `mapstructure:"ffmpeg_bin" yaml:"ffmpeg_bin"`
	MaxSeconds int    `mapstructure:"max_seconds" yaml:"max_seconds"`
}
type Analysis struct {
	Alignment    string        `mapstructure:"alignment" yaml:"alignment"`
	MaxDTWCells  int           `mapstructure:"max_dtw_cells" yaml:"max_dtw_cells"`
	PitchWeights pitch.Weights `mapstructure:"pitch_weights" yaml:"pitch_weights"`
	FminNote     string        `mapstructure:"fmin_note" yaml:"fmin_note"`
	FmaxNote     string        `mapstructure:"fmax_note" yaml:"fmax_note"`
	Workers      int           `mapstructure:"workers" yaml:"workers"`
}
type Scoring struct {
	CalibrationFile string                `mapstructure:"calibration_file" yaml:"calibration_file"`
	Coefficients    *scoring.Coefficients `mapstructure:"coefficients" yaml:"coefficients"`
}
type Root struct {
	Pipeline struct {
		Name      string `mapstructure:"name" yaml:"name"`
		Version   string `mapstructure:"version" yaml:"version"`
		LogLvl    string `mapstructure:"log_level" yaml:"log_level"`
		LogFormat string `mapstructure:"log_format" yaml:"log_format"`
	} `mapstructure:"pipeline" yaml:"pipeline"`
	Audio    Audio    `mapstructure:"audio" yaml:"audio"`
	Services Services `mapstructure:"services" yaml:"services"`
	Analysis Analysis `mapstructure:"analysis" yaml:"analysis"`
	Scoring  Scoring  `mapstructure:"scoring" yaml:"scoring"`
	Paths    struct {
		Outputs string `mapstructure:"outputs" yaml:"outputs"`
	} `mapstructure:"paths" yaml:"paths"`
	Metrics struct {
		Textfile string `mapstructure:"textfile" yaml:"textfile"`
	} `mapstructure:"metrics" yaml:"metrics"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("pipeline.name", "vocal-eval")
	v.SetDefault("pipeline.version", "0.1.0")
	v.SetDefault("pipeline.log_level", "info")
	v.SetDefault("pipeline.log_format", "text")
	v.SetDefault("audio.sample_rate", audio.SampleRate)
	v.SetDefault("audio.decoder", "ffmpeg")
	v.SetDefault("audio.ffmpeg_bin", "ffmpeg")
	v.SetDefault("audio.max_seconds", 600)
	v.SetDefault("services.transcoder.url", "")
	v.SetDefault("services.sheet_music.url", "")
	v.SetDefault("services.advisor.url", "")
	v.SetDefault("services.renderer.url", "")
	v.SetDefault("services.timeout", 60)
	v.SetDefault("analysis.alignment", pitch.AlignInterpolate)
	v.SetDefault("analysis.max_dtw_cells", pitch.DefaultMaxCells)
	v.SetDefault("analysis.pitch_weights.accuracy", pitch.DefaultWeights.Accuracy)
	v.SetDefault("analysis.pitch_weights.stability", pitch.DefaultWeights.Stability)
	v.SetDefault("analysis.pitch_weights.vibrato", pitch.DefaultWeights.Vibrato)
	v.SetDefault("analysis.fmin_note", "C2")
	v.SetDefault("analysis.fmax_note", "C7")
	v.SetDefault("analysis.workers", 2)
	v.SetDefault("scoring.calibration_file", "")
	v.SetDefault("paths.outputs", "")
	v.SetDefault("metrics.textfile", "")
}

// Load reads the config file at path, or when path is empty the first of
// config/<CONFIG_ENV>/config.yaml and config.yaml that exists. Missing files
// leave the defaults in place. VOCAL_* variables override both.
func Load(path string) (*Root, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = guess()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	var cfg Root
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if !v.IsSet("scoring.coefficients") {
		cfg.Scoring.Coefficients = nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func guess() string {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	for _, p := range []string{
		filepath.Join("config", env, "config.yaml"),
		"config.yaml",
	} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Validate checks the values the analyzers depend on.
func (c *Root) Validate() error {
	if c.Audio.SampleRate != audio.SampleRate {
		return fmt.Errorf("%w: audio.sample_rate must be %d, got %d", ErrInvalid, audio.SampleRate, c.Audio.SampleRate)
	}
	switch c.Analysis.Alignment {
	case pitch.AlignInterpolate, pitch.AlignDTW:
	default:
		return fmt.Errorf("%w: analysis.alignment %q", ErrInvalid, c.Analysis.Alignment)
	}
	w := c.Analysis.PitchWeights
	if math.Abs(w.Accuracy+w.Stability+w.Vibrato-1) > 1e-6 {
		return fmt.Errorf("%w: analysis.pitch_weights sum to %v", ErrInvalid, w.Accuracy+w.Stability+w.Vibrato)
	}
	if _, err := pitch.NoteFrequency(c.Analysis.FminNote); err != nil {
		return fmt.Errorf("%w: analysis.fmin_note: %v", ErrInvalid, err)
	}
	if _, err := pitch.NoteFrequency(c.Analysis.FmaxNote); err != nil {
		return fmt.Errorf("%w: analysis.fmax_note: %v", ErrInvalid, err)
	}
	switch c.Audio.Decoder {
	case "ffmpeg", "service":
	default:
		return fmt.Errorf("%w: audio.decoder %q", ErrInvalid, c.Audio.Decoder)
	}
	if c.Audio.Decoder == "service" && c.Services.Transcoder.URL == "" {
		return fmt.Errorf("%w: audio.decoder service needs services.transcoder.url", ErrInvalid)
	}
	return nil
}

func DurSeconds(n int) time.Duration { return time.Duration(n) * time.Second }
