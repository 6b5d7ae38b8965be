package mpv

import (
	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// Settings configure how the player process is launched and reached.
type Settings struct {
	Binary         string   `yaml:"binary" mapstructure:"binary" default:"mpv" validate:"required"`
	SocketPath     string   `yaml:"socket_path" mapstructure:"socket_path" default:"/tmp/tunebeats_mpv.sock" validate:"required"`
	ExtraArgs      []string `yaml:"extra_args" mapstructure:"extra_args"`
	StartTimeoutMs int      `yaml:"start_timeout_ms" mapstructure:"start_timeout_ms" default:"5000" validate:"gte=100,lte=60000"`
	QuitGraceMs    int      `yaml:"quit_grace_ms" mapstructure:"quit_grace_ms" default:"100" validate:"gte=0,lte=5000"`
}

// DecodeSettings builds Settings from a raw config map, applying defaults
// and validating the result.
func DecodeSettings(raw map[string]any) (Settings, error) {
	var s Settings
	if err := mapstructure.Decode(raw, &s); err != nil {
		return s, errors.Wrap(err, "failed to decode player settings")
	}
	if err := defaults.Set(&s); err != nil {
		return s, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(s); err != nil {
		return s, errors.Wrap(err, "player settings validation failed")
	}
	return s, nil
}
