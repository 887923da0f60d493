package strategy

import (
	"bytes"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"gopkg.in/yaml.v3"
)

var configValidator = validator.New()

func validateConfig(strategyType string, config any) error {
	if err := configValidator.Struct(config); err != nil {
		return errors.Wrapf(errors.ErrCodeStrategyConfigError, err, "invalid %s config", strategyType)
	}

	return nil
}

// DecodeParams overlays params on defaults. Unknown keys are rejected.
func DecodeParams[C any](strategyType string, params map[string]any, defaults C) (C, error) {
	if len(params) == 0 {
		return defaults, nil
	}

	data, err := yaml.Marshal(params)
	if err != nil {
		return defaults, errors.Wrapf(errors.ErrCodeStrategyConfigError, err, "failed to encode %s params", strategyType)
	}

	config := defaults

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&config); err != nil {
		return defaults, errors.Wrapf(errors.ErrCodeStrategyConfigError, err, "failed to decode %s params", strategyType)
	}

	return config, nil
}
