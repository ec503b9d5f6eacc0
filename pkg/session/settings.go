package session

import (
	"encoding/json"

	"github.com/driftline/driftline/pkg/algorithm"
)

func encodeSettings(settings map[string]string) (string, error) {
	if len(settings) == 0 {
		return "", nil
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeSettings(raw string) (map[string]string, error) {
	var settings map[string]string
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func encodeProviderSettings(settings algorithm.ProviderSettings) (string, error) {
	if settings == (algorithm.ProviderSettings{}) {
		return "", nil
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeProviderSettings(raw string) (algorithm.ProviderSettings, error) {
	var settings algorithm.ProviderSettings
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return algorithm.ProviderSettings{}, err
	}
	return settings, nil
}
