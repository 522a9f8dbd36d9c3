package koanf

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Provide fills a config struct from its koanf-tagged defaults overlaid with
// QMS_<SERVICE>_-prefixed environment variables. `QMS_CONFIG_HTTP__ADDRESS`
// maps onto `http.address` for the "config" service.
func Provide[T any](service string, defaultValue T) (T, error) {
	var cfg T

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultValue, "koanf"), nil); err != nil {
		return cfg, fmt.Errorf("load defaults: %w", err)
	}

	prefix := fmt.Sprintf("QMS_%s_", strings.ToUpper(service))
	if err := k.Load(env.Provider(prefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, prefix)
		s = strings.ReplaceAll(strings.ToLower(s), "__", ".")
		return s
	}), nil); err != nil {
		return cfg, fmt.Errorf("load env: %w", err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, nil
}
