// Steamshelf - Steam Library Catalog Enrichment
// Copyright 2026 Steamshelf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/steamshelf/steamshelf

package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validate checks structural validity of the configuration. Missing
// credentials are deliberately NOT errors here: an absent API key or Steam
// ID skips the tracks that need it, which the coordinator reports as a
// skipped track rather than a startup failure.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("config: field %s failed %q validation", first.Namespace(), first.Tag())
		}
		return fmt.Errorf("config: %w", err)
	}

	if c.Metrics.Enabled && c.Metrics.ListenAddr == "" {
		return errors.New("config: metrics.listen_addr required when metrics enabled")
	}
	return nil
}
