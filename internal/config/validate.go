package config

import (
	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"
)

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Request.Timeout <= 0 {
		return errors.Newf("request.timeout must be > 0, got %s", c.Request.Timeout)
	}

	// Rate limit: 0 = unlimited, negative = invalid
	if c.Request.RateLimit < 0 {
		return errors.Newf("request.rate_limit must be >= 0, got %g", c.Request.RateLimit)
	}
	if c.Request.RateBurst < 0 {
		return errors.Newf("request.rate_burst must be >= 0, got %d", c.Request.RateBurst)
	}

	if c.Run.Concurrency < 1 {
		return errors.Newf("run.concurrency must be >= 1, got %d", c.Run.Concurrency)
	}
	if c.Run.RowLimit < 1 {
		return errors.Newf("run.row_limit must be >= 1, got %d", c.Run.RowLimit)
	}

	if _, err := semver.NewConstraint(c.Run.VersionConstraint); err != nil {
		return errors.WithHint(
			errors.Wrapf(err, "run.version_constraint %q", c.Run.VersionConstraint),
			"use a semver range such as ^0.1.0",
		)
	}

	return nil
}
