package config

// NormalizeForTest exposes normalize to external test packages.
func NormalizeForTest(c *Config) error {
	return c.normalize()
}
