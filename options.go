package multidex

import "time"

// Option configures the Client.
type Option func(*clientConfig)

type clientConfig struct {
	addrs            []string
	username         string
	password         string
	database         int
	keyPrefix        string
	geodataDir       string
	geodataCacheSize int
	resourceTimeout  time.Duration
	maxDepth         int
}

// WithRedis sets the Redis-compatible backend addresses.
func WithRedis(addrs ...string) Option {
	return func(c *clientConfig) {
		c.addrs = addrs
	}
}

// WithCredentials sets the database username and password.
func WithCredentials(username, password string) Option {
	return func(c *clientConfig) {
		c.username = username
		c.password = password
	}
}

// WithDB selects the Redis logical database.
func WithDB(db int) Option {
	return func(c *clientConfig) {
		c.database = db
	}
}

// WithKeyPrefix overrides the key namespace (default "mdx:").
func WithKeyPrefix(prefix string) Option {
	return func(c *clientConfig) {
		c.keyPrefix = prefix
	}
}

// WithGeodata enables named-area filters backed by GeoJSON datasets in dir.
// cacheSize bounds the decoded-geometry cache; <= 0 selects the default.
func WithGeodata(dir string, cacheSize int) Option {
	return func(c *clientConfig) {
		c.geodataDir = dir
		c.geodataCacheSize = cacheSize
	}
}

// WithResourceTimeout bounds each per-resource backend query.
func WithResourceTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		c.resourceTimeout = d
	}
}

// WithMaxDepth bounds filter group nesting in query documents.
func WithMaxDepth(n int) Option {
	return func(c *clientConfig) {
		c.maxDepth = n
	}
}
