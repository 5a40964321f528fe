package adns

import (
	"time"

	"github.com/BurntSushi/toml"
	"github.com/redis/go-redis/v9"
)

func redisOptionsFromAddr(addr string) redis.Options {
	if addr == "" {
		addr = "localhost:6379"
	}
	return redis.Options{Addr: addr}
}

// serverConfig is one [[servers]] table entry.
type serverConfig struct {
	Address string
}

// cacheConfig is the [cache] table.
type cacheConfig struct {
	Backend   string `toml:"backend"` // "memory" (default) or "redis"
	Capacity  int    `toml:"capacity"`
	RedisAddr string `toml:"redis-addr"`
}

// resolverConfig is the [resolver] table. MaxFailures configures the
// ServerPool health policy (consecutive failures before a server is
// retired); it is unrelated to how many servers a single lookup fails over
// across, which this core does not currently expose via TOML.
type resolverConfig struct {
	QueryTimeout string `toml:"query-timeout"`
	NegativeTTL  string `toml:"negative-ttl"`
	MaxFailures  int    `toml:"max-failures"`
}

// Config is the decoded shape of a resolver TOML config file, scoped to
// what this core needs: no listeners or routers, those are out of scope.
type Config struct {
	Resolver resolverConfig
	Servers  []serverConfig
	Cache    cacheConfig
}

// LoadConfig reads and decodes a TOML config file.
func LoadConfig(path string) (*Config, error) {
	var c Config
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return nil, TransportError{Cause: err}
	}
	return &c, nil
}

// NewFromConfig builds a Resolver wired with the server list, timeouts,
// and cache backend described by c.
func NewFromConfig(c *Config) (*Resolver, error) {
	opt := Options{
		MaxConsecutiveFailures: c.Resolver.MaxFailures,
	}

	for _, s := range c.Servers {
		opt.Servers = append(opt.Servers, s.Address)
	}

	if c.Resolver.QueryTimeout != "" {
		d, err := time.ParseDuration(c.Resolver.QueryTimeout)
		if err != nil {
			return nil, InvalidArgumentError{Reason: "invalid query-timeout: " + err.Error()}
		}
		opt.QueryTimeout = d
	}
	if c.Resolver.NegativeTTL != "" {
		d, err := time.ParseDuration(c.Resolver.NegativeTTL)
		if err != nil {
			return nil, InvalidArgumentError{Reason: "invalid negative-ttl: " + err.Error()}
		}
		opt.NegativeTTL = d
	}

	switch c.Cache.Backend {
	case "redis":
		opt.Cache = NewRedisBackend(RedisBackendOptions{
			RedisOptions: redisOptionsFromAddr(c.Cache.RedisAddr),
			KeyPrefix:    "adns:",
		})
	case "", "memory":
		opt.CacheCapacity = c.Cache.Capacity
	default:
		return nil, InvalidArgumentError{Reason: "unknown cache backend: " + c.Cache.Backend}
	}

	return New(opt), nil
}
