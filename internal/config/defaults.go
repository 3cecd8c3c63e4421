package config

import "time"

// Session backend names accepted in [session] backend.
const (
	BackendCookie = "cookie"
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
	BackendMemory = "memory"
)

// Default values for configuration options.
const (
	defaultListenAddr  = ":3000"
	defaultStaticDir   = "www"
	defaultBackend     = BackendCookie
	defaultCookieName  = "forgesession"
	defaultFanout      = 8
	defaultMaxRefDepth = 16
	defaultLogLevel    = "info"
	defaultLogFormat   = "auto"
	defaultUserAgent   = "viewhubs/0.1"
	defaultBurst       = 10

	defaultAuthURL    = "https://developer.api.autodesk.com/authentication/v2/authorize"
	defaultTokenURL   = "https://developer.api.autodesk.com/authentication/v2/token"
	defaultAPIBaseURL = "https://developer.api.autodesk.com"

	defaultMaxAge          = 14 * 24 * time.Hour
	defaultSweepInterval   = time.Hour
	defaultReadTimeout     = 30 * time.Second
	defaultWriteTimeout    = 120 * time.Second
	defaultIdleTimeout     = 120 * time.Second
	defaultShutdownTimeout = 15 * time.Second
	defaultConnectTimeout  = 10 * time.Second
	defaultDataTimeout     = 60 * time.Second
)

// DefaultConfig returns a Config populated with all default values.
// A missing config file is equivalent to this.
func DefaultConfig() *Config {
	return &Config{
		Forge:    defaultForgeConfig(),
		Server:   defaultServerConfig(),
		Session:  defaultSessionConfig(),
		Resolver: defaultResolverConfig(),
		Network:  defaultNetworkConfig(),
		Logging:  defaultLoggingConfig(),
	}
}

func defaultForgeConfig() ForgeConfig {
	return ForgeConfig{
		AuthURL:    defaultAuthURL,
		TokenURL:   defaultTokenURL,
		APIBaseURL: defaultAPIBaseURL,
	}
}

func defaultServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr:      defaultListenAddr,
		StaticDir:       defaultStaticDir,
		ReadTimeout:     defaultReadTimeout.String(),
		WriteTimeout:    defaultWriteTimeout.String(),
		IdleTimeout:     defaultIdleTimeout.String(),
		ShutdownTimeout: defaultShutdownTimeout.String(),
	}
}

func defaultSessionConfig() SessionConfig {
	return SessionConfig{
		Backend:       defaultBackend,
		CookieName:    defaultCookieName,
		MaxAge:        defaultMaxAge.String(),
		SweepInterval: defaultSweepInterval.String(),
	}
}

func defaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		Fanout:      defaultFanout,
		MaxRefDepth: defaultMaxRefDepth,
	}
}

func defaultNetworkConfig() NetworkConfig {
	return NetworkConfig{
		ConnectTimeout: defaultConnectTimeout.String(),
		DataTimeout:    defaultDataTimeout.String(),
		UserAgent:      defaultUserAgent,
		Burst:          defaultBurst,
	}
}

func defaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		LogLevel:  defaultLogLevel,
		LogFormat: defaultLogFormat,
	}
}
