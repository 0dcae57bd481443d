package config

const (
	defaultConfigPath        = "~/.config/sortdir/config.toml"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultLogRetentionDays  = 30
	defaultHistoryLimit      = 20
	defaultKeepRuns          = 500
	defaultUnsupportedPolicy = UnsupportedKeep
	maxAutoRelocateWorkers   = 64
	maxWorkers               = 1024
)

// Archive policies for formats the expander cannot open.
const (
	// UnsupportedKeep leaves the archive moved into the archives folder and
	// records a non-fatal notice.
	UnsupportedKeep = "keep"
	// UnsupportedFail records the archive as a failed relocation.
	UnsupportedFail = "fail"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	stateDir := defaultStateDir()
	return Config{
		Paths: Paths{
			StateDir: stateDir,
			LogDir:   stateDir + "/logs",
		},
		Pruning: Pruning{
			Enabled: true,
		},
		Archives: Archives{
			UnsupportedPolicy: defaultUnsupportedPolicy,
		},
		Journal: Journal{
			Enabled:      true,
			HistoryLimit: defaultHistoryLimit,
			KeepRuns:     defaultKeepRuns,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
