package config

// Default configuration values.
const (
	DefaultFrames        = 60
	DefaultTickRate      = 60
	DefaultRepeatHorizon = 5

	DefaultJournalPath = "rewind.db"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Simulation: SimulationSection{
			Frames:        DefaultFrames,
			TickRate:      DefaultTickRate,
			RepeatHorizon: DefaultRepeatHorizon,
		},
		Journal: JournalSection{
			Enabled: false,
			Path:    DefaultJournalPath,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
