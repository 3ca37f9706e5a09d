package config

import "fmt"

// Verify validates the configuration.
func Verify(cfg *Config) error {
	if err := verifySimulation(&cfg.Simulation); err != nil {
		return err
	}
	if err := verifyJournal(&cfg.Journal); err != nil {
		return err
	}
	return verifyLog(&cfg.Log)
}

func verifySimulation(cfg *SimulationSection) error {
	if cfg.Frames < 1 {
		return fmt.Errorf("simulation.frames must be at least 1, got %d", cfg.Frames)
	}
	if cfg.TickRate < 1 {
		return fmt.Errorf("simulation.tick_rate must be at least 1, got %d", cfg.TickRate)
	}
	if cfg.RepeatHorizon < 0 {
		return fmt.Errorf("simulation.repeat_horizon must not be negative, got %d", cfg.RepeatHorizon)
	}
	return nil
}

func verifyJournal(cfg *JournalSection) error {
	if cfg.Enabled && cfg.Path == "" {
		return fmt.Errorf("journal.path is required when the journal is enabled")
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	switch cfg.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", cfg.Level)
	}
	switch cfg.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", cfg.Format)
	}
	return nil
}
