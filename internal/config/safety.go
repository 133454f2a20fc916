package config

import (
	"time"
)

// SafetyConfig carries every tunable of the escalation engine. Grace windows
// and intervals are deliberately configuration, not constants.
type SafetyConfig struct {
	HotlineNumber       string        `yaml:"hotline_number"`
	VoiceGraceWindow    time.Duration `yaml:"voice_grace_window"`
	RideGraceWindow     time.Duration `yaml:"ride_grace_window"`
	RideCheckInterval   time.Duration `yaml:"ride_check_interval"`
	StrikeLimit         int           `yaml:"strike_limit"`
	NotifyWindow        time.Duration `yaml:"notify_window"`
	LocationPollCadence time.Duration `yaml:"location_poll_cadence"`
	LocationTimeout     time.Duration `yaml:"location_timeout"`
	Languages           []string      `yaml:"languages"`
	DeviceToken         string        `yaml:"device_token"`
}

func loadSafetyConfig() *SafetyConfig {
	return &SafetyConfig{
		HotlineNumber:       getEnv("SAFETY_HOTLINE_NUMBER", "100"),
		VoiceGraceWindow:    getEnvAsDuration("SAFETY_VOICE_GRACE_WINDOW", 60*time.Second),
		RideGraceWindow:     getEnvAsDuration("SAFETY_RIDE_GRACE_WINDOW", 5*time.Hour),
		RideCheckInterval:   getEnvAsDuration("SAFETY_RIDE_CHECK_INTERVAL", 10*time.Minute),
		StrikeLimit:         getEnvAsInt("SAFETY_STRIKE_LIMIT", 3),
		NotifyWindow:        getEnvAsDuration("SAFETY_NOTIFY_WINDOW", 30*time.Second),
		LocationPollCadence: getEnvAsDuration("SAFETY_LOCATION_POLL_CADENCE", 3*time.Second),
		LocationTimeout:     getEnvAsDuration("SAFETY_LOCATION_TIMEOUT", 10*time.Second),
		Languages:           getEnvAsSlice("SAFETY_LANGUAGES", []string{"en-US", "hi-IN", "te-IN", "ta-IN", "mr-IN", "bn-IN"}),
		DeviceToken:         getEnv("SAFETY_DEVICE_TOKEN", ""),
	}
}
