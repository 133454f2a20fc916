package config

type RideLogConfig struct {
	SpreadsheetID string `yaml:"spreadsheet_id"`
	SheetName     string `yaml:"sheet_name"`
	Credentials   string `yaml:"credentials_file"`
}

func loadRideLogConfig() *RideLogConfig {
	return &RideLogConfig{
		SpreadsheetID: getEnv("RIDELOG_SPREADSHEET_ID", ""),
		SheetName:     getEnv("RIDELOG_SHEET_NAME", "Rides"),
		Credentials:   getEnv("RIDELOG_CREDENTIALS_FILE", ""),
	}
}
