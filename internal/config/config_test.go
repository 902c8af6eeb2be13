package config

import "testing"

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(envMap(map[string]string{"TOOLSHUB_SECRET_KEY": "s3cret"}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.BaseURL != "http://localhost:8080" {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, "http://localhost:8080")
	}
	if cfg.PlatformFeePercent != 15 {
		t.Errorf("PlatformFeePercent = %d, want 15", cfg.PlatformFeePercent)
	}
	if cfg.Currency != "usd" {
		t.Errorf("Currency = %q, want %q", cfg.Currency, "usd")
	}
	if cfg.Backup.Enabled() {
		t.Error("expected backups disabled by default")
	}
	if cfg.Backup.RetentionDays != 30 {
		t.Errorf("RetentionDays = %d, want 30", cfg.Backup.RetentionDays)
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := load(envMap(map[string]string{
		"TOOLSHUB_SECRET_KEY":           "s3cret",
		"TOOLSHUB_PORT":                 "9000",
		"TOOLSHUB_BASE_URL":             "https://toolshub.example.com/",
		"TOOLSHUB_PLATFORM_FEE_PERCENT": "10",
		"TOOLSHUB_CURRENCY":             "EUR",
		"TOOLSHUB_BACKUP_BUCKET":        "snapshots",
		"TOOLSHUB_BACKUP_ACCESS_KEY":    "ak",
		"TOOLSHUB_BACKUP_SECRET_KEY":    "sk",
		"TOOLSHUB_BACKUP_PASSPHRASE":    "pp",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BaseURL != "https://toolshub.example.com" {
		t.Errorf("BaseURL = %q, want trailing slash trimmed", cfg.BaseURL)
	}
	if cfg.PlatformFeePercent != 10 {
		t.Errorf("PlatformFeePercent = %d, want 10", cfg.PlatformFeePercent)
	}
	if cfg.Currency != "eur" {
		t.Errorf("Currency = %q, want %q", cfg.Currency, "eur")
	}
	if !cfg.Backup.Enabled() {
		t.Error("expected backups enabled")
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{}},
		{"bad fee", map[string]string{"TOOLSHUB_SECRET_KEY": "x", "TOOLSHUB_PLATFORM_FEE_PERCENT": "abc"}},
		{"fee out of range", map[string]string{"TOOLSHUB_SECRET_KEY": "x", "TOOLSHUB_PLATFORM_FEE_PERCENT": "150"}},
		{"bad retention", map[string]string{"TOOLSHUB_SECRET_KEY": "x", "TOOLSHUB_BACKUP_RETENTION_DAYS": "week"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := load(envMap(tt.env)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
