package config

import "testing"

func validConfig() Config {
	return Config{
		EngineID: "engine-1",
		Markets: []MarketConfig{
			{Exchange: "binance", Symbol: "BTCUSDT", DataSource: "historic_csv", CSVPath: "testdata/btc.csv"},
		},
		Portfolio: PortfolioConfig{StartingCash: 10000, DefaultOrderValue: 1000},
		Repository: RepositoryConfig{Backend: "memory"},
	}
}

func TestValidateAcceptsMinimalConfig(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsMissingEngineID(t *testing.T) {
	cfg := validConfig()
	cfg.EngineID = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for missing engine_id")
	}
}

func TestValidateRejectsUnknownDataSource(t *testing.T) {
	cfg := validConfig()
	cfg.Markets[0].DataSource = "carrier_pigeon"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for unknown data_source")
	}
}

func TestValidateRejectsFileBackendWithoutDir(t *testing.T) {
	cfg := validConfig()
	cfg.Repository = RepositoryConfig{Backend: "file"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for file backend without file_dir")
	}
}

func TestValidateRejectsNonPositiveStartingCash(t *testing.T) {
	cfg := validConfig()
	cfg.Portfolio.StartingCash = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for non-positive starting cash")
	}
}
