package feelmint

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pelletier/go-toml/v2"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	Log    LogConfig    `toml:"log"`
	API    APIConfig    `toml:"api"`
	Chain  ChainConfig  `toml:"chain"`
	Drafts DraftsConfig `toml:"drafts"`
	Upload UploadConfig `toml:"upload"`
	Spaces struct {
		Key    string `toml:"key"`
		Secret string `toml:"secret"`
		Region string `toml:"region"`
		Bucket string `toml:"bucket"`
		Root   string `toml:"root"`
	} `toml:"spaces"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

type APIConfig struct {
	BaseURL string `toml:"base_url"`
	Token   string `toml:"token"`
	// TimeoutSeconds bounds every request; zero means the client default.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

type ChainConfig struct {
	RPCURL  string `toml:"rpc_url"`
	ChainID uint64 `toml:"chain_id"`
	// PrivateKey is the hot wallet key in hex. Used by the CLI agent only;
	// embedders are expected to supply their own signer.
	PrivateKey string `toml:"private_key"`

	// Fallback contract addresses, used until the config API answers.
	RewardContract       string `toml:"reward_contract"`
	SubscriptionContract string `toml:"subscription_contract"`
	Stablecoin           string `toml:"stablecoin"`
	StablecoinDecimals   int    `toml:"stablecoin_decimals"`
}

type DraftsConfig struct {
	// Path of the local sqlite database holding saved drafts.
	Path string `toml:"path"`
}

type UploadConfig struct {
	// Backend selects how captured media reaches storage:
	// "presigned" PUTs to the server-issued upload URL, "spaces" writes
	// straight to the configured S3-compatible bucket.
	Backend string `toml:"backend"`
}
