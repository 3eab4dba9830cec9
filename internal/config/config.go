// Package config defines the shape of the indexer's enumerated
// configuration (spec §6) and a thin koanf-based loader. Configuration
// loading is an external-collaborator concern per spec §1; this package
// intentionally holds no business logic, only the declared shape and
// defaults every other component reads from.
package config

import (
	"fmt"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/mitchellh/mapstructure"
)

// ChainConfig is one entry of the BLOCKCHAINS configuration list.
type ChainConfig struct {
	Name                          string `koanf:"name"`
	ChainID                       uint64 `koanf:"chainId"`
	RPCURL                        string `koanf:"rpcUrl"`
	FastSyncRPCURL                string `koanf:"fastSyncRpcUrl"`
	RPCWssURL                     string `koanf:"rpcWssUrl"`
	RPCWssURLBackup               string `koanf:"rpcWssUrlBackup"`
	CacheManagerAddress           string `koanf:"cacheManagerAddress"`
	ArbWasmCacheAddress           string `koanf:"arbWasmCacheAddress"`
	ArbWasmAddress                string `koanf:"arbWasmAddress"`
	CacheManagerAutomationAddress string `koanf:"cacheManagerAutomationAddress"`
	OriginBlock                   uint64 `koanf:"originBlock"`
	Enabled                       bool   `koanf:"enabled"`
}

// Config is the full set of tunables enumerated in spec §6.
type Config struct {
	Blockchains []ChainConfig `koanf:"blockchains"`

	// EventTypes is the allow-list of event names to subscribe/index.
	EventTypes []string `koanf:"eventTypes"`

	EventsFilterBatchSize uint64 `koanf:"eventsFilterBatchSize"`
	ResyncBlocksBack      uint64 `koanf:"resyncBlocksBack"`
	BatchSize             int    `koanf:"batchSize"`

	WSPingInterval time.Duration `koanf:"wsPingInterval"`
	WSPingTimeout  time.Duration `koanf:"wsPingTimeout"`
	WSBackoffBase  time.Duration `koanf:"wsBackoffBase"`
	WSBackoffMax   time.Duration `koanf:"wsBackoffMax"`

	ContractSmallSize uint64 `koanf:"contractSmallSize"`
	ContractMidSize   uint64 `koanf:"contractMidSize"`
	ContractLargeSize uint64 `koanf:"contractLargeSize"`

	DatabaseURL string `koanf:"databaseUrl"`
}

// DefaultEventTypes is the seven CacheManager events plus the two
// automation events named in spec §6.
var DefaultEventTypes = []string{
	"InsertBid", "DeleteBid", "Pause", "Unpause",
	"SetCacheSize", "SetDecayRate", "Initialized",
	"ContractAdded", "ContractUpdated",
}

func defaults() *koanf.Koanf {
	k := koanf.New(".")
	_ = k.Load(confmap.Provider(map[string]interface{}{
		"eventTypes":            DefaultEventTypes,
		"eventsFilterBatchSize": 5000,
		"resyncBlocksBack":      100,
		"batchSize":             50,
		"wsPingInterval":        "15s",
		"wsPingTimeout":         "10s",
		"wsBackoffBase":         "5s",
		"wsBackoffMax":          "300s",
	}, "."), nil)
	return k
}

// Load reads TOML from path, overlaid with INDEXER_-prefixed environment
// variables, the way the pack's indexer manifests (koanf file+env+toml)
// load configuration.
func Load(path string) (*Config, error) {
	k := defaults()

	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue("INDEXER_", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("config: load env overlay: %w", err)
	}

	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}
