package config

import (
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// LoadConfig loads the configuration from file, environment variables, and defaults.
func LoadConfig() (*Config, *viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/edusight/")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, nil, err
		}
	}

	v.SetEnvPrefix("EDUSIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	return &cfg, v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15)
	v.SetDefault("server.write_timeout", 15)
	v.SetDefault("server.enable_pprof", false)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.jwt_secret", "edusight-dev-secret")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.data_dir", "./data")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 10)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addresses", []string{"localhost:6379"})
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.stats_ttl", 60)

	v.SetDefault("audit.kafka_enabled", false)
	v.SetDefault("audit.topic", "edusight.audit")
	v.SetDefault("audit.batch_size", 100)
	v.SetDefault("audit.write_timeout", 5*time.Second)

	v.SetDefault("aggregation.partition_timeout", 2*time.Second)
	v.SetDefault("aggregation.max_concurrency", 8)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_path", "stdout")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "edusight")

	// Risk rule engine reference defaults. The original rule set went through
	// several revisions; this is the canonical one.
	v.SetDefault("risk.weights.attendance", 0.35)
	v.SetDefault("risk.weights.academic", 0.30)
	v.SetDefault("risk.weights.financial", 0.20)
	v.SetDefault("risk.weights.engagement", 0.15)

	v.SetDefault("risk.cutoffs.critical", 75.0)
	v.SetDefault("risk.cutoffs.high", 55.0)
	v.SetDefault("risk.cutoffs.medium", 35.0)

	v.SetDefault("risk.bands.attendance_critical", 45.0)
	v.SetDefault("risk.bands.attendance_high", 60.0)
	v.SetDefault("risk.bands.attendance_medium", 75.0)
	v.SetDefault("risk.bands.marks_critical", 40.0)
	v.SetDefault("risk.bands.marks_high", 55.0)
	v.SetDefault("risk.bands.marks_medium", 70.0)
	v.SetDefault("risk.bands.fee_due_critical", 0.7)
	v.SetDefault("risk.bands.fee_due_high", 0.4)
	v.SetDefault("risk.bands.fee_due_medium", 0.2)

	v.SetDefault("risk.engagement.no_internet_points", 20.0)
	v.SetDefault("risk.engagement.irregular_power_points", 15.0)
	v.SetDefault("risk.engagement.long_commute_points", 25.0)
	v.SetDefault("risk.engagement.mod_commute_points", 15.0)
	v.SetDefault("risk.engagement.large_family_points", 15.0)
	v.SetDefault("risk.engagement.rural_points", 10.0)
	v.SetDefault("risk.engagement.long_commute_km", 30.0)
	v.SetDefault("risk.engagement.mod_commute_km", 15.0)
	v.SetDefault("risk.engagement.large_family", 7)
	v.SetDefault("risk.engagement.critical_points", 60.0)
	v.SetDefault("risk.engagement.high_points", 35.0)
	v.SetDefault("risk.engagement.medium_points", 15.0)
}

// WatchRisk re-reads the risk tunables whenever the config file changes and
// hands the fresh section to onChange. Reload failures keep the previous
// tunables in effect.
func WatchRisk(v *viper.Viper, onChange func(RiskConfig)) {
	var mu sync.Mutex
	v.OnConfigChange(func(_ fsnotify.Event) {
		mu.Lock()
		defer mu.Unlock()
		var cfg Config
		if err := v.Unmarshal(&cfg); err != nil {
			return
		}
		if sum := cfg.Risk.Weights.Sum(); sum < 0.999 || sum > 1.001 {
			return
		}
		onChange(cfg.Risk)
	})
	v.WatchConfig()
}
