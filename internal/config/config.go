package config

import (
	"fmt"
	"time"

	"github.com/edusight/edusight/internal/domain/models"
)

// Config holds the application's configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Audit       AuditConfig       `mapstructure:"audit"`
	Risk        RiskConfig        `mapstructure:"risk"`
	Aggregation AggregationConfig `mapstructure:"aggregation"`
	Log         LogConfig         `mapstructure:"log"`
	Tracing     TracingConfig     `mapstructure:"tracing"`
}

type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	ReadTimeout    int      `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout   int      `mapstructure:"write_timeout"` // in seconds
	EnablePprof    bool     `mapstructure:"enable_pprof"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	// JWTSecret verifies the HS256 bearer tokens carrying principal claims.
	JWTSecret string `mapstructure:"jwt_secret"`
}

// DatabaseConfig selects the partition storage backend. The sqlite driver keeps
// one database file per tenant under DataDir; the postgres driver keeps one
// schema per tenant on a shared server.
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"` // "sqlite" or "postgres"
	DataDir         string `mapstructure:"data_dir"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxConns        int    `mapstructure:"max_conns"`
	MaxConnLifetime int    `mapstructure:"max_conn_lifetime"` // in minutes
}

func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

type RedisConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	Addresses    []string `mapstructure:"addresses"`
	Password     string   `mapstructure:"password"`
	DB           int      `mapstructure:"db"`
	PoolSize     int      `mapstructure:"pool_size"`
	StatsTTL     int      `mapstructure:"stats_ttl"` // in seconds
	MinIdleConns int      `mapstructure:"min_idle_conns"`
}

// AuditConfig controls the audit sink. The relational sink is always on; the
// Kafka mirror is an optional asynchronous copy for downstream consumers.
type AuditConfig struct {
	// HMACSecret enables tamper-evidence signatures on audit records when set.
	HMACSecret   string        `mapstructure:"hmac_secret"`
	KafkaEnabled bool          `mapstructure:"kafka_enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	BatchSize    int           `mapstructure:"batch_size"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// RiskConfig carries the rule-engine tunables. The shipped defaults are the
// canonical reference behavior; deployments may override thresholds without
// code changes, and the loader hot-reloads them on config file change.
type RiskConfig struct {
	Weights   RiskWeights    `mapstructure:"weights"`
	Cutoffs   RiskCutoffs    `mapstructure:"cutoffs"`
	Bands     RiskBands      `mapstructure:"bands"`
	Engagement EngagementRisk `mapstructure:"engagement"`
}

// RiskWeights are the per-factor composite weights. They must sum to 1.0.
type RiskWeights struct {
	Attendance float64 `mapstructure:"attendance"`
	Academic   float64 `mapstructure:"academic"`
	Financial  float64 `mapstructure:"financial"`
	Engagement float64 `mapstructure:"engagement"`
}

// Sum returns the total of all factor weights.
func (w RiskWeights) Sum() float64 {
	return w.Attendance + w.Academic + w.Financial + w.Engagement
}

// RiskCutoffs map a composite score onto an overall risk level.
type RiskCutoffs struct {
	Critical float64 `mapstructure:"critical"`
	High     float64 `mapstructure:"high"`
	Medium   float64 `mapstructure:"medium"`
}

// RiskBands hold the per-factor threshold boundaries.
type RiskBands struct {
	// Attendance percentage below which each level triggers
	AttendanceCritical float64 `mapstructure:"attendance_critical"`
	AttendanceHigh     float64 `mapstructure:"attendance_high"`
	AttendanceMedium   float64 `mapstructure:"attendance_medium"`

	// Theory marks percentage below which each level triggers
	MarksCritical float64 `mapstructure:"marks_critical"`
	MarksHigh     float64 `mapstructure:"marks_high"`
	MarksMedium   float64 `mapstructure:"marks_medium"`

	// Fee-due ratio above which each level triggers
	FeeDueCritical float64 `mapstructure:"fee_due_critical"`
	FeeDueHigh     float64 `mapstructure:"fee_due_high"`
	FeeDueMedium   float64 `mapstructure:"fee_due_medium"`
}

// EngagementRisk holds the additive point values for socioeconomic signals and
// the point boundaries that band the total into a level.
type EngagementRisk struct {
	NoInternetPoints     float64 `mapstructure:"no_internet_points"`
	IrregularPowerPoints float64 `mapstructure:"irregular_power_points"`
	LongCommutePoints    float64 `mapstructure:"long_commute_points"`
	ModCommutePoints     float64 `mapstructure:"mod_commute_points"`
	LargeFamilyPoints    float64 `mapstructure:"large_family_points"`
	RuralPoints          float64 `mapstructure:"rural_points"`

	LongCommuteKM float64 `mapstructure:"long_commute_km"`
	ModCommuteKM  float64 `mapstructure:"mod_commute_km"`
	LargeFamily   int     `mapstructure:"large_family"`

	CriticalPoints float64 `mapstructure:"critical_points"`
	HighPoints     float64 `mapstructure:"high_points"`
	MediumPoints   float64 `mapstructure:"medium_points"`
}

// AggregationConfig bounds the oversight fan-out.
type AggregationConfig struct {
	PartitionTimeout time.Duration `mapstructure:"partition_timeout"`
	MaxConcurrency   int           `mapstructure:"max_concurrency"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type TracingConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	ServiceName    string `mapstructure:"service_name"`
}

// Policy converts the configured tunables into the engine's policy shape.
func (c RiskConfig) Policy() models.RiskPolicy {
	return models.RiskPolicy{
		WeightAttendance: c.Weights.Attendance,
		WeightAcademic:   c.Weights.Academic,
		WeightFinancial:  c.Weights.Financial,
		WeightEngagement: c.Weights.Engagement,

		CutoffCritical: c.Cutoffs.Critical,
		CutoffHigh:     c.Cutoffs.High,
		CutoffMedium:   c.Cutoffs.Medium,

		AttendanceCriticalBelow: c.Bands.AttendanceCritical,
		AttendanceHighBelow:     c.Bands.AttendanceHigh,
		AttendanceMediumBelow:   c.Bands.AttendanceMedium,

		MarksCriticalBelow: c.Bands.MarksCritical,
		MarksHighBelow:     c.Bands.MarksHigh,
		MarksMediumBelow:   c.Bands.MarksMedium,

		FeeDueCriticalAbove: c.Bands.FeeDueCritical,
		FeeDueHighAbove:     c.Bands.FeeDueHigh,
		FeeDueMediumAbove:   c.Bands.FeeDueMedium,

		NoInternetPoints:     c.Engagement.NoInternetPoints,
		IrregularPowerPoints: c.Engagement.IrregularPowerPoints,
		LongCommutePoints:    c.Engagement.LongCommutePoints,
		ModCommutePoints:     c.Engagement.ModCommutePoints,
		LargeFamilyPoints:    c.Engagement.LargeFamilyPoints,
		RuralPoints:          c.Engagement.RuralPoints,
		LongCommuteKM:        c.Engagement.LongCommuteKM,
		ModCommuteKM:         c.Engagement.ModCommuteKM,
		LargeFamilySize:      c.Engagement.LargeFamily,
		EngCriticalAbove:     c.Engagement.CriticalPoints,
		EngHighAbove:         c.Engagement.HighPoints,
		EngMediumAbove:       c.Engagement.MediumPoints,
	}
}

// Validate checks for essential configuration values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if sum := c.Risk.Weights.Sum(); sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("risk factor weights must sum to 1.0, got %.3f", sum)
	}
	if c.Aggregation.MaxConcurrency <= 0 {
		return fmt.Errorf("aggregation max_concurrency must be positive")
	}
	return nil
}
