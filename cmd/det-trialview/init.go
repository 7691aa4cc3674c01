package main

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/determined-ai/trialview/internal/config"
	"github.com/determined-ai/trialview/version"
)

var v *viper.Viper

// viperKeyDelimiter marks nested values in the configuration. With "..", keys may contain a
// single "." without viper treating it as an object path.
const viperKeyDelimiter = ".."

//nolint:gochecknoinit
func init() {
	// Link-time variable assignments are not applied when package-scoped variables are
	// initialized, so the version is set here.
	rootCmd.Version = version.Version
	registerConfig()
}

type configKey []string

func (c configKey) EnvName() string {
	return "DET_" + strings.ReplaceAll(strings.ToUpper(c.FlagName()), "-", "_")
}

func (c configKey) AccessPath() string {
	return strings.ReplaceAll(strings.Join(c, viperKeyDelimiter), "-", "_")
}

func (c configKey) FlagName() string {
	return strings.Join(c, "-")
}

func bind(flags *pflag.FlagSet, name configKey, value interface{}) {
	_ = v.BindEnv(name.AccessPath(), name.EnvName())
	_ = v.BindPFlag(name.AccessPath(), flags.Lookup(name.FlagName()))
	v.SetDefault(name.AccessPath(), value)
}

func registerString(flags *pflag.FlagSet, name configKey, value string, usage string) {
	flags.String(name.FlagName(), value, usage)
	bind(flags, name, value)
}

func registerBool(flags *pflag.FlagSet, name configKey, value bool, usage string) {
	flags.Bool(name.FlagName(), value, usage)
	bind(flags, name, value)
}

func registerInt(flags *pflag.FlagSet, name configKey, value int, usage string) {
	flags.Int(name.FlagName(), value, usage)
	bind(flags, name, value)
}

func registerFloat64(flags *pflag.FlagSet, name configKey, value float64, usage string) {
	flags.Float64(name.FlagName(), value, usage)
	bind(flags, name, value)
}

func registerDuration(flags *pflag.FlagSet, name configKey, value config.Duration, usage string) {
	registerString(flags, name, value.D().String(), usage)
}

func registerConfig() {
	v = viper.NewWithOptions(viper.KeyDelimiter(viperKeyDelimiter))
	v.SetTypeByDefaultValue(true)

	defaults := config.DefaultConfig()

	// Register flags and environment variables, and set default values for the flags.
	flags := rootCmd.Flags()
	name := func(components ...string) configKey { return components }

	registerString(flags, name("config-file"),
		defaults.ConfigFile, "location of config file")

	registerString(flags, name("log", "level"),
		defaults.Log.Level, "choose logging level from [trace, debug, info, warn, error, fatal]")
	registerBool(flags, name("log", "color"),
		defaults.Log.Color, "output logs in color")
	registerString(flags, name("log", "format"),
		string(defaults.Log.Format), "log line format, text or json")

	registerInt(flags, name("port"),
		defaults.Port, "server port")

	registerString(flags, name("master", "url"),
		defaults.Master.URL, "URL of the Determined master")
	registerString(flags, name("master", "token"),
		defaults.Master.Token, "bearer token for the master REST API")
	registerDuration(flags, name("master", "timeout"),
		defaults.Master.Timeout, "timeout of a single request to the master")
	registerFloat64(flags, name("master", "max-requests-per-second"),
		defaults.Master.MaxRequestsPerSecond, "cap on requests to the master (0 is unlimited)")

	registerDuration(flags, name("polling", "interval"),
		defaults.Polling.Interval, "how often a viewed trial is refetched")

	registerInt(flags, name("watchers", "capacity"),
		defaults.Watchers.Capacity, "maximum number of trials polled at once")
	registerDuration(flags, name("watchers", "idle-timeout"),
		defaults.Watchers.IdleTimeout, "stop polling a trial nobody viewed for this long")
	registerInt(flags, name("watchers", "max-retries"),
		defaults.Watchers.MaxRetries, "consecutive fetch failures before they are logged as warnings")
	registerDuration(flags, name("watchers", "error-timeout"),
		defaults.Watchers.ErrorTimeout, "window in which fetch failures count as consecutive")

	registerBool(flags, name("observability", "enable-prometheus"),
		defaults.Observability.EnablePrometheus, "serve prometheus metrics")
	registerBool(flags, name("observability", "enable-tracing"),
		defaults.Observability.EnableTracing, "export OpenTelemetry traces")
	registerString(flags, name("observability", "otlp-endpoint"),
		defaults.Observability.OtlpEndpoint, "OTLP gRPC endpoint for traces")
	registerFloat64(flags, name("observability", "trace-sample-ratio"),
		defaults.Observability.TraceSampleRatio, "fraction of root spans to keep")

	registerBool(flags, name("enable-cors"),
		defaults.EnableCors, "allow cross-origin requests")
	registerInt(flags, name("log-buffer-size"),
		defaults.LogBufferSize, "number of log entries kept in memory for /logs")
}
