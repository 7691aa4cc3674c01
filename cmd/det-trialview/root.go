package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/ghodss/yaml"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/determined-ai/trialview/internal"
	"github.com/determined-ai/trialview/internal/config"
	"github.com/determined-ai/trialview/pkg/check"
	"github.com/determined-ai/trialview/pkg/logger"
	"github.com/determined-ai/trialview/version"
)

const defaultConfigPath = "/etc/determined/trialview.yaml"

var rootCmd = &cobra.Command{
	Use:           "det-trialview",
	Short:         "Serve live views of Determined trials",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, conf)
	},
}

func serve(ctx context.Context, conf *config.Config) error {
	logs := logger.NewLogBuffer(conf.LogBufferSize)
	log.AddHook(logs)

	if printable, err := conf.Printable(); err == nil {
		log.Infof("trial view configuration: %s", printable)
	}

	tv, err := internal.New(version.Version, logs, conf)
	if err != nil {
		return errors.Wrap(err, "starting trial view")
	}
	return tv.Run(ctx)
}

// loadConfig layers the configuration file under environment variables and flags, validates the
// result and applies its logging settings. The file location itself may come from a flag or the
// environment, so settings are read twice.
func loadConfig() (*config.Config, error) {
	bootstrap, err := getConfig(v.AllSettings())
	if err != nil {
		return nil, err
	}

	bs, err := readConfigFile(bootstrap.ConfigFile)
	if err != nil {
		return nil, err
	}
	if err := mergeConfigBytesIntoViper(bs); err != nil {
		return nil, err
	}

	conf, err := getConfig(v.AllSettings())
	if err != nil {
		return nil, err
	}
	if err := check.Validate(conf); err != nil {
		return nil, err
	}
	logger.SetLogrus(conf.Log)
	return conf, nil
}

// readConfigFile returns the file's contents. A missing file is only an error when the path was
// given explicitly.
func readConfigFile(path string) ([]byte, error) {
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}

	bs, err := os.ReadFile(path) // #nosec G304
	switch {
	case err == nil:
		return bs, nil
	case os.IsNotExist(err) && !explicit:
		log.Warnf("no configuration file at %s, using defaults", path)
		return nil, nil
	case os.IsNotExist(err):
		return nil, errors.Wrap(err, "error finding configuration file")
	default:
		return nil, errors.Wrap(err, "error reading configuration file")
	}
}

func mergeConfigBytesIntoViper(bs []byte) error {
	settings := map[string]interface{}{}
	if err := yaml.Unmarshal(bs, &settings); err != nil {
		return errors.Wrap(err, "parsing configuration file")
	}
	return errors.Wrap(v.MergeConfigMap(settings), "merging configuration file")
}

// getConfig decodes viper's settings onto the defaults. Unknown keys are rejected.
func getConfig(settings map[string]interface{}) (*config.Config, error) {
	bs, err := json.Marshal(settings)
	if err != nil {
		return nil, errors.Wrap(err, "cannot marshal configuration map into json bytes")
	}
	conf := config.DefaultConfig()
	if err := yaml.Unmarshal(bs, conf, yaml.DisallowUnknownFields); err != nil {
		return nil, errors.Wrap(err, "cannot unmarshal configuration")
	}
	if err := conf.Resolve(); err != nil {
		return nil, err
	}
	return conf, nil
}
