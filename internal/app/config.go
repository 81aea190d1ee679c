package app

import (
	"os"
	"path/filepath"

	"github.com/frankamera/frankamera/pkg/shell"
	"gopkg.in/yaml.v3"
)

var configs [][]byte

// LoadConfig unmarshals every config source in order, later sources win.
func LoadConfig(v any) {
	for _, data := range configs {
		if err := yaml.Unmarshal(data, v); err != nil {
			Logger.Warn().Err(err).Msg("[app] read config")
		}
	}
}

func initConfig(confs []string) {
	if confs == nil {
		confs = []string{"frankamera.yaml"}
	}

	for _, conf := range confs {
		if len(conf) == 0 {
			continue
		}

		if conf[0] == '{' {
			// config as raw YAML or JSON
			configs = append(configs, []byte(conf))
			continue
		}

		// config as file
		if ConfigPath == "" {
			ConfigPath = conf
		}

		data, _ := os.ReadFile(conf)
		if data == nil {
			continue
		}

		data = []byte(shell.ReplaceEnvVars(string(data)))
		configs = append(configs, data)
	}

	if ConfigPath != "" {
		if !filepath.IsAbs(ConfigPath) {
			if cwd, err := os.Getwd(); err == nil {
				ConfigPath = filepath.Join(cwd, ConfigPath)
			}
		}
		Info["config_path"] = ConfigPath
	}
}
