package conf

import (
	"encoding/json"
	"os"

	"github.com/wechatferry/ferry/pkg/config"

	"github.com/rs/zerolog/log"
)

const (
	AppName      = "ferry"
	ConfigName   = "ferry-server"
	EnvPrefix    = "FERRY"
	EnvConfigDir = "FERRY_DIR"
)

// Load 加载服务配置,cmdConf 为命令行覆盖项
func Load(configPath string, cmdConf map[string]any) (*Config, *config.Manager, error) {

	if configPath == "" {
		configPath = os.Getenv(EnvConfigDir)
	}

	cm, err := config.New(AppName, configPath, ConfigName, EnvPrefix, false)
	if err != nil {
		log.Error().Err(err).Msg("load server config failed")
		return nil, nil, err
	}

	conf := &Config{}
	config.SetDefaults(cm.Viper, conf, Defaults)

	for key, value := range cmdConf {
		cm.SetConfig(key, value)
	}

	if err := cm.Load(conf); err != nil {
		log.Error().Err(err).Msg("load server config failed")
		return nil, nil, err
	}

	b, _ := json.Marshal(conf)
	log.Info().Msgf("server config: %s", string(b))

	return conf, cm, nil
}
