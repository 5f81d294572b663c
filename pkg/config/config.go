package config

import (
	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig
	DB      DBConfig
	Routing RoutingConfig
}

type ServerConfig struct {
	Address string
}

type DBConfig struct {
	Host     string
	User     string
	Password string
	Name     string
	Port     int
}

// RoutingConfig 是 OSRM 路線服務的設置
type RoutingConfig struct {
	OSRMURL string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./pkg/config")

	// 沒有在配置文件中指定時使用的默認值
	viper.SetDefault("server.address", ":8000")
	viper.SetDefault("routing.osrmurl", "http://router.project-osrm.org")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
