package config

import (
	"os"

	"github.com/go-yaml/yaml"
)

type Config struct {
	Server Server `yaml:"server"`
	Lure   Lure   `yaml:"lure"`
}

type Server struct {
	Listen        string `yaml:"listen"`
	PostgresDsn   string `yaml:"postgresDsn"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDB"`
	MemcachedAddr string `yaml:"memcachedAddr"`
	EnableTrace   bool   `yaml:"enableTrace"`
	TraceEndpoint string `yaml:"traceEndpoint"`
}

// Lure configures the artifact served by the download lure. Exactly one of
// ArtifactBase64 and ArtifactPath should be set.
type Lure struct {
	ArtifactBase64 string `yaml:"artifactBase64"`
	ArtifactPath   string `yaml:"artifactPath"`
	ArtifactName   string `yaml:"artifactName"`
}

func Load(path string) (Config, error) {

	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, err
	}

	if config.Server.Listen == "" {
		config.Server.Listen = ":3000"
	}
	if config.Lure.ArtifactName == "" {
		config.Lure.ArtifactName = "downloaded_file.pdf"
	}

	return config, nil
}
