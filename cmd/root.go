package cmd

import (
	"errors"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app       = "resume-matcher"
	envPrefix = "MATCHER"
)

type Config struct {
	Storage  *StorageConfig  `mapstructure:"storage"`
	AI       *AIConfig       `mapstructure:"ai"`
	Matching *MatchingConfig `mapstructure:"matching"`
	Server   *ServerConfig   `mapstructure:"server"`
	Notify   *NotifyConfig   `mapstructure:"notify"`
}

type StorageConfig struct {
	Driver  string `mapstructure:"driver"`
	DSN     string `mapstructure:"dsn"`
	DSNFile string `mapstructure:"dsn-file"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
	OpenAI   *OpenAIConfig `mapstructure:"openai"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
	Project      string `mapstructure:"project"`
	Location     string `mapstructure:"location"`
}

type OpenAIConfig struct {
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	BaseURL    string `mapstructure:"base-url"`
}

type MatchingConfig struct {
	DefaultTopN   int           `mapstructure:"default-top-n"`
	Concurrency   int           `mapstructure:"concurrency"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RatePerSecond float64       `mapstructure:"rate-per-second"`
	KeepRationale bool          `mapstructure:"keep-rationale"`
}

type ServerConfig struct {
	Listen string `mapstructure:"listen"`
}

type NotifyConfig struct {
	AMQPURL string `mapstructure:"amqp-url"`
	Queue   string `mapstructure:"queue"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "resume-matcher ranks college résumés against job descriptions with an LLM",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is resume-matcher.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("storage-driver", "", "storage driver: memory, sqlite or postgres")
	rootCmd.PersistentFlags().String("storage-dsn", "", "sqlite path or postgres connection string")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("storage.driver", rootCmd.PersistentFlags().Lookup("storage-driver"))
	viper.BindPFlag("storage.dsn", rootCmd.PersistentFlags().Lookup("storage-dsn"))

	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.dsn", app+".db")
	v.SetDefault("storage.dsn-file", "")
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.gemini.max-retries", 3)
	v.SetDefault("ai.gemini.max-log-length", 200)
	// empty defaults let AutomaticEnv reach these keys on Unmarshal
	for _, key := range []string{
		"ai.gemini.api-key-file", "ai.gemini.model", "ai.gemini.project", "ai.gemini.location",
		"ai.openai.api-key-file", "ai.openai.model", "ai.openai.base-url", "notify.amqp-url",
	} {
		v.SetDefault(key, "")
	}
	v.SetDefault("matching.default-top-n", 5)
	v.SetDefault("matching.concurrency", 4)
	v.SetDefault("matching.timeout", 60*time.Second)
	v.SetDefault("matching.rate-per-second", 0)
	v.SetDefault("matching.keep-rationale", true)
	v.SetDefault("server.listen", ":8080")
	v.SetDefault("notify.queue", "match_events")
}

func initConfig() {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("loading .env: %v", err)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// only an explicitly requested file is mandatory
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config == nil {
		config = &Config{}
	}
	if config.Storage == nil {
		config.Storage = &StorageConfig{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.AI.Gemini == nil {
		config.AI.Gemini = &GeminiConfig{}
	}
	if config.AI.OpenAI == nil {
		config.AI.OpenAI = &OpenAIConfig{}
	}
	if config.Matching == nil {
		config.Matching = &MatchingConfig{}
	}
	if config.Server == nil {
		config.Server = &ServerConfig{}
	}
	if config.Notify == nil {
		config.Notify = &NotifyConfig{}
	}
	return config, nil
}
