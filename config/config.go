// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package config

import (
	"log"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Application config structure
type AppConfig struct {
	Name     string `mapstructure:"service_name" validate:"required"`
	Version  string `mapstructure:"version" validate:"required"`
	Env      string `mapstructure:"env"`
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	LogFile  string `mapstructure:"log_file"`

	CredentialConfig CredentialConfig `mapstructure:"credential" validate:"required"`
	RealtimeConfig   RealtimeConfig   `mapstructure:"realtime" validate:"required"`
	InterviewConfig  InterviewConfig  `mapstructure:"interview" validate:"required"`
	WebRTCConfig     WebRTCConfig     `mapstructure:"webrtc"`
	AudioConfig      AudioConfig      `mapstructure:"audio"`
	MetricsConfig    MetricsConfig    `mapstructure:"metrics" validate:"required"`
}

// CredentialConfig points at the service that mints short-lived realtime keys.
// StaticKey bypasses the token service and is meant for local development.
type CredentialConfig struct {
	TokenURL  string        `mapstructure:"token_url" validate:"omitempty,url"`
	StaticKey string        `mapstructure:"static_key" validate:"required_without=TokenURL"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"required"`
}

type RealtimeConfig struct {
	BaseURL     string        `mapstructure:"base_url" validate:"required,url"`
	Model       string        `mapstructure:"model" validate:"required"`
	DataChannel string        `mapstructure:"data_channel" validate:"required"`
	OpenTimeout time.Duration `mapstructure:"open_timeout" validate:"required"`
}

type InterviewConfig struct {
	Topic               string        `mapstructure:"topic" validate:"required"`
	TotalQuestions      int           `mapstructure:"total_questions" validate:"required,min=1"`
	MicCheckDelay       time.Duration `mapstructure:"mic_check_delay"`
	TransitionDelay     time.Duration `mapstructure:"transition_delay"`
	ConfirmationPhrases []string      `mapstructure:"confirmation_phrases" validate:"required,min=1,dive,required"`
	ConfusionPhrases    []string      `mapstructure:"confusion_phrases" validate:"dive,required"`
}

type WebRTCConfig struct {
	ICEServers         []string `mapstructure:"ice_servers"`
	ICEUsername        string   `mapstructure:"ice_username"`
	ICECredential      string   `mapstructure:"ice_credential"`
	ICETransportPolicy string   `mapstructure:"ice_transport_policy" validate:"omitempty,oneof=all relay"`
}

// AudioConfig selects where microphone audio comes from and where the
// interviewer's voice goes. Empty CaptureFile means silence is sent.
type AudioConfig struct {
	CaptureFile string `mapstructure:"capture_file"`
	RecordPath  string `mapstructure:"record_path"`
}

type MetricsConfig struct {
	Namespace string `mapstructure:"namespace" validate:"required"`
}

// reading config and intializing configs for application
func InitConfig() (*viper.Viper, error) {
	vConfig := viper.NewWithOptions(viper.KeyDelimiter("__"))

	vConfig.AddConfigPath(".")
	vConfig.SetConfigName(".env")
	path := os.Getenv("ENV_PATH")
	if path != "" {
		log.Printf("env path %v", path)
		vConfig.SetConfigFile(path)
	}
	vConfig.SetConfigType("env")
	vConfig.AutomaticEnv()
	vConfig.AllowEmptyEnv(true)

	setDefault(vConfig)
	if err := vConfig.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, err
		}
		log.Printf("Reading from env variables.")
	}
	return vConfig, nil
}

func setDefault(v *viper.Viper) {
	v.SetDefault("SERVICE_NAME", "interview-api")
	v.SetDefault("VERSION", "0.0.1")
	v.SetDefault("ENV", "development")
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", 9090)
	v.SetDefault("LOG_LEVEL", "debug")
	v.SetDefault("LOG_FILE", "")

	v.SetDefault("CREDENTIAL__TOKEN_URL", "http://localhost:3000/token")
	v.SetDefault("CREDENTIAL__STATIC_KEY", "")
	v.SetDefault("CREDENTIAL__TIMEOUT", "10s")

	v.SetDefault("REALTIME__BASE_URL", "https://api.openai.com/v1/realtime")
	v.SetDefault("REALTIME__MODEL", "gpt-4o-realtime-preview-2024-12-17")
	v.SetDefault("REALTIME__DATA_CHANNEL", "oai-events")
	v.SetDefault("REALTIME__OPEN_TIMEOUT", "15s")

	v.SetDefault("INTERVIEW__TOPIC", "React")
	v.SetDefault("INTERVIEW__TOTAL_QUESTIONS", 10)
	v.SetDefault("INTERVIEW__MIC_CHECK_DELAY", "1s")
	v.SetDefault("INTERVIEW__TRANSITION_DELAY", "1s")
	v.SetDefault("INTERVIEW__CONFIRMATION_PHRASES", "great,hear you,working,ready to begin")
	v.SetDefault("INTERVIEW__CONFUSION_PHRASES", "what can i help you with,how can i assist you,how may i help")

	v.SetDefault("WEBRTC__ICE_SERVERS", "stun:stun.l.google.com:19302")
	v.SetDefault("WEBRTC__ICE_USERNAME", "")
	v.SetDefault("WEBRTC__ICE_CREDENTIAL", "")
	v.SetDefault("WEBRTC__ICE_TRANSPORT_POLICY", "all")

	v.SetDefault("AUDIO__CAPTURE_FILE", "")
	v.SetDefault("AUDIO__RECORD_PATH", "")

	v.SetDefault("METRICS__NAMESPACE", "interview")
}

// Getting application config from viper
func GetApplicationConfig(v *viper.Viper) (*AppConfig, error) {
	var config AppConfig
	err := v.Unmarshal(&config, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		trimSliceHook(),
	)))
	if err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}

	// valdating the app config
	validate := validator.New()
	err = validate.Struct(&config)
	if err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}
	return &config, nil
}

// trimSliceHook trims entries of comma separated lists and drops empty ones,
// so "great, hear you" and "great,hear you" decode the same.
func trimSliceHook() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if t != reflect.TypeOf([]string{}) {
			return data, nil
		}
		var raw []string
		switch d := data.(type) {
		case []string:
			raw = d
		case []interface{}:
			for _, item := range d {
				if s, ok := item.(string); ok {
					raw = append(raw, s)
				}
			}
		default:
			return data, nil
		}
		out := make([]string, 0, len(raw))
		for _, s := range raw {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out, nil
	}
}
