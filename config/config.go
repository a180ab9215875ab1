package config

import (
	"fmt"
	"strings"

	"github.com/edaniels/golog"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Transport Transport `mapstructure:"transport" validate:"required"`
	Admin     Admin     `mapstructure:"admin" validate:"required"`
	Tracking  Tracking  `mapstructure:"tracking" validate:"required"`
	Logging   Logging   `mapstructure:"logging" validate:"required"`
}

type Transport struct {
	Redis    Redis    `mapstructure:"redis" validate:"required"`
	Channels Channels `mapstructure:"channels" validate:"required"`
	Missions Missions `mapstructure:"missions" validate:"required"`
}

type Redis struct {
	Addr     *string `mapstructure:"addr" validate:"required"`
	Password *string `mapstructure:"password" validate:"required"`
	DB       *int    `mapstructure:"db" validate:"required"`
}

type Channels struct {
	Odometry *string `mapstructure:"odometry" validate:"required"`
	Path     *string `mapstructure:"path" validate:"required"`
	Command  *string `mapstructure:"command" validate:"required"`
}

type Missions struct {
	Enabled *bool   `mapstructure:"enabled" validate:"required"`
	QueueDB *int    `mapstructure:"queueDB" validate:"required"`
	Queue   *string `mapstructure:"queue" validate:"required"`
}

type Admin struct {
	Addr *string `mapstructure:"addr" validate:"required"`
}

type Tracking struct {
	Controller Controller `mapstructure:"controller" validate:"required"`
	Monitoring Monitoring `mapstructure:"monitoring" validate:"required"`
}

type Controller struct {
	SamplePeriod      *float64 `mapstructure:"samplePeriod" validate:"required"`
	OutputMin         *float64 `mapstructure:"outputMin" validate:"required"`
	OutputMax         *float64 `mapstructure:"outputMax" validate:"required"`
	TargetSpeed       *float64 `mapstructure:"targetSpeed" validate:"required"`
	Kp                *float64 `mapstructure:"kp" validate:"required"`
	Ki                *float64 `mapstructure:"ki" validate:"required"`
	Kd                *float64 `mapstructure:"kd" validate:"required"`
	LookaheadDistance *float64 `mapstructure:"lookaheadDistance" validate:"required"`
}

type Monitoring struct {
	CycleTimeWindow *int     `mapstructure:"cycleTimeWindow" validate:"required"`
	TelemetryPeriod *float64 `mapstructure:"telemetryPeriodSeconds" validate:"required"`
	DriftMinSamples *int     `mapstructure:"driftMinSamples" validate:"required"`
}

type Logging struct {
	Driver   *string  `mapstructure:"driver" validate:"oneof=noop stdout influxdb"`
	InfluxDB InfluxDB `mapstructure:"influxdb" validate:"required_if=Driver influxdb"`
}

type InfluxDB struct {
	Host   *string `mapstructure:"host" validate:"required"`
	Token  *string `mapstructure:"token" validate:"required"`
	Org    *string `mapstructure:"org" validate:"required"`
	Bucket *string `mapstructure:"bucket" validate:"required"`
}

func setDefaults() {
	viper.SetDefault("Transport.Redis.Addr", "localhost:6379")
	viper.SetDefault("Transport.Redis.Password", "")
	viper.SetDefault("Transport.Redis.DB", 0)
	viper.SetDefault("Transport.Channels.Odometry", "tracking/odom")
	viper.SetDefault("Transport.Channels.Path", "tracking/local_path")
	viper.SetDefault("Transport.Channels.Command", "tracking/cmd_vel")
	viper.SetDefault("Transport.Missions.Enabled", false)
	viper.SetDefault("Transport.Missions.QueueDB", 1)
	viper.SetDefault("Transport.Missions.Queue", "missions")

	viper.SetDefault("Admin.Addr", ":8090")

	viper.SetDefault("Logging.Driver", "noop")
	viper.SetDefault("Logging.InfluxDB.Host", "http://localhost:8086")
	viper.SetDefault("Logging.InfluxDB.Token", "")
	viper.SetDefault("Logging.InfluxDB.Org", "ugvlab")
	viper.SetDefault("Logging.InfluxDB.Bucket", "pathtracker")

	viper.SetDefault("Tracking.Controller.SamplePeriod", 0.1)
	viper.SetDefault("Tracking.Controller.OutputMin", -1)
	viper.SetDefault("Tracking.Controller.OutputMax", 1)
	viper.SetDefault("Tracking.Controller.TargetSpeed", 0.5)
	viper.SetDefault("Tracking.Controller.Kp", 1)
	viper.SetDefault("Tracking.Controller.Ki", 0.1)
	viper.SetDefault("Tracking.Controller.Kd", 0.05)
	viper.SetDefault("Tracking.Controller.LookaheadDistance", 1.5)

	viper.SetDefault("Tracking.Monitoring.CycleTimeWindow", 100)
	viper.SetDefault("Tracking.Monitoring.TelemetryPeriodSeconds", 1)
	viper.SetDefault("Tracking.Monitoring.DriftMinSamples", 20)
}

func ReadConfig(log golog.Logger) *Config {
	viper.AutomaticEnv()
	setDefaults()

	viper.SetConfigType("yaml")
	viper.SetConfigName("config")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/pathtracker")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Fatalf("config.yaml not found in . or /etc/pathtracker: %s", err)
		} else {
			log.Fatalf("error when reading config file: %s", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		log.Fatalf("error occurred while reading configuration file: %s", err)
	}
	validate := validator.New()
	if err := validate.Struct(&config); err != nil {
		if _, ok := err.(*validator.InvalidValidationError); ok {
			log.Fatalf("unable to validate config: %s", err)
		}

		var sb strings.Builder
		sb.WriteString("encountered validation errors:\n")
		for _, validationErr := range err.(validator.ValidationErrors) {
			sb.WriteString(fmt.Sprintf("\t%s\n", validationErr.Error()))
		}
		sb.WriteString("Check your configuration file and try again.")
		log.Fatal(sb.String())
	}

	return &config
}
