package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sharetube/watchsync/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
}

var (
	port = configVar[int]{
		envKey:       "SERVER_PORT",
		flagKey:      "port",
		defaultValue: 8080,
	}
	host = configVar[string]{
		envKey:       "SERVER_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
	}
	logLevel = configVar[string]{
		envKey:       "SERVER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
	}
	roomStore = configVar[string]{
		envKey:       "SERVER_ROOM_STORE",
		flagKey:      "room-store",
		defaultValue: app.RoomStoreMemory,
	}
	roomIdleTTL = configVar[time.Duration]{
		envKey:       "SERVER_ROOM_IDLE_TTL",
		flagKey:      "room-idle-ttl",
		defaultValue: 5 * time.Minute,
	}
	roomMaxAge = configVar[time.Duration]{
		envKey:       "SERVER_ROOM_MAX_AGE",
		flagKey:      "room-max-age",
		defaultValue: 14 * 24 * time.Hour,
	}
	allowAdHocRooms = configVar[bool]{
		envKey:       "SERVER_ALLOW_ADHOC_ROOMS",
		flagKey:      "allow-adhoc-rooms",
		defaultValue: false,
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "localhost",
	}
	redisPassword = configVar[string]{
		envKey:       "REDIS_PASSWORD",
		flagKey:      "redis-password",
		defaultValue: "",
	}
	geminiAPIKey = configVar[string]{
		envKey:       "GEMINI_API_KEY",
		flagKey:      "gemini-api-key",
		defaultValue: "",
	}
)

func loadAppConfig() *app.AppConfig {
	pflag.Int(port.flagKey, port.defaultValue, "Server port")
	pflag.String(host.flagKey, host.defaultValue, "Server host")
	pflag.String(logLevel.flagKey, logLevel.defaultValue, "Logging level")
	pflag.String(roomStore.flagKey, roomStore.defaultValue, "Room store: memory or redis")
	pflag.Duration(roomIdleTTL.flagKey, roomIdleTTL.defaultValue, "How long an empty room is kept")
	pflag.Duration(roomMaxAge.flagKey, roomMaxAge.defaultValue, "Upper bound on the lifetime of a room in redis")
	pflag.Bool(allowAdHocRooms.flagKey, allowAdHocRooms.defaultValue, "Create unknown rooms on join from the ?v= video hint")
	pflag.Int(redisPort.flagKey, redisPort.defaultValue, "Redis port")
	pflag.String(redisHost.flagKey, redisHost.defaultValue, "Redis host")
	pflag.String(redisPassword.flagKey, redisPassword.defaultValue, "Redis password")
	pflag.String(geminiAPIKey.flagKey, geminiAPIKey.defaultValue, "Gemini API key used to generate icebreakers")
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	viper.BindEnv(port.flagKey, port.envKey)
	viper.BindEnv(host.flagKey, host.envKey)
	viper.BindEnv(logLevel.flagKey, logLevel.envKey)
	viper.BindEnv(roomStore.flagKey, roomStore.envKey)
	viper.BindEnv(roomIdleTTL.flagKey, roomIdleTTL.envKey)
	viper.BindEnv(roomMaxAge.flagKey, roomMaxAge.envKey)
	viper.BindEnv(allowAdHocRooms.flagKey, allowAdHocRooms.envKey)
	viper.BindEnv(redisPort.flagKey, redisPort.envKey)
	viper.BindEnv(redisHost.flagKey, redisHost.envKey)
	viper.BindEnv(redisPassword.flagKey, redisPassword.envKey)
	viper.BindEnv(geminiAPIKey.flagKey, geminiAPIKey.envKey)

	viper.SetDefault(port.flagKey, port.defaultValue)
	viper.SetDefault(host.flagKey, host.defaultValue)
	viper.SetDefault(logLevel.flagKey, logLevel.defaultValue)
	viper.SetDefault(roomStore.flagKey, roomStore.defaultValue)
	viper.SetDefault(roomIdleTTL.flagKey, roomIdleTTL.defaultValue)
	viper.SetDefault(roomMaxAge.flagKey, roomMaxAge.defaultValue)
	viper.SetDefault(allowAdHocRooms.flagKey, allowAdHocRooms.defaultValue)
	viper.SetDefault(redisPort.flagKey, redisPort.defaultValue)
	viper.SetDefault(redisHost.flagKey, redisHost.defaultValue)
	viper.SetDefault(redisPassword.flagKey, redisPassword.defaultValue)
	viper.SetDefault(geminiAPIKey.flagKey, geminiAPIKey.defaultValue)

	return &app.AppConfig{
		Host:            viper.GetString(host.flagKey),
		Port:            viper.GetInt(port.flagKey),
		LogLevel:        viper.GetString(logLevel.flagKey),
		RoomStore:       viper.GetString(roomStore.flagKey),
		RoomIdleTTL:     viper.GetDuration(roomIdleTTL.flagKey),
		RoomMaxAge:      viper.GetDuration(roomMaxAge.flagKey),
		AllowAdHocRooms: viper.GetBool(allowAdHocRooms.flagKey),
		RedisPort:       viper.GetInt(redisPort.flagKey),
		RedisHost:       viper.GetString(redisHost.flagKey),
		RedisPassword:   viper.GetString(redisPassword.flagKey),
		GeminiAPIKey:    viper.GetString(geminiAPIKey.flagKey),
	}
}

func main() {
	ctx := context.Background()

	appConfig := loadAppConfig()

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	if err := app.Run(ctx, appConfig); err != nil {
		log.Fatal(err)
	}
}
