package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
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
	serverURL = configVar[string]{
		envKey:       "CLIENT_SERVER_URL",
		flagKey:      "server-url",
		defaultValue: "ws://localhost:8080",
	}
	roomID = configVar[string]{
		envKey:       "CLIENT_ROOM_ID",
		flagKey:      "room-id",
		defaultValue: "",
	}
	videoHint = configVar[string]{
		envKey:       "CLIENT_VIDEO",
		flagKey:      "video",
		defaultValue: "",
	}
	nickname = configVar[string]{
		envKey:       "CLIENT_NICKNAME",
		flagKey:      "nickname",
		defaultValue: "",
	}
	logLevel = configVar[string]{
		envKey:       "CLIENT_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "WARN",
	}
	driftThreshold = configVar[float64]{
		envKey:       "CLIENT_DRIFT_THRESHOLD",
		flagKey:      "drift-threshold",
		defaultValue: 1.5,
	}
	echoGrace = configVar[time.Duration]{
		envKey:       "CLIENT_ECHO_GRACE",
		flagKey:      "echo-grace",
		defaultValue: 150 * time.Millisecond,
	}
)

func loadClientConfig() *app.ClientConfig {
	pflag.String(serverURL.flagKey, serverURL.defaultValue, "Relay base url")
	pflag.String(roomID.flagKey, roomID.defaultValue, "Room to join")
	pflag.String(videoHint.flagKey, videoHint.defaultValue, "Video id or url used to create the room if the relay allows ad-hoc rooms")
	pflag.String(nickname.flagKey, nickname.defaultValue, "Chat nickname")
	pflag.String(logLevel.flagKey, logLevel.defaultValue, "Logging level")
	pflag.Float64(driftThreshold.flagKey, driftThreshold.defaultValue, "Seconds of drift tolerated before seeking")
	pflag.Duration(echoGrace.flagKey, echoGrace.defaultValue, "How long own player notifications are ignored after applying remote state")
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	viper.BindEnv(serverURL.flagKey, serverURL.envKey)
	viper.BindEnv(roomID.flagKey, roomID.envKey)
	viper.BindEnv(videoHint.flagKey, videoHint.envKey)
	viper.BindEnv(nickname.flagKey, nickname.envKey)
	viper.BindEnv(logLevel.flagKey, logLevel.envKey)
	viper.BindEnv(driftThreshold.flagKey, driftThreshold.envKey)
	viper.BindEnv(echoGrace.flagKey, echoGrace.envKey)

	viper.SetDefault(serverURL.flagKey, serverURL.defaultValue)
	viper.SetDefault(roomID.flagKey, roomID.defaultValue)
	viper.SetDefault(videoHint.flagKey, videoHint.defaultValue)
	viper.SetDefault(nickname.flagKey, nickname.defaultValue)
	viper.SetDefault(logLevel.flagKey, logLevel.defaultValue)
	viper.SetDefault(driftThreshold.flagKey, driftThreshold.defaultValue)
	viper.SetDefault(echoGrace.flagKey, echoGrace.defaultValue)

	return &app.ClientConfig{
		ServerURL:      viper.GetString(serverURL.flagKey),
		RoomID:         viper.GetString(roomID.flagKey),
		VideoHint:      viper.GetString(videoHint.flagKey),
		Nickname:       viper.GetString(nickname.flagKey),
		LogLevel:       viper.GetString(logLevel.flagKey),
		DriftThreshold: viper.GetFloat64(driftThreshold.flagKey),
		EchoGrace:      viper.GetDuration(echoGrace.flagKey),
	}
}

func main() {
	clientConfig := loadClientConfig()

	jsonConfig, _ := json.MarshalIndent(clientConfig, "", "  ")
	fmt.Fprintf(os.Stderr, "starting client with config: %s\n", jsonConfig)

	if err := app.RunClient(context.Background(), clientConfig, os.Stdin, os.Stdout); err != nil {
		log.Fatal(err)
	}
}
