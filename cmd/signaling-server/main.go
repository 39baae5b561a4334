package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/study-along/signaling-server/internal/room"
	"github.com/study-along/signaling-server/internal/signaling"
	"github.com/study-along/signaling-server/pkg/protocol"
	"github.com/study-along/signaling-server/pkg/service"
	"go.uber.org/fx"
)

func newSignalingConfig() signaling.Config {
	config, err := signaling.LoadConfig()
	if err != nil {
		log.Fatalf("unable load signaling config: %s", err)
	}
	return config
}

func main() {
	_ = godotenv.Load()

	fx.New(
		fx.Provide(
			newSignalingConfig,

			room.NewRegistry,
			signaling.NewNotifier,
			signaling.NewGateway,

			protocol.AsHttpController(signaling.NewController),
		),

		service.LoggerModule,
		service.HttpModule,
	).Run()
}
