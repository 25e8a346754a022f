//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"
	"notifyd/internal/app"
	"notifyd/internal/auth"
	"notifyd/internal/client"
	"notifyd/internal/config"
	"notifyd/internal/http"
	"notifyd/internal/http/controller"
	"notifyd/internal/http/middleware"
	"notifyd/internal/logging"
	"notifyd/internal/metrics"
	"notifyd/internal/protocol"
	"notifyd/internal/queue/rabbitmq"
	"notifyd/internal/service/notify"
	"notifyd/internal/sse"
	"notifyd/internal/state"
	"notifyd/internal/store"
)

var channelSet = wire.NewSet(
	state.New,
	wire.Bind(new(state.Publisher), new(*sse.Hub)),
	protocol.NewHandler,
	wire.Bind(new(protocol.Store), new(*state.Store)),
	notify.NewIngest,
	client.NewWebsocketDialer,
	client.NewManager,
	wire.Bind(new(client.FrameHandler), new(*notify.Ingest)),
	wire.Bind(new(client.StateSink), new(*state.Store)),
	client.NewSender,
	wire.Bind(new(client.FrameSender), new(*client.Manager)),
)

var serviceSet = wire.NewSet(
	auth.NewSession,
	notify.NewService,
	wire.Bind(new(notify.Snapshotter), new(*state.Store)),
	wire.Bind(new(notify.CommandSender), new(*client.Sender)),
	wire.Bind(new(notify.Session), new(*auth.Session)),
	rabbitmq.NewConsumer,
	wire.Bind(new(rabbitmq.Commands), new(*notify.Service)),
)

func InitializeApp() (*app.App, error) {
	wire.Build(
		config.New,
		logging.New,
		metrics.New,
		store.NewStore,
		sse.NewHub,
		rabbitmq.NewPublisher,
		channelSet,
		serviceSet,
		controller.NewHandler,
		middleware.NewRateLimiter,
		http.NewRouter,
		app.NewApp,
	)
	return &app.App{}, nil
}
