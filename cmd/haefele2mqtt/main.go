package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/haefelemesh/haefele2mqtt/internal/configuration"
	"github.com/haefelemesh/haefele2mqtt/internal/db"
	"github.com/haefelemesh/haefele2mqtt/internal/logger"
	"github.com/haefelemesh/haefele2mqtt/internal/meshdef"
	"github.com/haefelemesh/haefele2mqtt/internal/mqtt"
	"github.com/haefelemesh/haefele2mqtt/internal/provisioning"
	"github.com/haefelemesh/haefele2mqtt/internal/router"
	"github.com/haefelemesh/haefele2mqtt/internal/types"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := logger.GetLogger("[main]", logger.LogLevelError)

	var configFile = flag.String("c", "./configuration.yaml", "path to config file name")
	flag.Parse()

	configService, err := configuration.Init(*configFile)
	if err != nil {
		log.Error("Configuration initialization error: %v\n", err)
		os.Exit(1)
	}

	cfg := configService.GetConfiguration()
	log = logger.GetLogger("[main]", cfg.LogLevel)

	if cfg.ProvisioningConfiguration.Mode == "auto" && cfg.MqttConfiguration.Username == "" {
		username, password, err := provisioning.ProvisionUser(&cfg)
		if err != nil {
			log.Error("Provisioning error: %v\n", err)
			os.Exit(1)
		}

		cfg.MqttConfiguration.Username = username
		cfg.MqttConfiguration.Password = password
		if err := configService.Update(cfg); err != nil {
			log.Error("Error persisting provisioned credentials: %v\n", err)
			os.Exit(1)
		}

		log.Info("Provisioned broker user %q, credentials saved to %v", username, *configFile)
	}

	database, err := db.NewDeviceDB(cfg.DataDirectory)
	if err != nil {
		log.Error("db initialization error: %v\n", err)
		os.Exit(1)
	}
	defer database.Close(ctx)

	meshDefService, err := meshdef.New(cfg.MeshDefFile)
	if err != nil {
		log.Error("mesh definition initialization error: %v\n", err)
		os.Exit(1)
	}

	mqttClient, mqttDisconnect, err := mqtt.NewClient(&cfg)
	if err != nil {
		log.Error("MQTT initialization error: %v\n", err)
		os.Exit(1)
	}
	defer mqttDisconnect()

	hRouter := router.NewHassRouter(&cfg, mqttClient)
	gRouter := router.NewGatewayRouter(&cfg, mqttClient, database, meshDefService)

	setupSubscriptions(ctx, gRouter, hRouter)

	if err := hRouter.Start(); err != nil {
		log.Error("hass router start error: %v\n", err)
		os.Exit(1)
	}
	defer hRouter.Stop()

	if err := gRouter.Start(ctx); err != nil {
		log.Error("gateway router start error: %v\n", err)
		os.Exit(1)
	}
	defer gRouter.Stop()

	waitForInterruptSignal()

	log.Info("exiting app...")
}

func setupSubscriptions(ctx context.Context, gRouter router.GatewayRouter, hRouter router.HassRouter) {
	gRouter.SubscribeOnDeviceDiscovered(hRouter.PublishDeviceDiscovery)
	gRouter.SubscribeOnDeviceKindChanged(func(oldKind string, dev db.Device) {
		hRouter.ClearDeviceDiscovery(oldKind, dev.Name)
	})
	gRouter.SubscribeOnDeviceState(hRouter.PublishDeviceState)
	hRouter.SubscribeOnCommandMessage(func(devCmd types.DeviceCommandMessage) {
		gRouter.ProcessCommandMessage(ctx, devCmd)
	})
	hRouter.SubscribeOnSceneActivateMessage(func(msg types.SceneActivateMessage) {
		gRouter.ProcessSceneActivateMessage(ctx, msg)
	})
}

func waitForInterruptSignal() {
	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, os.Interrupt)
	defer func() {
		signal.Stop(sigchan)
	}()
	<-sigchan
}
