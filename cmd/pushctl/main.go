package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/pushkit/webpush-client/event"
	"github.com/pushkit/webpush-client/platform"
	platformmemory "github.com/pushkit/webpush-client/platform/memory"
	"github.com/pushkit/webpush-client/relay"
	"github.com/pushkit/webpush-client/sender"
	"github.com/pushkit/webpush-client/state"
	statememory "github.com/pushkit/webpush-client/state/memory"
	"github.com/pushkit/webpush-client/subscription"
)

// pushctl exercises the subscription lifecycle against the simulated
// platform. With a RELAY_ENDPOINT and MANIFEST_URL configured it also runs
// the relay bridge and the sender identity check.
func main() {
	_ = godotenv.Load()

	if len(os.Args) > 1 && os.Args[1] == "gen-vapid" {
		priv, pub, err := webpush.GenerateVAPIDKeys()
		if err != nil {
			log.Fatal("Failed to generate VAPID keys:", err)
		}
		fmt.Println("VAPID_PUBLIC_KEY=" + pub)
		fmt.Println("VAPID_PRIVATE_KEY=" + priv)
		return
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatal("Failed to create logger:", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	vapidKey := os.Getenv("VAPID_PUBLIC_KEY")
	relayEndpoint := os.Getenv("RELAY_ENDPOINT")
	manifestURL := os.Getenv("MANIFEST_URL")

	sim := platformmemory.NewPlatform(platformmemory.Config{
		PromptOutcome: platform.PermissionGranted,
		RequiresVAPID: vapidKey != "",
	})
	flags := state.NewFlags(statememory.NewInMemory())

	if vapidKey != "" {
		if err := flags.SetVAPIDKey(ctx, vapidKey); err != nil {
			logger.Fatal("Failed to store VAPID key", zap.Error(err))
		}
	}

	var registrar *relay.Registrar
	if relayEndpoint != "" {
		registrar = relay.NewRegistrar(logger, relayEndpoint, flags)
	}

	var reconciler *sender.Reconciler
	if manifestURL != "" {
		reconciler = sender.NewReconciler(logger, manifestURL, flags)
	}

	manager := subscription.NewManager(logger, sim, flags, registrar, reconciler, subscription.Config{
		WorkerURL:   "/service-worker.js",
		WorkerScope: "/",
	})

	// Watch lifecycle transitions the way a bell widget would.
	stream := event.NewSelectedEventStream(manager.HWID(), 16, func(e event.Event) (event.Event, bool) {
		return e, true
	})
	defer stream.Close()
	event.Default().AddHandler(event.HandlerFunc[string, event.Event](func(_ string, e event.Event) {
		_ = stream.Notify(e, time.Second)
	}))
	go func() {
		for e := range stream.Channel() {
			logger.Info("Lifecycle event",
				zap.String("type", string(e.Type)),
				zap.String("permission", string(e.Permission)),
			)
		}
	}()

	if err := manager.InitWorker(ctx); err != nil {
		logger.Fatal("Worker registration failed", zap.Error(err))
	}

	sub, err := manager.AskSubscribe(ctx, false)
	if err != nil {
		logger.Fatal("Subscribe failed", zap.Error(err))
	}
	if sub == nil {
		logger.Warn("No subscription was created")
		return
	}

	if reconciler != nil {
		needs, err := manager.NeedsResubscribe(ctx)
		if err != nil {
			logger.Warn("Identity check failed", zap.Error(err))
		} else {
			logger.Info("Identity check", zap.Bool("needs_resubscribe", needs))
		}
	}

	params, err := manager.APIParams(ctx)
	if err != nil {
		logger.Fatal("Failed to derive params", zap.Error(err))
	}

	encoded, _ := json.MarshalIndent(params, "", "  ")
	fmt.Println(string(encoded))

	ok, err := manager.Unsubscribe(ctx)
	if err != nil {
		logger.Fatal("Unsubscribe failed", zap.Error(err))
	}
	logger.Info("Unsubscribed", zap.Bool("removed", ok))
}
