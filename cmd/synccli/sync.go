package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/deltasync/peersync/internal/cache"
	"github.com/deltasync/peersync/internal/model"
	"github.com/deltasync/peersync/internal/protocol"
	"github.com/deltasync/peersync/internal/session"
	"github.com/deltasync/peersync/internal/storage/mongostore"
)

func init() {
	syncCmd.AddCommand(syncRequestCmd)
	rootCmd.AddCommand(syncCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Drive sync control-protocol steps by hand",
}

var syncRequestCmd = &cobra.Command{
	Use:   "request <space> <channel> <inboxAddress>",
	Short: "Open a collecting session and print the sync-request payload",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		space := model.SpaceID(args[0])
		channel := model.ChannelID(args[1])
		ourInbox := model.InboxAddress(args[2])

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return fmt.Errorf("sync request: connect mongo: %w", err)
		}
		defer client.Disconnect(context.Background())

		store, err := mongostore.New(ctx, client.Database(cfg.MongoDatabase))
		if err != nil {
			return fmt.Errorf("sync request: init mongostore: %w", err)
		}

		caches := cache.NewManager(store, cache.WithMaxCachedChannels(cfg.MaxCachedChannels))
		sessions := session.NewManager(func(model.SpaceID, model.InboxAddress) {})
		orch := protocol.New(caches, store, nil, sessions, protocol.Config{
			RequestExpiry:   cfg.RequestExpiry,
			MaxChunkSize:    cfg.MaxChunkSize,
			TombstoneMaxAge: cfg.TombstoneMaxAge,
		})

		req, err := orch.BuildSyncRequest(ctx, space, channel, ourInbox)
		if err != nil {
			return fmt.Errorf("sync request: build: %w", err)
		}

		out, err := json.MarshalIndent(req, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}
