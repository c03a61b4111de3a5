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
	"github.com/deltasync/peersync/internal/storage/mongostore"
)

func init() {
	cacheCmd.AddCommand(cacheSummaryCmd)
	rootCmd.AddCommand(cacheCmd)
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect a channel's payload cache",
}

var cacheSummaryCmd = &cobra.Command{
	Use:   "summary <space> <channel>",
	Short: "Load a channel's cache and print its Summary as JSON",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		space := model.SpaceID(args[0])
		channel := model.ChannelID(args[1])

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return fmt.Errorf("cache summary: connect mongo: %w", err)
		}
		defer client.Disconnect(context.Background())

		store, err := mongostore.New(ctx, client.Database(cfg.MongoDatabase))
		if err != nil {
			return fmt.Errorf("cache summary: init mongostore: %w", err)
		}

		caches := cache.NewManager(store, cache.WithMaxCachedChannels(cfg.MaxCachedChannels))
		c, err := caches.Get(ctx, space, channel)
		if err != nil {
			return fmt.Errorf("cache summary: load channel: %w", err)
		}

		out, err := json.MarshalIndent(c.Summary(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}
