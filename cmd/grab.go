// File: cmd/grab.go
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/birdclip/internal/browser"
	"github.com/xkilldash9x/birdclip/internal/config"
	"github.com/xkilldash9x/birdclip/internal/envcache"
	"github.com/xkilldash9x/birdclip/internal/faults"
	"github.com/xkilldash9x/birdclip/internal/media"
	"github.com/xkilldash9x/birdclip/internal/observability"
	"github.com/xkilldash9x/birdclip/internal/protocol"
	"github.com/xkilldash9x/birdclip/internal/scrape"
	"github.com/xkilldash9x/birdclip/internal/store"
)

func newGrabCommand(cfg *config.Config) *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:   "grab",
		Short: "Grab the video variants of the tweet open in the active tab.",
		Long: `Grab runs the full setup-then-request flow against the tweet open in the
active browser tab and prints the downloadable mp4 variants, highest
bitrate first. With --remote it goes through a running serve daemon
instead of talking to the browser directly.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if remote {
				return runGrabRemote(cmd.Context(), cfg)
			}
			return runGrabLocal(cmd.Context(), cfg)
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "go through a running serve daemon")
	return cmd
}

func runGrabLocal(ctx context.Context, cfg *config.Config) error {
	logger := observability.GetLogger()

	probe, err := browser.NewProbe(ctx, cfg.Browser, logger)
	if err != nil {
		return err
	}
	defer probe.Close()

	kv, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer kv.Close()

	if _, err := store.EnsureVersion(ctx, kv, Version); err != nil {
		return fmt.Errorf("checking store version: %w", err)
	}

	scraper := scrape.NewScraper(probe, cfg.Network, logger)
	cache := envcache.New(kv, scraper, logger)
	query := media.NewQuery(cfg.Network, logger)

	env, err := cache.EnsureFresh(ctx)
	if err != nil {
		return describeFailure(err)
	}

	tab, err := probe.ActiveTab(ctx, scrape.TabURLPattern)
	if err != nil {
		return describeFailure(err)
	}
	m := scrape.StatusURLPattern.FindStringSubmatch(tab.URL)
	if m == nil {
		return describeFailure(faults.TabNotFound("active tab %s is not a status page", tab.URL))
	}
	handle, tweetID := m[1], m[2]

	videos, err := query.Fetch(ctx, env, tweetID, handle)
	if err != nil {
		return describeFailure(err)
	}
	if len(videos) == 0 {
		fmt.Println("No downloadable videos in this tweet.")
		return nil
	}

	printVariants(videos)
	logger.Info("Grab complete.", zap.String("tweet_id", tweetID), zap.Int("variants", len(videos)))
	return nil
}

func runGrabRemote(ctx context.Context, cfg *config.Config) error {
	url := fmt.Sprintf("ws://%s:%d/session", cfg.Server.Host, cfg.Server.Port)
	client, err := protocol.Dial(ctx, url)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Send(protocol.Message{Type: protocol.TypeSetupEnvironment}); err != nil {
		return err
	}

	for {
		msg, err := client.Receive(ctx)
		if err != nil {
			return err
		}
		switch msg.Type {
		case protocol.TypeCompleteEnvironmentSetup:
			var payload protocol.EnvironmentPayload
			if err := msg.DecodePayload(&payload); err != nil {
				return err
			}
			req, err := protocol.NewMessage(protocol.TypeRequestVideos, payload)
			if err != nil {
				return err
			}
			if err := client.Send(req); err != nil {
				return err
			}
		case protocol.TypeReceiveVideos:
			var payload protocol.VideosPayload
			if err := msg.DecodePayload(&payload); err != nil {
				return err
			}
			printVariants(payload.Videos)
			return nil
		case protocol.TypeReceiveInfo:
			var payload protocol.InfoPayload
			if err := msg.DecodePayload(&payload); err != nil {
				return err
			}
			fmt.Printf("%s: %s\n", payload.Name, payload.Message)
			return nil
		case protocol.TypeReceiveError:
			var payload protocol.ErrorPayload
			if err := msg.DecodePayload(&payload); err != nil {
				return err
			}
			return fmt.Errorf("%s: %s", payload.ErrorName, payload.ErrorMessage)
		default:
			observability.GetLogger().Warn("Ignoring message of unknown type.",
				zap.String("type", string(msg.Type)))
		}
	}
}

func printVariants(videos []media.VideoVariant) {
	for i, v := range videos {
		fmt.Printf("%d. %s (%d bps, %dx%d)\n",
			i+1, v.URL, v.BitrateBps, v.AspectRatio.X, v.AspectRatio.Y)
	}
}

// describeFailure turns the recoverable failure kinds into guidance instead
// of a bare error dump.
func describeFailure(err error) error {
	switch faults.KindOf(err) {
	case faults.KindTabNotFound:
		return fmt.Errorf("no usable tab: switch to a twitter.com status page and try again (%w)", err)
	case faults.KindNotLoggedIn:
		return fmt.Errorf("not logged in: sign in to twitter.com in the browser first (%w)", err)
	default:
		return err
	}
}
