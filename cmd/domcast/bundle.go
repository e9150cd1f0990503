package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"domcast/broker"
	"domcast/bundle"
	"domcast/state"
)

// bundleCommand groups subcommands over the `.scenebundle` sibling
// transport (see package bundle's doc comment): inspecting one on disk, or
// forwarding one into a running broker, mirroring cmd/fbc's "kindlegen"/
// "epubgen" style of one subcommand per artifact the tool can produce or
// consume.
func bundleCommand() *cli.Command {
	return &cli.Command{
		Name:  "bundle",
		Usage: "Inspects or forwards .scenebundle capture archives",
		Commands: []*cli.Command{
			{
				Name:         "inspect",
				Usage:        "Prints a summary of a .scenebundle file",
				ArgsUsage:    "FILE",
				OnUsageError: usageErrorHandler,
				Action:       runBundleInspect,
			},
			{
				Name:         "forward",
				Usage:        "Reads a .scenebundle file and submits it to the handoff broker",
				ArgsUsage:    "FILE",
				OnUsageError: usageErrorHandler,
				Action:       runBundleForward,
			},
		},
	}
}

func runBundleInspect(_ context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("bundle inspect requires exactly one FILE argument")
	}
	path := cmd.Args().Get(0)

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open bundle: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat bundle: %w", err)
	}

	schema, err := bundle.Read(f, fi.Size())
	if err != nil {
		return fmt.Errorf("read bundle: %w", err)
	}

	fmt.Printf("version:    %s\n", schema.Version)
	fmt.Printf("url:        %s\n", schema.Metadata.URL)
	fmt.Printf("title:      %s\n", schema.Metadata.Title)
	fmt.Printf("capturedAt: %s\n", schema.Metadata.CapturedAt)
	fmt.Printf("viewport:   %gx%g @%gx\n", schema.Metadata.Viewport.Width, schema.Metadata.Viewport.Height, schema.Metadata.Viewport.DevicePixelRatio)
	fmt.Printf("assets:     %d images, %d fonts\n", len(schema.Assets.Images), len(schema.Assets.Fonts))
	fmt.Printf("styles:     %d colors, %d text styles, %d effects\n", len(schema.Styles.Colors), len(schema.Styles.TextStyles), len(schema.Styles.Effects))
	return nil
}

func runBundleForward(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("bundle forward requires exactly one FILE argument")
	}
	path := cmd.Args().Get(0)

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open bundle: %w", err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat bundle: %w", err)
	}
	schema, err := bundle.Read(f, fi.Size())
	if err != nil {
		return fmt.Errorf("read bundle: %w", err)
	}

	payload, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("marshal scene schema: %w", err)
	}

	bc := env.Cfg.Broker
	client := broker.NewClient(env.Cfg.Capture.BrokerURL, string(bc.APIKey), bc.MaxChunkBytes)
	id, err := client.Submit(ctx, payload)
	if err != nil {
		return fmt.Errorf("submit bundle to broker: %w", err)
	}
	if env.Log != nil {
		env.Log.Info("forwarded bundle to broker", zap.String("file", path), zap.String("jobId", id))
	}
	return nil
}
