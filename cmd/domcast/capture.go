package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"domcast/broker"
	"domcast/bundle"
	"domcast/capture"
	"domcast/capture/assembler"
	"domcast/capture/traverser"
	"domcast/common"
	"domcast/config"
	"domcast/headless"
	"domcast/state"
)

// captureCommand runs a headless capture (§4.1, the "optional headless
// capture driver" seam of spec.md §2 row G) and either submits the result
// to the handoff broker (§4.5) or writes it to a local `.scenebundle` file
// (the retrieval pack's bundle sibling transport), mirroring how cmd/fbc's
// single Action drives convert.Convert end to end from one set of flags.
func captureCommand() *cli.Command {
	return &cli.Command{
		Name:      "capture",
		Usage:     "Captures a live page as a SceneSchema via headless Chrome",
		ArgsUsage: "URL",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "write a .scenebundle to `FILE` instead of submitting to the broker"},
			&cli.BoolFlag{Name: "headful", Usage: "launch a visible browser window instead of headless"},
		},
		OnUsageError: usageErrorHandler,
		Action:       runCapture,
	}
}

func runCapture(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	cc := env.Cfg.Capture

	if cmd.Args().Len() != 1 {
		return fmt.Errorf("capture requires exactly one URL argument")
	}
	url := cmd.Args().Get(0)

	log := config.ComponentLogger(env.Log, config.ComponentCapture)

	driver, cleanup, err := headless.Launch(ctx, headless.Options{Headless: !cmd.Bool("headful"), Log: log})
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	defer cleanup()

	if err := navigate(ctx, driver, url, time.Duration(cc.StabilizationTimeoutMS)*time.Millisecond); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}

	opts := capture.DefaultRunOptions()
	opts.Log = log
	opts.Stabilizer.QuietWindow = time.Duration(cc.StabilizationQuietWindowMS) * time.Millisecond
	opts.Stabilizer.Timeout = time.Duration(cc.StabilizationTimeoutMS) * time.Millisecond
	opts.Traverser = traverser.Options{MaxFrameDepth: 5, MaxNodes: cc.MaxDOMNodes}
	opts.AssetConcurrency = cc.AssetFetchConcurrency
	opts.RasterizeScale = cc.RasterizeScaleFactor
	opts.AssemblerOptions = assembler.DefaultOptions()

	schema, err := capture.Run(ctx, driver, opts)
	if err != nil {
		return fmt.Errorf("capture failed: %w", err)
	}

	log.Info("capture complete",
		zap.String("url", schema.Metadata.URL),
		zap.Int("assets", len(schema.Assets.Images)))

	if err := env.Rpt.StoreSchema("scene.json", schema); err != nil {
		log.Warn("failed to attach scene schema to debug report", zap.Error(err))
	}

	if out := cmd.String("out"); out != "" {
		if err := bundle.WriteFile(out, schema); err != nil {
			return fmt.Errorf("write bundle: %w", err)
		}
		log.Info("wrote scene bundle", zap.String("file", out))
		return nil
	}

	payload, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("marshal scene schema: %w", err)
	}

	client := broker.NewClient(cc.BrokerURL, string(env.Cfg.Broker.APIKey), env.Cfg.Broker.MaxChunkBytes)
	id, err := client.Submit(ctx, payload)
	if err != nil {
		return common.WrapError(common.ErrIncompleteTransfer, "submit capture to broker", err)
	}
	log.Info("submitted capture to broker", zap.String("jobId", id), zap.String("broker", cc.BrokerURL))
	return nil
}

// navigate points the driver at url and gives the page a moment to reach
// its first lifecycle events before the stabilizer's own quiescence wait
// takes over; it is not itself part of §4.1.1, just the one-time setup a
// CLI-driven capture needs that an already-open extension tab does not.
func navigate(ctx context.Context, d *headless.Driver, url string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return d.Navigate(navCtx, url)
}
