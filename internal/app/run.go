package app

import (
	"context"
	"fmt"

	"github.com/vk/loom/internal/assets"
	"github.com/vk/loom/internal/ctxlog"
	"github.com/vk/loom/internal/narrative"
	"github.com/vk/loom/internal/orchestrator"
	"github.com/vk/loom/internal/story"
	"golang.org/x/sync/errgroup"
)

// Run executes the main application logic based on the provided configuration.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	doc, err := a.readPage()
	if err != nil {
		return err
	}
	a.setPage(doc)
	a.logger.Debug("Page loaded.", "path", a.config.PagePath)

	a.healthCheckServer(ctx)
	defer a.closeHealthCheckServer(ctx)

	opts := []orchestrator.Option{}
	if a.config.FetchAssets {
		fetcher := assets.NewHTTPFetcher(a.config.FetchTimeout)
		defer fetcher.Close()
		opts = append(opts, orchestrator.WithFetcher(fetcher))
	}
	if a.config.ContentSelector != "" {
		opts = append(opts, orchestrator.WithContentSelector(a.config.ContentSelector))
	}

	// Without a remote source, steps are replayed in-process.
	var emitter *narrative.Emitter
	if a.config.StepSourceURL != "" {
		opts = append(opts, orchestrator.WithStepSource(&narrative.SocketIOSource{
			URL:                a.config.StepSourceURL,
			Event:              a.config.StepEvent,
			InsecureSkipVerify: a.config.InsecureSkipVerify,
			Doc:                doc,
		}))
	} else {
		emitter = narrative.NewEmitter()
		opts = append(opts, orchestrator.WithStepSource(emitter))
	}

	o := orchestrator.New(doc, a.registry.Descriptors(), opts...)
	report, err := o.Run(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap failed: %w", err)
	}
	a.setReport(report)
	for _, f := range report.Failures {
		a.logger.Warn("Adapter failure during bootstrap.", "failure", f.Error())
	}

	sections, err := story.Prepare(ctx, doc, o.Runtime().Assets)
	if err != nil {
		if emitter != nil {
			emitter.Close()
		}
		return fmt.Errorf("failed to prepare story sections: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(o.Wait)
	if emitter != nil {
		ctrl := story.NewController(sections, emitter)
		g.Go(func() error {
			defer emitter.Close()
			return a.replay(gctx, emitter, ctrl)
		})
	} else {
		a.logger.Info("🎧 Listening for narrative steps...", "url", a.config.StepSourceURL)
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := a.writePage(doc); err != nil {
		return err
	}
	a.logger.Info("🏁 Page written.", "instances", report.InstanceCount(), "failures", len(report.Failures))
	a.logger.Debug("App.Run method finished.")
	return nil
}

// replay enters the configured global step indices in order once the bridge
// is listening.
func (a *App) replay(ctx context.Context, emitter *narrative.Emitter, ctrl *story.Controller) error {
	if len(a.config.Steps) == 0 {
		return nil
	}
	if err := emitter.WaitForSubscriber(ctx); err != nil {
		return fmt.Errorf("narrative bridge never subscribed: %w", err)
	}

	a.logger.Info("🚀 Replaying story steps...", "steps", len(a.config.Steps), "available", ctrl.Len())
	for _, i := range a.config.Steps {
		n, err := ctrl.EnterGlobal(ctx, i)
		if err != nil {
			return fmt.Errorf("failed to replay step: %w", err)
		}
		a.logger.Info("▶️ Step replayed.", "index", i, "step", n.Step, "direction", n.Direction)
	}
	return nil
}
