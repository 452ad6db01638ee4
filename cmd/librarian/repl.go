package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/librarian/pkg/intent"
	"github.com/jingkaihe/librarian/pkg/librarian"
	"github.com/jingkaihe/librarian/pkg/logger"
	"github.com/jingkaihe/librarian/pkg/plan"
	"github.com/jingkaihe/librarian/pkg/presenter"
	"github.com/jingkaihe/librarian/pkg/score"
	"github.com/jingkaihe/librarian/pkg/skills"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Resolve requests interactively",
	Long: `Read requests line by line and resolve each against the skill catalog.
When a request needs confirmation the candidates are listed and a choice is
read before the plan is printed. Type 'exit' or 'quit' to leave.

With --watch the catalog is reloaded whenever its files change; requests in
progress finish against the catalog they started with.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		lib, cfg, err := loadLibrarian(ctx)
		if err != nil {
			return err
		}

		p := presenter.New()
		p.SetInput(cmd.InOrStdin())

		if cfg.Watch.Enabled {
			if err := startWatcher(ctx, lib, cfg, p); err != nil {
				return err
			}
		}

		return runREPL(ctx, lib, p)
	},
}

func init() {
	replCmd.Flags().Bool("watch", false, "Reload the catalog when its files change")
	replCmd.Flags().Int("debounce", 500, "Debounce time in milliseconds for catalog change events")

	viper.BindPFlag("watch.enabled", replCmd.Flags().Lookup("watch"))
	viper.BindPFlag("watch.debounce", replCmd.Flags().Lookup("debounce"))
}

func startWatcher(ctx context.Context, lib *librarian.Librarian, cfg librarian.Config, p *presenter.TerminalPresenter) error {
	src, err := skills.NewCatalogSource(cfg.Catalog)
	if err != nil {
		return err
	}
	paths, err := skills.WatchPaths(cfg.Catalog)
	if err != nil {
		return err
	}

	w := librarian.NewWatcher(lib, src, paths,
		librarian.WithDebounce(cfg.Watch.DebounceDuration()),
		librarian.WithRetry(uint(cfg.Watch.Attempts), cfg.Watch.DebounceDuration()/4),
		librarian.WithReloadFunc(func(reg *skills.Registry, err error) {
			if err != nil {
				p.Error(err, "Catalog reload failed, keeping the previous catalog")
				return
			}
			p.Info(fmt.Sprintf("\ncatalog reloaded: %d skills", reg.Len()))
		}),
	)

	go func() {
		if err := w.Run(ctx); err != nil {
			logger.G(ctx).WithError(err).Error("catalog watcher stopped")
		}
	}()
	p.Info(fmt.Sprintf("watching %s", strings.Join(paths, ", ")))
	return nil
}

// runREPL reads requests until EOF, exit or quit
func runREPL(ctx context.Context, lib *librarian.Librarian, p *presenter.TerminalPresenter) error {
	p.Section("Librarian")
	p.Info("Type 'exit' or 'quit' to end the session")
	p.Separator()

	for {
		if ctx.Err() != nil {
			return nil
		}

		input, err := p.PromptLine("Task")
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "failed to read input")
		}

		switch strings.ToLower(input) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		handleRequest(ctx, lib, p, input)
		p.Separator()
	}
}

func handleRequest(ctx context.Context, lib *librarian.Librarian, p *presenter.TerminalPresenter, input string) {
	result, err := lib.Resolve(ctx, input)
	if err != nil {
		var invalid *intent.InvalidInputError
		var cycle *plan.CycleError
		switch {
		case errors.As(err, &invalid):
			p.Warning("empty request")
		case errors.As(err, &cycle):
			p.Decision(result.Decision)
			p.Error(cycle, "Cannot plan the selected skills")
		default:
			p.Error(err, "Resolution failed")
		}
		return
	}

	p.Decision(result.Decision)
	switch result.Decision.Kind {
	case score.Auto:
		p.Plan(result.Plan)
	case score.Confirm:
		id, ok := choose(p, result.Decision)
		if !ok {
			p.Info("no skill selected")
			return
		}
		ep, err := lib.Plan(ctx, []string{id})
		if err != nil {
			p.Error(err, "Cannot plan the selected skill")
			return
		}
		p.Plan(ep)
	}
}

// choose reads a 1-based choice among the confirm options
func choose(p *presenter.TerminalPresenter, d score.Decision) (string, bool) {
	options := make([]string, len(d.Selections))
	for i := range d.Selections {
		options[i] = strconv.Itoa(i + 1)
	}

	answer, err := p.PromptLine("Select", options...)
	if err != nil {
		return "", false
	}
	n, err := strconv.Atoi(answer)
	if err != nil || n < 1 || n > len(d.Selections) {
		return "", false
	}
	return d.Selections[n-1].SkillID, true
}
