//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

// Command eflycode is the interactive terminal coding agent.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wangchen7722/eflycode-cli-sub001/advisor"
	"github.com/wangchen7722/eflycode-cli-sub001/agent"
	"github.com/wangchen7722/eflycode-cli-sub001/compaction"
	"github.com/wangchen7722/eflycode-cli-sub001/config"
	"github.com/wangchen7722/eflycode-cli-sub001/event"
	"github.com/wangchen7722/eflycode-cli-sub001/hook"
	"github.com/wangchen7722/eflycode-cli-sub001/internal/ignore"
	"github.com/wangchen7722/eflycode-cli-sub001/log"
	"github.com/wangchen7722/eflycode-cli-sub001/model/openai"
	"github.com/wangchen7722/eflycode-cli-sub001/prompt"
	"github.com/wangchen7722/eflycode-cli-sub001/runner"
	"github.com/wangchen7722/eflycode-cli-sub001/session"
	"github.com/wangchen7722/eflycode-cli-sub001/tokenizer"
	"github.com/wangchen7722/eflycode-cli-sub001/tool"
	"github.com/wangchen7722/eflycode-cli-sub001/tool/file"
	"github.com/wangchen7722/eflycode-cli-sub001/tool/finish"
	"github.com/wangchen7722/eflycode-cli-sub001/tool/shell"
	"github.com/wangchen7722/eflycode-cli-sub001/ui"
)

// version is stamped by the build.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "eflycode:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		workspace = flag.String("workspace", ".", "workspace directory the agent operates in")
		role      = flag.String("role", prompt.DefaultRole, "agent role selecting the system prompt")
		noStream  = flag.Bool("no-stream", false, "disable streaming model responses")
	)
	flag.Parse()

	absWorkspace, err := filepath.Abs(*workspace)
	if err != nil {
		return fmt.Errorf("resolve workspace: %w", err)
	}

	cfg, err := config.Load(config.UserPath(), config.ProjectPath(absWorkspace))
	if err != nil {
		return err
	}
	configureLogging(cfg.Logging)

	entry, err := cfg.DefaultEntry()
	if err != nil {
		return err
	}
	provider := openai.New(entry.Model,
		openai.WithAPIKey(entry.ResolveAPIKey()),
		openai.WithBaseURL(entry.BaseURL),
	)

	estimator := tokenizer.New()
	sess := session.New(session.WithStrategy(buildStrategy(cfg.Context, provider, estimator)))

	bus, err := event.NewBus()
	if err != nil {
		return fmt.Errorf("start event bus: %w", err)
	}

	hooks := hook.NewPipeline(cfg.HookGroups(),
		hook.WithEnabled(cfg.HooksEnabled()),
		hook.WithSessionID(sess.ID()),
		hook.WithProjectDir(absWorkspace),
		hook.WithWorkspaceDir(absWorkspace),
		hook.WithVersion(version),
	)

	registry, err := buildRegistry(absWorkspace)
	if err != nil {
		return err
	}

	library, err := prompt.NewLibrary()
	if err != nil {
		return err
	}
	chain := advisor.NewChain(
		advisor.NewSystemPrompt(library, *role, absWorkspace),
		advisor.NewFinishTask(),
	)

	a := agent.New(provider, bus, sess, registry,
		agent.WithMaxContextLength(entry.MaxContextLength),
		agent.WithAdvisors(chain),
		agent.WithHooks(hooks),
	)
	loop := runner.NewLoop(a, bus,
		runner.WithStream(!*noStream),
		runner.WithLoopHooks(hooks),
	)
	controller := runner.NewController(loop, bus,
		runner.WithControllerHooks(hooks),
	)

	ctx := context.Background()
	controller.Start(ctx)
	terminal := ui.NewTerminal(bus)
	terminal.Start()

	<-controller.Done()
	return nil
}

// configureLogging applies the [logging] table; without a dirpath the
// default stderr logger stays.
func configureLogging(lc config.LoggingConfig) {
	if lc.Level != "" {
		log.SetLevel(lc.Level)
	}
	if lc.DirPath == "" {
		return
	}
	filename := lc.Filename
	if filename == "" {
		filename = "eflycode.log"
	}
	if err := log.Configure(log.Options{
		DirPath:  lc.DirPath,
		Filename: filename,
		Level:    lc.Level,
	}); err != nil {
		log.Warnf("file logging unavailable: %v", err)
	}
}

// buildStrategy maps the [context] table to a compaction strategy, nil when
// none is configured.
func buildStrategy(cc config.ContextConfig, provider *openai.Model, estimator *tokenizer.Estimator) compaction.Strategy {
	switch cc.StrategyType {
	case config.StrategySlidingWindow:
		return compaction.NewSlidingWindow(cc.SlidingWindowSize)
	case config.StrategySummary:
		var opts []compaction.SummaryOption
		if cc.SummaryThreshold > 0 {
			opts = append(opts, compaction.WithThresholdRatio(cc.SummaryThreshold))
		}
		if cc.SummaryKeepRecent > 0 {
			opts = append(opts, compaction.WithKeepRecent(cc.SummaryKeepRecent))
		}
		if cc.SummaryModel != "" {
			opts = append(opts, compaction.WithSummaryModel(cc.SummaryModel))
		}
		return compaction.NewSummary(provider, estimator, opts...)
	default:
		return nil
	}
}

// buildRegistry assembles the default tool catalog for the workspace.
func buildRegistry(workspace string) (*tool.Registry, error) {
	matcher, err := ignore.Load(workspace)
	if err != nil {
		log.Warnf("loading ignore files: %v", err)
	}
	registry := tool.NewRegistry()
	registry.MustRegister(file.NewToolSet(
		file.WithBaseDir(workspace),
		file.WithIgnoreMatcher(matcher),
	)...)
	registry.MustRegister(shell.NewTool(shell.WithWorkDir(workspace)))
	registry.MustRegister(finish.NewTool())
	return registry, nil
}
