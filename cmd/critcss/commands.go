package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"critcss/config"
	"critcss/critical"
	"critcss/css"
	"critcss/extract"
	"critcss/state"
)

func runExtract(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)

	if cmd.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one URL argument")
	}
	pageURL := cmd.Args().Get(0)

	viewports, err := resolveViewports(cmd.StringSlice("viewport"), env)
	if err != nil {
		return err
	}

	includes := append(append([]string{}, env.Cfg.Extract.ForceInclude...), cmd.StringSlice("include")...)
	forceInclude, err := critical.ParseForceInclude(includes)
	if err != nil {
		return fmt.Errorf("unable to prepare force-include list: %w", err)
	}

	settle := time.Duration(env.Cfg.Extract.SettleDelayMS) * time.Millisecond

	var disc extract.Discoverer
	if cmd.Bool("static") || env.Cfg.Extract.Static {
		disc = extract.NewStaticDiscoverer(env.Log, nil, env.Cfg.Extract.UserAgent)
	} else {
		browser := extract.NewBrowserDiscoverer(env.Log, env.Cfg.Extract.UserAgent, settle)
		defer browser.Close()
		disc = browser
	}

	e := extract.New(env.Log, disc, extract.Options{
		Viewports:    viewports,
		ForceInclude: forceInclude,
		UserAgent:    env.Cfg.Extract.UserAgent,
		Output:       outputOptions(cmd, env),
	})

	env.Log.Info("Extracting critical CSS", zap.String("url", pageURL), zap.Int("viewports", len(viewports)))
	result, err := e.Run(ctx, pageURL)
	if err != nil {
		return fmt.Errorf("unable to extract critical CSS from '%s': %w", pageURL, err)
	}
	return writeResult(cmd.String("out"), result, env)
}

func runFilter(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)

	if cmd.Args().Len() != 2 {
		return fmt.Errorf("expected SOURCE and TARGET arguments")
	}

	parser := css.NewParser(env.Log)
	source, err := parseFile(parser, cmd.Args().Get(0))
	if err != nil {
		return err
	}
	target, err := parseFile(parser, cmd.Args().Get(1))
	if err != nil {
		return err
	}

	filtered, err := critical.NewEngine(env.Log).Filter(source, target)
	if err != nil {
		return fmt.Errorf("unable to filter stylesheet: %w", err)
	}
	return writeResult(cmd.String("out"), css.Stringify(filtered, outputOptions(cmd, env)), env)
}

func runMerge(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)

	if cmd.Args().Len() < 1 {
		return fmt.Errorf("expected at least one stylesheet file")
	}

	parser := css.NewParser(env.Log)
	engine := critical.NewEngine(env.Log)
	target := &css.Stylesheet{Items: make([]css.StylesheetItem, 0)}

	for _, fname := range cmd.Args().Slice() {
		fragment, err := parseFile(parser, fname)
		if err != nil {
			return err
		}
		if target, err = engine.Merge(target, fragment); err != nil {
			return fmt.Errorf("unable to merge '%s': %w", fname, err)
		}
	}
	return writeResult(cmd.String("out"), css.Stringify(target, outputOptions(cmd, env)), env)
}

func outputConfiguration(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() > 1 {
		env.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	fname := cmd.Args().Get(0)

	var (
		err   error
		data  []byte
		which string
	)

	out := os.Stdout
	if len(fname) > 0 {
		out, err = os.Create(fname)
		if err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", fname, err)
		}
		defer out.Close()
	}

	if cmd.Bool("default") {
		which = "default"
		data, err = config.Prepare()
	} else {
		which = "actual"
		data, err = config.Dump(env.Cfg)
	}
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}

	if len(fname) == 0 {
		fname = "STDOUT"
	}
	env.Log.Info("Outputing configuration", zap.String("state", which), zap.String("file", fname))

	_, err = out.Write(data)
	if err != nil {
		return fmt.Errorf("unable to write configuration: %w", err)
	}
	return nil
}

// resolveViewports uses command line viewports when given, configuration
// otherwise.
func resolveViewports(flags []string, env *state.LocalEnv) ([]extract.Viewport, error) {
	if len(flags) == 0 {
		viewports := make([]extract.Viewport, 0, len(env.Cfg.Extract.Viewports))
		for _, vp := range env.Cfg.Extract.Viewports {
			viewports = append(viewports, extract.Viewport{Width: vp.Width, Height: vp.Height})
		}
		return viewports, nil
	}

	viewports := make([]extract.Viewport, 0, len(flags))
	for _, f := range flags {
		vp, err := parseViewport(f)
		if err != nil {
			return nil, err
		}
		viewports = append(viewports, vp)
	}
	return viewports, nil
}

// parseViewport parses a "WxH" viewport argument.
func parseViewport(s string) (extract.Viewport, error) {
	w, h, found := strings.Cut(strings.ToLower(s), "x")
	if !found {
		return extract.Viewport{}, fmt.Errorf("malformed viewport '%s', expected WxH", s)
	}
	width, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil {
		return extract.Viewport{}, fmt.Errorf("malformed viewport width in '%s': %w", s, err)
	}
	height, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil {
		return extract.Viewport{}, fmt.Errorf("malformed viewport height in '%s': %w", s, err)
	}
	if width <= 0 || height <= 0 {
		return extract.Viewport{}, fmt.Errorf("viewport '%s' has non-positive dimensions", s)
	}
	return extract.Viewport{Width: width, Height: height}, nil
}

func outputOptions(cmd *cli.Command, env *state.LocalEnv) css.StringifyOptions {
	opts := css.StringifyOptions{
		Indent:   env.Cfg.Output.Indent,
		Compress: env.Cfg.Output.Compress,
	}
	if cmd.Bool("compress") {
		opts.Compress = true
	}
	return opts
}

func parseFile(parser *css.Parser, fname string) (*css.Stylesheet, error) {
	data, err := os.ReadFile(fname)
	if err != nil {
		return nil, fmt.Errorf("unable to read stylesheet '%s': %w", fname, err)
	}
	sheet, err := parser.Parse(data, css.ParseOptions{Silent: true, Source: fname})
	if err != nil {
		return nil, err
	}
	return sheet, nil
}

func writeResult(fname, text string, env *state.LocalEnv) error {
	if fname == "" {
		_, err := fmt.Fprintln(os.Stdout, text)
		return err
	}
	if err := os.WriteFile(fname, []byte(text), 0644); err != nil {
		return fmt.Errorf("unable to write result to '%s': %w", fname, err)
	}
	env.Log.Info("Result written", zap.String("file", fname), zap.Int("bytes", len(text)))
	return nil
}
