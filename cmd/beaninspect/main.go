// Command beaninspect builds a container with the default executor beans
// against the given configuration and reports which of them are eligible and
// what each one resolves to. With -watch it keeps running and reports again
// every time the YAML configuration changes.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/centraunit/beans"
	"github.com/centraunit/beans/executor"
	"github.com/centraunit/beans/property"
	"go.uber.org/zap"
)

type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func main() {
	var envFiles stringList
	flag.Var(&envFiles, "env", "dotenv file to read (repeatable)")
	configPath := flag.String("config", "", "YAML configuration file")
	prefix := flag.String("prefix", "APP_", "environment variable prefix")
	watch := flag.Bool("watch", false, "report again whenever the configuration file changes")
	verbose := flag.Bool("verbose", false, "development logging")
	flag.Parse()

	logger, err := newLogger(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "beaninspect: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(logger, os.Stdout, envFiles, *configPath, *prefix, *watch); err != nil {
		logger.Error("Inspection failed", zap.Error(err))
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(logger *zap.Logger, out io.Writer, envFiles []string, configPath, prefix string, watch bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	file := property.NewMutable(nil)
	sources := []property.Source{file}
	if len(envFiles) > 0 {
		env, err := property.LoadEnv(envFiles...)
		if err != nil {
			return err
		}
		sources = append(sources, env)
	}
	sources = append(sources, property.Env(prefix))

	c, err := beans.New(
		beans.WithProperties(property.Composite(sources...)),
		beans.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Container shutdown failed", zap.Error(err))
		}
	}()

	refs, err := executor.Definitions()
	if err != nil {
		return err
	}
	if err := c.Register(refs...); err != nil {
		return err
	}

	if configPath == "" {
		return report(ctx, out, c)
	}

	reports := make(chan struct{}, 1)
	w, err := property.Watch(configPath, file, logger, property.OnReload(func(property.Map) {
		select {
		case reports <- struct{}{}:
		default:
		}
	}))
	if err != nil {
		return err
	}
	defer w.Close()

	// The initial load already signalled a reload.
	select {
	case <-reports:
	default:
	}
	if err := report(ctx, out, c); err != nil || !watch {
		return err
	}

	logger.Info("Watching configuration", zap.String("path", configPath))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-reports:
			fmt.Fprintln(out)
			if err := report(ctx, out, c); err != nil {
				return err
			}
		}
	}
}

// report writes one row per registered reference. Eligible references are
// resolved by their own key so the row also shows which bean wins.
func report(ctx context.Context, out io.Writer, c *beans.Container) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "BEAN\tKEY\tSCOPE\tELIGIBLE\tRESOLVES TO")
	for _, ref := range c.References() {
		key := beans.Key{Type: ref.ProducedType(), Qualifier: ref.Qualifier()}
		eligible := c.IsEligible(ctx, ref)
		result := "-"
		if eligible {
			ri, err := c.ResolveInstance(ctx, key.Type, key.Qualifier)
			if err != nil {
				result = "error: " + err.Error()
			} else {
				result = ri.Definition.Name()
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", ref.Name(), key, ref.Scope(), eligible, result)
	}
	return tw.Flush()
}
