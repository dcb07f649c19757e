// Command migrate manages the cart snapshot schema.
//
//	migrate -cmd up|down|status|version|validate|list [-dir path] [-version N]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/db"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/migrate"
	"github.com/joho/godotenv"
)

const serviceName = "storefront-migrate"

func main() {
	cmd := flag.String("cmd", "up", "up|down|status|version|validate|list")
	dir := flag.String("dir", "", "read migrations from this directory instead of the embedded set (validate, list)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	_ = godotenv.Load()

	if err := run(context.Background(), os.Stdout, *cmd, *dir, *version); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s: %v\n", *cmd, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, out io.Writer, cmd, dir, version string) error {
	switch cmd {
	case "validate":
		return listFiles(out, dir, false)
	case "list":
		return listFiles(out, dir, true)
	case "up", "down", "status":
	case "version":
		if version == "" {
			return fmt.Errorf("missing -version")
		}
	default:
		return fmt.Errorf("unknown command")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !cfg.DB.Enabled() {
		return fmt.Errorf("%s is required", config.EnvDBDSN)
	}

	logg := logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx = logg.WithFields(ctx, map[string]any{
		"env":       cfg.App.Env,
		"cmd":       cmd,
		"db_driver": cfg.DB.Driver,
	})

	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer client.Close()

	sqlDB, err := client.DB().DB()
	if err != nil {
		return err
	}

	if cmd == "version" {
		err = migrate.MigrateToVersion(ctx, sqlDB, client.Dialect(), version)
	} else {
		err = migrate.Run(ctx, sqlDB, client.Dialect(), cmd)
	}
	if err != nil {
		return err
	}
	logg.Info(ctx, "migrate.done")
	return nil
}

func listFiles(out io.Writer, dir string, verbose bool) error {
	var (
		files []migrate.File
		err   error
	)
	if dir != "" {
		files, err = migrate.List(os.DirFS(dir), ".")
	} else {
		files, err = migrate.List(migrate.FS(), migrate.DefaultDir)
	}
	if err != nil {
		return err
	}
	if verbose {
		for _, f := range files {
			fmt.Fprintf(out, "%d\t%s\n", f.Version, f.Name)
		}
	}
	fmt.Fprintf(out, "%d migrations ok\n", len(files))
	return nil
}
