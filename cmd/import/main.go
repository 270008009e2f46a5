package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gp-directory/internal/core/config"
	"gp-directory/internal/core/database"
	"gp-directory/internal/core/logger"
	"gp-directory/internal/feature/importer"
	"gp-directory/internal/repo"
	"gp-directory/internal/service"
)

var flags = struct {
	config  string
	sheet   string
	region  string
	area    string
	layout  string
	columns string
	replace bool
}{}

func main() {
	rootCmd := &cobra.Command{
		Use:          "gp-import <file.xlsx> [file.xlsx...]",
		Short:        "Load GP practices from spreadsheets into the directory database",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE:         run,
	}
	rootCmd.Flags().StringVar(&flags.config, "config", "", "path to config file")
	rootCmd.Flags().StringVar(&flags.sheet, "sheet", "", "worksheet name (default: active sheet)")
	rootCmd.Flags().StringVar(&flags.region, "region", "", "region for rows without a region column")
	rootCmd.Flags().StringVar(&flags.area, "area", "", "area for rows without an area column")
	rootCmd.Flags().StringVar(&flags.layout, "layout", "", "built-in layout for sheets without a header row ("+strings.Join(importer.LayoutNames(), ", ")+")")
	rootCmd.Flags().StringVar(&flags.columns, "columns", "", "column positions for sheets without a header row, e.g. practice_name=5,postcode=8")
	rootCmd.Flags().BoolVar(&flags.replace, "replace", false, "remove existing practices before importing")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cols, defaults, err := importer.ResolveLayout(flags.layout, flags.columns,
		importer.Defaults{Area: flags.area, Region: flags.region})
	if err != nil {
		return err
	}

	_ = godotenv.Load()
	cfg, err := config.Load(flags.config)
	if err != nil {
		return err
	}
	log, cleanup := logger.FromConfig(cfg)
	defer cleanup()

	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
	})
	if err != nil {
		log.Error("db open", zap.Error(err))
		return err
	}
	if err := database.Migrate(db); err != nil {
		log.Error("automigrate failed", zap.Error(err))
		return err
	}

	ctx := cmd.Context()
	adminSvc := service.NewAdminService(repo.NewAdminRepo(db), log)
	if err := adminSvc.Bootstrap(ctx, config.DefaultAdminPassword, cfg.Admin.Password); err != nil {
		log.Error("admin bootstrap failed", zap.Error(err))
		return err
	}

	svc := service.NewPracticeService(repo.NewPracticeRepo(db), cfg.Search.PublicLimit, cfg.Search.AdminLimit)
	opts := importer.Options{
		Sheet:    flags.sheet,
		Replace:  flags.replace,
		Columns:  cols,
		Defaults: defaults,
	}

	var inserted, skipped int
	for i, path := range args {
		// 多个文件时只在第一个之前清空
		opts.Replace = flags.replace && i == 0
		res, err := importer.RunImport(ctx, svc, path, opts, log)
		if err != nil {
			log.Error("import failed", zap.String("file", path), zap.Error(err))
			return err
		}
		inserted += res.Inserted
		skipped += res.Skipped
	}
	total, err := svc.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d practices (%d rows skipped); %d in directory\n", inserted, skipped, total)
	return nil
}
