package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"

	"github.com/Adam-Noble-01/glbexport/config"
	"github.com/Adam-Noble-01/glbexport/export"
	"github.com/Adam-Noble-01/glbexport/internal/logger"
	"github.com/Adam-Noble-01/glbexport/scene"
)

func main() {
	var scenePath, outDir, configPath, logLevel string
	var dump bool
	flag.StringVar(&scenePath, "scene", "", "Path to scene snapshot (json)")
	flag.StringVar(&outDir, "out", ".", "Output directory for glb files")
	flag.StringVar(&configPath, "config", "", "Optional yaml config file")
	flag.StringVar(&logLevel, "log", "info", "Log level: debug, info, warn, error")
	flag.BoolVar(&dump, "dump", false, "Dump the export report for debugging")
	flag.Parse()

	logger.Init(logLevel)
	defer logger.Sync()

	if scenePath == "" {
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			logger.Sugar.Fatalw("failed to load config", "err", err)
		}
	}
	cfg.Progress = func(stage string, done, total int) {
		logger.Sugar.Infow("progress", "stage", stage, "done", done, "total", total)
	}

	sc, err := scene.LoadFile(scenePath)
	if err != nil {
		logger.Sugar.Fatalw("failed to load scene", "err", err)
	}

	report, err := export.Export(sc, outDir, cfg)
	if err != nil {
		logger.Sugar.Fatalw("export failed, no usable output", "err", err)
	}

	if dump {
		spew.Fdump(os.Stderr, report)
	}

	for _, w := range report.Warnings {
		logger.Sugar.Warnw("validation", "warning", w)
	}
	for _, f := range report.Failures {
		logger.Sugar.Errorw("partition failed", "partition", f.Partition, "err", f.Err)
	}
	fmt.Printf("%d files written, %d warnings, %d partitions failed\n",
		len(report.FilesWritten), len(report.Warnings), len(report.Failures))
}
