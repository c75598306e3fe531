package main

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/justyntemme/sidebar/internal/config"
	"github.com/justyntemme/sidebar/internal/debug"
	"github.com/justyntemme/sidebar/internal/files"
	"github.com/justyntemme/sidebar/internal/panels"
	"github.com/justyntemme/sidebar/internal/store"
)

// app holds the wired managers for one CLI invocation.
type app struct {
	cfg    *config.Manager
	logger *zap.Logger
	db     *store.DB
	files  *files.Manager
	panels *panels.Manager
}

// newLogger builds a console logger on stderr, leaving stdout to command
// output.
func newLogger(level zapcore.Level) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.Lock(os.Stderr),
		zap.NewAtomicLevelAt(level),
	)
	return zap.New(core, zap.AddStacktrace(zapcore.ErrorLevel))
}

func newApp(configPath string, verbose bool) (*app, error) {
	cfgMgr := config.NewManager(configPath)
	if err := cfgMgr.Load(); err != nil {
		return nil, err
	}
	cfg := cfgMgr.Get()

	level := cfg.Logging.ZapLevel()
	if verbose {
		level = zapcore.DebugLevel
	}
	logger := newLogger(level)
	if cfg.Logging.Debug != "" {
		debug.Configure(cfg.Logging.Debug)
	}
	if err := cfgMgr.ParseError(); err != nil {
		logger.Warn("config file ignored, using defaults", zap.String("path", cfgMgr.Path()), zap.Error(err))
	}

	db := store.NewDB(store.WithLogger(logger))
	if err := db.Open(cfgMgr.DatabasePath()); err != nil {
		logger.Sync()
		return nil, err
	}
	debug.Log(debug.APP, "database ready at %s", db.Path())

	fm := files.NewManager(config.NewFilesSettings(db), db, files.WithLogger(logger))
	if err := seedBasePath(fm, cfg.Files.DefaultBasePath, logger); err != nil {
		db.Close()
		logger.Sync()
		return nil, err
	}

	return &app{
		cfg:    cfgMgr,
		logger: logger,
		db:     db,
		files:  fm,
		panels: panels.NewManager(db,
			panels.WithLogger(logger),
			panels.WithDefaults(cfgMgr.PanelDefaults())),
	}, nil
}

// seedBasePath stores the configured default base path when the database
// has none yet.
func seedBasePath(fm *files.Manager, defaultPath string, logger *zap.Logger) error {
	if defaultPath == "" {
		return nil
	}
	current, err := fm.BasePath()
	if err != nil || current != "" {
		return err
	}
	logger.Info("seeding storage base path from config", zap.String("path", defaultPath))
	return fm.SetBasePath(defaultPath)
}

// Close releases the database and flushes the logger. Safe to call twice.
func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
		a.db = nil
	}
	_ = a.logger.Sync()
}
