package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/BaSui01/modelgate/config"
	"github.com/BaSui01/modelgate/internal/database"
	"github.com/BaSui01/modelgate/internal/metrics"
	"github.com/BaSui01/modelgate/internal/migration"
	"github.com/BaSui01/modelgate/internal/retry"
	"github.com/BaSui01/modelgate/internal/server"
	"github.com/BaSui01/modelgate/internal/telemetry"
	"github.com/BaSui01/modelgate/llm/factory"
	"github.com/BaSui01/modelgate/llm/invoker"
	"github.com/BaSui01/modelgate/types"
)

// maxParallelInvocations invoke 命令的并发上限
const maxParallelInvocations = 4

// =============================================================================
// 🧱 应用装配
// =============================================================================

// commonFlags 所有命令共享的参数
type commonFlags struct {
	configPath  string
	metricsAddr string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "Path to config file")
	fs.StringVar(&c.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running")
}

// modelFlags 可重复的 -model 参数
type modelFlags []string

func (m *modelFlags) String() string { return strings.Join(*m, ",") }

func (m *modelFlags) Set(v string) error {
	if strings.TrimSpace(v) == "" {
		return errors.New("model key must not be empty")
	}
	*m = append(*m, v)
	return nil
}

// app 一次命令执行所需的全部组件
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   *config.Store
	gateway *invoker.Gateway

	otel       *telemetry.Providers
	db         *gorm.DB
	metricsSrv *server.Manager
}

// loadConfig 加载并校验配置
func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newApp 加载配置、模型与调用链
func newApp(ctx context.Context, flags commonFlags) (*app, error) {
	cfg, err := loadConfig(flags.configPath)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: initLogger(cfg.Log)}
	a.logger.Debug("starting ModelGate",
		zap.String("version", Version),
		zap.String("git_commit", GitCommit),
		zap.String("model_source", cfg.ModelSource),
	)

	models, err := a.loadModels(ctx)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	if a.store, err = config.NewStore(models, a.logger); err != nil {
		a.Close(ctx)
		return nil, err
	}

	registry, err := factory.NewDefaultRegistry()
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("failed to build strategy registry: %w", err)
	}

	var invokerOpts []invoker.Option
	var gatewayOpts []invoker.GatewayOption

	if cfg.Metrics.Enabled {
		collector := metrics.NewCollector(cfg.Metrics.Namespace, a.logger)
		collector.SetModelsConfigured(a.store.Len())
		invokerOpts = append(invokerOpts, invoker.WithRecorder(collector))
		gatewayOpts = append(gatewayOpts, invoker.WithGatewayRecorder(collector))
		if flags.metricsAddr != "" {
			if err := a.serveMetrics(flags.metricsAddr); err != nil {
				a.Close(ctx)
				return nil, err
			}
		}
	}

	a.otel, err = telemetry.Init(ctx, cfg.Telemetry, a.logger)
	if err != nil {
		a.logger.Warn("failed to initialize telemetry", zap.Error(err))
	} else if m, err := a.otel.InvocationMetrics(); err != nil {
		a.logger.Warn("failed to create invocation metrics", zap.Error(err))
	} else if m != nil {
		gatewayOpts = append(gatewayOpts, invoker.WithMetrics(m))
	}

	a.gateway = factory.NewGateway(a.store, registry, a.logger, invokerOpts, gatewayOpts...)
	return a, nil
}

// loadModels 按 model_source 从配置文件或数据库读取模型
func (a *app) loadModels(ctx context.Context) (map[string]*config.ModelInfo, error) {
	if a.cfg.ModelSource != config.ModelSourceDatabase {
		return a.cfg.Models, nil
	}

	source, err := a.openModelSource(ctx)
	if err != nil {
		return nil, err
	}
	return source.Load(ctx)
}

// openModelSource 打开数据库并确保 model_configs 表存在
func (a *app) openModelSource(ctx context.Context) (*config.DBSource, error) {
	if a.db == nil {
		db, err := database.Open(ctx, a.cfg.Database, a.logger)
		if err != nil {
			return nil, err
		}
		a.db = db
	}
	source := config.NewDBSource(a.db, a.logger)
	if err := source.AutoMigrate(ctx); err != nil {
		return nil, err
	}
	return source, nil
}

// serveMetrics 在后台暴露 /metrics
func (a *app) serveMetrics(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	cfg := server.DefaultConfig()
	cfg.Addr = addr
	a.metricsSrv = server.NewManager(mux, cfg, a.logger)
	return a.metricsSrv.Start()
}

// Close 释放数据库、遥测与指标服务
func (a *app) Close(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if a.metricsSrv != nil {
		if err := a.metricsSrv.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("metrics server shutdown failed", zap.Error(err))
		}
	}
	if err := a.otel.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("telemetry shutdown failed", zap.Error(err))
	}
	if a.db != nil {
		if err := database.Close(a.db); err != nil {
			a.logger.Warn("database close failed", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

// =============================================================================
// 💬 invoke / stream 命令
// =============================================================================

// promptFrom 返回 -prompt，缺省时拼接剩余参数
func promptFrom(flagValue string, rest []string) string {
	if flagValue != "" {
		return flagValue
	}
	return strings.Join(rest, " ")
}

func withDeadline(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}

func runInvoke(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("invoke", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var common commonFlags
	var models modelFlags
	common.register(fs)
	fs.Var(&models, "model", "Model key (repeatable)")
	prompt := fs.String("prompt", "", "Prompt text")
	timeout := fs.Duration("timeout", 0, "Overall deadline")
	retries := fs.Int("retries", 0, "Retry retryable failures up to N times per model")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	text := promptFrom(*prompt, fs.Args())
	if len(models) == 0 || text == "" {
		fmt.Fprintln(stderr, "invoke requires at least one -model and a prompt")
		return errUsage
	}

	a, err := newApp(ctx, common)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	ctx, cancel := withDeadline(ctx, *timeout)
	defer cancel()

	policy := retry.DefaultPolicy()
	policy.MaxRetries = *retries
	retryer := retry.New(policy, a.logger)

	results := make([]*invoker.Result, len(models))
	failures := make([]error, len(models))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelInvocations)
	for i, key := range models {
		g.Go(func() error {
			res, err := retry.Do(gctx, retryer, func(ctx context.Context) (*invoker.Result, error) {
				return a.gateway.Invoke(ctx, key, text)
			})
			results[i], failures[i] = res, err
			// 单个模型失败不取消其他调用
			return nil
		})
	}
	_ = g.Wait()

	multi := len(models) > 1
	for i, key := range models {
		if failures[i] != nil {
			fmt.Fprintf(stderr, "[%s] %s: %v\n", key, types.GetErrorCode(failures[i]), failures[i])
			continue
		}
		if multi {
			fmt.Fprintf(stdout, "[%s · %s]\n", results[i].ModelKey, results[i].Provider)
		}
		fmt.Fprintln(stdout, results[i].Text)
	}
	return errors.Join(failures...)
}

func runStream(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("stream", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var common commonFlags
	common.register(fs)
	model := fs.String("model", "", "Model key")
	prompt := fs.String("prompt", "", "Prompt text")
	timeout := fs.Duration("timeout", 0, "Overall deadline")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	text := promptFrom(*prompt, fs.Args())
	if *model == "" || text == "" {
		fmt.Fprintln(stderr, "stream requires -model and a prompt")
		return errUsage
	}

	a, err := newApp(ctx, common)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	ctx, cancel := withDeadline(ctx, *timeout)
	defer cancel()

	res := a.gateway.InvokeStream(ctx, *model, text)
	for chunk, err := range res.Chunks {
		if err != nil {
			fmt.Fprintln(stdout)
			return err
		}
		fmt.Fprint(stdout, chunk)
	}
	fmt.Fprintln(stdout)
	return nil
}

// =============================================================================
// 🗄️ migrate 命令
// =============================================================================

func runMigrate(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var common commonFlags
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	command := fs.Arg(0)

	cfg, err := loadConfig(common.configPath)
	if err != nil {
		return err
	}
	if cfg.Database.Driver == "" {
		return fmt.Errorf("migrate requires database.driver to be configured")
	}
	dbType, err := migration.ParseDatabaseType(cfg.Database.Driver)
	if err != nil {
		return err
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	db, err := database.Open(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}

	if dbType == migration.DatabaseTypeSQLite {
		defer func() { _ = database.Close(db) }()
		if command != "" && command != "up" {
			return fmt.Errorf("sqlite only supports 'migrate up': %w", migration.ErrUnsupportedDriver)
		}
		if err := config.NewDBSource(db, logger).AutoMigrate(ctx); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "Schema synchronized (sqlite).")
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		_ = database.Close(db)
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	// 迁移器接管连接，Close 时一并关闭
	m, err := migration.NewMigrator(sqlDB, migration.Config{DatabaseType: dbType}, logger)
	if err != nil {
		_ = sqlDB.Close()
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			logger.Warn("migrator close failed", zap.Error(err))
		}
	}()

	return migration.NewCLI(m, stdout).Run(ctx, command)
}

// =============================================================================
// 📚 models / import 命令
// =============================================================================

func runModels(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("models", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var common commonFlags
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	a, err := newApp(ctx, common)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tPROVIDER\tTRANSPORT\tMODEL\tDESCRIPTION")
	for _, key := range a.store.Keys() {
		info, _ := a.store.GetModelInfo(key)
		transport := config.TransportHTTP
		if p, err := info.Params(); err == nil {
			transport = p.Transport
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", key, info.Provider, transport, info.ModelName(), info.Description)
	}
	return tw.Flush()
}

func runImport(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var common commonFlags
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	cfg, err := loadConfig(common.configPath)
	if err != nil {
		return err
	}
	if cfg.Database.Driver == "" {
		return fmt.Errorf("import requires database.driver to be configured")
	}

	// 先校验再写入，避免把无效配置写进数据库
	if _, err := config.NewStore(cfg.Models, nil); err != nil {
		return err
	}

	a := &app{cfg: cfg, logger: initLogger(cfg.Log)}
	defer a.Close(ctx)

	source, err := a.openModelSource(ctx)
	if err != nil {
		return err
	}

	keys := slices.Sorted(maps.Keys(cfg.Models))
	for _, key := range keys {
		if err := source.Save(ctx, key, cfg.Models[key]); err != nil {
			return err
		}
	}
	fmt.Fprintf(stdout, "imported %d models\n", len(keys))
	return nil
}
