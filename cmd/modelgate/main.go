// =============================================================================
// ModelGate 主入口
// =============================================================================
// 命令行入口：向已配置的模型发送提示词
//
// 使用方法:
//
//	modelgate invoke -model ds -prompt "你好"              # 同步调用
//	modelgate invoke -model ds -model hn -prompt "你好"    # 并发调用多个模型
//	modelgate stream -model ds -prompt "你好"              # 流式输出
//	modelgate models                                      # 列出已配置模型
//	modelgate import -config config.yaml                  # 将文件中的模型写入数据库
//	modelgate migrate -config config.yaml up              # 升级 model_configs 表结构
//	modelgate version                                     # 显示版本信息
// =============================================================================

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/modelgate/config"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// errUsage 表示命令行参数错误，已打印用法
var errUsage = errors.New("invalid usage")

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	if err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// run 分发子命令
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) < 1 {
		printUsage(stderr)
		return errUsage
	}

	switch args[0] {
	case "invoke":
		return runInvoke(ctx, args[1:], stdout, stderr)
	case "stream":
		return runStream(ctx, args[1:], stdout, stderr)
	case "models":
		return runModels(ctx, args[1:], stdout, stderr)
	case "import":
		return runImport(ctx, args[1:], stdout, stderr)
	case "migrate":
		return runMigrate(ctx, args[1:], stdout, stderr)
	case "version":
		printVersion(stdout)
		return nil
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		printUsage(stderr)
		return errUsage
	}
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "ModelGate %s\n", Version)
	fmt.Fprintf(w, "  Build Time: %s\n", BuildTime)
	fmt.Fprintf(w, "  Git Commit: %s\n", GitCommit)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `ModelGate - multi-provider model invocation

Usage:
  modelgate <command> [options]

Commands:
  invoke    Send a prompt and print the full answer
  stream    Send a prompt and print the answer as it arrives
  models    List configured models
  import    Copy models from the config file into the database
  migrate   Manage the model_configs schema (up | down | version | status)
  version   Show version information
  help      Show this help message

Common options:
  -config <path>        Path to configuration file (YAML)
  -metrics-addr <addr>  Serve Prometheus metrics while the command runs

Options for 'invoke' and 'stream':
  -model <key>          Model key (invoke accepts it more than once)
  -prompt <text>        Prompt text; remaining arguments are used when omitted
  -timeout <duration>   Overall deadline, e.g. 90s (default: none)
  -retries <n>          invoke only: retry retryable failures up to n times

Examples:
  modelgate invoke -config config.yaml -model deepseek-r1 -prompt "你好"
  modelgate invoke -model deepseek-r1 -model haineng "介绍一下你自己"
  modelgate stream -model deepseek-r1 -prompt "写一首诗"
  modelgate migrate -config config.yaml up
  MODELGATE_MODEL_SOURCE=database modelgate models`)
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      encoding == "console",
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
	}

	var opts []zap.Option
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}
	if cfg.EnableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	logger, err := zapConfig.Build(opts...)
	if err != nil {
		// 回退到基本 logger
		logger, _ = zap.NewProduction()
	}

	return logger
}
