package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jmx-collector/cmd/server"
	"github.com/jmx-collector/pkg/config"
	"github.com/jmx-collector/pkg/jmx"
	"github.com/jmx-collector/pkg/logger"
	"github.com/jmx-collector/pkg/monitor"
	"github.com/jmx-collector/pkg/registers"
	"github.com/jmx-collector/pkg/scheduler"
	"github.com/jmx-collector/pkg/signal"
	"github.com/jmx-collector/pkg/sink"
	"github.com/jmx-collector/pkg/source"
	"github.com/jmx-collector/pkg/util"
)

// Version 构建时通过 -ldflags 注入
var Version = "dev"

const shutdownTimeout = 30 * time.Second

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "jmx-collector",
		Short:         "Poll JMX MBeans of many JVM endpoints and emit them as metric events",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfigWithCli(cmd)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				fmt.Fprintf(os.Stderr, "请检查配置文件路径或使用 -c 参数指定\n")
				return err
			}
			util.PrintBanner(cmd.OutOrStdout(), "jmx-collector", "ColorBlue", Version)
			return runServer(cmd.Context(), cfg)
		},
	}

	cmd.PersistentFlags().StringP("config", "c", "", "配置文件路径 (yaml/json/toml)")
	// 注册分组 flag
	initServerFlags(cmd)
	initCollectFlags(cmd)
	initSinkFlags(cmd)
	initLogFlags(cmd)

	cmd.AddCommand(newValidateCmd())
	return cmd
}

// Execute 程序入口
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	//初始化日志
	log, err := logger.InitLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("日志初始化失败: %w", err)
	}
	defer logger.Sync()

	registry, factory, selfMonitor, err := registers.InitPromRegistry(ctx, registers.Options{
		EnableProcess: true,
		Interval:      cfg.Server.SelfMonitorInterval,
	})
	if err != nil {
		return fmt.Errorf("init prometheus registry failed: %w", err)
	}

	out, err := sink.New(cfg.Sink, sink.Deps{
		Fs:      afero.NewOsFs(),
		Logger:  logger.Named("sink"),
		Factory: factory,
	})
	if err != nil {
		_ = selfMonitor.Shutdown(ctx)
		return fmt.Errorf("init sink failed: %w", err)
	}

	sched, err := scheduler.New(scheduler.Options{
		Loader:           source.NewLoader(afero.NewOsFs(), cfg.Collect.Path),
		Dialer:           newDialer(&cfg.Collect),
		Sink:             out,
		NbThread:         cfg.Collect.NbThread,
		QueueSize:        cfg.Collect.QueueSize,
		PollingFrequency: cfg.Collect.PollingFrequency,
		DrainCheck:       cfg.Collect.DrainCheck,
		Timeout:          cfg.Collect.Timeout,
		Type:             cfg.Collect.Type,
		Metrics:          monitor.NewCollectionMetrics(factory),
		Logger:           logger.Named("scheduler"),
	})
	if err != nil {
		_ = out.Close()
		_ = selfMonitor.Shutdown(ctx)
		return fmt.Errorf("init scheduler failed: %w", err)
	}

	httpServer := server.NewHTTPServer(&cfg.Server, logger.Named("http"), registry, sched)
	if err := httpServer.Start(); err != nil {
		_ = out.Close()
		_ = selfMonitor.Shutdown(ctx)
		return fmt.Errorf("start HTTP server failed: %w", err)
	}

	schedDone := make(chan error, 1)
	go func() {
		schedDone <- sched.Run(ctx)
	}()

	log.Info("jmx collector started",
		zap.String("version", Version),
		zap.String("config_dir", cfg.Collect.Path),
		zap.Int("nb_thread", cfg.Collect.NbThread),
		zap.Duration("polling_frequency", cfg.Collect.PollingFrequency),
		zap.Strings("outputs", cfg.Sink.Outputs))

	// 调度循环异常退出时同样触发关闭流程
	waitCtx, stopWait := context.WithCancel(ctx)
	defer stopWait()
	failed := make(chan error, 1)
	go func() {
		if err := <-schedDone; err != nil {
			log.Error("scheduler stopped unexpectedly", zap.Error(err))
			failed <- err
		}
		stopWait()
	}()

	return signal.WaitForShutdown(waitCtx, log, shutdownTimeout, func(sctx context.Context) error {
		cancel()
		var errs []error
		// 关闭顺序：HTTP -> 调度器(worker 池) -> 自监控 -> sink
		if err := httpServer.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("shutdown HTTP server failed: %w", err))
		}
		if err := sched.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop scheduler failed: %w", err))
		}
		if err := selfMonitor.Shutdown(sctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown self monitor failed: %w", err))
		}
		if err := out.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close sink failed: %w", err))
		}
		select {
		case err := <-failed:
			errs = append(errs, err)
		default:
		}
		if len(errs) == 0 {
			logger.Info("all services shutdown successfully")
		}
		return errors.Join(errs...)
	})
}

func newDialer(cfg *config.CollectConfig) *jmx.JolokiaDialer {
	opts := []jmx.JolokiaOption{
		jmx.WithScheme(cfg.Jolokia.Scheme),
		jmx.WithBasePath(cfg.Jolokia.Path),
		jmx.WithTimeout(cfg.Timeout),
	}
	if cfg.Jolokia.InsecureSkipVerify {
		opts = append(opts, jmx.WithInsecureSkipVerify())
	}
	return jmx.NewJolokiaDialer(opts...)
}
