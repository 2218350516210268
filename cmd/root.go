package cmd

import (
	"AltarProject/global/config"
	"AltarProject/logger"
	"AltarProject/tools"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// Execute 入口，返回进程退出码
func Execute() int {
	cmd := newRootCmd(os.Stdout)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

type rootOptions struct {
	configPath string
	logLevel   string
	out        io.Writer
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &rootOptions{out: out}
	cmd := &cobra.Command{
		Use:           "altar",
		Short:         "Altar server scheduling backend: counters and notification dispatch",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", tools.GetEnv("ALTAR_CONFIG", ""), "YAML config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log.level")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newCounterCmd(opts))
	cmd.AddCommand(newNotifyCmd(opts))
	cmd.AddCommand(newDoctorCmd(opts))
	return cmd
}

// load 读取配置并应用到进程级单例
func (o *rootOptions) load(_ *cobra.Command) (*config.AppConfig, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if err := config.ConfigAll(cfg); err != nil {
		return nil, err
	}
	logger.Debug("config loaded")
	return cfg, nil
}
