package cmd

import (
	"AltarProject/data/database/mgo/mongoutil"
	"AltarProject/global/config"
	"AltarProject/service/server"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

type doctorCheck struct {
	name string
	run  func(ctx context.Context) error
}

func newDoctorCmd(opts *rootOptions) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the configured counter store and notify queue are reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			res := server.NewResources(cfg)
			defer res.Close(context.Background())

			var failed []error
			for _, c := range doctorChecks(cfg, res) {
				ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
				err := c.run(ctx)
				cancel()
				if err != nil {
					fmt.Fprintf(opts.out, "FAIL %s: %v\n", c.name, err)
					failed = append(failed, fmt.Errorf("%s: %w", c.name, err))
					continue
				}
				fmt.Fprintf(opts.out, "ok   %s\n", c.name)
			}
			return errors.Join(failed...)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "timeout per check")
	return cmd
}

// doctorChecks mongo 只做一次性连通检查，不启动后台管理器
func doctorChecks(cfg *config.AppConfig, res *server.Resources) []doctorCheck {
	usesMongo := cfg.Counter.Backend == config.BackendMongo || cfg.Notify.Queue == config.QueueMongo
	var checks []doctorCheck
	if usesMongo {
		checks = append(checks, doctorCheck{name: "mongo", run: func(ctx context.Context) error {
			mc := cfg.Mongo
			return mongoutil.Check(ctx, &mc)
		}})
	}
	if cfg.Counter.Backend != config.BackendMongo {
		checks = append(checks, doctorCheck{name: "counter store (" + cfg.Counter.Backend + ")", run: func(ctx context.Context) error {
			store, err := res.CounterStore(ctx)
			if err != nil {
				return err
			}
			_, err = store.Load(ctx, "doctor")
			return err
		}})
	}
	if cfg.Notify.Queue != config.QueueMongo {
		checks = append(checks, doctorCheck{name: "notify queue (" + cfg.Notify.Queue + ")", run: func(ctx context.Context) error {
			_, err := res.NotifyQueue(ctx)
			return err
		}})
	}
	return checks
}
