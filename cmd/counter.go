package cmd

import (
	"AltarProject/global/config"
	"AltarProject/module/counter"
	"AltarProject/service/server"
	"AltarProject/tools/errs"
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newCounterCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "counter",
		Short: "Counter operations against the configured store",
	}
	cmd.AddCommand(newCounterNextCmd(opts))
	cmd.AddCommand(newCounterCurrentCmd(opts))
	return cmd
}

func newCounterNextCmd(opts *rootOptions) *cobra.Command {
	var (
		prefix string
		pad    int
	)
	cmd := &cobra.Command{
		Use:   "next <name>",
		Short: "Allocate the next ID, e.g. altar counter next server_group_seq --prefix SG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadPersistent(cmd)
			if err != nil {
				return err
			}
			res := server.NewResources(cfg)
			defer res.Close(context.Background())

			alloc, err := res.Allocator(cmd.Context())
			if err != nil {
				return err
			}
			id, err := alloc.Allocate(cmd.Context(), args[0], counter.WithPrefix(prefix), counter.WithPadLength(pad))
			if err != nil {
				return err
			}
			fmt.Fprintln(opts.out, id)
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "ID prefix")
	cmd.Flags().IntVar(&pad, "pad", counter.DefaultPadLength, "minimum number of digits")
	return cmd
}

func newCounterCurrentCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "current <name>",
		Short: "Print the last issued sequence number without allocating",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadPersistent(cmd)
			if err != nil {
				return err
			}
			res := server.NewResources(cfg)
			defer res.Close(context.Background())

			alloc, err := res.Allocator(cmd.Context())
			if err != nil {
				return err
			}
			seq, err := alloc.Current(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(opts.out, seq)
			return nil
		},
	}
}

// loadPersistent 单次命令里 memory 后端每次都从 0 开始，发出的号会和上次重复
func (o *rootOptions) loadPersistent(cmd *cobra.Command) (*config.AppConfig, error) {
	cfg, err := o.load(cmd)
	if err != nil {
		return nil, err
	}
	if !cfg.Counter.Persistent() {
		return nil, errs.ErrInvalidArgument.WrapMsg("counter backend does not persist between runs", "backend", cfg.Counter.Backend)
	}
	return cfg, nil
}
