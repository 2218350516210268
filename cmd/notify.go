package cmd

import (
	"AltarProject/global/config"
	"AltarProject/service/callable"
	"AltarProject/service/server"
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newNotifyCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Notification dispatch",
	}
	cmd.AddCommand(newNotifySendCmd(opts))
	return cmd
}

func newNotifySendCmd(opts *rootOptions) *cobra.Command {
	var (
		title    string
		body     string
		audience string
		channels []string
	)
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a notification through the router (primary procedure, legacy fallback)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			res := server.NewResources(cfg)
			defer res.Close(context.Background())

			// local 传输时在本进程内注册函数，便于离线验证
			var reg *callable.Registry
			if cfg.Notify.Transport == config.TransportLocal {
				if reg, err = server.BuildRegistry(cmd.Context(), res); err != nil {
					return err
				}
			}
			r, err := server.Router(cmd.Context(), res, reg)
			if err != nil {
				return err
			}

			payload := map[string]any{"title": title, "body": body}
			if audience != "" {
				payload["audience"] = audience
			}
			if len(channels) > 0 {
				chs := make([]any, 0, len(channels))
				for _, c := range channels {
					chs = append(chs, c)
				}
				payload["channels"] = chs
			}

			ctx, _ := callable.EnsureRequestID(cmd.Context())
			out, err := r.SendNotification(ctx, payload)
			if err != nil {
				return err
			}
			raw, err := json.Marshal(out)
			if err != nil {
				return err
			}
			fmt.Fprintln(opts.out, string(raw))
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "notification title")
	cmd.Flags().StringVar(&body, "body", "", "notification body")
	cmd.Flags().StringVar(&audience, "audience", "", "all | group:<id> | user:<uid>")
	cmd.Flags().StringSliceVar(&channels, "channel", nil, "delivery channels, repeatable")
	return cmd
}
