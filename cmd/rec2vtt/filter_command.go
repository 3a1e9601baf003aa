package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"rec2vtt/internal/convert"
	"rec2vtt/internal/logging"
	"rec2vtt/internal/odvd"
	"rec2vtt/internal/recording"
)

func newFilterCommand(ctx *commandContext) *cobra.Command {
	var (
		recPath  string
		specPath string
		outPath  string
		message  string
		sender   int64
	)

	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Write a recording holding only the selected message stream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			in, err := expandInput("rec", recPath)
			if err != nil {
				return err
			}
			out, err := expandInput("output", outPath)
			if err != nil {
				return err
			}
			if in == out {
				return fmt.Errorf("--output must differ from --rec")
			}

			selector := cfg.Selector()
			if cmd.Flags().Changed("message") {
				selector = strings.TrimSpace(message)
			}
			var messageID int32
			if strings.TrimSpace(specPath) != "" {
				spec, err := expandInput("odvd", specPath)
				if err != nil {
					return err
				}
				reg, err := odvd.ParseFile(spec)
				if err != nil {
					return fmt.Errorf("load message specification: %w", err)
				}
				if messageID, _, err = convert.ResolveMessage(reg, selector); err != nil {
					return fmt.Errorf("select message: %w", err)
				}
			} else {
				id, err := strconv.ParseInt(selector, 10, 32)
				if err != nil {
					return fmt.Errorf("message %q is not numeric; pass --odvd to select by name", selector)
				}
				messageID = int32(id)
			}
			senderFilter, hasSender := cfg.SenderFilter()
			if cmd.Flags().Changed("sender") {
				senderFilter, hasSender = uint32(sender), sender >= 0
			}

			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			logger = logging.NewComponentLogger(logger, "filter")

			src, err := recording.Open(in)
			if err != nil {
				return fmt.Errorf("open recording: %w", err)
			}
			defer src.Close()

			file, err := openLockedFile(out)
			if err != nil {
				return err
			}
			defer file.Release()

			w := recording.NewWriter(file)
			read := 0
			for src.HasMore() {
				if err := cmd.Context().Err(); err != nil {
					return err
				}
				env, err := src.Next()
				if err != nil {
					return fmt.Errorf("read envelope %d: %w", read+1, err)
				}
				read++
				if env.DataType != messageID || (hasSender && env.SenderStamp != senderFilter) {
					continue
				}
				if err := w.Write(env); err != nil {
					return err
				}
			}
			if err := file.Commit(); err != nil {
				return err
			}
			logger.Info("filtered recording",
				logging.String("output", out),
				logging.Int64("message_id", int64(messageID)),
				logging.Int("envelopes_read", read),
				logging.Int("envelopes_written", w.Count()),
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&recPath, "rec", "", "Recording (.rec) to filter")
	cmd.Flags().StringVar(&specPath, "odvd", "", "Message specification, required to select by name")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Destination recording")
	cmd.Flags().StringVarP(&message, "message", "m", "", "Message id or name to keep (default from config)")
	cmd.Flags().Int64Var(&sender, "sender", -1, "Only keep envelopes from this sender stamp (-1 for any)")
	return cmd
}
