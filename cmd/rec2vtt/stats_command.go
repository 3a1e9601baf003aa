package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"rec2vtt/internal/cue"
	"rec2vtt/internal/odvd"
	"rec2vtt/internal/recording"
	"rec2vtt/internal/timestamp"
)

// streamStats aggregates the envelopes of one type/sender stream.
type streamStats struct {
	dataType int32
	sender   uint32
	count    int
	bytes    int
	first    timestamp.Timestamp
	last     timestamp.Timestamp
}

func collectStreamStats(src *recording.Reader) ([]*streamStats, int, error) {
	streams := map[string]*streamStats{}
	total := 0
	for src.HasMore() {
		env, err := src.Next()
		if err != nil {
			return nil, total, fmt.Errorf("read envelope %d: %w", total+1, err)
		}
		total++
		s, ok := streams[env.Key()]
		if !ok {
			s = &streamStats{dataType: env.DataType, sender: env.SenderStamp, first: env.Sent, last: env.Sent}
			streams[env.Key()] = s
		}
		s.count++
		s.bytes += len(env.Payload)
		if env.Sent.Before(s.first) {
			s.first = env.Sent
		}
		if s.last.Before(env.Sent) {
			s.last = env.Sent
		}
	}
	out := make([]*streamStats, 0, len(streams))
	for _, s := range streams {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].dataType != out[j].dataType {
			return out[i].dataType < out[j].dataType
		}
		return out[i].sender < out[j].sender
	})
	return out, total, nil
}

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var recPath string
	var specPath string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the envelope streams of a recording",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := expandInput("rec", recPath)
			if err != nil {
				return err
			}
			var reg *odvd.Registry
			if strings.TrimSpace(specPath) != "" {
				spec, err := expandInput("odvd", specPath)
				if err != nil {
					return err
				}
				if reg, err = odvd.ParseFile(spec); err != nil {
					return fmt.Errorf("load message specification: %w", err)
				}
			}
			loc, err := cfg.LabelLocation()
			if err != nil {
				return err
			}

			src, err := recording.Open(path)
			if err != nil {
				return fmt.Errorf("open recording: %w", err)
			}
			defer src.Close()

			streams, total, err := collectStreamStats(src)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if total == 0 {
				fmt.Fprintln(out, "Recording is empty")
				return nil
			}

			rows := make([][]string, 0, len(streams))
			for _, s := range streams {
				name := ""
				if d, ok := reg.Lookup(s.dataType); ok {
					name = d.QualifiedName()
				}
				rows = append(rows, []string{
					strconv.FormatInt(int64(s.dataType), 10),
					strconv.FormatUint(uint64(s.sender), 10),
					name,
					formatCount(s.count),
					formatCount(s.bytes),
					cue.FormatLabel(s.first, loc),
					cue.FormatLabel(s.last, loc),
				})
			}
			fmt.Fprintln(out, renderTable(tableSpec{
				headers: []string{"Type", "Sender", "Message", "Envelopes", "Payload bytes", "First", "Last"},
				rows:    rows,
				aligns:  []columnAlignment{alignRight, alignRight, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
				footer:  []string{"", "", "Total", formatCount(total)},
			}))
			return nil
		},
	}
	cmd.Flags().StringVar(&recPath, "rec", "", "Recording (.rec) to inspect")
	cmd.Flags().StringVar(&specPath, "odvd", "", "Optional message specification used to name types")
	return cmd
}
