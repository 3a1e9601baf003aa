package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"rec2vtt/internal/odvd"
)

type fieldView struct {
	ID      uint32 `yaml:"id"`
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Default string `yaml:"default,omitempty"`
}

type messageView struct {
	ID      int32       `yaml:"id"`
	Name    string      `yaml:"name"`
	Package string      `yaml:"package,omitempty"`
	Fields  []fieldView `yaml:"fields"`
}

func describeMessages(reg *odvd.Registry) []messageView {
	views := make([]messageView, 0, reg.Len())
	for _, d := range reg.SortedByID() {
		view := messageView{ID: d.ID, Name: d.Name, Package: d.Package, Fields: []fieldView{}}
		for _, f := range d.Fields {
			view.Fields = append(view.Fields, fieldView{
				ID:      f.ID,
				Name:    f.Name,
				Type:    f.TypeName,
				Default: f.Default,
			})
		}
		views = append(views, view)
	}
	return views
}

func newMessagesCommand(ctx *commandContext) *cobra.Command {
	var specPath string
	var format string

	cmd := &cobra.Command{
		Use:         "messages",
		Short:       "List the messages of a specification",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := expandInput("odvd", specPath)
			if err != nil {
				return err
			}
			reg, err := odvd.ParseFile(path)
			if err != nil {
				return fmt.Errorf("load message specification: %w", err)
			}
			views := describeMessages(reg)
			out := cmd.OutOrStdout()

			switch strings.ToLower(strings.TrimSpace(format)) {
			case "yaml":
				data, err := yaml.Marshal(views)
				if err != nil {
					return fmt.Errorf("encode yaml: %w", err)
				}
				_, err = out.Write(data)
				return err
			case "", "table":
				if len(views) == 0 {
					fmt.Fprintln(out, "No messages defined")
					return nil
				}
				rows := make([][]string, 0, len(views))
				for _, v := range views {
					names := make([]string, 0, len(v.Fields))
					for _, f := range v.Fields {
						names = append(names, f.Name)
					}
					qualified := v.Name
					if v.Package != "" {
						qualified = v.Package + "." + v.Name
					}
					rows = append(rows, []string{
						strconv.FormatInt(int64(v.ID), 10),
						qualified,
						strconv.Itoa(len(v.Fields)),
						strings.Join(names, ", "),
					})
				}
				fmt.Fprintln(out, renderTable(tableSpec{
					headers: []string{"ID", "Message", "Fields", "Names"},
					rows:    rows,
					aligns:  []columnAlignment{alignRight, alignLeft, alignRight, alignLeft},
				}))
				return nil
			default:
				return fmt.Errorf("unsupported format %q (want table or yaml)", format)
			}
		},
	}
	cmd.Flags().StringVar(&specPath, "odvd", "", "Message specification (.odvd)")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table or yaml")
	return cmd
}
