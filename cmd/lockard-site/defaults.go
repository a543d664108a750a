package main

import (
	"io"

	"github.com/lockard-llc/lockard-site/model"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var defaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Print the built-in config values as a remote config document",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeDefaults(cmd.OutOrStdout())
	},
}

// writeDefaults encodes the schema in its declared order.
func writeDefaults(w io.Writer) error {
	doc := &yaml.Node{Kind: yaml.MappingNode}
	for _, d := range model.Schema {
		value := &yaml.Node{Kind: yaml.ScalarNode, Value: d.Default}
		switch d.Kind {
		case model.Bool:
			value.Tag = "!!bool"
		case model.Number:
			value.Tag = "!!float"
		default:
			value.Tag = "!!str"
			value.Style = yaml.DoubleQuotedStyle
		}
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: string(d.Key)},
			value,
		)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}
