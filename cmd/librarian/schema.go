package main

import (
	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/librarian/pkg/skills"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of registry.yaml manifests",
	Long: `Print the JSON schema describing the flat form of a registry.yaml
manifest. Editors can use it to validate and complete manifest files.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return writeJSON(cmd.OutOrStdout(), manifestSchema())
	},
}

func manifestSchema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		DoNotReference:            true,
		AllowAdditionalProperties: false,
	}
	schema := r.Reflect(&skills.Manifest{})
	schema.Title = "librarian skill manifest"
	return schema
}
