package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/DjMdava/Nexus-AI-v2.0/internal/persona"
	"github.com/DjMdava/Nexus-AI-v2.0/internal/store"
	"github.com/DjMdava/Nexus-AI-v2.0/internal/types"
)

func init() {
	rootCmd.AddCommand(personaCmd)
	personaCmd.AddCommand(personaListCmd, personaAddCmd, personaRemoveCmd)

	personaAddCmd.Flags().String("name", "", "display name (required)")
	personaAddCmd.Flags().String("instruction", "", "system instruction (required)")
	personaAddCmd.Flags().String("welcome", "", "welcome message")
	_ = personaAddCmd.MarkFlagRequired("name")
	_ = personaAddCmd.MarkFlagRequired("instruction")
}

func openRegistry() (*persona.Registry, func(), error) {
	cfg := loadConfig()
	st, err := store.Open(filepath.Join(cfg.DataDir, "nexus.db"))
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	return persona.NewRegistry(st, store.NewPrefs(st)), func() { st.Close() }, nil
}

var personaCmd = &cobra.Command{
	Use:   "persona",
	Short: "Manage chat personas",
}

var personaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all personas",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, closeStore, err := openRegistry()
		if err != nil {
			return err
		}
		defer closeStore()

		active := registry.Active().ID
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tBUILT-IN\tACTIVE")
		for _, p := range registry.List() {
			marker := ""
			if p.ID == active {
				marker = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%v\t%s\n", p.ID, p.Name, persona.IsBuiltin(p.ID), marker)
		}
		return w.Flush()
	},
}

var personaAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a custom persona",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		instruction, _ := cmd.Flags().GetString("instruction")
		welcome, _ := cmd.Flags().GetString("welcome")
		if welcome == "" {
			welcome = fmt.Sprintf("Hi, I'm %s. How can I help?", name)
		}

		registry, closeStore, err := openRegistry()
		if err != nil {
			return err
		}
		defer closeStore()

		saved, err := registry.Save(types.Persona{
			Name:        name,
			Instruction: instruction,
			Welcome:     welcome,
		})
		if err != nil {
			return fmt.Errorf("add persona: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Persona %q added with id %s.\n", saved.Name, saved.ID)
		return nil
	},
}

var personaRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a custom persona",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := types.PersonaID(args[0])
		if persona.IsBuiltin(id) {
			return fmt.Errorf("persona %s is built-in and cannot be removed", id)
		}

		registry, closeStore, err := openRegistry()
		if err != nil {
			return err
		}
		defer closeStore()

		if err := registry.Delete(id); err != nil {
			return fmt.Errorf("remove persona: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Persona %s removed.\n", id)
		return nil
	},
}
