package main

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/aluiziolira/go-auction-lister/config"
	"github.com/aluiziolira/go-auction-lister/settings"
)

func init() {
	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Shows or changes the preferences kept between runs.",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Lists the stored preferences.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openSettings(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		prefs, err := store.Load(cmd.Context())
		if err != nil {
			return err
		}

		values := prefs.Values()
		t := newTable(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"Key", "Value", "Stored"})
		for _, k := range settings.Keys {
			v := values[k]
			if k == settings.KeyChatworkAPIKey {
				v = mask(v)
			}
			t.AppendRow(table.Row{k, v, prefs.Has(k)})
		}
		t.Render()
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Stores one preference. Keys: " + strings.Join(settings.Keys, ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openSettings(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Set(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		cmd.Printf("%s updated\n", args[0])
		return nil
	},
}

func openSettings(cmd *cobra.Command) (*settings.Store, error) {
	cfg := config.DefaultConfig()
	if err := cfg.LoadFile(configPath); err != nil {
		return nil, err
	}
	return settings.Open(cmd.Context(), settingsPath(cmd, cfg))
}

func mask(secret string) string {
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}
