package main

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/spf13/cobra"

	httpapi "github.com/tejashwikalptaru/offtune/internal/adapter/http"
	"github.com/tejashwikalptaru/offtune/internal/adapter/storage/folder"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var settings map[string]string
		if _, err := newClient(cfg.HTTP.Addr).do(cmd.Context(), http.MethodGet, "/settings", nil, &settings); err != nil {
			return err
		}
		keys := make([]string, 0, len(settings))
		for k := range settings {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", k, settings[k])
		}
		return nil
	},
}

var settingsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore default settings and forget the downloads root folder",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, err := newClient(cfg.HTTP.Addr).do(cmd.Context(), http.MethodDelete, "/settings", nil, nil)
		return err
	},
}

var rootFolderCmd = &cobra.Command{
	Use:   "root",
	Short: "Manage the downloads root folder",
}

var rootSetCmd = &cobra.Command{
	Use:   "set <path-or-uri>",
	Short: "Choose the folder downloads are saved under",
	Long:  `Choose the folder downloads are saved under. A download waiting for a folder starts right away.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		uri, err := folder.ToURI(args[0])
		if err != nil {
			return err
		}
		_, err = newClient(cfg.HTTP.Addr).do(cmd.Context(), http.MethodPut, "/settings/root", httpapi.RootRequest{URI: uri}, nil)
		return err
	},
}

var rootResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget the downloads root folder",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, err := newClient(cfg.HTTP.Addr).do(cmd.Context(), http.MethodDelete, "/settings/root", nil, nil)
		return err
	},
}

var groupingCmd = &cobra.Command{
	Use:       "grouping <flat|artist|artist_album>",
	Short:     "Choose how new downloads are grouped into subfolders",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"flat", "artist", "artist_album"},
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := newClient(cfg.HTTP.Addr).do(cmd.Context(), http.MethodPut, "/settings/grouping", httpapi.GroupingRequest{Grouping: args[0]}, nil)
		return err
	},
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show recent downloader events",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var events []httpapi.EventView
		if _, err := newClient(cfg.HTTP.Addr).do(cmd.Context(), http.MethodGet, "/events", nil, &events); err != nil {
			return err
		}
		for _, e := range events {
			line := e.Timestamp.Format("15:04:05") + " " + e.Type
			switch {
			case e.Kind != "":
				line += " " + e.Kind
			case e.ContentID != "":
				line += " " + e.ContentID
			case e.URI != "":
				line += " " + e.URI
			case e.Grouping != "":
				line += " " + e.Grouping
			}
			if e.Error != "" {
				line += ": " + e.Error
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		return nil
	},
}

var eventsNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Print the id of the latest newly queued download",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return printContentID(cmd, "/events/new-downloads", "Nothing new.")
	},
}

func init() {
	settingsCmd.AddCommand(settingsResetCmd)
	eventsCmd.AddCommand(eventsNewCmd)
	rootFolderCmd.AddCommand(rootSetCmd, rootResetCmd)
	rootCmd.AddCommand(settingsCmd, rootFolderCmd, groupingCmd, eventsCmd)
}
