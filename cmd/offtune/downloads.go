package main

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	httpapi "github.com/tejashwikalptaru/offtune/internal/adapter/http"
	"github.com/tejashwikalptaru/offtune/internal/service"
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue <url>",
	Short: "Download audio for offline playback",
	Long: `Queue a download. The content id defaults to one derived from the URL, so
enqueueing the same URL twice refers to the same download.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		req := httpapi.EnqueueRequest{SourceURL: args[0]}
		req.ID, _ = flags.GetString("id")
		req.Title, _ = flags.GetString("title")
		req.Artist, _ = flags.GetString("artist")
		req.Album, _ = flags.GetString("album")
		req.DurationSeconds, _ = flags.GetInt("duration")
		if req.ID == "" {
			req.ID = service.ContentIDForURL(req.SourceURL)
		}

		var out httpapi.EnqueueResponse
		if _, err := newClient(cfg.HTTP.Addr).do(cmd.Context(), http.MethodPost, "/downloads", req, &out); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", out.ID, out.Outcome)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List downloads",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var items []httpapi.DownloadItem
		if _, err := newClient(cfg.HTTP.Addr).do(cmd.Context(), http.MethodGet, "/downloads", nil, &items); err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No downloads.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tPROGRESS\tSIZE")
		for _, item := range items {
			progress := "-"
			if item.Progress >= 0 {
				progress = fmt.Sprintf("%d%%", item.Progress)
			}
			status := item.Status
			if status == "unknown" && item.RawStatus != "" {
				status = item.RawStatus
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", item.ID, item.Name, status, progress, item.Size)
		}
		return w.Flush()
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a download",
	Long:  `Show a download. Only completed downloads are shown unless --status names others.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "/downloads/" + url.PathEscape(args[0])
		if statuses, _ := cmd.Flags().GetStringSlice("status"); len(statuses) > 0 {
			path += "?status=" + url.QueryEscape(strings.Join(statuses, ","))
		}

		var item httpapi.DownloadItem
		if _, err := newClient(cfg.HTTP.Addr).do(cmd.Context(), http.MethodGet, path, nil, &item); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "ID:       %s\n", item.ID)
		fmt.Fprintf(out, "Title:    %s\n", item.Name)
		fmt.Fprintf(out, "Status:   %s\n", item.Status)
		fmt.Fprintf(out, "Size:     %s\n", item.Size)
		if item.FilePath != "" {
			fmt.Fprintf(out, "File:     %s\n", item.FilePath)
		}
		if item.Error != "" {
			fmt.Fprintf(out, "Error:    %s\n", item.Error)
		}
		if t := item.Tags; t != nil {
			fmt.Fprintf(out, "Tags:     %s - %s (%s, %s)\n", t.Artist, t.Title, t.Album, t.Format)
		}
		return nil
	},
}

// actionCmd builds a command forwarding one action to every id given.
func actionCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <id>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(cfg.HTTP.Addr)
			for _, id := range args {
				path := "/downloads/" + url.PathEscape(id) + "/" + action
				if _, err := c.do(cmd.Context(), http.MethodPost, path, nil, nil); err != nil {
					return fmt.Errorf("%s %s: %w", action, id, err)
				}
			}
			return nil
		},
	}
}

// forgetCmd builds remove (keeps the file) or delete (erases it).
func forgetCmd(use, short string, erase bool, aliases ...string) *cobra.Command {
	return &cobra.Command{
		Use:     use + " <id>...",
		Aliases: aliases,
		Short:   short,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(cfg.HTTP.Addr)
			for _, id := range args {
				path := fmt.Sprintf("/downloads/%s?erase=%t", url.PathEscape(id), erase)
				if _, err := c.do(cmd.Context(), http.MethodDelete, path, nil, nil); err != nil {
					return fmt.Errorf("%s %s: %w", use, id, err)
				}
			}
			return nil
		},
	}
}

func init() {
	enqueueCmd.Flags().String("id", "", "Content id (default: derived from the URL)")
	enqueueCmd.Flags().String("title", "", "Track title")
	enqueueCmd.Flags().String("artist", "", "Track artist")
	enqueueCmd.Flags().String("album", "", "Track album")
	enqueueCmd.Flags().Int("duration", 0, "Track duration in seconds")

	showCmd.Flags().StringSlice("status", nil, "Statuses to accept, e.g. queued,paused (default: completed)")

	rootCmd.AddCommand(
		enqueueCmd,
		listCmd,
		showCmd,
		actionCmd("pause", "Pause downloads"),
		actionCmd("resume", "Resume paused downloads"),
		actionCmd("cancel", "Cancel downloads"),
		actionCmd("retry", "Retry failed or cancelled downloads"),
		forgetCmd("remove", "Forget downloads, keeping their files", false, "rm"),
		forgetCmd("delete", "Forget downloads and erase their files", true),
	)
}
