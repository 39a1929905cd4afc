package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	httpapi "github.com/tejashwikalptaru/offtune/internal/adapter/http"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Show the playback queue",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var view httpapi.QueueView
		if _, err := newClient(cfg.HTTP.Addr).do(cmd.Context(), http.MethodGet, "/queue", nil, &view); err != nil {
			return err
		}
		printQueue(cmd.OutOrStdout(), view)
		return nil
	},
}

var shuffleCmd = &cobra.Command{
	Use:       "shuffle <on|off>",
	Short:     "Turn shuffle on or off",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var on bool
		switch args[0] {
		case "on":
			on = true
		case "off":
		default:
			parsed, err := strconv.ParseBool(args[0])
			if err != nil {
				return fmt.Errorf("shuffle takes on or off, got %q", args[0])
			}
			on = parsed
		}

		var view httpapi.QueueView
		if _, err := newClient(cfg.HTTP.Addr).do(cmd.Context(), http.MethodPut, "/queue/shuffle", httpapi.ShuffleRequest{On: on}, &view); err != nil {
			return err
		}
		printQueue(cmd.OutOrStdout(), view)
		return nil
	},
}

var playDownloadsCmd = &cobra.Command{
	Use:   "play-downloads [current-id]",
	Short: "Replace the queue with every completed download",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "/queue/downloads"
		if len(args) == 1 {
			path += "?current=" + url.QueryEscape(args[0])
		}
		var view httpapi.QueueView
		if _, err := newClient(cfg.HTTP.Addr).do(cmd.Context(), http.MethodPost, path, nil, &view); err != nil {
			return err
		}
		printQueue(cmd.OutOrStdout(), view)
		return nil
	},
}

var queueRemoveCmd = &cobra.Command{
	Use:     "remove <id>",
	Aliases: []string{"rm"},
	Short:   "Take an item out of the queue",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return queueRequest(cmd, http.MethodDelete, "/queue/items/"+url.PathEscape(args[0]), nil)
	},
}

var queueSwapCmd = &cobra.Command{
	Use:   "swap <position> <position>",
	Short: "Exchange two queue positions, counting from 1",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var positions [2]int
		for i, arg := range args {
			n, err := strconv.Atoi(arg)
			if err != nil || n < 1 {
				return fmt.Errorf("position must be a number from 1, got %q", arg)
			}
			positions[i] = n - 1
		}
		return queueRequest(cmd, http.MethodPost, "/queue/swap", httpapi.SwapRequest{From: positions[0], To: positions[1]})
	},
}

var queueCurrentCmd = &cobra.Command{
	Use:   "current <id>",
	Short: "Move the queue position to an item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return queueRequest(cmd, http.MethodPut, "/queue/current", httpapi.ContentRequest{ID: args[0]})
	},
}

var queueNowPlayingCmd = &cobra.Command{
	Use:   "now-playing <id>",
	Short: "Report the item the player moved to on its own",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := newClient(cfg.HTTP.Addr).do(cmd.Context(), http.MethodPost, "/queue/now-playing", httpapi.ContentRequest{ID: args[0]}, nil)
		return err
	},
}

var queueNextCmd = &cobra.Command{
	Use:   "next",
	Short: "Print the id after the current one",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return printContentID(cmd, "/queue/next", "End of queue.")
	},
}

var queuePreviousCmd = &cobra.Command{
	Use:   "previous",
	Short: "Print the id \"previous\" plays",
	Long:  `Print the id "previous" plays. Past a few seconds into the current item that is the current item again.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		elapsed, _ := cmd.Flags().GetDuration("elapsed")
		return printContentID(cmd, "/queue/previous?elapsed="+url.QueryEscape(elapsed.String()), "Start of queue.")
	},
}

var playPlaylistCmd = &cobra.Command{
	Use:   "play-playlist <playlist-id>",
	Short: "Replace the queue with a saved playlist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return queueRequest(cmd, http.MethodPost, "/queue/playlists/"+url.PathEscape(args[0]), nil)
	},
}

var playlistsCmd = &cobra.Command{
	Use:   "playlists",
	Short: "List saved playlists",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var playlists []httpapi.PlaylistView
		if _, err := newClient(cfg.HTTP.Addr).do(cmd.Context(), http.MethodGet, "/playlists", nil, &playlists); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(playlists) == 0 {
			fmt.Fprintln(out, "No playlists.")
			return nil
		}
		for _, p := range playlists {
			fmt.Fprintf(out, "%s  %s (%d)\n", p.ID, p.Name, len(p.ContentIDs))
		}
		return nil
	},
}

var playlistSaveCmd = &cobra.Command{
	Use:   "save <name>",
	Short: "Save the queue as a playlist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var playlist httpapi.PlaylistView
		if _, err := newClient(cfg.HTTP.Addr).do(cmd.Context(), http.MethodPost, "/playlists", httpapi.PlaylistRequest{Name: args[0]}, &playlist); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s (%d)\n", playlist.ID, playlist.Name, len(playlist.ContentIDs))
		return nil
	},
}

var playlistDeleteCmd = &cobra.Command{
	Use:     "delete <playlist-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a saved playlist",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := newClient(cfg.HTTP.Addr).do(cmd.Context(), http.MethodDelete, "/playlists/"+url.PathEscape(args[0]), nil, nil)
		return err
	},
}

// queueRequest sends a queue mutation and prints the resulting queue.
func queueRequest(cmd *cobra.Command, method, path string, body any) error {
	var view httpapi.QueueView
	if _, err := newClient(cfg.HTTP.Addr).do(cmd.Context(), method, path, body, &view); err != nil {
		return err
	}
	printQueue(cmd.OutOrStdout(), view)
	return nil
}

// printContentID prints the id a GET returns, or none when the server answers 204.
func printContentID(cmd *cobra.Command, path, none string) error {
	var resp httpapi.ContentResponse
	status, err := newClient(cfg.HTTP.Addr).do(cmd.Context(), http.MethodGet, path, nil, &resp)
	if err != nil {
		return err
	}
	if status == http.StatusNoContent {
		fmt.Fprintln(cmd.OutOrStdout(), none)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), resp.ID)
	return nil
}

func printQueue(w io.Writer, view httpapi.QueueView) {
	if len(view.IDs) == 0 {
		fmt.Fprintln(w, "Queue is empty.")
		return
	}
	title := view.Title
	if title == "" {
		title = "Queue"
	}
	if view.Shuffled {
		title += " (shuffled)"
	}
	fmt.Fprintln(w, title)
	for i, id := range view.IDs {
		marker := " "
		if i == view.CurrentIndex {
			marker = ">"
		}
		fmt.Fprintf(w, "%s %2d. %s\n", marker, i+1, id)
	}
}

func init() {
	queuePreviousCmd.Flags().Duration("elapsed", 0, "how far playback is into the current item")

	queueCmd.AddCommand(shuffleCmd, playDownloadsCmd, playPlaylistCmd,
		queueRemoveCmd, queueSwapCmd, queueCurrentCmd, queueNowPlayingCmd,
		queueNextCmd, queuePreviousCmd)
	playlistsCmd.AddCommand(playlistSaveCmd, playlistDeleteCmd)
	rootCmd.AddCommand(queueCmd, playlistsCmd)
}
