package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/ogcard/internal/domain/model"
)

// cli carries the persistent flags shared by every command.
type cli struct {
	server  string
	timeout time.Duration
}

func (c *cli) client() *apiClient {
	return newAPIClient(c.server, c.timeout)
}

// newRootCmd builds the ogcardctl command tree.
func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "ogcardctl",
		Short:         "Command-line client for the ogcard API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	server := os.Getenv("OGCARD_URL")
	if server == "" {
		server = "http://127.0.0.1:8080"
	}
	root.PersistentFlags().StringVar(&c.server, "server", server, "ogcard server URL (env OGCARD_URL)")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 3*time.Minute, "request timeout")

	root.AddCommand(newTokenCmd(c))
	root.AddCommand(newRateLimitCmd(c))
	root.AddCommand(newReposCmd(c))
	root.AddCommand(newUploadCmd(c))
	root.AddCommand(newHistoryCmd(c))
	root.AddCommand(newENSCmd(c))

	return root
}

// printJSON writes a server response indented, or "ok" for an empty body.
func printJSON(w io.Writer, data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		_, err := fmt.Fprintln(w, "ok")
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		_, err = w.Write(data)
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}

// call runs one API request and prints its result.
func (c *cli) call(cmd *cobra.Command, method, path string, body any) error {
	data, err := c.client().do(cmd.Context(), method, path, body)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), data)
}

func newTokenCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the GitHub token held by the server",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set TOKEN",
		Short: "Validate and store a GitHub token (use - to read it from stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := args[0]
			if token == "-" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && err != io.EOF {
					return fmt.Errorf("reading token from stdin: %w", err)
				}
				token = strings.TrimSpace(line)
			}
			return c.call(cmd, http.MethodPut, "/api/v1/session/token", map[string]string{"token": token})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show whether a token is held and whose it is",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.call(cmd, http.MethodGet, "/api/v1/session", nil)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "verify",
		Short: "Re-check the held token with GitHub, signing out if it was revoked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.call(cmd, http.MethodPost, "/api/v1/session/verify", nil)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Sign out and delete the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.call(cmd, http.MethodDelete, "/api/v1/session", nil)
		},
	})

	return cmd
}

func newRateLimitCmd(c *cli) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "ratelimit",
		Short: "Show cached GitHub quota",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if refresh {
				return c.call(cmd, http.MethodPost, "/api/v1/ratelimit/refresh", nil)
			}
			return c.call(cmd, http.MethodGet, "/api/v1/ratelimit", nil)
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "fetch from GitHub unless the cache is fresh")

	return cmd
}

func newReposCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repos",
		Short: "List, inspect and create repositories",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List repositories of the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.call(cmd, http.MethodGet, "/api/v1/repos", nil)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get OWNER/REPO",
		Short: "Show one repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, repo, ok := strings.Cut(args[0], "/")
			if !ok || owner == "" || repo == "" {
				return fmt.Errorf("expected OWNER/REPO, got %q", args[0])
			}
			return c.call(cmd, http.MethodGet, "/api/v1/repos/"+url.PathEscape(owner)+"/"+url.PathEscape(repo), nil)
		},
	})

	var private bool
	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a repository seeded with an og/ folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.call(cmd, http.MethodPost, "/api/v1/repos", map[string]any{"name": args[0], "private": private})
		},
	}
	create.Flags().BoolVar(&private, "private", false, "create a private repository (the CDN will not serve it)")
	cmd.AddCommand(create)

	return cmd
}

func newUploadCmd(c *cli) *cobra.Command {
	var (
		owner, repo, folder string
		files               = map[model.AssetSlot]*string{}
	)

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload inner, outer and overlay images to og/<folder>",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			assets := map[string]string{}
			for _, slot := range model.AssetSlots {
				path := *files[slot]
				if path == "" {
					continue
				}
				dataURL, err := readDataURL(path)
				if err != nil {
					return err
				}
				assets[string(slot)] = dataURL
			}

			return c.call(cmd, http.MethodPost, "/api/v1/uploads", map[string]any{
				"owner":  owner,
				"repo":   repo,
				"folder": folder,
				"assets": assets,
			})
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "repository owner")
	cmd.Flags().StringVar(&repo, "repo", "", "repository name")
	cmd.Flags().StringVar(&folder, "folder", "", "folder under og/")
	for _, slot := range model.AssetSlots {
		files[slot] = cmd.Flags().String(string(slot), "", string(slot)+" image file")
	}
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("repo")
	_ = cmd.MarkFlagRequired("folder")

	return cmd
}

// readDataURL loads an image file as a base64 data URL, sniffing its type.
func readDataURL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return model.EncodeDataURL(http.DetectContentType(data), data), nil
}

func newHistoryCmd(c *cli) *cobra.Command {
	var (
		limit               int
		owner, repo, folder string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show upload history, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := url.Values{}
			if folder != "" {
				q.Set("owner", owner)
				q.Set("repo", repo)
				q.Set("folder", folder)
			} else if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}

			path := "/api/v1/uploads"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}
			return c.call(cmd, http.MethodGet, path, nil)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum entries (server default when 0)")
	cmd.Flags().StringVar(&owner, "owner", "", "restrict to a folder: repository owner")
	cmd.Flags().StringVar(&repo, "repo", "", "restrict to a folder: repository name")
	cmd.Flags().StringVar(&folder, "folder", "", "restrict to a folder: folder under og/")

	return cmd
}

func newENSCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ens",
		Short: "Resolve ENS names and update their me.yodl record",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "resolve NAME",
		Short: "Show which resolver serves a name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.call(cmd, http.MethodGet, "/api/v1/ens/"+url.PathEscape(args[0])+"/resolver", nil)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get NAME",
		Short: "Show the me.yodl record of a name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.call(cmd, http.MethodGet, "/api/v1/ens/"+url.PathEscape(args[0])+"/record", nil)
		},
	})

	var mode string
	setOG := &cobra.Command{
		Use:   "set-og NAME BASE_URL",
		Short: "Point og.baseUrl of a name at an uploaded folder",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := model.ParseWriteMode(mode); err != nil {
				return err
			}
			return c.call(cmd, http.MethodPut, "/api/v1/ens/"+url.PathEscape(args[0])+"/og", map[string]string{
				"base_url": args[1],
				"mode":     mode,
			})
		},
	}
	setOG.Flags().StringVar(&mode, "mode", "auto", "write path: auto, onchain or offchain")
	cmd.AddCommand(setOG)

	return cmd
}
