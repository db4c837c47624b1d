package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/iota-uz/go-i18n/v2/i18n"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/iota-uz/bookings-admin/pkg/inertia"
	"github.com/iota-uz/bookings-admin/pkg/intl"
	"github.com/iota-uz/bookings-admin/pkg/navigation"
	"github.com/iota-uz/bookings-admin/pkg/session"
	"github.com/iota-uz/bookings-admin/pkg/spotlight"
	"github.com/iota-uz/bookings-admin/pkg/types"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "navctl",
		Short:         "Inspect the console navigation for a role set",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newNavCmd(), newSpotlightCmd(), newSessionCmd())
	return root
}

type navFlags struct {
	roles      []string
	lang       string
	outputJSON bool
}

func (f *navFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.roles, "roles", nil, "comma separated role names (admin, influencer, ...)")
	cmd.Flags().StringVar(&f.lang, "lang", "en", "language of entry titles")
	cmd.Flags().BoolVar(&f.outputJSON, "json", false, "print JSON")
}

func (f *navFlags) localizer() *i18n.Localizer {
	tag := intl.MatchLanguage(f.lang, language.English)
	return i18n.NewLocalizer(intl.LoadBundle(), tag.String())
}

func newNavCmd() *cobra.Command {
	flags := &navFlags{}
	cmd := &cobra.Command{
		Use:   "nav",
		Short: "Print the navigation entries a role set sees",
		Long: `Print the navigation entries a role set sees, in menu order.

Examples:
  navctl nav
  navctl nav --roles admin,influencer
  navctl nav --roles influencer --lang zh --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries := navigation.Localize(navigation.Default().For(session.NewRoles(flags.roles...)), flags.localizer())
			return printEntries(cmd.OutOrStdout(), entries, flags.outputJSON)
		},
	}
	flags.bind(cmd)
	return cmd
}

func newSpotlightCmd() *cobra.Command {
	flags := &navFlags{}
	cmd := &cobra.Command{
		Use:   "spotlight <query>",
		Short: "Rank the entries a role set sees against a quick-search query",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := ""
			if len(args) == 1 {
				q = args[0]
			}
			entries := navigation.Localize(navigation.Default().For(session.NewRoles(flags.roles...)), flags.localizer())
			items := spotlight.NewQuickLinks(entries...).Find(q)
			if flags.outputJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(items)
			}
			for _, item := range items {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", item.Label, item.Link)
			}
			return nil
		},
	}
	flags.bind(cmd)
	return cmd
}

func newSessionCmd() *cobra.Command {
	var (
		backend   string
		cookie    string
		path      string
		component string
		timeout   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Ask the backend for the roles of a session and print its navigation",
		Long: `Partially reload the auth prop of a backend page with the given session
cookie and print the roles and navigation that session gets.

Example:
  navctl session --backend http://localhost:8000 --cookie "laravel_session=..."`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := inertia.NewClient(inertia.Options{BaseURL: backend, Timeout: timeout})
			if err != nil {
				return err
			}
			header := http.Header{}
			if cookie != "" {
				header.Set("Cookie", cookie)
			}
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			page, err := client.WithHeader(header).Visit(ctx, inertia.Visit{
				URL:       path,
				Only:      []string{"auth"},
				Component: component,
			})
			if err != nil {
				return fmt.Errorf("failed to load session: %w", err)
			}
			roles := session.RolesFromProps(page.Props)
			fmt.Fprintf(cmd.OutOrStdout(), "roles: %s\n", strings.Join(roles.Names(), ", "))
			return printEntries(cmd.OutOrStdout(), navigation.Localize(navigation.Default().For(roles), intl.DefaultLocalizer()), false)
		},
	}
	cmd.Flags().StringVar(&backend, "backend", "http://localhost:8000", "backend base URL")
	cmd.Flags().StringVar(&cookie, "cookie", "", "Cookie header to send")
	cmd.Flags().StringVar(&path, "path", "/dashboard", "page whose auth prop is reloaded")
	cmd.Flags().StringVar(&component, "component", "Dashboard", "component rendered at --path")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")
	return cmd
}

func printEntries(w io.Writer, entries []types.NavEntry, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TITLE\tHREF")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\n", e.Title, e.Href)
	}
	return tw.Flush()
}
