package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"specforge/internal/enhancement"
	"specforge/internal/gateway/handler/rpc"
	"specforge/internal/util/jsonutil"
)

func newOptionsCmd() *cobra.Command {
	var (
		server    string
		asJSON    bool
		overrides []string
	)
	cmd := &cobra.Command{
		Use:   "options",
		Short: "List enhancement options and their defaults",
		Long: `List enhancement options and their defaults.

With --option the text listing shows the state an enhance call with the
same flags would use.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			partial, err := parseOptions(overrides)
			if err != nil {
				return err
			}
			ds := enhancement.Descriptors()
			if server != "" {
				ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
				defer cancel()
				remote, err := rpc.NewClient(http.DefaultClient, server).ListEnhancementOptions(ctx)
				if err != nil {
					return fmt.Errorf("failed to list options: %w", err)
				}
				ds = remote
			}

			out := cmd.OutOrStdout()
			if asJSON {
				b, err := jsonutil.MarshalNoEscapeIndent(ds, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(b))
				return nil
			}

			fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Enhancement options (%d)", len(ds))))
			effective := enhancement.MergeOptions(partial)
			for _, d := range ds {
				on := d.Default
				if len(partial) > 0 {
					on = effective.Enabled(d.ID)
				}
				state := offStyle.Render("off")
				if on {
					state = onStyle.Render("on ")
				}
				fmt.Fprintf(out, "  %s  %s\n", state, headerStyle.Render(d.ID))
				fmt.Fprintf(out, "       %s\n", dimStyle.Render(d.Label+": "+d.Description))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&server, "server", "", "query a specforge server instead of the local catalog")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().StringArrayVarP(&overrides, "option", "o", nil, "preview an override, e.g. includeDependencies=false")
	return cmd
}
