package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"specforge/internal/enhancement"
	"specforge/internal/gateway/app"
	"specforge/internal/gateway/config"
	"specforge/internal/gateway/handler/rpc"
	"specforge/internal/pipeline"
	"specforge/internal/util/jsonutil"
)

type enhanceFlags struct {
	file    string
	options []string
	answers []string
	server  string
	json    bool
	timeout time.Duration
}

func newEnhanceCmd() *cobra.Command {
	var f enhanceFlags
	cmd := &cobra.Command{
		Use:   "enhance [specification]",
		Short: "Enhance a specification",
		Long: `Enhance a specification read from the arguments, --file, or stdin.

Options are toggled with --option id=bool (see "specforge options").
Clarifier answers are passed with --answer "question=answer".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := buildRequest(cmd.InOrStdin(), args, f)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), f.timeout)
			defer cancel()

			res, err := runEnhance(ctx, req, f.server)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), res, f.json)
		},
	}
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "read the specification from a file")
	cmd.Flags().StringArrayVarP(&f.options, "option", "o", nil, "set an enhancement option, e.g. includeTestingStrategies=true")
	cmd.Flags().StringArrayVarP(&f.answers, "answer", "a", nil, `clarifier answer as "question=answer"`)
	cmd.Flags().StringVar(&f.server, "server", "", "base URL of a specforge server; empty runs locally")
	cmd.Flags().BoolVar(&f.json, "json", false, "print the raw JSON result")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 2*time.Minute, "overall deadline")
	return cmd
}

func buildRequest(stdin io.Reader, args []string, f enhanceFlags) (pipeline.Request, error) {
	var req pipeline.Request
	switch {
	case len(args) > 0:
		req.Specification = strings.Join(args, " ")
	case f.file != "":
		b, err := os.ReadFile(f.file)
		if err != nil {
			return req, fmt.Errorf("failed to read specification: %w", err)
		}
		req.Specification = string(b)
	default:
		b, err := io.ReadAll(stdin)
		if err != nil {
			return req, fmt.Errorf("failed to read stdin: %w", err)
		}
		req.Specification = string(b)
	}
	if strings.TrimSpace(req.Specification) == "" {
		return req, fmt.Errorf("specification is empty")
	}

	opts, err := parseOptions(f.options)
	if err != nil {
		return req, err
	}
	req.Options = opts

	answers, err := parseAnswers(f.answers)
	if err != nil {
		return req, err
	}
	req.ClarifierResponses = answers
	return req, nil
}

// parseOptions reads id=bool pairs; a bare id means true.
func parseOptions(raw []string) (enhancement.PartialOptions, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	effective := enhancement.DefaultOptions()
	out := enhancement.PartialOptions{}
	for _, kv := range raw {
		id, val, hasVal := strings.Cut(kv, "=")
		id = strings.TrimSpace(id)
		b := true
		if hasVal {
			parsed, err := strconv.ParseBool(strings.TrimSpace(val))
			if err != nil {
				return nil, fmt.Errorf("option %s: %w", id, err)
			}
			b = parsed
		}
		var known bool
		if effective, known = effective.Set(id, b); !known {
			return nil, fmt.Errorf("unknown option %q (run \"specforge options\")", id)
		}
		out[id] = b
	}
	return out, nil
}

// parseAnswers splits on the first '='; answers may contain '='.
func parseAnswers(raw []string) (enhancement.ClarifierResponses, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := enhancement.ClarifierResponses{}
	for _, qa := range raw {
		q, a, ok := strings.Cut(qa, "=")
		q = strings.TrimSpace(q)
		if !ok || q == "" {
			return nil, fmt.Errorf("answer %q must look like question=answer", qa)
		}
		out[q] = strings.TrimSpace(a)
	}
	return out, nil
}

func runEnhance(ctx context.Context, req pipeline.Request, server string) (enhancement.Result, error) {
	if server != "" {
		client := rpc.NewClient(http.DefaultClient, server)
		return client.EnhanceSpec(ctx, req)
	}
	cfg, err := config.Load()
	if err != nil {
		return enhancement.Result{}, err
	}
	components, err := app.Build(ctx, cfg)
	if err != nil {
		return enhancement.Result{}, err
	}
	defer components.Close()
	return components.Enhancer.Enhance(ctx, req), nil
}

func printResult(w io.Writer, res enhancement.Result, asJSON bool) error {
	if asJSON {
		b, err := jsonutil.MarshalNoEscapeIndent(res, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	}
	fmt.Fprintln(w, titleStyle.Render("Enhanced specification"))
	fmt.Fprintln(w, bodyStyle.Render(strings.TrimSpace(res.EnhancedSpecification)))
	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render("Thought clarifiers"))
	for i, q := range res.ThoughtClarifiers {
		fmt.Fprintf(w, "  %d. %s\n", i+1, q)
	}
	return nil
}
