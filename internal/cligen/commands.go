package cligen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tarrence/oascli/internal/httpclient"
	"github.com/tarrence/oascli/internal/layout"
	"github.com/tarrence/oascli/internal/openapi"
	"github.com/tarrence/oascli/internal/params"
)

// AddCommands resolves every operation the layout retains and adds the command
// tree below parent. Layout entries with bug ids are left out. Resolution failures
// are reported together.
func AddCommands(ctx context.Context, parent *cobra.Command, eng *params.Engine, tree *layout.Node) error {
	ids := tree.OperationIDs()
	results, failures := eng.ResolveAll(ctx, ids)
	if len(failures) > 0 {
		errs := make([]error, 0, len(failures))
		for _, f := range failures {
			errs = append(errs, f)
		}
		return errors.Join(errs...)
	}
	byID := make(map[string]*params.Resolution, len(ids))
	for i, id := range ids {
		byID[id] = results[i]
	}
	return addChildren(parent, eng.Document(), tree, byID)
}

func addChildren(parent *cobra.Command, doc *openapi.Document, n *layout.Node, byID map[string]*params.Resolution) error {
	for _, sub := range n.Subcommands(false) {
		group := &cobra.Command{
			Use:           sub.Command,
			Short:         sub.Description,
			SilenceUsage:  true,
			SilenceErrors: true,
		}
		parent.AddCommand(group)
		if err := addChildren(group, doc, sub, byID); err != nil {
			return err
		}
	}
	for _, leaf := range n.Operations(false) {
		res := byID[leaf.Identifier]
		if res == nil {
			return fmt.Errorf("%s: operation %q was not resolved", leaf.Command, leaf.Identifier)
		}
		opCmd, err := buildOperationCmd(parent, doc, leaf, res)
		if err != nil {
			return fmt.Errorf("%s %s: %w", parent.CommandPath(), leaf.Command, err)
		}
		parent.AddCommand(opCmd)
	}
	return nil
}

func buildOperationCmd(parent *cobra.Command, doc *openapi.Document, node *layout.Node, res *params.Resolution) (*cobra.Command, error) {
	op := res.Operation
	method := strings.ToUpper(op.Method)
	pathTemplate := op.Path

	pathParams := extractPathParams(pathTemplate)
	use := node.Command
	for _, pp := range pathParams {
		use += " <" + params.FlagName(pp) + ">"
	}

	short := strings.TrimSpace(node.Description)
	if short == "" {
		short = strings.TrimSpace(op.Summary)
	}
	if short == "" {
		short = fmt.Sprintf("%s %s", method, pathTemplate)
	}

	cmd := &cobra.Command{
		Use:           use,
		Short:         short,
		Long:          strings.TrimSpace(op.Description),
		Args:          cobra.ExactArgs(len(pathParams)),
		Hidden:        op.Deprecated,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	namer := newFlagNamer(parent)
	var bindings []*paramBinding
	for _, set := range res.Ordered() {
		bindings = append(bindings, bindParams(cmd, namer, set, res.Enums)...)
	}
	byLoc := splitBindings(bindings)

	var body *bodyFlags
	if res.ContentType != "" || res.Set(params.LocationBody).Len() > 0 {
		body = bindBodyFlags(cmd, doc, res)
	}

	var pg *pager
	allFlag := new(bool)
	maxCount := new(int)
	maxPages := new(int)
	sleepMS := new(int)
	if node.Pagination != nil {
		var err error
		if pg, err = newPager(node.Pagination); err != nil {
			return nil, err
		}
		cmd.Flags().BoolVar(allFlag, flagAll, false, "Fetch all pages")
		cmd.Flags().IntVar(maxCount, flagMaxCount, 0, "Stop after this many items (implies --all)")
		cmd.Flags().IntVar(maxPages, flagMaxPages, defaultMaxPages, "Max pages to fetch with --all")
		cmd.Flags().IntVar(sleepMS, flagSleepMS, 0, "Sleep between pages when using --all")
	}

	summary, err := newSummarizer(node.SummaryFields)
	if err != nil {
		return nil, err
	}
	details := new(bool)
	if summary != nil {
		cmd.Flags().BoolVar(details, flagDetails, false, "Show the full response instead of "+strings.Join(node.SummaryFields, ", "))
	}

	requiresAuth := doc.OperationRequiresAuth(op)
	pathSet := res.Set(params.LocationPath)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		rt, err := RuntimeFrom(cmd)
		if err != nil {
			return err
		}
		if op.Deprecated {
			rt.Logger.Warn("operation is deprecated", "operation", op.ID)
		}
		if requiresAuth && rt.Auth != httpclient.AuthNone && strings.TrimSpace(rt.Token) == "" {
			fmt.Fprintf(rt.Printer.Err(), "Missing token for %s (%s %s). Set OASCLI_TOKEN or pass --token.\n", cmd.CommandPath(), method, pathTemplate)
			return fmt.Errorf("missing token")
		}

		baseURL := strings.TrimSpace(rt.BaseURL)
		if baseURL == "" {
			baseURL = strings.TrimSpace(doc.ServerURLForOperation(op))
			if baseURL == "" {
				return fmt.Errorf("no server URL found for %s %s; pass --base-url", method, pathTemplate)
			}
		}

		pathValues := make(map[string]string, len(pathParams))
		for i, name := range pathParams {
			v := args[i]
			if def := res.Enums.For(pathSet.Lookup(name)); def != nil {
				m, ok := def.Match(v)
				if !ok {
					return fmt.Errorf("invalid value %q for <%s> (choose from %s)", v, name, strings.Join(def.Values(), ", "))
				}
				v = params.FormatValue(m)
			}
			pathValues[name] = v
		}
		baseEndpoint, err := joinBaseAndPath(baseURL, expandPath(pathTemplate, pathValues))
		if err != nil {
			return err
		}

		queryValues, err := collectValues(cmd, byLoc[params.LocationQuery], false, rt.Logger)
		if err != nil {
			return err
		}
		headerValues, err := collectValues(cmd, byLoc[params.LocationHeader], false, rt.Logger)
		if err != nil {
			return err
		}
		bodyValues, err := collectValues(cmd, byLoc[params.LocationBody], body != nil && body.dataSet(cmd), rt.Logger)
		if err != nil {
			return err
		}

		q := url.Values{}
		for _, pair := range params.FormFlatQuery(res.Set(params.LocationQuery), queryValues) {
			q.Add(pair.Key, pair.Value)
		}
		h := http.Header{}
		for _, pair := range params.FormFlatQuery(res.Set(params.LocationHeader), headerValues) {
			h.Add(pair.Key, pair.Value)
		}

		var reqBody []byte
		ct := ""
		if body != nil {
			if reqBody, ct, err = body.build(cmd, bodyValues); err != nil {
				return err
			}
		}

		do := func(endpoint string, query url.Values) (*httpclient.Result, error) {
			if len(query) > 0 {
				u, err := url.Parse(endpoint)
				if err != nil {
					return nil, err
				}
				u.RawQuery = query.Encode()
				endpoint = u.String()
			}

			var bodyReader io.Reader
			if len(reqBody) > 0 {
				bodyReader = bytes.NewReader(reqBody)
			}
			req, err := http.NewRequestWithContext(cmd.Context(), method, endpoint, bodyReader)
			if err != nil {
				return nil, err
			}
			if len(reqBody) > 0 {
				req.GetBody = func() (io.ReadCloser, error) {
					return io.NopCloser(bytes.NewReader(reqBody)), nil
				}
				if ct != "" {
					req.Header.Set("Content-Type", ct)
				}
			}
			for k, vv := range h {
				for _, v := range vv {
					req.Header.Add(k, v)
				}
			}
			// Security metadata is not always complete, so a token is sent whenever one is set.
			httpclient.ApplyAuth(req, strings.TrimSpace(rt.Token), rt.Auth)

			rt.Logger.Debug("request", "operation", op.ID, "method", method, "url", req.URL.Redacted())
			r, err := rt.Client.Do(req, reqBody)
			if err != nil {
				return nil, err
			}
			if r.Status >= 400 {
				_ = rt.Printer.PrintHTTPError(r.Status, r.Headers, r.Body)
				// The body is already on stderr.
				return nil, &httpclient.StatusError{Method: method, URL: req.URL.Redacted(), Status: r.Status}
			}
			return r, nil
		}

		if pg != nil && (*allFlag || cmd.Flags().Changed(flagMaxCount)) {
			if method != http.MethodGet {
				return fmt.Errorf("--%s is only supported for GET operations", flagAll)
			}
			pg.maxCount = *maxCount
			pg.maxPages = *maxPages
			pg.sleep = time.Duration(*sleepMS) * time.Millisecond
			pres, err := pg.fetchAll(cmd.Context(), baseEndpoint, q, do)
			if err != nil {
				return err
			}
			rt.Logger.Info("fetched pages", "operation", op.ID, "pages", pres.Pages, "items", len(pres.Items))
			return printItems(rt.Printer, summary, *details, pres)
		}

		r, err := do(baseEndpoint, q)
		if err != nil {
			return err
		}
		return printResponse(rt.Printer, summary, *details, r.Status, r.Headers, r.Body)
	}

	return cmd, nil
}
