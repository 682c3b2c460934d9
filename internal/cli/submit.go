package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"jenkins2ado/internal/core"
)

type submitOptions struct {
	server   string
	output   string
	approve  bool
	approver string
	timeout  time.Duration
}

func newSubmitCommand(opts *rootOptions) *cobra.Command {
	so := &submitOptions{}
	cmd := &cobra.Command{
		Use:   "submit <Jenkinsfile|job.xml>",
		Short: "Send a Jenkins definition to a running j2ado server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd, opts, so, args[0])
		},
	}
	cmd.Flags().StringVar(&so.server, "server", "http://localhost:8080", "server base URL")
	cmd.Flags().StringVarP(&so.output, "output", "o", "", "write the approved YAML to this file")
	cmd.Flags().BoolVar(&so.approve, "approve", false, "approve the conversion")
	cmd.Flags().StringVar(&so.approver, "approver", os.Getenv("USER"), "name recorded with the approval")
	cmd.Flags().DurationVar(&so.timeout, "timeout", 5*time.Minute, "overall request timeout")
	return cmd
}

func runSubmit(cmd *cobra.Command, opts *rootOptions, so *submitOptions, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), so.timeout)
	defer cancel()

	c := &apiClient{base: strings.TrimRight(so.server, "/"), http: http.DefaultClient}
	name := filepath.Base(path)
	report := cmd.ErrOrStderr()

	var sess core.Session
	if err := c.do(ctx, http.MethodPost, "/sessions?filename="+url.QueryEscape(name), strings.NewReader(string(data)), nil, &sess); err != nil {
		return err
	}
	if !opts.jsonOutput {
		dimColor.Fprintf(report, "session %s\n", sess.ID)
		printValidation(report, name, *sess.Validation)
	}
	if !sess.Validation.IsValid {
		return errValidationFailed
	}

	if err := c.do(ctx, http.MethodPost, "/sessions/"+sess.ID+"/convert", nil, nil, &sess); err != nil {
		return err
	}
	if sess.ConversionError != "" {
		return fmt.Errorf("%s", sess.ConversionError)
	}
	if !opts.jsonOutput {
		printSessionReport(report, sess)
	}

	yaml := sess.ReviewYAML()
	if so.approve {
		var body strings.Builder
		hdr := http.Header{"X-Approver": []string{so.approver}}
		if err := c.do(ctx, http.MethodPost, "/sessions/"+sess.ID+"/approve", nil, hdr, &body); err != nil {
			return err
		}
		yaml = body.String()
		if !opts.jsonOutput {
			successColor.Fprintln(report, "Approved")
		}
	}

	if so.output != "" {
		if err := writeOutput(so.output, yaml); err != nil {
			return err
		}
	}
	if opts.jsonOutput {
		if so.approve {
			if err := c.do(ctx, http.MethodGet, "/sessions/"+sess.ID, nil, nil, &sess); err != nil {
				return err
			}
		}
		return printJSON(cmd.OutOrStdout(), sess)
	}
	if so.output == "" {
		_, err = io.WriteString(cmd.OutOrStdout(), yaml)
	}
	return err
}

type apiClient struct {
	base string
	http *http.Client
}

// do sends one request. out is either a *strings.Builder for raw bodies or a
// value to decode JSON into.
func (c *apiClient) do(ctx context.Context, method, path string, body io.Reader, hdr http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	for k, v := range hdr {
		req.Header[k] = v
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = resp.Status
		}
		return fmt.Errorf("server: %s (%d)", e.Error, resp.StatusCode)
	}

	if sb, ok := out.(*strings.Builder); ok {
		_, err = io.Copy(sb, resp.Body)
		return err
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
