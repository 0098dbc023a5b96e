package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/osa911/portfolio/internal/contactform"
	"github.com/osa911/portfolio/internal/logging"
	"github.com/osa911/portfolio/internal/version"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	logger *logging.Logger

	flagName     string
	flagCompany  string
	flagEmail    string
	flagMessage  string
	flagEndpoint string
	flagTimeout  time.Duration
	flagVerbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "contact",
	Short: "Send a message through the portfolio contact relay",
	Long: `contact validates a contact form submission locally and sends it to the
portfolio mail relay with a single request. Nothing is retried.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := logging.LevelError
		if flagVerbose {
			level = logging.LevelDebug
		}
		logger = logging.New(os.Stderr, level)
	},
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Validate and send a message",
	Long: `Validate the fields and POST them to the relay.

Example:
  contact send --name "Alice" --email alice@example.com --message "Hello, I would like a quote."
  echo "Hello from stdin, a longer message" | contact send --name Alice --email alice@example.com --message -`,
	RunE: func(cmd *cobra.Command, args []string) error {
		form, err := buildForm(cmd.InOrStdin())
		if err != nil {
			return err
		}
		if errs := form.Validate(); len(errs) > 0 {
			printFieldErrors(cmd.ErrOrStderr(), errs)
			return errors.New("form is invalid, nothing was sent")
		}

		// Shown back to the user with markup stripped
		shown := form.Display()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		ctx, cancel := context.WithTimeout(ctx, flagTimeout)
		defer cancel()

		s := spinner.New(spinner.CharSets[14], 120*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
		s.Suffix = " Sending message..."
		s.Start()
		err = form.Submit(ctx)
		s.Stop()

		if err != nil {
			var serr *contactform.SubmitError
			if errors.As(err, &serr) {
				return fmt.Errorf("message not sent (HTTP %d): %s", serr.StatusCode, serr.Body)
			}
			return fmt.Errorf("message not sent: %w", err)
		}

		color.New(color.FgGreen, color.Bold).Fprintln(cmd.OutOrStdout(), "✓ Message sent")
		fmt.Fprintf(cmd.OutOrStdout(), "  from %s <%s>\n", shown.Name, shown.Email)
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the fields without sending anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		form, err := buildForm(cmd.InOrStdin())
		if err != nil {
			return err
		}
		if errs := form.Validate(); len(errs) > 0 {
			printFieldErrors(cmd.ErrOrStderr(), errs)
			return errors.New("form is invalid")
		}
		color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "✓ Form is valid")
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "contact %s\n", version.Info())
		fmt.Fprintf(cmd.OutOrStdout(), "relay endpoint: %s\n", contactform.Endpoint)
	},
}

func buildForm(stdin io.Reader) (*contactform.Form, error) {
	message := flagMessage
	if message == "-" {
		b, err := io.ReadAll(io.LimitReader(stdin, 64<<10))
		if err != nil {
			return nil, fmt.Errorf("failed to read message from stdin: %w", err)
		}
		message = string(b)
	}

	form := contactform.New(
		contactform.WithEndpoint(flagEndpoint),
		contactform.WithLogger(logger),
	)
	values := map[string]string{
		contactform.FieldName:    flagName,
		contactform.FieldCompany: flagCompany,
		contactform.FieldEmail:   flagEmail,
		contactform.FieldMessage: message,
	}
	for field, value := range values {
		if err := form.Set(field, value); err != nil {
			return nil, err
		}
	}
	return form, nil
}

func printFieldErrors(w io.Writer, errs map[string]string) {
	fields := make([]string, 0, len(errs))
	for field := range errs {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	red := color.New(color.FgRed)
	for _, field := range fields {
		red.Fprintf(w, "✗ %s\n", errs[field])
	}
}

func addFormFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagName, "name", "", "Your name (2-50 characters)")
	cmd.Flags().StringVar(&flagCompany, "company", "", "Company (optional)")
	cmd.Flags().StringVar(&flagEmail, "email", "", "Reply-to email address")
	cmd.Flags().StringVar(&flagMessage, "message", "", "Message (10-1000 characters), - reads stdin")
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log request failures in detail")

	addFormFlags(sendCmd)
	sendCmd.Flags().StringVar(&flagEndpoint, "endpoint", contactform.Endpoint, "Relay URL")
	sendCmd.Flags().DurationVar(&flagTimeout, "timeout", 30*time.Second, "Give up after this long")
	addFormFlags(validateCmd)

	rootCmd.AddCommand(sendCmd, validateCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
