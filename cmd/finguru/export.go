package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Shlokpalrecha/Finguru/internal/cli"
	"github.com/Shlokpalrecha/Finguru/internal/common"
	"github.com/Shlokpalrecha/Finguru/internal/config"
	"github.com/Shlokpalrecha/Finguru/internal/sheets"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the ledger",
	}

	sheetsCmd := &cobra.Command{
		Use:   "sheets",
		Short: "Write the GST ledger report to Google Sheets",
		Long: `Write the ledger, a category summary and a GST slab summary to a
Google Sheets spreadsheet. Without --from/--to every entry is exported.`,
		Args: cobra.NoArgs,
		RunE: runExportSheets,
	}
	sheetsCmd.Flags().String("from", "", "range start (YYYY-MM-DD)")
	sheetsCmd.Flags().String("to", "", "range end (YYYY-MM-DD)")
	cmd.AddCommand(sheetsCmd)

	return cmd
}

func runExportSheets(cmd *cobra.Command, _ []string) error {
	fromFlag, _ := cmd.Flags().GetString("from")
	toFlag, _ := cmd.Flags().GetString("to")

	from, err := parseDate("from", fromFlag)
	if err != nil {
		return err
	}
	to, err := parseDate("to", toFlag)
	if err != nil {
		return err
	}

	sheetsConfig, err := config.LoadSheetsConfig(viper.GetViper())
	if err != nil {
		return common.NewUserError("Google Sheets is not configured. Run 'finguru auth sheets' or set sheets.service_account_path.", err)
	}

	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.close()

	writer, err := sheets.NewWriter(cmd.Context(), *sheetsConfig, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create sheets writer: %w", err)
	}

	exporter := sheets.NewExporter(a.ledger, writer, a.specs.Current().Categories(), a.logger)
	report, err := exporter.Export(cmd.Context(), from, to)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf(
		"Exported %d entries to %q (total %s, GST %s)",
		len(report.Entries), report.Title(),
		cli.FormatAmount(report.TotalAmount.InexactFloat64()), cli.FormatAmount(report.TotalGST.InexactFloat64()))))
	return err
}

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with external services",
	}

	sheetsCmd := &cobra.Command{
		Use:   "sheets",
		Short: "Authenticate with Google Sheets",
		Long: `Authenticate with Google Sheets using OAuth2.

This command will:
1. Print a Google consent URL to open in your browser
2. Wait for the redirect on a local callback server
3. Save the token so 'finguru export sheets' can use it`,
		Args: cobra.NoArgs,
		RunE: runAuthSheets,
	}
	sheetsCmd.Flags().String("client-id", "", "OAuth2 Client ID (overrides config)")
	sheetsCmd.Flags().String("client-secret", "", "OAuth2 Client Secret (overrides config)")
	cmd.AddCommand(sheetsCmd)

	return cmd
}

func runAuthSheets(cmd *cobra.Command, _ []string) error {
	clientID := viper.GetString("sheets.client_id")
	clientSecret := viper.GetString("sheets.client_secret")

	if flagID, _ := cmd.Flags().GetString("client-id"); flagID != "" {
		clientID = flagID
	}
	if flagSecret, _ := cmd.Flags().GetString("client-secret"); flagSecret != "" {
		clientSecret = flagSecret
	}

	if clientID == "" {
		clientID = os.Getenv("GOOGLE_SHEETS_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("GOOGLE_SHEETS_CLIENT_SECRET")
	}

	if clientID == "" || clientSecret == "" {
		return common.NewUserError(
			"OAuth2 credentials not found. Set sheets.client_id and sheets.client_secret or pass --client-id and --client-secret.",
			common.ErrMissingConfig)
	}

	tokenFile := config.ExpandPath(viper.GetString("sheets.token_file"))
	if tokenFile == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("failed to get config directory: %w", err)
		}
		tokenFile = filepath.Join(configDir, "finguru", "sheets-token.json")
	}

	out := cmd.OutOrStdout()
	token, err := sheets.AuthenticateOAuth2Interactive(cmd.Context(), sheets.OAuth2Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenFile:    tokenFile,
	}, func(url string) {
		fmt.Fprintf(out, "%s\n\n  %s\n\n", cli.FormatInfo("Open this URL in your browser to authorize FinGuru:"), url)
	}, nil)
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	if token.RefreshToken == "" {
		fmt.Fprintln(out, cli.FormatWarning("Google did not return a refresh token. Revoke FinGuru's access and try again."))
		return nil
	}

	fmt.Fprintln(out, cli.FormatSuccess("Authentication successful!"))
	fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Token saved to %s. Set sheets.token_file to this path if it differs from your config.", tokenFile)))
	return nil
}
