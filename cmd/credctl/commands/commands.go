package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"
)

const FormatJSON = "json"

// RunCredentials prints the credentials held by owner.
func RunCredentials(ctx context.Context, client *Client, owner, format string, w io.Writer) error {
	resp, err := client.ListOwned(ctx, owner)
	if err != nil {
		return err
	}
	if format == FormatJSON {
		return outputJSON(w, resp)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tISSUER\tDOCUMENT\tVERIFY")
	for _, c := range resp.Credentials {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.Title, c.IssuerName, c.DocumentURL, c.VerifyPath)
	}
	return tw.Flush()
}

// RunIssued prints the live credentials issued by issuer, optionally for one student.
func RunIssued(ctx context.Context, client *Client, issuer, student, format string, w io.Writer) error {
	resp, err := client.ListIssued(ctx, issuer, student)
	if err != nil {
		return err
	}
	if format == FormatJSON {
		return outputJSON(w, resp)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTUDENT\tTITLE")
	for _, row := range resp.Credentials {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", row.ID, row.Student, row.Title)
	}
	return tw.Flush()
}

// RunVerify prints the verdict for a credential.
func RunVerify(ctx context.Context, client *Client, credentialID, owner, issuer, format string, w io.Writer) error {
	resp, err := client.Verify(ctx, credentialID, owner, issuer)
	if err != nil {
		return err
	}
	if format == FormatJSON {
		return outputJSON(w, resp)
	}
	fmt.Fprintf(w, "Verdict:      %s\n", resp.Verdict)
	fmt.Fprintf(w, "Credential:   %s\n", resp.CredentialID)
	if resp.Cause != "" {
		fmt.Fprintf(w, "Cause:        %s\n", resp.Cause)
		return nil
	}
	fmt.Fprintf(w, "Title:        %s\n", resp.Title)
	fmt.Fprintf(w, "Owner:        %s (match: %t)\n", resp.Owner, resp.OwnerMatch)
	fmt.Fprintf(w, "Issuer:       %s, %s (match: %t)\n", resp.IssuerName, resp.Issuer, resp.IssuerMatch)
	return nil
}

// RunIssue uploads the document at path and issues a credential to student.
func RunIssue(ctx context.Context, client *Client, student, title, path, format string, w io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open document: %w", err)
	}
	defer f.Close()

	resp, err := client.Issue(ctx, student, title, filepath.Base(path), f)
	if err != nil {
		return err
	}
	if format == FormatJSON {
		return outputJSON(w, resp)
	}
	fmt.Fprintf(w, "Issued credential %s to %s\n", resp.CredentialID, resp.Student)
	fmt.Fprintf(w, "Document:     %s\n", resp.DocumentURL)
	fmt.Fprintf(w, "Transaction:  %s\n", resp.TxHash)
	fmt.Fprintf(w, "Verify:       %s\n", resp.VerifyPath)
	return nil
}

// RunRevoke revokes a credential. Revocation cannot be undone.
func RunRevoke(ctx context.Context, client *Client, credentialID, format string, w io.Writer) error {
	resp, err := client.Revoke(ctx, credentialID)
	if err != nil {
		return err
	}
	if format == FormatJSON {
		return outputJSON(w, resp)
	}
	fmt.Fprintf(w, "Revoked credential %s (tx %s)\n", resp.CredentialID, resp.TxHash)
	if resp.Remaining != nil {
		fmt.Fprintf(w, "%d credential(s) still live for issuer %s\n", len(resp.Remaining), resp.Issuer)
	}
	return nil
}

// RunHistory prints the recorded lifecycle events of a credential, oldest first.
func RunHistory(ctx context.Context, client *Client, credentialID, format string, w io.Writer) error {
	resp, err := client.History(ctx, credentialID)
	if err != nil {
		return err
	}
	if format == FormatJSON {
		return outputJSON(w, resp)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tACTION\tACTOR\tDECISION\tTX")
	for _, e := range resp.Events {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Timestamp.Format(time.RFC3339), e.Action, e.Actor, e.Decision, e.TxHash)
	}
	return tw.Flush()
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
