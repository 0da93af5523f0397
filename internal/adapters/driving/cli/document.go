package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Inspect stored documents",
	Long:  `List the latest document versions of a vendor and view single versions.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list [vendor]",
	Short: "List the latest documents of a vendor",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentList,
}

var documentShowCmd = &cobra.Command{
	Use:   "show [doc-id]",
	Short: "Show document version info",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentShow,
}

var documentContentCmd = &cobra.Command{
	Use:   "content [doc-id]",
	Short: "Print the cleaned text of a document version",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentContent,
}

var historyCmd = &cobra.Command{
	Use:   "history [vendor] [url]",
	Short: "Show the version history of a page",
	Long: `Lists every stored version of a page, newest first. The URL must be the
canonical URL as shown by 'vendorscope document list'.`,
	Args: cobra.ExactArgs(2),
	RunE: runHistory,
}

func init() {
	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentShowCmd)
	documentCmd.AddCommand(documentContentCmd)
	rootCmd.AddCommand(documentCmd)
	rootCmd.AddCommand(historyCmd)
}

func runDocumentList(cmd *cobra.Command, args []string) error {
	if err := requireService(documentService != nil && vendorService != nil, "document"); err != nil {
		return err
	}
	ctx := commandContext(cmd)

	v, err := vendorService.Resolve(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to get vendor: %w", err)
	}
	docs, err := documentService.ListLatest(ctx, v.ID)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	if len(docs) == 0 {
		cmd.Println("No documents found.")
		return nil
	}

	cmd.Printf("Documents for %s (%d):\n", v.Name, len(docs))
	for i := range docs {
		d := &docs[i]
		cmd.Printf("  %s  %-16s v%-3d %s\n", d.ID, d.Type, d.Version, d.URL)
	}
	return nil
}

func runDocumentShow(cmd *cobra.Command, args []string) error {
	if err := requireService(documentService != nil, "document"); err != nil {
		return err
	}

	doc, err := documentService.Get(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	cmd.Printf("Document: %s\n", titleOrURL(doc.Title, doc.URL))
	cmd.Printf("  ID:           %s\n", doc.ID)
	cmd.Printf("  URL:          %s\n", doc.URL)
	cmd.Printf("  Type:         %s\n", doc.Type)
	cmd.Printf("  Version:      %d\n", doc.Version)
	cmd.Printf("  Latest:       %t\n", doc.IsLatest)
	if doc.PreviousVersionID != nil {
		cmd.Printf("  Previous:     %s\n", *doc.PreviousVersionID)
	}
	cmd.Printf("  HTTP status:  %d\n", doc.HTTPStatus)
	cmd.Printf("  Content hash: %s\n", doc.ContentHash)
	cmd.Printf("  Crawled:      %s\n", doc.CrawledAt.Local().Format("2006-01-02 15:04"))
	cmd.Printf("  Created:      %s\n", doc.CreatedAt.Local().Format("2006-01-02 15:04"))
	for k, v := range doc.Metadata {
		cmd.Printf("  %s: %v\n", k, v)
	}
	return nil
}

func runDocumentContent(cmd *cobra.Command, args []string) error {
	if err := requireService(documentService != nil, "document"); err != nil {
		return err
	}

	doc, err := documentService.Get(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}
	cmd.Println(doc.CleanedContent)
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	if err := requireService(documentService != nil && vendorService != nil, "document"); err != nil {
		return err
	}
	ctx := commandContext(cmd)

	v, err := vendorService.Resolve(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to get vendor: %w", err)
	}
	versions, err := documentService.History(ctx, v.ID, args[1])
	if err != nil {
		return fmt.Errorf("failed to get history: %w", err)
	}
	if len(versions) == 0 {
		cmd.Println("No versions found.")
		return nil
	}

	for i := range versions {
		d := &versions[i]
		marker := " "
		if d.IsLatest {
			marker = "*"
		}
		cmd.Printf("%s v%-3d %s  %s  hash=%.12s\n", marker, d.Version, d.ID,
			d.CreatedAt.Local().Format("2006-01-02 15:04"), d.ContentHash)
	}
	return nil
}
