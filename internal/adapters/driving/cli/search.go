package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/vendorscope/internal/core/domain"
)

// retrievalFlags are shared by the search, citations and context commands.
type retrievalFlags struct {
	vendors []string
	types   []string
	topK    int
	json    bool
}

func (f *retrievalFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.vendors, "vendor", nil, "vendor ID or domain to search (repeatable, required)")
	cmd.Flags().StringSliceVar(&f.types, "type", nil, "restrict to document type (repeatable)")
	cmd.Flags().IntVarP(&f.topK, "top-k", "k", 0, "maximum number of chunks (0 uses retrieval.top_k)")
	cmd.Flags().BoolVar(&f.json, "json", false, "output results as JSON")
	_ = cmd.MarkFlagRequired("vendor")
}

var (
	searchFlags    retrievalFlags
	citationsFlags retrievalFlags
	contextFlags   retrievalFlags
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Retrieve the most relevant trust-page passages",
	Long: `Embeds the query and ranks chunks of the vendors' latest documents by
cosine similarity.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

var citationsCmd = &cobra.Command{
	Use:   "citations [query]",
	Short: "List the source pages supporting a query, one per page",
	Args:  cobra.ExactArgs(1),
	RunE:  runCitations,
}

var contextCmd = &cobra.Command{
	Use:   "context [query]",
	Short: "Print a numbered source context block for a query",
	Long: `Prints the retrieved passages as "[Source n]" blocks that can be pasted
into a language model prompt.`,
	Args: cobra.ExactArgs(1),
	RunE: runContext,
}

func init() {
	searchFlags.register(searchCmd)
	citationsFlags.register(citationsCmd)
	contextFlags.register(contextCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(citationsCmd)
	rootCmd.AddCommand(contextCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query, err := buildQuery(cmd, args[0], &searchFlags)
	if err != nil {
		return err
	}

	results, err := retrievalService.Retrieve(commandContext(cmd), query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchFlags.json {
		return outputJSON(cmd, results)
	}
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		r := &results[i]
		cmd.Printf("  [%d] %s (%.3f)\n", i+1, titleOrURL(r.Title, r.URL), r.Similarity)
		cmd.Printf("      %s | %s | %s\n", r.VendorName, r.DocumentType, r.URL)
		cmd.Printf("      %s\n", oneLine(r.Chunk.Content, 200))
		cmd.Println()
	}
	return nil
}

func runCitations(cmd *cobra.Command, args []string) error {
	query, err := buildQuery(cmd, args[0], &citationsFlags)
	if err != nil {
		return err
	}

	citations, err := retrievalService.Citations(commandContext(cmd), query)
	if err != nil {
		return fmt.Errorf("citations failed: %w", err)
	}

	if citationsFlags.json {
		return outputJSON(cmd, citations)
	}
	if len(citations) == 0 {
		cmd.Println("No citations found.")
		return nil
	}

	for i := range citations {
		c := &citations[i]
		cmd.Printf("  [%d] %s - %s (%.3f)\n", i+1, c.VendorName, titleOrURL(c.Title, c.URL), c.Similarity)
		cmd.Printf("      %s\n", c.URL)
		cmd.Printf("      %s\n", c.Excerpt)
	}
	return nil
}

func runContext(cmd *cobra.Command, args []string) error {
	query, err := buildQuery(cmd, args[0], &contextFlags)
	if err != nil {
		return err
	}

	text, err := retrievalService.BuildContext(commandContext(cmd), query)
	if err != nil {
		return fmt.Errorf("building context failed: %w", err)
	}

	if contextFlags.json {
		return outputJSON(cmd, map[string]string{"context": text})
	}
	cmd.Println(text)
	return nil
}

// buildQuery resolves vendor references and document types into a query.
func buildQuery(cmd *cobra.Command, text string, f *retrievalFlags) (domain.RetrieveQuery, error) {
	if err := requireService(retrievalService != nil, "retrieval"); err != nil {
		return domain.RetrieveQuery{}, err
	}

	ids := f.vendors
	if vendorService != nil {
		ids = make([]string, 0, len(f.vendors))
		for _, ref := range f.vendors {
			v, err := vendorService.Resolve(commandContext(cmd), ref)
			if err != nil {
				return domain.RetrieveQuery{}, fmt.Errorf("failed to get vendor %q: %w", ref, err)
			}
			ids = append(ids, v.ID)
		}
	}

	types := make([]domain.DocumentType, 0, len(f.types))
	for _, t := range f.types {
		dt := domain.DocumentType(t)
		if !dt.IsValid() {
			return domain.RetrieveQuery{}, fmt.Errorf("unknown document type %q: %w", t, domain.ErrInvalidInput)
		}
		types = append(types, dt)
	}

	return domain.RetrieveQuery{
		Query:         text,
		VendorIDs:     ids,
		TopK:          f.topK,
		DocumentTypes: types,
	}, nil
}

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func titleOrURL(title, url string) string {
	if title != "" {
		return title
	}
	return url
}

// oneLine flattens whitespace and cuts s to n runes.
func oneLine(s string, n int) string {
	r := []rune(strings.Join(strings.Fields(s), " "))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}
