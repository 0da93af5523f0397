package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/vendorscope/internal/core/domain"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl [vendor]",
	Short: "Crawl a vendor's trust pages",
	Long: `Queues a full crawl of the vendor. Queued jobs are picked up by the
workers of 'vendorscope serve'.

With --wait the crawl runs in this process and the command returns when
the job reaches a terminal state.`,
	Args: cobra.ExactArgs(1),
	RunE: runCrawl,
}

var crawlWait bool

func init() {
	crawlCmd.Flags().BoolVarP(&crawlWait, "wait", "w", false, "run the crawl now and wait for it to finish")
	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, args []string) error {
	if err := requireService(vendorService != nil && crawlService != nil, "crawl"); err != nil {
		return err
	}
	ctx := commandContext(cmd)

	v, err := vendorService.Resolve(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to get vendor: %w", err)
	}

	if !crawlWait {
		job, err := crawlService.Submit(ctx, v.ID)
		if err != nil {
			return fmt.Errorf("failed to queue crawl: %w", err)
		}
		cmd.Printf("Crawl queued for %s: job %s\n", v.Name, job.ID)
		return nil
	}

	cmd.Printf("Crawling %s (%s)...\n", v.Name, v.Domain)
	job, err := crawlService.RunNow(ctx, v.ID)
	if job != nil {
		printJob(cmd, job)
	}
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}
	return nil
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect and cancel crawl jobs",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent crawl jobs",
	Args:  cobra.NoArgs,
	RunE:  runJobsList,
}

var jobsShowCmd = &cobra.Command{
	Use:   "show [job-id]",
	Short: "Show a crawl job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsShow,
}

var jobsCancelCmd = &cobra.Command{
	Use:   "cancel [job-id]",
	Short: "Cancel a pending or running crawl job",
	Long: `Marks the job CANCELLED. A running crawl stops before its next page;
pages already stored are kept and the vendor's crawl schedule is not
advanced.`,
	Args: cobra.ExactArgs(1),
	RunE: runJobsCancel,
}

var (
	jobsVendor string
	jobsLimit  int
)

func init() {
	jobsListCmd.Flags().StringVar(&jobsVendor, "vendor", "", "only jobs of this vendor (ID or domain)")
	jobsListCmd.Flags().IntVarP(&jobsLimit, "limit", "n", 20, "maximum number of jobs")

	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsShowCmd)
	jobsCmd.AddCommand(jobsCancelCmd)
	rootCmd.AddCommand(jobsCmd)
}

func runJobsList(cmd *cobra.Command, _ []string) error {
	if err := requireService(crawlService != nil, "crawl"); err != nil {
		return err
	}
	ctx := commandContext(cmd)

	vendorID := ""
	if jobsVendor != "" {
		if err := requireService(vendorService != nil, "vendor"); err != nil {
			return err
		}
		v, err := vendorService.Resolve(ctx, jobsVendor)
		if err != nil {
			return fmt.Errorf("failed to get vendor: %w", err)
		}
		vendorID = v.ID
	}

	jobs, err := crawlService.List(ctx, vendorID, jobsLimit)
	if err != nil {
		return fmt.Errorf("failed to list jobs: %w", err)
	}
	if len(jobs) == 0 {
		cmd.Println("No crawl jobs.")
		return nil
	}

	for i := range jobs {
		j := &jobs[i]
		cmd.Printf("  %s  %-11s vendor=%s crawled=%d created=%d updated=%d  %s\n",
			j.ID, j.Status, j.VendorID, j.Stats.PagesCrawled,
			j.Stats.DocumentsCreated, j.Stats.DocumentsUpdated,
			j.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

func runJobsShow(cmd *cobra.Command, args []string) error {
	if err := requireService(crawlService != nil, "crawl"); err != nil {
		return err
	}

	job, err := crawlService.Get(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("failed to get job: %w", err)
	}
	printJob(cmd, job)
	return nil
}

func runJobsCancel(cmd *cobra.Command, args []string) error {
	if err := requireService(crawlService != nil, "crawl"); err != nil {
		return err
	}

	job, err := crawlService.Cancel(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("failed to cancel job: %w", err)
	}
	cmd.Printf("Job %s cancelled.\n", job.ID)
	return nil
}

func printJob(cmd *cobra.Command, job *domain.CrawlJob) {
	st := job.Stats
	cmd.Printf("Job %s\n", job.ID)
	cmd.Printf("  Vendor:     %s\n", job.VendorID)
	cmd.Printf("  Status:     %s\n", job.Status)
	cmd.Printf("  Pages:      %d discovered, %d crawled, %d failed, %d skipped\n",
		st.PagesDiscovered, st.PagesCrawled, st.PagesFailed, st.PagesSkipped)
	cmd.Printf("  Documents:  %d created, %d updated, %d unchanged\n",
		st.DocumentsCreated, st.DocumentsUpdated, st.DocumentsUnchanged)
	if job.StartedAt != nil {
		cmd.Printf("  Started:    %s\n", job.StartedAt.Local().Format(time.RFC3339))
	}
	if job.CompletedAt != nil {
		cmd.Printf("  Completed:  %s\n", job.CompletedAt.Local().Format(time.RFC3339))
	}
	if job.ErrorMessage != "" {
		cmd.Printf("  Error:      %s\n", job.ErrorMessage)
	}
}
