package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/vendorscope/internal/core/domain"
)

var vendorCmd = &cobra.Command{
	Use:   "vendor",
	Short: "Manage monitored vendors",
	Long:  `Add, list, inspect, activate, deactivate or remove monitored vendors.`,
}

var vendorAddCmd = &cobra.Command{
	Use:   "add [name] [domain]",
	Short: "Add a vendor",
	Long: `Adds a vendor to monitor. The domain may be given as a URL; the scheme,
path and a leading "www." are stripped.

Without --seed the crawler starts at the domain root and the well-known
trust paths (/security, /trust, /privacy, ...).`,
	Args: cobra.ExactArgs(2),
	RunE: runVendorAdd,
}

var vendorListCmd = &cobra.Command{
	Use:   "list",
	Short: "List vendors",
	Args:  cobra.NoArgs,
	RunE:  runVendorList,
}

var vendorShowCmd = &cobra.Command{
	Use:   "show [vendor]",
	Short: "Show a vendor and its latest documents",
	Args:  cobra.ExactArgs(1),
	RunE:  runVendorShow,
}

var vendorRemoveCmd = &cobra.Command{
	Use:   "remove [vendor]",
	Short: "Remove a vendor with all its documents and jobs",
	Args:  cobra.ExactArgs(1),
	RunE:  runVendorRemove,
}

var vendorActivateCmd = &cobra.Command{
	Use:   "activate [vendor]",
	Short: "Include a vendor in scheduled refreshes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setVendorActive(cmd, args[0], true)
	},
}

var vendorDeactivateCmd = &cobra.Command{
	Use:   "deactivate [vendor]",
	Short: "Exclude a vendor from scheduled refreshes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setVendorActive(cmd, args[0], false)
	},
}

var (
	vendorType        string
	vendorDescription string
	vendorCritical    bool
	vendorSeeds       []string
	vendorBlocked     []string
	vendorRefresh     time.Duration
)

func init() {
	vendorAddCmd.Flags().StringVarP(&vendorType, "type", "t", string(domain.VendorTypeOther), "vendor type")
	vendorAddCmd.Flags().StringVarP(&vendorDescription, "description", "d", "", "free-form description")
	vendorAddCmd.Flags().BoolVar(&vendorCritical, "critical", false, "refresh on the shorter critical interval")
	vendorAddCmd.Flags().StringSliceVar(&vendorSeeds, "seed", nil, "seed URL (repeatable)")
	vendorAddCmd.Flags().StringSliceVar(&vendorBlocked, "block", nil, "URL prefix never to crawl (repeatable)")
	vendorAddCmd.Flags().DurationVar(&vendorRefresh, "refresh", 0, "refresh interval override, e.g. 72h")

	vendorCmd.AddCommand(vendorAddCmd)
	vendorCmd.AddCommand(vendorListCmd)
	vendorCmd.AddCommand(vendorShowCmd)
	vendorCmd.AddCommand(vendorRemoveCmd)
	vendorCmd.AddCommand(vendorActivateCmd)
	vendorCmd.AddCommand(vendorDeactivateCmd)
	rootCmd.AddCommand(vendorCmd)
}

func runVendorAdd(cmd *cobra.Command, args []string) error {
	if err := requireService(vendorService != nil, "vendor"); err != nil {
		return err
	}

	v := &domain.Vendor{
		Name:            args[0],
		Domain:          args[1],
		Type:            domain.VendorType(vendorType),
		Description:     vendorDescription,
		IsActive:        true,
		IsCritical:      vendorCritical,
		SeedURLs:        vendorSeeds,
		BlockedURLs:     vendorBlocked,
		RefreshInterval: vendorRefresh,
	}
	if err := vendorService.Add(commandContext(cmd), v); err != nil {
		return fmt.Errorf("failed to add vendor: %w", err)
	}

	cmd.Printf("Vendor added: %s (%s)\n", v.Name, v.Domain)
	cmd.Printf("  ID: %s\n", v.ID)
	return nil
}

func runVendorList(cmd *cobra.Command, _ []string) error {
	if err := requireService(vendorService != nil, "vendor"); err != nil {
		return err
	}

	vendors, err := vendorService.List(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to list vendors: %w", err)
	}
	if len(vendors) == 0 {
		cmd.Println("No vendors configured.")
		return nil
	}

	cmd.Println("Vendors:")
	for i := range vendors {
		v := &vendors[i]
		flags := []string{string(v.Type)}
		if v.IsCritical {
			flags = append(flags, "critical")
		}
		if !v.IsActive {
			flags = append(flags, "inactive")
		}
		cmd.Printf("  %s  %-24s %-28s [%s]  last crawl: %s\n",
			v.ID, v.Name, v.Domain, strings.Join(flags, ", "), formatTimePtr(v.LastCrawledAt))
	}
	return nil
}

func runVendorShow(cmd *cobra.Command, args []string) error {
	if err := requireService(vendorService != nil, "vendor"); err != nil {
		return err
	}
	ctx := commandContext(cmd)

	v, err := vendorService.Resolve(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to get vendor: %w", err)
	}

	cmd.Printf("%s (%s)\n", v.Name, v.Domain)
	cmd.Printf("  ID:          %s\n", v.ID)
	cmd.Printf("  Type:        %s\n", v.Type)
	cmd.Printf("  Active:      %t\n", v.IsActive)
	cmd.Printf("  Critical:    %t\n", v.IsCritical)
	if v.Description != "" {
		cmd.Printf("  Description: %s\n", v.Description)
	}
	if v.RefreshInterval > 0 {
		cmd.Printf("  Refresh:     %s\n", v.RefreshInterval)
	}
	cmd.Printf("  Last crawl:  %s\n", formatTimePtr(v.LastCrawledAt))
	cmd.Printf("  Next crawl:  %s\n", formatTimePtr(v.NextCrawlScheduledAt))
	printList(cmd, "Seed URLs", v.SeedURLs)
	printList(cmd, "Blocked", v.BlockedURLs)

	if documentService == nil {
		return nil
	}
	docs, err := documentService.ListLatest(ctx, v.ID)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	cmd.Printf("  Documents (%d):\n", len(docs))
	for i := range docs {
		cmd.Printf("    [%s] v%d %s\n", docs[i].Type, docs[i].Version, docs[i].URL)
	}
	return nil
}

func runVendorRemove(cmd *cobra.Command, args []string) error {
	if err := requireService(vendorService != nil, "vendor"); err != nil {
		return err
	}
	ctx := commandContext(cmd)

	v, err := vendorService.Resolve(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to get vendor: %w", err)
	}
	if err := vendorService.Remove(ctx, v.ID); err != nil {
		return fmt.Errorf("failed to remove vendor: %w", err)
	}
	cmd.Printf("Vendor removed: %s\n", v.Name)
	return nil
}

func setVendorActive(cmd *cobra.Command, ref string, active bool) error {
	if err := requireService(vendorService != nil, "vendor"); err != nil {
		return err
	}
	ctx := commandContext(cmd)

	v, err := vendorService.Resolve(ctx, ref)
	if err != nil {
		return fmt.Errorf("failed to get vendor: %w", err)
	}
	if err := vendorService.SetActive(ctx, v.ID, active); err != nil {
		return fmt.Errorf("failed to update vendor: %w", err)
	}

	state := "deactivated"
	if active {
		state = "activated"
	}
	cmd.Printf("Vendor %s: %s\n", state, v.Name)
	return nil
}

func printList(cmd *cobra.Command, label string, values []string) {
	if len(values) == 0 {
		return
	}
	cmd.Printf("  %s:\n", label)
	for _, s := range values {
		cmd.Printf("    - %s\n", s)
	}
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04")
}
