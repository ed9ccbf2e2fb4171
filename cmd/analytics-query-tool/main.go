package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"grocery-ordering-system/internal/analytics"
	"grocery-ordering-system/internal/config"
)

func main() {
	var (
		configPath string
		chCfg      config.ClickHouseConfig
		store      *analytics.Store
	)

	rootCmd := &cobra.Command{
		Use:   "analytics-query-tool",
		Short: "Reports over the order_lines table in ClickHouse",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if chCfg.Addr == "" {
				cfg, err := config.Load(configPath)
				if err != nil {
					return err
				}
				chCfg = cfg.ClickHouse
			}
			var err error
			store, err = analytics.Open(cmd.Context(), chCfg)
			return err
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if store == nil {
				return nil
			}
			return store.Close()
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "Config file with the clickhouse section")
	rootCmd.PersistentFlags().StringVar(&chCfg.Addr, "addr", "", "ClickHouse address, overrides the config file")
	rootCmd.PersistentFlags().StringVar(&chCfg.Database, "database", "default", "ClickHouse database when --addr is set")
	rootCmd.PersistentFlags().StringVar(&chCfg.User, "user", "default", "ClickHouse user when --addr is set")

	topItemsCmd := &cobra.Command{
		Use:   "top-items",
		Short: "Best selling items by revenue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			days, _ := cmd.Flags().GetInt("days")
			since := time.Now().UTC().AddDate(0, 0, -days)

			stats, err := store.TopItems(cmd.Context(), since, limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ITEM\tQUANTITY\tREVENUE\tORDERS")
			for _, s := range stats {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", s.Item, s.Quantity.String(), s.Revenue.StringFixed(2), s.Orders)
			}
			return w.Flush()
		},
	}
	topItemsCmd.Flags().Int("limit", 20, "Number of items")
	topItemsCmd.Flags().Int("days", 30, "Look-back window in days")

	recentCmd := &cobra.Command{
		Use:   "recent-orders",
		Short: "Latest orders with their totals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			orders, err := store.RecentOrders(cmd.Context(), limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ORDER ID\tPLACED AT\tCUSTOMER\tLINES\tTOTAL")
			for _, o := range orders {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", o.OrderID, o.PlacedAt.Format(time.RFC3339), o.Customer, o.Lines, o.Total.StringFixed(2))
			}
			return w.Flush()
		},
	}
	recentCmd.Flags().Int("limit", 20, "Number of orders")

	rootCmd.AddCommand(topItemsCmd, recentCmd)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
