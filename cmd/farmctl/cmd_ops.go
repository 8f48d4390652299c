package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/R3E-Network/farm_backoffice/internal/app/domain/member"
	"github.com/R3E-Network/farm_backoffice/internal/app/runtime"
)

var (
	opsMember string
	leaseYear int

	adminName     string
	adminEmail    string
	adminPassword string
)

// reconcileCmd rebuilds stock balances from the movement ledger.
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Rebuild inventory balances from stock movements",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd.Context(), func(rt *runtime.Application) error {
			repaired, err := rt.Services().Inventory.Reconcile(cmd.Context(), opsMember)
			if err != nil {
				return err
			}
			for _, b := range repaired {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%.3f\t%.2f\n", b.MemberID, b.Product, b.Quantity, b.Value)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d balances repaired\n", len(repaired))
			return nil
		})
	},
}

// leasesCmd books the annual lease expense of leased parcels.
var leasesCmd = &cobra.Command{
	Use:   "charge-leases",
	Short: "Book the annual lease expense of leased parcels",
	RunE: func(cmd *cobra.Command, args []string) error {
		year := leaseYear
		if year == 0 {
			year = time.Now().UTC().Year()
		}
		return withRuntime(cmd.Context(), func(rt *runtime.Application) error {
			entries, err := rt.Services().Accounting.ChargeLeases(cmd.Context(), opsMember, year)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%.2f\t%s\n", e.MemberID, e.Reference, e.Amount, e.Description)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d lease charges booked for %d\n", len(entries), year)
			return nil
		})
	},
}

// adminCmd manages administrator accounts.
var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage administrator accounts",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an administrator",
	RunE: func(cmd *cobra.Command, args []string) error {
		if adminEmail == "" || adminPassword == "" {
			return fmt.Errorf("--email and --password are required")
		}
		return withRuntime(cmd.Context(), func(rt *runtime.Application) error {
			m, err := rt.Services().Members.Create(cmd.Context(), adminName, adminEmail, "", adminPassword, member.RoleAdmin)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "administrator %s created (%s)\n", m.ID, m.Email)
			return nil
		})
	},
}

func init() {
	reconcileCmd.Flags().StringVar(&opsMember, "member", "", "Limit to one member (default: all members)")
	leasesCmd.Flags().StringVar(&opsMember, "member", "", "Limit to one member (default: all members)")
	leasesCmd.Flags().IntVar(&leaseYear, "year", 0, "Lease year (default: current year)")

	adminCreateCmd.Flags().StringVar(&adminName, "name", "Administrator", "Display name")
	adminCreateCmd.Flags().StringVar(&adminEmail, "email", "", "Login email")
	adminCreateCmd.Flags().StringVar(&adminPassword, "password", "", "Login password")
	adminCmd.AddCommand(adminCreateCmd)
}

func withRuntime(ctx context.Context, fn func(rt *runtime.Application) error) error {
	rt, err := runtime.NewApplication(ctx)
	if err != nil {
		return err
	}
	defer rt.Shutdown(context.WithoutCancel(ctx))
	return fn(rt)
}
