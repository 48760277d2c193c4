package main

import (
	"fmt"
	"strconv"

	"github.com/Urientropy/centavo/inventory"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newMaterialsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "materials",
		Aliases: []string{"raw-materials"},
		Short:   "Manage raw materials",
	}

	var flags listFlags
	var unit string
	list := &cobra.Command{
		Use:   "list",
		Short: "List raw materials",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.application(cmd.Context())
			if err != nil {
				return err
			}
			if unit != "" && unit != inventory.AllUnits {
				a.Inventory.Materials.UseFilter(unit)
			}
			if err := fetch(cmd.Context(), a.Inventory.Materials, flags); err != nil {
				return err
			}
			renderPage(cmd.OutOrStdout(), a.Inventory.Materials.State(),
				[]any{"ID", "Name", "Unit", "Stock", "Description"},
				func(m inventory.RawMaterial) table.Row {
					return table.Row{m.ID, m.Name, m.UnitOfMeasure, m.TotalStock, m.Description}
				})
			return nil
		},
	}
	flags.register(list)
	list.Flags().StringVarP(&unit, "unit", "u", "", "only this unit of measure")

	var in inventory.RawMaterialInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Add a raw material",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.application(cmd.Context())
			if err != nil {
				return err
			}
			m, err := a.Inventory.CreateRawMaterial(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%sCreated%s raw material %d %s\n", Green, ResetColor, m.ID, m.Name)
			return nil
		},
	}
	create.Flags().StringVar(&in.Name, "name", "", "name")
	create.Flags().StringVar(&in.UnitOfMeasure, "unit", "", "unit of measure")
	create.Flags().StringVar(&in.Description, "description", "", "description")

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a raw material",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := c.application(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.Inventory.DeleteRawMaterial(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%sDeleted%s raw material %d\n", Green, ResetColor, id)
			return nil
		},
	}

	units := &cobra.Command{
		Use:   "units",
		Short: "List the units of measure in use",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.application(cmd.Context())
			if err != nil {
				return err
			}
			renderList(cmd.OutOrStdout(), "Unit", a.Inventory.FetchUnits(cmd.Context()))
			return nil
		},
	}

	cmd.AddCommand(list, create, del, units)
	return cmd
}

func newBatchesCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batches",
		Short: "Manage the purchase batches of a raw material",
	}

	var page int
	list := &cobra.Command{
		Use:   "list MATERIAL_ID",
		Short: "List the purchase batches of a raw material",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			materialID, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := c.application(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.Inventory.FetchPurchaseBatches(cmd.Context(), materialID, page); err != nil {
				return err
			}
			renderPage(cmd.OutOrStdout(), a.Inventory.Batches.State(),
				[]any{"ID", "Date", "Quantity", "Remaining", "Cost"},
				func(b inventory.PurchaseBatch) table.Row {
					return table.Row{b.ID, b.PurchaseDate, b.Quantity, b.QuantityRemaining, b.TotalCost}
				})
			return nil
		},
	}
	list.Flags().IntVarP(&page, "page", "p", 1, "page to show")

	var in inventory.PurchaseBatchInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Record a purchase batch",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.application(cmd.Context())
			if err != nil {
				return err
			}
			b, err := a.Inventory.CreatePurchaseBatch(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%sCreated%s batch %d of %s\n", Green, ResetColor, b.ID, b.RawMaterialName)
			if m := a.Inventory.Materials.Detail(); m != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s stock is now %s %s\n", m.Name, m.TotalStock, m.UnitOfMeasure)
			}
			return nil
		},
	}
	create.Flags().IntVar(&in.RawMaterial, "material", 0, "raw material id")
	create.Flags().StringVar(&in.PurchaseDate, "date", "", "purchase date, YYYY-MM-DD")
	create.Flags().StringVar((*string)(&in.Quantity), "quantity", "", "quantity bought")
	create.Flags().StringVar((*string)(&in.TotalCost), "cost", "", "total cost")

	cmd.AddCommand(list, create)
	return cmd
}

func parseID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, errors.Errorf("invalid id %q", arg)
	}
	return id, nil
}
