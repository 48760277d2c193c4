package main

import (
	"fmt"

	"github.com/Urientropy/centavo/production"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

const productionDateLayout = "2006-01-02 15:04"

func newProductionCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "production",
		Short: "Record and review production runs",
	}

	var flags listFlags
	list := &cobra.Command{
		Use:   "list",
		Short: "List production runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.application(cmd.Context())
			if err != nil {
				return err
			}
			if err := fetch(cmd.Context(), a.Production.Logs, flags); err != nil {
				return err
			}
			renderPage(cmd.OutOrStdout(), a.Production.Logs.State(),
				[]any{"ID", "Date", "Product", "Quantity", "Cost"},
				func(l production.ProductionLog) table.Row {
					return table.Row{l.ID, l.ProductionDate.Local().Format(productionDateLayout), l.ProductName, l.QuantityProduced, l.TotalCost}
				})
			return nil
		},
	}
	flags.register(list)

	var reg production.Registration
	register := &cobra.Command{
		Use:   "register",
		Short: "Record a production run, consuming raw material first in first out",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.application(cmd.Context())
			if err != nil {
				return err
			}
			l, err := a.Production.Register(cmd.Context(), reg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%sProduced%s %s of %s at a cost of %s\n", Green, ResetColor, l.QuantityProduced, l.ProductName, l.TotalCost)
			return nil
		},
	}
	register.Flags().IntVar(&reg.ProductID, "product", 0, "product id")
	register.Flags().StringVar((*string)(&reg.QuantityProduced), "quantity", "", "quantity produced")

	cmd.AddCommand(list, register)
	return cmd
}
